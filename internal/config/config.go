package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Board     BoardConfig
	Reconnect ReconnectConfig
	Transport TransportConfig
	Actions   ActionsConfig
	Server    ServerConfig
	Redis     RedisConfig
}

// BoardConfig selects the board and the credential used to subscribe to it.
type BoardConfig struct {
	WSURL       string
	ID          int64
	AccessToken string //nolint:gosec // G117: bearer token config
	TokenFile   string
	// CheckExpiry rejects expired JWTs locally before dialing.
	CheckExpiry bool
}

// ReconnectConfig holds the backoff policy.
type ReconnectConfig struct {
	Base        time.Duration
	Cap         time.Duration
	MaxAttempts int
}

// TransportConfig holds websocket settings.
type TransportConfig struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadLimit        int64
}

// ActionsConfig throttles outbound actions. A zero rate disables throttling.
type ActionsConfig struct {
	Rate  float64
	Burst int
}

// ServerConfig holds the local observer API settings. An empty Addr disables
// the server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// RedisConfig holds event mirror settings. An empty Addr disables the mirror.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	boardID, err := getEnvInt64("BOARDSYNC_BOARD_ID", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	base, err := getEnvDuration("BOARDSYNC_RECONNECT_BASE", time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	capDelay, err := getEnvDuration("BOARDSYNC_RECONNECT_CAP", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	maxAttempts, err := getEnvInt("BOARDSYNC_RECONNECT_MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	handshakeTimeout, err := getEnvDuration("BOARDSYNC_HANDSHAKE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	wsWriteTimeout, err := getEnvDuration("BOARDSYNC_WRITE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readLimit, err := getEnvInt64("BOARDSYNC_READ_LIMIT", 1<<20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	actionRate, err := getEnvFloat("BOARDSYNC_ACTION_RATE", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	actionBurst, err := getEnvInt("BOARDSYNC_ACTION_BURST", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("BOARDSYNC_HTTP_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("BOARDSYNC_HTTP_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("BOARDSYNC_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	checkExpiry, err := getEnvBool("BOARDSYNC_CHECK_TOKEN_EXPIRY", true)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("BOARDSYNC_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Board: BoardConfig{
			WSURL:       getEnv("BOARDSYNC_WS_URL", "ws://localhost:8001"),
			ID:          boardID,
			AccessToken: getEnv("BOARDSYNC_ACCESS_TOKEN", ""),
			TokenFile:   getEnv("BOARDSYNC_TOKEN_FILE", ""),
			CheckExpiry: checkExpiry,
		},
		Reconnect: ReconnectConfig{
			Base:        base,
			Cap:         capDelay,
			MaxAttempts: maxAttempts,
		},
		Transport: TransportConfig{
			HandshakeTimeout: handshakeTimeout,
			WriteTimeout:     wsWriteTimeout,
			ReadLimit:        readLimit,
		},
		Actions: ActionsConfig{
			Rate:  actionRate,
			Burst: actionBurst,
		},
		Server: ServerConfig{
			Addr:         getEnv("BOARDSYNC_HTTP_ADDR", ""),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
		},
		Redis: RedisConfig{
			Addr:     getEnv("BOARDSYNC_REDIS_ADDR", ""),
			Password: getEnv("BOARDSYNC_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.Board.ID <= 0 {
		return fmt.Errorf("BOARDSYNC_BOARD_ID is required and must be positive, got %d", c.Board.ID)
	}

	u, err := url.Parse(c.Board.WSURL)
	if err != nil {
		return fmt.Errorf("BOARDSYNC_WS_URL is not a URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("BOARDSYNC_WS_URL must use ws, wss, http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("BOARDSYNC_WS_URL must include a host")
	}
	if u.Scheme == "ws" && u.Hostname() != "localhost" && u.Hostname() != "127.0.0.1" {
		log.Warn().Str("url", c.Board.WSURL).Msg("BOARDSYNC_WS_URL is unencrypted; the access token travels in the query string")
	}

	// The token is resolved on every open, so a missing one is reported then.
	if c.Board.AccessToken == "" && c.Board.TokenFile == "" {
		log.Warn().Msg("neither BOARDSYNC_ACCESS_TOKEN nor BOARDSYNC_TOKEN_FILE is set")
	}

	// Bounds checks.
	if c.Reconnect.Base <= 0 {
		return fmt.Errorf("BOARDSYNC_RECONNECT_BASE must be positive, got %s", c.Reconnect.Base)
	}
	if c.Reconnect.Cap < c.Reconnect.Base {
		return fmt.Errorf("BOARDSYNC_RECONNECT_CAP must be >= BOARDSYNC_RECONNECT_BASE, got %s", c.Reconnect.Cap)
	}
	if c.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("BOARDSYNC_RECONNECT_MAX_ATTEMPTS must be >= 0, got %d", c.Reconnect.MaxAttempts)
	}
	if c.Transport.HandshakeTimeout <= 0 {
		return fmt.Errorf("BOARDSYNC_HANDSHAKE_TIMEOUT must be positive, got %s", c.Transport.HandshakeTimeout)
	}
	if c.Transport.WriteTimeout <= 0 {
		return fmt.Errorf("BOARDSYNC_WRITE_TIMEOUT must be positive, got %s", c.Transport.WriteTimeout)
	}
	if c.Transport.ReadLimit < 1 {
		return fmt.Errorf("BOARDSYNC_READ_LIMIT must be >= 1, got %d", c.Transport.ReadLimit)
	}
	if c.Actions.Rate < 0 {
		return fmt.Errorf("BOARDSYNC_ACTION_RATE must be >= 0, got %g", c.Actions.Rate)
	}
	if c.Actions.Rate > 0 && c.Actions.Burst < 1 {
		return fmt.Errorf("BOARDSYNC_ACTION_BURST must be >= 1, got %d", c.Actions.Burst)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("BOARDSYNC_HTTP_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("BOARDSYNC_HTTP_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("BOARDSYNC_REDIS_DB must be >= 0, got %d", c.Redis.DB)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
