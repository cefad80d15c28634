package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	cmd := &cobra.Command{
		Use:   "boardsync",
		Short: "Live local mirror of a collaboration board",
		Long: `boardsync subscribes to one board over WebSocket, keeps an in-memory copy of
its cards, and relays card edits back to the board server.

Configuration is read from BOARDSYNC_* environment variables. Setting
BOARDSYNC_HTTP_ADDR enables the local API and BOARDSYNC_REDIS_ADDR enables the
Redis event mirror.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(cmd.ErrOrStderr(), logLevel, logFormat)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", os.Getenv("BOARDSYNC_LOG_LEVEL"), "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", os.Getenv("BOARDSYNC_LOG_FORMAT"), "log format (json or text)")

	cmd.AddCommand(newTokenCmd(), newVersionCmd())
	return cmd
}

// setupLogging configures the global zerolog logger. An empty level means info.
func setupLogging(w io.Writer, level, format string) error {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	zerolog.SetGlobalLevel(lvl)

	switch format {
	case "text":
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	case "", "json":
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "boardsync", version)
		},
	}
}
