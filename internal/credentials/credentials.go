// Package credentials supplies the board access token and inspects it.
//
// Tokens are JWTs issued by the board's auth service. This client never holds
// the signing key, so claims are read without verifying the signature; the
// board server remains the authority and rejects bad tokens with close code
// 1008.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dilenshah23/collaboration-board/internal/domain"
)

// Claims is the subset of the access token payload the client reads.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	TokenType string `json:"token_type,omitempty"`
}

// ErrMalformedToken is returned by Inspect for values that are not JWTs.
var ErrMalformedToken = errors.New("credentials: malformed token")

// Inspect decodes the claims of token without verifying its signature.
func Inspect(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("credentials.Inspect: %w: %w", ErrMalformedToken, err)
	}
	return claims, nil
}

// Provider yields the access token for the next connection attempt. It
// matches realtime.CredentialProvider.
type Provider interface {
	AccessToken(ctx context.Context) (string, error)
}

// Static always returns the same token.
type Static string

func (s Static) AccessToken(context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("credentials.Static: %w", domain.ErrMissingCredential)
	}
	return string(s), nil
}

// Env reads the token from an environment variable on every attempt, so a
// rotated value is picked up by the next reconnect.
type Env string

func (e Env) AccessToken(context.Context) (string, error) {
	v := strings.TrimSpace(os.Getenv(string(e)))
	if v == "" {
		return "", fmt.Errorf("credentials.Env(%s): %w", string(e), domain.ErrMissingCredential)
	}
	return v, nil
}

// File reads the token from a file on every attempt. Surrounding whitespace
// is trimmed.
type File string

func (f File) AccessToken(context.Context) (string, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return "", fmt.Errorf("credentials.File: %w: %w", domain.ErrMissingCredential, err)
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", fmt.Errorf("credentials.File(%s): empty: %w", string(f), domain.ErrMissingCredential)
	}
	return v, nil
}

// Chain returns the first token any provider yields. Providers that report
// a missing credential are skipped; other errors stop the chain.
func Chain(providers ...Provider) Provider {
	return chain(providers)
}

type chain []Provider

func (c chain) AccessToken(ctx context.Context) (string, error) {
	for _, p := range c {
		tok, err := p.AccessToken(ctx)
		if err == nil && tok != "" {
			return tok, nil
		}
		if err != nil && !errors.Is(err, domain.ErrMissingCredential) {
			return "", fmt.Errorf("credentials.Chain: %w", err)
		}
	}
	return "", fmt.Errorf("credentials.Chain: %w", domain.ErrMissingCredential)
}

// RequireUnexpired wraps p so an expired token is reported as a missing
// credential instead of being sent to the server. Tokens that do not parse
// as JWTs are passed through for the server to judge. now defaults to
// time.Now.
func RequireUnexpired(p Provider, now func() time.Time) Provider {
	if now == nil {
		now = time.Now
	}
	return &unexpired{next: p, now: now}
}

type unexpired struct {
	next Provider
	now  func() time.Time
}

func (u *unexpired) AccessToken(ctx context.Context) (string, error) {
	tok, err := u.next.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	claims, err := Inspect(tok)
	if err != nil {
		return tok, nil //nolint:nilerr // opaque tokens are the server's call
	}
	if claims.ExpiresAt != nil && !u.now().Before(claims.ExpiresAt.Time) {
		return "", fmt.Errorf("credentials: token expired at %s: %w",
			claims.ExpiresAt.Time.UTC().Format(time.RFC3339), domain.ErrMissingCredential)
	}
	return tok, nil
}
