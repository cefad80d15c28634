package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dilenshah23/collaboration-board/internal/config"
	"github.com/dilenshah23/collaboration-board/internal/credentials"
)

type tokenReport struct {
	UserID    int64      `json:"user_id"`
	Username  string     `json:"username,omitempty"`
	TokenType string     `json:"token_type,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired"`
}

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token [jwt]",
		Short: "Print the claims of the access token",
		Long: `Decode the access token and print its claims as JSON. Without an argument the
token is resolved the same way the sync does, from BOARDSYNC_ACCESS_TOKEN and
then BOARDSYNC_TOKEN_FILE. The signature is not verified.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tok string
			if len(args) == 1 {
				tok = args[0]
			} else {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				board := cfg.Board
				board.CheckExpiry = false
				tok, err = tokenProvider(board).AccessToken(cmd.Context())
				if err != nil {
					return err
				}
			}

			claims, err := credentials.Inspect(tok)
			if err != nil {
				return err
			}

			report := tokenReport{
				UserID:    claims.UserID,
				Username:  claims.Username,
				TokenType: claims.TokenType,
			}
			if claims.ExpiresAt != nil {
				at := claims.ExpiresAt.UTC()
				report.ExpiresAt = &at
				report.Expired = !at.After(time.Now())
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("token: %w", err)
			}
			return nil
		},
	}
}
