// ABOUTME: token command that mints bearer JWTs for MCP clients
// ABOUTME: Signs with auth.jwt_secret from the loaded configuration

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389/santecall-gateway/internal/auth"
)

func newTokenCmd(load configLoader) *cobra.Command {
	var (
		principal string
		ttl       time.Duration
		scopes    []string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generate a bearer token for an MCP client",
		Long: `Generate a signed JWT accepted by the gateway's POST routes.

The token is signed with auth.jwt_secret (AUTH_JWT_SECRET). A --ttl of 0
produces a token without expiry. A token minted with --scope may only call
tools when one of its scopes is tools:call; a token without scopes is
unrestricted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not configured (set AUTH_JWT_SECRET)")
			}

			verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
			if err != nil {
				return fmt.Errorf("creating JWT verifier: %w", err)
			}

			token, err := verifier.Generate(principal, ttl, scopes...)
			if err != nil {
				return fmt.Errorf("generating token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "principal id recorded in the audit trail (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 90*24*time.Hour, "token lifetime, 0 for no expiry")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "scopes to embed, e.g. tools:call (repeatable)")
	_ = cmd.MarkFlagRequired("principal")
	return cmd
}
