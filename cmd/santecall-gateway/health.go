// ABOUTME: health command that probes a running gateway's liveness route
// ABOUTME: Exits non-zero unless GET /health answers 200 with status ok

package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389/santecall-gateway/internal/config"
	"github.com/2389/santecall-gateway/internal/mcp"
)

func newHealthCmd(load configLoader) *cobra.Command {
	var (
		baseURL string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check gateway health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if baseURL == "" {
				cfg, _, err := load()
				if err != nil {
					return err
				}
				baseURL = localURL(cfg.Server)
			}

			client := &http.Client{Timeout: timeout}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, baseURL+"/health", nil)
			if err != nil {
				return fmt.Errorf("creating request: %w", err)
			}

			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
			}

			var status mcp.HealthStatus
			if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
				return fmt.Errorf("decoding health response: %w", err)
			}
			if status.Status != "ok" {
				return fmt.Errorf("unhealthy: status %q", status.Status)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "healthy (%s %s)\n", status.Service, status.Version)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "gateway base URL (default derived from the listen address)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}

// localURL returns a URL reaching the configured listener from this host.
// Wildcard hosts are replaced by loopback.
func localURL(s config.ServerConfig) string {
	host := s.Host
	switch host {
	case "", "0.0.0.0":
		host = "127.0.0.1"
	case "::", "[::]":
		host = "::1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(s.Port))
}
