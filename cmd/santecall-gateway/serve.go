// ABOUTME: serve command that starts the gateway HTTP server
// ABOUTME: Prints the startup banner and blocks until SIGINT/SIGTERM

package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/santecall-gateway/internal/config"
	"github.com/2389/santecall-gateway/internal/gateway"
)

const banner = `
  ┌─┐┌─┐┌┐┌┌┬┐┌─┐┌─┐┌─┐┬  ┬
  └─┐├─┤│││ │ ├┤ │  ├─┤│  │
  └─┘┴ ┴┘└┘ ┴ └─┘└─┘┴ ┴┴─┘┴─┘  gateway
`

func newServeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := load()
			if err != nil {
				return err
			}

			printBanner(cmd.OutOrStdout(), cfg, path)

			logger := setupLogger(cfg.Logging, cmd.OutOrStdout())
			logger.Info("starting santecall-gateway",
				"version", version,
				"config", path,
				"addr", cfg.Server.Addr(),
				"api_url", cfg.SanteCall.APIURL,
			)

			gw, err := gateway.New(cfg, version, logger)
			if err != nil {
				return fmt.Errorf("creating gateway: %w", err)
			}
			return gw.Run(cmd.Context())
		},
	}
}

func printBanner(w io.Writer, cfg *config.Config, path string) {
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Fprint(w, banner)
	gray.Fprintf(w, "    version: %s\n\n", version)

	line := func(label, value string) {
		green.Fprint(w, "    ▶ ")
		fmt.Fprintf(w, "%-10s %s\n", label+":", value)
	}

	if path == "" {
		path = "(environment only)"
	}
	line("Config", path)
	line("Listen", "http://"+cfg.Server.Addr()+"/mcp")
	line("SanteCall", cfg.SanteCall.APIURL)
	if cfg.SanteCall.DefaultVolubileID != "" {
		line("Cabinet", cfg.SanteCall.DefaultVolubileID)
	}
	if cfg.Audit.Path != "" {
		line("Audit", cfg.Audit.Path)
	}
	if cfg.Metrics.Enabled {
		line("Metrics", cfg.Metrics.Path)
	}

	if cfg.SanteCall.Token == "" {
		yellow.Fprintln(w, "    ! SANTECALL_TOKEN is not set")
	}
	if cfg.Auth.JWTSecret == "" {
		yellow.Fprintln(w, "    ! MCP endpoint is unauthenticated")
	}
	if cfg.Logging.Debug {
		yellow.Fprintln(w, "    ! debug logging enabled")
	}
	fmt.Fprintln(w)
}
