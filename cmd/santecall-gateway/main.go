// ABOUTME: Entry point for santecall-gateway, the MCP gateway to the SanteCall lookup API
// ABOUTME: Defines the cobra command tree and config path resolution

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389/santecall-gateway/internal/config"
)

// Version is set by goreleaser at build time.
var version = "1.0.0"

// configEnvVar names the config file when --config is not given.
const configEnvVar = "SANTECALL_GATEWAY_CONFIG"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "santecall-gateway",
		Short:         "MCP gateway exposing SanteCall patient lookup",
		Long:          "santecall-gateway serves a JSON-RPC 2.0 MCP endpoint with a single search_patient tool backed by the SanteCall lookup API.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetVersionTemplate("santecall-gateway {{.Version}}\n")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to a YAML config file (default $"+configEnvVar+", then $XDG_CONFIG_HOME/santecall-gateway/config.yaml if present)")

	load := func() (*config.Config, string, error) {
		path := resolveConfigPath(configPath)
		cfg, err := config.Load(path)
		if err != nil {
			return nil, path, fmt.Errorf("loading config: %w", err)
		}
		return cfg, path, nil
	}

	root.AddCommand(
		newServeCmd(load),
		newHealthCmd(load),
		newTokenCmd(load),
		newAuditCmd(load),
		newVersionCmd(),
	)
	return root
}

// configLoader loads the configuration selected by the root --config flag
// and reports which file was used ("" for none).
type configLoader func() (*config.Config, string, error)

// resolveConfigPath picks the config file.
// Priority: --config > SANTECALL_GATEWAY_CONFIG > XDG_CONFIG_HOME/santecall-gateway/config.yaml (only if it exists).
// An empty result means environment and defaults only.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envPath := os.Getenv(configEnvVar); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	candidate := filepath.Join(configDir, "santecall-gateway", "config.yaml")
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "santecall-gateway %s\n", version)
		},
	}
}
