// ABOUTME: audit command for inspecting and pruning the tool call audit trail
// ABOUTME: Reads the SQLite store directly, the gateway need not be running

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/santecall-gateway/internal/store"
)

func newAuditCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the tool call audit trail",
	}

	open := func() (*store.SQLiteStore, error) {
		cfg, _, err := load()
		if err != nil {
			return nil, err
		}
		if cfg.Audit.Path == "" || cfg.Audit.Path == ":memory:" {
			return nil, errors.New("audit.path is not configured (set AUDIT_DB_PATH)")
		}
		quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
		return store.NewSQLiteStore(cfg.Audit.Path, quiet)
	}

	cmd.AddCommand(newAuditListCmd(open), newAuditPruneCmd(open))
	return cmd
}

func newAuditListCmd(open func() (*store.SQLiteStore, error)) *cobra.Command {
	var (
		since  time.Duration
		filter store.ToolCallFilter
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent tool calls, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			defer s.Close()

			if since > 0 {
				t := time.Now().Add(-since)
				filter.Since = &t
			}

			calls, err := s.ListToolCalls(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("listing tool calls: %w", err)
			}
			printToolCalls(cmd.OutOrStdout(), calls)
			return nil
		},
	}

	f := cmd.Flags()
	f.DurationVar(&since, "since", 0, "only calls newer than this, e.g. 24h")
	f.StringVar(&filter.ToolName, "tool", "", "only calls to this tool")
	f.StringVar(&filter.PrincipalID, "principal", "", "only calls by this principal")
	f.BoolVar(&filter.ErrorsOnly, "errors", false, "only calls whose result was an error")
	f.IntVar(&filter.Limit, "limit", 50, "maximum rows (capped at 1000)")
	return cmd
}

func printToolCalls(out io.Writer, calls []store.ToolCall) {
	cyan := color.New(color.FgCyan)
	fmt.Fprintln(out)
	cyan.Fprintln(out, "  Tool Calls")
	cyan.Fprintln(out, "  ----------")

	if len(calls) == 0 {
		fmt.Fprintln(out, "  (no calls)")
		fmt.Fprintln(out)
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tTOOL\tPRINCIPAL\tERROR\tDURATION\tCREATED")
	fmt.Fprintln(w, "  --\t----\t---------\t-----\t--------\t-------")
	for _, c := range calls {
		principal := c.PrincipalID
		if principal == "" {
			principal = "-"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(c.ID, 12),
			c.ToolName,
			truncate(principal, 20),
			strconv.FormatBool(c.IsError),
			c.Duration,
			c.CreatedAt.Local().Format("Jan 02 15:04:05"),
		)
	}
	w.Flush()
	fmt.Fprintln(out)
}

func newAuditPruneCmd(open func() (*store.SQLiteStore, error)) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete audit rows older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}

			s, err := open()
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.PruneToolCalls(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return fmt.Errorf("pruning tool calls: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d tool call(s)\n", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "delete calls older than this")
	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
