package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"barangay/backend/internal/auditlog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	logsSearch   string
	logsCategory string
	logsOutput   string
)

func newLogsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the most recent system logs",
		Long: `Show the most recent system logs, newest first.

Examples:
  admin logs --category AUTH
  admin logs --search escalat --output yaml`,
		Args: cobra.NoArgs,
		RunE: withDeps(func(ctx context.Context, d *deps, _ []string) error {
			logs, err := d.audit.Recent(ctx)
			if err != nil {
				return err
			}
			logs = auditlog.Filter(logs, logsSearch, logsCategory)

			switch logsOutput {
			case "json":
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(logs)
			case "yaml":
				return yaml.NewEncoder(os.Stdout).Encode(logs)
			case "", "table":
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tCATEGORY\tACTION\tACTOR\tDETAILS")
				for _, l := range logs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", l.Timestamp.Local().Format(time.DateTime), l.Category, l.Action, l.Actor, l.Details)
				}
				return w.Flush()
			default:
				return fmt.Errorf("unknown output format %q", logsOutput)
			}
		}),
	}
	cmd.Flags().StringVar(&logsSearch, "search", "", "Case-insensitive match on details, actor or action")
	cmd.Flags().StringVar(&logsCategory, "category", auditlog.CategoryAll, "AUTH, USER_MANAGEMENT, COMPLAINT, SYSTEM or ALL")
	cmd.Flags().StringVarP(&logsOutput, "output", "o", "table", "Output format: table, json, yaml")
	return cmd
}
