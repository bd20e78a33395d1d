package main

import (
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/mailguard/pkg/cli"
	"mercator-hq/mailguard/pkg/orchestrator"
)

func newModelsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the analyzers the configuration registers",
		Long: `Wire the configured analyzers and list those that registered.

Model servers are contacted as they would be at startup; unreachable ones
are left out of the list and logged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			formatter, err := cli.NewFormatter(format)
			if err != nil {
				return cli.NewConfigError("--format", err.Error())
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, appOptions{logOutput: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer a.Close()

			summary := a.orch.Summary()
			if cli.OutputFormat(strings.ToLower(format)) == cli.FormatJSON {
				return formatter.FormatTo(cmd.OutOrStdout(), summary)
			}
			return formatter.FormatTo(cmd.OutOrStdout(), modelsTable(summary.Models))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, json, csv)")
	return cmd
}

type modelsTable []orchestrator.Info

func (t modelsTable) Header() []string {
	return []string{"NAME", "SOURCE", "STATUS", "REGISTERED"}
}

func (t modelsTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, info := range t {
		rows = append(rows, []string{
			info.Name,
			string(info.Source),
			info.Status,
			info.RegisteredAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return rows
}
