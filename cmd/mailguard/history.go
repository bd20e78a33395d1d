package main

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/mailguard/pkg/cli"
	"mercator-hq/mailguard/pkg/history"
	"mercator-hq/mailguard/pkg/server"
)

type historyOptions struct {
	user   string
	limit  int
	format string
}

func newHistoryCmd() *cobra.Command {
	var opts historyOptions
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show a user's recent scans",
		Long: `Show a user's most recent scans from the configured history store,
newest first.

Examples:
  mailguard history --user alice
  mailguard history --user alice --limit 50 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.user, "user", "u", server.AnonymousUser, "user whose history to show")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "number of entries (default scan.history_limit)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format (text, json, csv)")
	return cmd
}

func runHistory(cmd *cobra.Command, opts historyOptions) error {
	formatter, err := cli.NewFormatter(opts.format)
	if err != nil {
		return cli.NewConfigError("--format", err.Error())
	}
	if opts.limit < 0 {
		return cli.NewConfigError("--limit", "must not be negative")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return cli.NewConfigError("history.enabled", "history is disabled")
	}
	if cfg.History.Backend == history.BackendMemory {
		return cli.NewCommandError("history", errors.New("the memory backend does not persist between runs"))
	}

	a, err := newApp(cmd.Context(), cfg, appOptions{rulesOnly: true, history: true, logOutput: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.scanner.History(cmd.Context(), opts.user, opts.limit)
	if err != nil {
		return cli.NewCommandError("history", err)
	}

	if cli.OutputFormat(strings.ToLower(opts.format)) == cli.FormatJSON {
		return formatter.FormatTo(cmd.OutOrStdout(), server.HistoryResponse{History: entries})
	}
	return formatter.FormatTo(cmd.OutOrStdout(), historyTable(entries))
}

type historyTable []*history.Entry

func (t historyTable) Header() []string {
	return []string{"ID", "TIME", "VERDICTS", "SNIPPET"}
}

func (t historyTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, e := range t {
		verdicts := make([]string, 0, len(e.Results))
		for _, r := range e.Results {
			verdicts = append(verdicts, r.Name+"="+string(r.Decision))
		}
		rows = append(rows, []string{
			e.ID,
			e.Timestamp.Local().Format(time.DateTime),
			strings.Join(verdicts, ","),
			oneLine(e.Snippet, 60),
		})
	}
	return rows
}

// oneLine flattens s and cuts it to n runes.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
