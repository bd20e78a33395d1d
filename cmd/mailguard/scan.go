package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/mailguard/pkg/analyzer"
	"mercator-hq/mailguard/pkg/cli"
	"mercator-hq/mailguard/pkg/scan"
)

// maxInputBytes bounds what scan reads from one file or stdin; the
// sanitizer applies the configured character limit afterwards.
const maxInputBytes = 8 << 20

type scanOptions struct {
	format    string
	rulesOnly bool
	user      string
}

func newScanCmd() *cobra.Command {
	var opts scanOptions
	cmd := &cobra.Command{
		Use:   "scan [file|-]...",
		Short: "Scan email text from files or stdin",
		Long: `Scan email text with the configured analyzers and print every verdict.

With no file, or "-", the text is read from stdin. Scans are recorded in
the history store only when --user is given.

Examples:
  mailguard scan message.txt
  cat message.txt | mailguard scan --rules-only --format json
  mailguard scan --user alice inbox/*.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format (text, json, csv)")
	cmd.Flags().BoolVar(&opts.rulesOnly, "rules-only", false, "use only the builtin rule analyzer")
	cmd.Flags().StringVarP(&opts.user, "user", "u", "", "record the scan in this user's history")
	return cmd
}

// scanOutcome is one input's result in multi-input JSON output.
type scanOutcome struct {
	Input  string       `json:"input"`
	Report *scan.Report `json:"report,omitempty"`
	Error  string       `json:"error,omitempty"`
}

func runScan(cmd *cobra.Command, args []string, opts scanOptions) error {
	opts.format = strings.ToLower(opts.format)
	formatter, err := cli.NewFormatter(opts.format)
	if err != nil {
		return cli.NewConfigError("--format", err.Error())
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appOptions{
		rulesOnly: opts.rulesOnly,
		history:   opts.user != "",
		logOutput: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 0 {
		args = []string{"-"}
	}

	var progress cli.ProgressReporter
	if len(args) > 1 {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "Scanning")
		progress.Start(int64(len(args)))
	}

	outcomes := make([]scanOutcome, 0, len(args))
	failed := 0
	for i, input := range args {
		outcome := scanOutcome{Input: input}
		report, err := scanInput(cmd, a, input, opts.user)
		if err != nil {
			failed++
			outcome.Error = err.Error()
			if progress != nil {
				progress.Error(fmt.Errorf("%s: %w", input, err))
			}
		}
		outcome.Report = report
		outcomes = append(outcomes, outcome)
		if progress != nil {
			progress.Update(int64(i + 1))
		}
	}
	if progress != nil {
		progress.Finish()
	}

	if err := writeScanOutput(cmd.OutOrStdout(), formatter, opts.format, outcomes); err != nil {
		return err
	}

	switch {
	case failed == 0:
		return nil
	case len(outcomes) == 1:
		return cli.NewCommandError("scan", fmt.Errorf("%s", outcomes[0].Error))
	default:
		return cli.NewCommandError("scan", fmt.Errorf("%d of %d inputs failed", failed, len(outcomes)))
	}
}

func scanInput(cmd *cobra.Command, a *app, input, user string) (*scan.Report, error) {
	var r io.Reader
	if input == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(input)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", input, err)
	}
	return a.scanner.Scan(cmd.Context(), user, string(data))
}

func writeScanOutput(w io.Writer, formatter cli.Formatter, format string, outcomes []scanOutcome) error {
	switch cli.OutputFormat(format) {
	case cli.FormatJSON:
		if len(outcomes) == 1 {
			if outcomes[0].Report == nil {
				return nil
			}
			return formatter.FormatTo(w, outcomes[0].Report)
		}
		return formatter.FormatTo(w, outcomes)
	case cli.FormatCSV:
		return formatter.FormatTo(w, scanTable(outcomes))
	}

	for i, o := range outcomes {
		if o.Report == nil {
			continue
		}
		if len(outcomes) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "== %s ==\n", o.Input)
		}
		fmt.Fprintf(w, "Status: %s\n", o.Report.Status)
		if len(o.Report.Results) == 0 {
			continue
		}
		if err := formatter.FormatTo(w, resultsTable(o.Report.Results)); err != nil {
			return err
		}
	}
	return nil
}

// resultsTable renders analyzer results as rows.
type resultsTable []analyzer.Result

func (t resultsTable) Header() []string {
	return []string{"ANALYZER", "SOURCE", "DECISION", "CONFIDENCE", "DESCRIPTION"}
}

func (t resultsTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{
			r.Name,
			string(r.Source),
			string(r.Decision),
			strconv.FormatFloat(r.Confidence, 'f', 3, 64),
			r.Description,
		})
	}
	return rows
}

// scanTable renders every result of every input, one row each.
type scanTable []scanOutcome

func (t scanTable) Header() []string {
	return append([]string{"INPUT"}, resultsTable(nil).Header()...)
}

func (t scanTable) Rows() [][]string {
	var rows [][]string
	for _, o := range t {
		if o.Report == nil {
			continue
		}
		for _, row := range resultsTable(o.Report.Results).Rows() {
			rows = append(rows, append([]string{o.Input}, row...))
		}
	}
	return rows
}
