/*
Package cli holds the helpers shared by the mailguard commands.

Output:

Command results are written as text, JSON or CSV. Values implementing Table
render as aligned columns in text mode and as rows in CSV mode:

	formatter, err := cli.NewFormatter("json")
	if err != nil {
		return err
	}
	return formatter.FormatTo(os.Stdout, report)

Progress:

Batch scans report progress on stderr:

	progress := cli.NewProgressReporter(os.Stderr, "Scanning")
	progress.Start(len(files))
	for i, f := range files {
		scanOne(f)
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Signals:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

Errors:

ConfigError and CommandError carry the exit code main should return; see
ExitCode.
*/
package cli
