package main

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"mercator-hq/mailguard/pkg/cli"
	"mercator-hq/mailguard/pkg/security/auth"
	"mercator-hq/mailguard/pkg/server"
	"mercator-hq/mailguard/pkg/telemetry/health"
)

type runOptions struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the mailguard HTTP API",
		Long: `Start the HTTP API with the configured analyzers.

The server stops gracefully on SIGINT or SIGTERM, finishing in-flight scans
within server.shutdown_timeout.

Examples:
  # Start with config.yaml from the working directory
  mailguard run

  # Override the listen address
  mailguard run --listen 0.0.0.0:8080

  # Validate the configuration and analyzer wiring without serving
  mailguard run --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.listenAddress, "listen", "l", "", "override listen address")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "wire everything, then exit without serving")
	return cmd
}

func runServer(cmd *cobra.Command, opts runOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.listenAddress != "" {
		cfg.Server.ListenAddress = opts.listenAddress
	}
	if opts.logLevel != "" {
		cfg.Telemetry.Logging.Level = opts.logLevel
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{history: true, logOutput: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("analyzers registered",
		"count", a.orch.Len(),
		"history", a.scanner.HistoryEnabled(),
		"metrics", a.metrics != nil,
		"tracing", a.tracer.Enabled(),
	)
	if err := a.orch.Ready(); err != nil {
		a.logger.Warn("no analyzers registered, scans will be rejected until one is")
	}

	srv, err := newServer(a)
	if err != nil {
		return err
	}
	if opts.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	if err := a.startBackground(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	ln, err := net.Listen("tcp", cfg.Server.ListenAddress)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	a.logger.Info("mailguard listening",
		"address", ln.Addr().String(),
		"version", Version,
	)

	if err := srv.Serve(ctx, ln); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

// newServer builds the HTTP server over a wired app.
func newServer(a *app) (*server.Server, error) {
	cfg := a.cfg

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("analyzers", health.AnalyzersCheck(a.orch))
	if a.store != nil {
		checker.RegisterCheck("history", health.PingCheck(a.store))
	}

	deps := server.Deps{
		Scanner:     a.scanner,
		Models:      a.orch,
		Health:      checker,
		HealthPaths: cfg.Telemetry.Health,
		Version:     versionInfo(),
		Metrics:     a.metrics,
		MetricsPath: cfg.Telemetry.Metrics.Path,
		Logger:      a.logger,
	}

	if cfg.Security.Authentication.Enabled {
		validator, err := auth.NewAPIKeyValidator(cfg.Security.Authentication.Keys)
		if err != nil {
			return nil, cli.NewConfigError("security.authentication.keys", err.Error())
		}
		deps.Auth = auth.NewAPIKeyMiddleware(validator, cfg.Security.Authentication.Sources,
			auth.WithErrorFunc(server.AuthError),
			auth.WithLogger(a.logger),
		)
	}

	return server.New(cfg.Server, deps)
}
