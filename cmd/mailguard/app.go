package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"mercator-hq/mailguard/pkg/analyzer"
	"mercator-hq/mailguard/pkg/analyzer/llm"
	"mercator-hq/mailguard/pkg/analyzer/model"
	"mercator-hq/mailguard/pkg/analyzer/rules"
	"mercator-hq/mailguard/pkg/analyzer/urlcheck"
	"mercator-hq/mailguard/pkg/cli"
	"mercator-hq/mailguard/pkg/config"
	"mercator-hq/mailguard/pkg/history"
	"mercator-hq/mailguard/pkg/history/retention"
	"mercator-hq/mailguard/pkg/orchestrator"
	"mercator-hq/mailguard/pkg/rulepack"
	"mercator-hq/mailguard/pkg/scan"
	"mercator-hq/mailguard/pkg/telemetry/logging"
	"mercator-hq/mailguard/pkg/telemetry/metrics"
	"mercator-hq/mailguard/pkg/telemetry/tracing"
	"mercator-hq/mailguard/pkg/transport"
)

// appOptions select which parts of the configuration a command wires.
type appOptions struct {
	// rulesOnly registers only the builtin rule analyzer.
	rulesOnly bool
	// history opens the configured history store.
	history bool
	// logOutput receives structured logs.
	logOutput io.Writer
}

// app is a wired mailguard instance.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	orch    *orchestrator.Orchestrator
	store   history.Store
	scanner *scan.Service

	packs *rulepack.Manager
	git   *rulepack.GitSource

	closeOnce sync.Once
	closers   []func() error
}

// newApp wires the components described by cfg. Analyzers whose backend
// is unreachable are logged and skipped.
func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	logger, err := logging.New(cfg.Telemetry.Logging, opts.logOutput)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}

	a := &app{cfg: cfg, logger: logger}

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}
	a.metrics = collector

	a.tracer, err = tracing.New(ctx, &cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.closers = append(a.closers, func() error { return a.tracer.Shutdown(context.Background()) })

	a.orch = orchestrator.New(
		orchestrator.WithLogger(logger),
		orchestrator.WithRecorder(collector),
		orchestrator.WithTracer(a.tracer.Tracer()),
		orchestrator.WithParallel(cfg.Scan.Parallel),
		orchestrator.WithAnalyzerTimeout(cfg.Scan.AnalyzerTimeout),
	)

	if err := a.registerAnalyzers(ctx, opts.rulesOnly); err != nil {
		a.Close()
		return nil, err
	}
	if !opts.rulesOnly && cfg.RulePacks.Enabled {
		if err := a.loadRulePacks(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	scanOpts := []scan.Option{
		scan.WithRecorder(collector),
		scan.WithTracer(a.tracer.Tracer()),
		scan.WithLogger(logger),
		scan.WithWriteTimeout(cfg.History.WriteTimeout),
	}
	if opts.history && cfg.History.Enabled {
		store, err := history.Open(ctx, cfg.History, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, store.Close)
		scanOpts = append(scanOpts, scan.WithStore(store))
	}
	a.scanner = scan.New(a.orch, cfg.Scan, scanOpts...)

	return a, nil
}

func (a *app) registerAnalyzers(ctx context.Context, rulesOnly bool) error {
	cfg := a.cfg.Analyzers
	httpOpts := []transport.Option{transport.WithLogger(a.logger)}

	if cfg.Rules.Enabled || rulesOnly {
		r, err := rules.New(&cfg.Rules)
		if err != nil {
			return cli.NewConfigError("analyzers.rules", err.Error())
		}
		a.orch.Register(r)
	}
	if rulesOnly {
		return nil
	}

	for i, mc := range cfg.Models {
		labels, err := model.LabelSetFromConfig(mc)
		if err != nil {
			return cli.NewConfigError(fmt.Sprintf("analyzers.models[%d]", i), err.Error())
		}
		backend := model.NewHTTPBackend(mc, httpOpts...)
		m, err := model.New(ctx, mc.Name, labels, backend)
		if a.skipUnavailable(err) {
			_ = backend.Close()
			continue
		}
		if err != nil {
			_ = backend.Close()
			return err
		}
		a.closers = append(a.closers, backend.Close)
		a.orch.Register(m)
	}

	if cfg.URLCheck.Enabled {
		predictor := urlcheck.NewHTTPPredictor(cfg.URLCheck, httpOpts...)
		u, err := urlcheck.New(ctx, cfg.URLCheck, predictor)
		switch {
		case a.skipUnavailable(err):
			_ = predictor.Close()
		case err != nil:
			_ = predictor.Close()
			return cli.NewConfigError("analyzers.url_check", err.Error())
		default:
			a.closers = append(a.closers, predictor.Close)
			a.orch.Register(u)
		}
	}

	if cfg.LLM.Enabled {
		client, err := llm.NewClient(cfg.LLM)
		if a.skipUnavailable(err) {
			return nil
		}
		if err != nil {
			return cli.NewConfigError("analyzers.llm", err.Error())
		}
		l, err := llm.New(cfg.LLM, client)
		if err != nil {
			return cli.NewConfigError("analyzers.llm", err.Error())
		}
		a.orch.Register(l)
	}
	return nil
}

func (a *app) skipUnavailable(err error) bool {
	var unavailable *analyzer.UnavailableError
	if !errors.As(err, &unavailable) {
		return false
	}
	a.logger.Warn("analyzer unavailable, not registering",
		"analyzer", unavailable.Analyzer,
		"error", err,
	)
	return true
}

// loadRulePacks registers the configured packs, syncing the Git source
// first when one is configured.
func (a *app) loadRulePacks(ctx context.Context) error {
	cfg := a.cfg.RulePacks

	builtin := make([]string, 0, a.orch.Len())
	for _, info := range a.orch.Analyzers() {
		builtin = append(builtin, info.Name)
	}

	path, version := cfg.Path, ""
	if cfg.Git.Enabled {
		src, err := rulepack.NewGitSource(cfg.Git, a.logger)
		if err != nil {
			return cli.NewConfigError("rule_packs.git", err.Error())
		}
		if _, err := src.Sync(ctx); err != nil {
			return fmt.Errorf("failed to sync rule pack repository: %w", err)
		}
		a.git = src
		path, version = src.PackPath(), src.Head()
	}

	a.packs = rulepack.NewManager(a.orch, path,
		rulepack.WithManagerLogger(a.logger),
		rulepack.WithReservedNames(builtin...),
	)
	a.packs.SetSource(path, version)
	if err := a.packs.Reload(ctx); err != nil {
		return fmt.Errorf("failed to load rule packs: %w", err)
	}
	return nil
}

// startBackground starts the long-running helpers of the server: rule pack
// watching or polling and history retention. They stop with ctx.
func (a *app) startBackground(ctx context.Context) error {
	if a.packs != nil {
		switch {
		case a.git != nil:
			go a.git.Poll(ctx, func(path, version string) error {
				a.packs.SetSource(path, version)
				return a.packs.Reload(ctx)
			})
		case a.cfg.RulePacks.Watch:
			w, err := rulepack.NewWatcher(a.cfg.RulePacks.Path, a.cfg.RulePacks.Debounce, a.logger)
			if err != nil {
				return err
			}
			a.closers = append(a.closers, w.Stop)
			go func() {
				if err := w.Watch(ctx, func() error { return a.packs.Reload(ctx) }); err != nil {
					a.logger.Error("rule pack watcher stopped", "error", err)
				}
			}()
		}
	}

	if a.store != nil {
		scheduler := retention.NewScheduler(retention.NewPruner(a.store, a.cfg.History.Retention, a.logger))
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start retention scheduler: %w", err)
		}
		a.closers = append(a.closers, func() error { scheduler.Stop(); return nil })
		if next := scheduler.NextRun(); next != nil {
			a.logger.Debug("history retention scheduled", "next_run", next)
		}
	}
	return nil
}

// Close releases everything newApp and startBackground opened, newest
// first.
func (a *app) Close() error {
	var errs []error
	a.closeOnce.Do(func() {
		if a.packs != nil {
			a.packs.Unload()
		}
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
