// Package scan ties sanitization, the orchestrator, content metadata and
// scan history into the single operation the HTTP server and CLI expose.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/mailguard/pkg/analyzer"
	"mercator-hq/mailguard/pkg/analyzer/rules"
	"mercator-hq/mailguard/pkg/config"
	"mercator-hq/mailguard/pkg/history"
	"mercator-hq/mailguard/pkg/sanitize"
	"mercator-hq/mailguard/pkg/telemetry/tracing"
)

// Report statuses.
const (
	StatusOK        = "ok"
	StatusNoVerdict = "no_verdict"
)

// SnippetRunes is the length of the text excerpt kept in reports and history.
const SnippetRunes = 200

// ErrNotReady is returned when no analyzer is registered.
var ErrNotReady = errors.New("scan service not ready: no analyzers registered")

// Runner is the orchestrator surface the service needs.
type Runner interface {
	Ready() error
	RunAll(ctx context.Context, text string) []analyzer.Result
}

// Recorder receives scan telemetry. metrics.Collector implements it.
type Recorder interface {
	RecordScan(status string, duration time.Duration)
	RecordHistoryWrite(status string)
}

// Report is the outcome of one scan.
type Report struct {
	ID        string            `json:"scan_id,omitempty"`
	Results   []analyzer.Result `json:"results"`
	Metadata  rules.Metadata    `json:"metadata"`
	Status    string            `json:"status"`
	Snippet   string            `json:"email_snippet"`
	Timestamp time.Time         `json:"timestamp"`
}

// Service runs scans. It is safe for concurrent use.
type Service struct {
	runner    Runner
	sanitizer *sanitize.Sanitizer
	store     history.Store
	recorder  Recorder
	tracer    trace.Tracer
	logger    *slog.Logger
	now       func() time.Time

	historyLimit    int
	maxHistoryLimit int
	writeTimeout    time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithStore enables history. A nil store disables it.
func WithStore(store history.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithTracer sets the tracer for scan spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWriteTimeout bounds each history write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Service) { s.writeTimeout = d }
}

// New creates a scan service.
func New(runner Runner, cfg config.ScanConfig, opts ...Option) *Service {
	s := &Service{
		runner:          runner,
		sanitizer:       sanitize.New(cfg),
		tracer:          noop.NewTracerProvider().Tracer("mailguard/scan"),
		logger:          slog.Default(),
		now:             time.Now,
		historyLimit:    cfg.HistoryLimit,
		maxHistoryLimit: cfg.MaxHistoryLimit,
	}
	if s.historyLimit <= 0 {
		s.historyLimit = config.DefaultHistoryLimit
	}
	if s.maxHistoryLimit <= 0 {
		s.maxHistoryLimit = config.DefaultMaxHistoryLimit
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HistoryEnabled reports whether scans are recorded.
func (s *Service) HistoryEnabled() bool { return s.store != nil }

// Scan sanitizes raw, runs every analyzer and records the outcome for
// userID. Sanitization failures are returned as *sanitize.ValidationError.
// History write failures are logged and do not fail the scan.
func (s *Service) Scan(ctx context.Context, userID, raw string) (*Report, error) {
	start := s.now()

	ctx, span := s.tracer.Start(ctx, "scan", trace.WithAttributes(tracing.AttrUserID.String(userID)))
	defer span.End()

	if err := s.runner.Ready(); err != nil {
		tracing.SetError(span, ErrNotReady)
		return nil, ErrNotReady
	}

	text, err := s.sanitizer.Sanitize(raw)
	if err != nil {
		s.record("invalid", start)
		tracing.SetError(span, err)
		return nil, err
	}
	span.SetAttributes(tracing.AttrTextLength.Int(utf8.RuneCountInString(text)))

	results := s.runner.RunAll(ctx, text)
	if err := ctx.Err(); err != nil {
		// Abandoned scans are not saved to history.
		s.record("abandoned", start)
		tracing.SetError(span, err)
		return nil, fmt.Errorf("scan abandoned: %w", err)
	}
	report := &Report{
		Results:   results,
		Metadata:  rules.ExtractMetadata(text),
		Status:    StatusOK,
		Snippet:   Snippet(text),
		Timestamp: s.now().UTC(),
	}
	if len(results) == 0 {
		report.Status = StatusNoVerdict
	}

	if s.store != nil {
		entry := history.NewEntry(userID, report.Snippet, text, results, report.Timestamp)
		if err := s.save(ctx, entry); err != nil {
			s.logger.WarnContext(ctx, "failed to save scan history",
				"user_id", userID,
				"error", err,
			)
			s.recordHistory("error")
		} else {
			report.ID = entry.ID
			s.recordHistory("ok")
		}
	}

	s.record(report.Status, start)
	span.SetAttributes(tracing.AttrScanStatus.String(report.Status))
	tracing.SetError(span, nil)
	s.logger.DebugContext(ctx, "scan completed",
		"user_id", userID,
		"status", report.Status,
		"results", len(results),
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)
	return report, nil
}

func (s *Service) save(ctx context.Context, entry *history.Entry) error {
	// The write outlives a cancelled request.
	ctx = context.WithoutCancel(ctx)
	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}
	return s.store.Save(ctx, entry)
}

// History returns userID's most recent entries, newest first. A
// non-positive limit takes the configured default; larger limits are capped.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*history.Entry, error) {
	if s.store == nil {
		return []*history.Entry{}, nil
	}
	limit = s.ClampLimit(limit)
	entries, err := s.store.Query(ctx, &history.Query{UserID: userID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return entries, nil
}

// ClampLimit applies the default and maximum history limits.
func (s *Service) ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.historyLimit
	case limit > s.maxHistoryLimit:
		return s.maxHistoryLimit
	default:
		return limit
	}
}

func (s *Service) record(status string, start time.Time) {
	if s.recorder != nil {
		s.recorder.RecordScan(status, s.now().Sub(start))
	}
}

func (s *Service) recordHistory(status string) {
	if s.recorder != nil {
		s.recorder.RecordHistoryWrite(status)
	}
}

// Snippet returns the first SnippetRunes runes of text, with "..." appended
// when text is longer.
func Snippet(text string) string {
	if utf8.RuneCountInString(text) <= SnippetRunes {
		return text
	}
	n := 0
	for i := range text {
		if n == SnippetRunes {
			return text[:i] + "..."
		}
		n++
	}
	return text
}
