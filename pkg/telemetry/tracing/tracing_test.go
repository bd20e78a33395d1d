package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/mailguard/pkg/config"
)

func TestNew_Disabled(t *testing.T) {
	tr, err := New(context.Background(), &config.TracingConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tr.Enabled() {
		t.Error("Enabled() = true")
	}

	_, span := tr.Start(context.Background(), "scan")
	if span.SpanContext().IsValid() {
		t.Error("noop tracer produced a valid span context")
	}
	span.End()

	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(context.Background(), nil, "test"); err == nil {
		t.Error("New(nil) error = nil")
	}
}

func TestNew_Enabled(t *testing.T) {
	prevProvider, prevPropagator := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})

	tr, err := New(context.Background(), &config.TracingConfig{
		Enabled:     true,
		Sampler:     SamplerAlways,
		Endpoint:    "127.0.0.1:1",
		ServiceName: "mailguard-test",
		OTLP:        config.OTLPConfig{Insecure: true},
	}, "1.0.0")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !tr.Enabled() {
		t.Error("Enabled() = false")
	}

	ctx, span := tr.Start(context.Background(), "scan")
	if TraceID(ctx) == "" {
		t.Error("TraceID() empty for sampled span")
	}
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = tr.Shutdown(ctx)
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{SamplerAlways, 0, false},
		{SamplerNever, 0, false},
		{SamplerRatio, 0.25, false},
		{"", 1, false},
		{SamplerRatio, 1.5, true},
		{SamplerRatio, -0.1, true},
		{"sometimes", 0.5, true},
	}
	for _, tt := range tests {
		_, err := createSampler(tt.strategy, tt.ratio)
		if (err != nil) != tt.wantErr {
			t.Errorf("createSampler(%q, %v) error = %v, wantErr %v", tt.strategy, tt.ratio, err, tt.wantErr)
		}
	}
}

func TestSetError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tracer := tp.Tracer("test")

	_, ok := tracer.Start(context.Background(), "ok")
	SetError(ok, nil)
	ok.End()

	_, failed := tracer.Start(context.Background(), "failed")
	SetError(failed, errors.New("backend unreachable"))
	failed.End()

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d", len(spans))
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("ok span status = %v", spans[0].Status())
	}
	if spans[1].Status().Code != codes.Error || len(spans[1].Events()) == 0 {
		t.Errorf("failed span status = %v, events = %d", spans[1].Status(), len(spans[1].Events()))
	}
}

func TestPropagation(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	const traceparent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

	var gotTraceID string
	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTraceID = TraceID(r.Context())

		out := http.Header{}
		Inject(r.Context(), out)
		if out.Get("traceparent") == "" {
			t.Error("Inject() wrote no traceparent")
		}
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/scan", nil)
	req.Header.Set("traceparent", traceparent)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotTraceID != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace ID = %q", gotTraceID)
	}
	if rec.Header().Get(TraceIDHeader) != gotTraceID {
		t.Errorf("%s = %q", TraceIDHeader, rec.Header().Get(TraceIDHeader))
	}
}

func TestValidateTraceParent(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", true},
		{"00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7", false},
		{"00-00000000000000000000000000000000-00f067aa0ba902b7-01", false},
		{"00-4bf92f3577b34da6a3ce929d0e0e4736-0000000000000000-01", false},
		{"00-4bf92f3577b34da6a3ce929d0e0e473z-00f067aa0ba902b7-01", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidateTraceParent(tt.in); got != tt.want {
			t.Errorf("ValidateTraceParent(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
