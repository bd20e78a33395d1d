package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrAnalyzers          = attribute.Key("mailguard.analyzers")
	AttrResults            = attribute.Key("mailguard.results")
	AttrAnalyzerName       = attribute.Key("mailguard.analyzer.name")
	AttrAnalyzerSource     = attribute.Key("mailguard.analyzer.source")
	AttrAnalyzerOutcome    = attribute.Key("mailguard.analyzer.outcome")
	AttrAnalyzerDecision   = attribute.Key("mailguard.analyzer.decision")
	AttrAnalyzerConfidence = attribute.Key("mailguard.analyzer.confidence")
	AttrUserID             = attribute.Key("mailguard.user_id")
	AttrTextLength         = attribute.Key("mailguard.text_length")
	AttrScanStatus         = attribute.Key("mailguard.scan.status")
	AttrRequestID          = attribute.Key("mailguard.request_id")
)

// SetError records err on span and marks the span failed. A nil err marks
// it OK.
func SetError(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
