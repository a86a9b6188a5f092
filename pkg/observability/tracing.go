package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name of the tracer for coordination operations.
	TracerName = "confab"
)

// Span attribute keys
const (
	AttrSessionID    = "session_id"
	AttrSignal       = "signal"
	AttrFacet        = "facet"
	AttrAudioFormat  = "audio_format"
	AttrPayloadBytes = "payload_bytes"
	AttrTextLength   = "text_length"
)

// Span names
const (
	SpanSignal         = "confab.coordinator.signal"
	SpanTranscribe     = "confab.transcribe"
	SpanAnalysis       = "confab.analysis"
	SpanAnalysisFanout = "confab.analysis.dispatch"
)

// Tracer provides distributed tracing for session processing.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new confab tracer.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(TracerName),
	}
}

// StartSignalSpan starts a span for one streaming signal on a session.
func (t *Tracer) StartSignalSpan(ctx context.Context, sessionID, signal string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanSignal,
		trace.WithAttributes(
			attribute.String(AttrSessionID, sessionID),
			attribute.String(AttrSignal, signal),
		),
	)
}

// StartTranscribeSpan starts a span for a transcription collaborator call.
func (t *Tracer) StartTranscribeSpan(ctx context.Context, format string, payloadBytes int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanTranscribe,
		trace.WithAttributes(
			attribute.String(AttrAudioFormat, format),
			attribute.Int(AttrPayloadBytes, payloadBytes),
		),
	)
}

// StartAnalysisSpan starts a span for one text-analysis facet call.
func (t *Tracer) StartAnalysisSpan(ctx context.Context, facet string, textLength int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanAnalysis,
		trace.WithAttributes(
			attribute.String(AttrFacet, facet),
			attribute.Int(AttrTextLength, textLength),
		),
	)
}

// StartDispatchSpan starts the parent span for the three-facet fan-out.
func (t *Tracer) StartDispatchSpan(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanAnalysisFanout,
		trace.WithAttributes(
			attribute.String(AttrSessionID, sessionID),
		),
	)
}

// RecordSpanError marks a span as failed with the given error.
func RecordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
