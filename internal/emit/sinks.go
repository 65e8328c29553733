package emit

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/pulsetrace/pulse/internal/span"
	"github.com/pulsetrace/pulse/internal/tracing"
)

// SpanPoster delivers a batch to the trace service.
type SpanPoster interface {
	PostSpans(ctx context.Context, spans []span.Span) error
}

// HTTPSink sends spans to the trace service.
type HTTPSink struct {
	poster SpanPoster
}

func NewHTTPSink(p SpanPoster) *HTTPSink { return &HTTPSink{poster: p} }

func (h *HTTPSink) Name() string { return "http" }

func (h *HTTPSink) Send(ctx context.Context, spans []span.Span) error {
	return h.poster.PostSpans(ctx, spans)
}

// OTelSink mirrors spans into an OpenTelemetry tracer.
type OTelSink struct {
	tracer trace.Tracer
}

func NewOTelSink(t trace.Tracer) *OTelSink { return &OTelSink{tracer: t} }

func (o *OTelSink) Name() string { return "otel" }

func (o *OTelSink) Send(ctx context.Context, spans []span.Span) error {
	for _, s := range spans {
		tracing.Record(ctx, o.tracer, s)
	}
	return nil
}
