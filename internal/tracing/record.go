package tracing

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pulsetrace/pulse/internal/span"
)

// SpanAttributes flattens a span into OTel attributes. Optional fields are
// included only when set; metadata keys are sorted.
func SpanAttributes(s span.Span) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrSpanID, s.SpanID),
		attribute.String(AttrSessionID, s.SessionID),
		attribute.String(AttrSource, string(s.Source)),
		attribute.String(AttrKind, string(s.Kind)),
		attribute.String(AttrEventType, s.EventType),
		attribute.String(AttrStatus, string(s.Status)),
		attribute.String(AttrTimestamp, s.Timestamp),
	}
	optional := []struct {
		key, val string
	}{
		{AttrCWD, s.Cwd},
		{AttrModel, s.Model},
		{AttrAgentName, s.AgentName},
		{AttrToolName, s.ToolName},
		{AttrToolUseID, s.ToolUseID},
		{AttrToolInput, string(s.ToolInput)},
		{AttrToolOutput, string(s.ToolResponse)},
		{AttrErrorMessage, errorText(s.Error)},
	}
	for _, o := range optional {
		if o.val != "" {
			attrs = append(attrs, attribute.String(o.key, o.val))
		}
	}
	if s.IsInterrupt != nil {
		attrs = append(attrs, attribute.Bool(AttrIsInterrupt, *s.IsInterrupt))
	}

	keys := make([]string, 0, len(s.Metadata))
	for k := range s.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, attribute.String(AttrMetadataPrefix+k, metadataText(s.Metadata[k])))
	}
	return attrs
}

// Record starts and ends one OTel span mirroring s.
func Record(ctx context.Context, tracer trace.Tracer, s span.Span) {
	opts := []trace.SpanStartOption{
		trace.WithAttributes(SpanAttributes(s)...),
		trace.WithSpanKind(trace.SpanKindInternal),
	}
	if ts, err := time.Parse(span.TimestampFormat, s.Timestamp); err == nil {
		opts = append(opts, trace.WithTimestamp(ts))
	}
	_, otelSpan := tracer.Start(ctx, s.Name(), opts...)
	if s.Status == span.StatusError {
		otelSpan.SetStatus(codes.Error, errorText(s.Error))
	} else {
		otelSpan.SetStatus(codes.Ok, "")
	}
	otelSpan.End()
}

// errorText unwraps a JSON string error, or returns the raw JSON.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return string(raw)
}

func metadataText(v any) string {
	if str, ok := v.(string); ok {
		return str
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
