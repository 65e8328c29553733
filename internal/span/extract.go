package span

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampFormat is fixed width so timestamps sort lexically.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Extractor turns raw payloads into Spans. It holds no mutable state, so one
// value may be shared by concurrent emissions.
type Extractor struct {
	// Version is written to metadata.cli_version.
	Version string
	// ProjectID is written to metadata.project_id.
	ProjectID string

	// Now and NewID are replaceable for tests.
	Now   func() time.Time
	NewID func() string
}

// NewExtractor returns an Extractor using the wall clock and random v4 UUIDs.
func NewExtractor(version, projectID string) *Extractor {
	return &Extractor{
		Version:   version,
		ProjectID: projectID,
		Now:       time.Now,
		NewID:     func() string { return uuid.New().String() },
	}
}

// Extract builds a Span from a raw payload.
//
// eventType is the name the hook was registered with; for OpenClaw an empty
// name is recovered from the payload. Unknown event types still produce a
// minimal span. Failures are a payload that is not a JSON object, a missing
// session id, and an event name that is empty after normalization.
func (x *Extractor) Extract(source Source, eventType string, raw []byte) (Span, error) {
	p, err := ParsePayload(raw)
	if err != nil {
		return Span{}, err
	}

	sessionID, ok := p.String(sessionPaths[source]...)
	if !ok {
		return Span{}, ErrMissingSessionID
	}

	r, declared := resolve(source, nativeName(source, eventType, p))
	if r.eventType == "" {
		return Span{}, ErrMissingEventType
	}

	s := Span{
		SpanID:    x.NewID(),
		SessionID: strings.TrimSpace(sessionID),
		Timestamp: x.Now().UTC().Format(TimestampFormat),
		Source:    source,
		Kind:      KindOf(r.eventType),
		EventType: r.eventType,
		Status:    StatusSuccess,
		Metadata: map[string]any{
			MetaCLIVersion: x.Version,
			MetaProjectID:  x.ProjectID,
		},
	}
	if cwd, ok := p.String(cwdPaths[source]...); ok {
		s.Cwd = cwd
	}
	if !declared {
		return s, nil
	}

	if r.failure {
		s.Status = StatusError
	}
	for k, v := range r.meta {
		s.Metadata[k] = v
	}
	for _, op := range r.ops {
		apply(&s, op, p)
	}
	return s, nil
}

func apply(s *Span, op copyOp, p Payload) {
	switch op.to {
	case toToolUseID:
		s.ToolUseID, _ = p.String(op.from...)
	case toToolName:
		s.ToolName, _ = p.String(op.from...)
	case toModel:
		s.Model, _ = p.String(op.from...)
	case toAgentName:
		s.AgentName, _ = p.String(op.from...)
	case toToolInput:
		s.ToolInput, _ = p.Value(op.from...)
	case toToolResponse:
		s.ToolResponse, _ = p.Value(op.from...)
	case toError:
		s.Error, _ = p.Value(op.from...)
	case toIsInterrupt:
		if b, ok := p.Bool(op.from...); ok {
			s.IsInterrupt = &b
		}
	case toMeta:
		if v, ok := p.String(op.from...); ok {
			s.Metadata[op.key] = v
		}
	case toUsage:
		if usage := extractUsage(p); len(usage) > 0 {
			s.Metadata["usage"] = usage
		}
	}
}

func extractUsage(p Payload) map[string]json.RawMessage {
	usage := make(map[string]json.RawMessage, len(usagePaths))
	for _, u := range usagePaths {
		if n, ok := p.Number(u.path); ok {
			usage[u.key] = n
		}
	}
	return usage
}
