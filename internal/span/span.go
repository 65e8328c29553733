// Package span defines the canonical telemetry record and the extraction of
// spans from raw agent hook payloads.
package span

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Source identifies the agent that produced an event.
type Source string

const (
	SourceClaudeCode Source = "claude_code"
	SourceOpenCode   Source = "opencode"
	SourceOpenClaw   Source = "openclaw"
)

// Sources lists every supported source in display order.
var Sources = []Source{SourceClaudeCode, SourceOpenCode, SourceOpenClaw}

// ParseSource validates a source label.
func ParseSource(s string) (Source, error) {
	switch src := Source(strings.TrimSpace(s)); src {
	case SourceClaudeCode, SourceOpenCode, SourceOpenClaw:
		return src, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}

// Kind is the coarse event category.
type Kind string

const (
	KindToolUse      Kind = "tool_use"
	KindSession      Kind = "session"
	KindAgentRun     Kind = "agent_run"
	KindUserPrompt   Kind = "user_prompt"
	KindLLMResponse  Kind = "llm_response"
	KindNotification Kind = "notification"
)

// Status is the outcome of the event.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Canonical event types.
const (
	EventPreToolUse         = "pre_tool_use"
	EventPostToolUse        = "post_tool_use"
	EventPostToolUseFailure = "post_tool_use_failure"
	EventSessionStart       = "session_start"
	EventSessionEnd         = "session_end"
	EventStop               = "stop"
	EventSubagentStart      = "subagent_start"
	EventSubagentStop       = "subagent_stop"
	EventUserPromptSubmit   = "user_prompt_submit"
	EventNotification       = "notification"
	EventAssistantMessage   = "assistant_message"
)

var kinds = map[string]Kind{
	EventPreToolUse:         KindToolUse,
	EventPostToolUse:        KindToolUse,
	EventPostToolUseFailure: KindToolUse,
	EventSessionStart:       KindSession,
	EventSessionEnd:         KindSession,
	EventStop:               KindSession,
	EventSubagentStart:      KindAgentRun,
	EventSubagentStop:       KindAgentRun,
	EventUserPromptSubmit:   KindUserPrompt,
	EventNotification:       KindNotification,
	EventAssistantMessage:   KindLLMResponse,
}

// KindOf maps a canonical event type to its kind. Unknown types fall back to
// KindSession.
func KindOf(eventType string) Kind {
	if k, ok := kinds[eventType]; ok {
		return k
	}
	return KindSession
}

// Metadata keys always present on a span.
const (
	MetaCLIVersion = "cli_version"
	MetaProjectID  = "project_id"
)

var (
	// ErrMissingSessionID means the payload carried no usable session id.
	ErrMissingSessionID = errors.New("payload has no session_id")
	// ErrPayloadParse means the payload was not a JSON object.
	ErrPayloadParse = errors.New("payload is not a JSON object")
	// ErrMissingEventType means neither the caller nor the payload named the event.
	ErrMissingEventType = errors.New("event type is empty")
	// ErrUnknownSource means the source label is not one of Sources.
	ErrUnknownSource = errors.New("unknown source")
)

// Span is the canonical telemetry record. Field names are the wire schema.
type Span struct {
	SpanID    string `json:"span_id"`
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
	Source    Source `json:"source"`
	Kind      Kind   `json:"kind"`
	EventType string `json:"event_type"`
	Status    Status `json:"status"`

	ToolUseID    string          `json:"tool_use_id,omitempty"`
	ToolName     string          `json:"tool_name,omitempty"`
	ToolInput    json.RawMessage `json:"tool_input,omitempty"`
	ToolResponse json.RawMessage `json:"tool_response,omitempty"`
	Error        json.RawMessage `json:"error,omitempty"`
	IsInterrupt  *bool           `json:"is_interrupt,omitempty"`
	Cwd          string          `json:"cwd,omitempty"`
	Model        string          `json:"model,omitempty"`
	AgentName    string          `json:"agent_name,omitempty"`

	Metadata map[string]any `json:"metadata"`
}

// Name is the display name used for log lines and OTel span names.
func (s Span) Name() string {
	return string(s.Source) + "." + s.EventType
}
