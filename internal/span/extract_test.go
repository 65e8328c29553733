package span

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func testExtractor() *Extractor {
	n := 0
	return &Extractor{
		Version:   "1.2.3",
		ProjectID: "proj_1",
		Now:       func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("X", 3600)) },
		NewID: func() string {
			n++
			return "span-" + string(rune('a'+n-1))
		},
	}
}

// presence records which optional fields a span carries.
type presence struct {
	ToolUseID, ToolName, ToolInput, ToolResponse, Error, IsInterrupt, Model, AgentName bool
}

func presentFields(s Span) presence {
	return presence{
		ToolUseID:    s.ToolUseID != "",
		ToolName:     s.ToolName != "",
		ToolInput:    s.ToolInput != nil,
		ToolResponse: s.ToolResponse != nil,
		Error:        s.Error != nil,
		IsInterrupt:  s.IsInterrupt != nil,
		Model:        s.Model != "",
		AgentName:    s.AgentName != "",
	}
}

func TestExtract_ClaudeCodeTable(t *testing.T) {
	tests := []struct {
		event   string
		payload string
		kind    Kind
		status  Status
		fields  presence
		meta    map[string]any
	}{
		{
			event:   EventPreToolUse,
			payload: `{"session_id":"s1","cwd":"/w","tool_use_id":"toolu_1","tool_name":"Bash","tool_input":{"command":"ls"}}`,
			kind:    KindToolUse, status: StatusSuccess,
			fields: presence{ToolUseID: true, ToolName: true, ToolInput: true},
		},
		{
			event:   EventPostToolUse,
			payload: `{"session_id":"s1","tool_use_id":"toolu_1","tool_name":"Bash","tool_input":{"command":"ls"},"tool_response":{"stdout":"a"}}`,
			kind:    KindToolUse, status: StatusSuccess,
			fields: presence{ToolUseID: true, ToolName: true, ToolInput: true, ToolResponse: true},
		},
		{
			event:   EventPostToolUseFailure,
			payload: `{"session_id":"s1","tool_use_id":"toolu_1","tool_name":"Bash","tool_input":{},"error":"exit 1","is_interrupt":false}`,
			kind:    KindToolUse, status: StatusError,
			fields: presence{ToolUseID: true, ToolName: true, ToolInput: true, Error: true, IsInterrupt: true},
		},
		{
			event:   EventSessionStart,
			payload: `{"session_id":"s1","cwd":"/w","model":"claude-sonnet","source":"startup"}`,
			kind:    KindSession, status: StatusSuccess,
			fields: presence{Model: true},
			meta:   map[string]any{"source": "startup"},
		},
		{
			event:   EventSessionEnd,
			payload: `{"session_id":"s1","reason":"logout"}`,
			kind:    KindSession, status: StatusSuccess,
			meta: map[string]any{"reason": "logout"},
		},
		{
			event:   EventStop,
			payload: `{"session_id":"s1","stop_hook_active":false}`,
			kind:    KindSession, status: StatusSuccess,
		},
		{
			event:   EventSubagentStart,
			payload: `{"session_id":"s1","agent_type":"Explore","agent_id":"a1"}`,
			kind:    KindAgentRun, status: StatusSuccess,
			fields: presence{AgentName: true},
			meta:   map[string]any{"agent_id": "a1"},
		},
		{
			event:   EventSubagentStop,
			payload: `{"session_id":"s1","agent_name":"Plan"}`,
			kind:    KindAgentRun, status: StatusSuccess,
			fields: presence{AgentName: true},
		},
		{
			event:   EventUserPromptSubmit,
			payload: `{"session_id":"s1","prompt":"fix the bug"}`,
			kind:    KindUserPrompt, status: StatusSuccess,
			meta: map[string]any{"prompt": "fix the bug"},
		},
		{
			event:   EventNotification,
			payload: `{"session_id":"s1","message":"needs permission","title":"Claude"}`,
			kind:    KindNotification, status: StatusSuccess,
			meta: map[string]any{"message": "needs permission", "title": "Claude"},
		},
	}

	x := testExtractor()
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			s, err := x.Extract(SourceClaudeCode, tt.event, []byte(tt.payload))
			require.NoError(t, err)

			require.Equal(t, "s1", s.SessionID)
			require.Equal(t, SourceClaudeCode, s.Source)
			require.Equal(t, tt.event, s.EventType)
			require.Equal(t, tt.kind, s.Kind)
			require.Equal(t, tt.status, s.Status)
			require.Equal(t, tt.fields, presentFields(s))

			want := map[string]any{MetaCLIVersion: "1.2.3", MetaProjectID: "proj_1"}
			for k, v := range tt.meta {
				want[k] = v
			}
			require.Equal(t, want, s.Metadata)
		})
	}
}

func TestExtract_OpenCodeTable(t *testing.T) {
	tests := []struct {
		native  string
		payload string
		event   string
		kind    Kind
		status  Status
		fields  presence
		reason  string
	}{
		{"session.created", `{"sessionID":"s1","model":"gpt-5"}`, EventSessionStart, KindSession, StatusSuccess, presence{Model: true}, ""},
		{"session.idle", `{"sessionID":"s1"}`, EventSessionEnd, KindSession, StatusSuccess, presence{}, "idle"},
		{"session.error", `{"sessionID":"s1","error":{"name":"APIError","message":"boom"}}`, EventSessionEnd, KindSession, StatusError, presence{Error: true}, "error"},
		{"tool.execute.before", `{"sessionID":"s1","callID":"c1","tool":"bash","args":{"command":"ls"}}`, EventPreToolUse, KindToolUse, StatusSuccess, presence{ToolUseID: true, ToolName: true, ToolInput: true}, ""},
		{"tool.execute.after", `{"sessionID":"s1","callID":"c1","tool":"bash","args":{},"output":"ok"}`, EventPostToolUse, KindToolUse, StatusSuccess, presence{ToolUseID: true, ToolName: true, ToolInput: true, ToolResponse: true}, ""},
		{"chat.message", `{"sessionID":"s1","prompt":"hello"}`, EventUserPromptSubmit, KindUserPrompt, StatusSuccess, presence{}, ""},
		{"message.completed", `{"sessionID":"s1","modelID":"gpt-5"}`, EventAssistantMessage, KindLLMResponse, StatusSuccess, presence{Model: true}, ""},
	}

	x := testExtractor()
	for _, tt := range tests {
		t.Run(tt.native, func(t *testing.T) {
			s, err := x.Extract(SourceOpenCode, tt.native, []byte(tt.payload))
			require.NoError(t, err)
			require.Equal(t, tt.event, s.EventType)
			require.Equal(t, tt.kind, s.Kind)
			require.Equal(t, tt.status, s.Status)
			require.Equal(t, tt.fields, presentFields(s))
			if tt.reason != "" {
				require.Equal(t, tt.reason, s.Metadata["reason"])
			} else {
				require.NotContains(t, s.Metadata, "reason")
			}
		})
	}
}

func TestExtract_OpenCodeIdleVersusError(t *testing.T) {
	x := testExtractor()

	idle, err := x.Extract(SourceOpenCode, "session.idle", []byte(`{"sessionID":"s"}`))
	require.NoError(t, err)
	failed, err := x.Extract(SourceOpenCode, "session.error", []byte(`{"sessionID":"s","error":"quota"}`))
	require.NoError(t, err)

	require.Equal(t, idle.EventType, failed.EventType)
	require.Equal(t, "idle", idle.Metadata["reason"])
	require.Equal(t, "error", failed.Metadata["reason"])
	require.Nil(t, idle.Error)
	require.JSONEq(t, `"quota"`, string(failed.Error))
}

func TestExtract_OpenCodeUsage(t *testing.T) {
	x := testExtractor()
	payload := `{"sessionID":"s","model":"m","tokens":{"input":120,"output":45,"reasoning":0,"cache":{"read":1000}},"cost":0.0125}`

	s, err := x.Extract(SourceOpenCode, "message.completed", []byte(payload))
	require.NoError(t, err)

	out, err := json.Marshal(s.Metadata["usage"])
	require.NoError(t, err)
	require.JSONEq(t, `{"input_tokens":120,"output_tokens":45,"reasoning_tokens":0,"cache_read_tokens":1000,"cost":0.0125}`, string(out))
}

func TestExtract_OpenCodeUsageAbsent(t *testing.T) {
	x := testExtractor()

	s, err := x.Extract(SourceOpenCode, "message.completed", []byte(`{"sessionID":"s"}`))
	require.NoError(t, err)
	require.NotContains(t, s.Metadata, "usage")
}

func TestExtract_OpenClawTable(t *testing.T) {
	tests := []struct {
		native  string
		payload string
		event   string
		kind    Kind
		status  Status
		fields  presence
	}{
		{"command:new", `{"sessionKey":"k1","context":{"model":"m"}}`, EventSessionStart, KindSession, StatusSuccess, presence{Model: true}},
		{"command:reset", `{"sessionKey":"k1"}`, EventSessionEnd, KindSession, StatusSuccess, presence{}},
		{"command:stop", `{"sessionKey":"k1"}`, EventStop, KindSession, StatusSuccess, presence{}},
		{"agent:bootstrap", `{"sessionKey":"k1","context":{"agentId":"main"}}`, EventSubagentStart, KindAgentRun, StatusSuccess, presence{AgentName: true}},
		{"message:received", `{"context":{"sessionKey":"k1","content":"hi"}}`, EventUserPromptSubmit, KindUserPrompt, StatusSuccess, presence{}},
		{"message:sent", `{"sessionKey":"k1","model":"m"}`, EventAssistantMessage, KindLLMResponse, StatusSuccess, presence{Model: true}},
		{"tool:before", `{"sessionKey":"k1","toolName":"exec","params":{"cmd":"ls"}}`, EventPreToolUse, KindToolUse, StatusSuccess, presence{ToolName: true, ToolInput: true}},
		{"tool:after", `{"sessionKey":"k1","toolName":"exec","params":{},"result":{"ok":true}}`, EventPostToolUse, KindToolUse, StatusSuccess, presence{ToolName: true, ToolInput: true, ToolResponse: true}},
		{"tool:error", `{"sessionKey":"k1","toolName":"exec","params":{},"error":"denied"}`, EventPostToolUseFailure, KindToolUse, StatusError, presence{ToolName: true, ToolInput: true, Error: true}},
	}

	x := testExtractor()
	for _, tt := range tests {
		t.Run(tt.native, func(t *testing.T) {
			s, err := x.Extract(SourceOpenClaw, tt.native, []byte(tt.payload))
			require.NoError(t, err)
			require.Equal(t, "k1", s.SessionID)
			require.Equal(t, tt.event, s.EventType)
			require.Equal(t, tt.kind, s.Kind)
			require.Equal(t, tt.status, s.Status)
			require.Equal(t, tt.fields, presentFields(s))
		})
	}
}

func TestExtract_OpenClawDecomposesFromPayload(t *testing.T) {
	x := testExtractor()

	s, err := x.Extract(SourceOpenClaw, "", []byte(`{"type":"message","action":"received","sessionKey":"k","context":{"content":"yo"}}`))
	require.NoError(t, err)
	require.Equal(t, EventUserPromptSubmit, s.EventType)
	require.Equal(t, "yo", s.Metadata["prompt"])

	s, err = x.Extract(SourceOpenClaw, "command", []byte(`{"action":"reset","sessionKey":"k"}`))
	require.NoError(t, err)
	require.Equal(t, EventSessionEnd, s.EventType)
	require.Equal(t, "reset", s.Metadata["reason"])
}

func TestExtract_ClaudeEventFromHookEventName(t *testing.T) {
	x := testExtractor()

	s, err := x.Extract(SourceClaudeCode, "", []byte(`{"session_id":"s","hook_event_name":"PostToolUseFailure","tool_name":"Bash","error":"x"}`))
	require.NoError(t, err)
	require.Equal(t, EventPostToolUseFailure, s.EventType)
	require.Equal(t, StatusError, s.Status)
}

func TestExtract_BaseFields(t *testing.T) {
	x := testExtractor()

	s, err := x.Extract(SourceClaudeCode, EventStop, []byte(`{"session_id":"  s1 ","cwd":"/repo"}`))
	require.NoError(t, err)

	require.Equal(t, "span-a", s.SpanID)
	require.Equal(t, "s1", s.SessionID)
	require.Equal(t, "/repo", s.Cwd)
	require.Equal(t, "2026-03-01T08:30:00.000Z", s.Timestamp)
}

func TestExtract_EmptyStringsAreAbsent(t *testing.T) {
	x := testExtractor()

	s, err := x.Extract(SourceClaudeCode, EventPreToolUse, []byte(`{"session_id":"s","tool_name":"","cwd":"","tool_input":null}`))
	require.NoError(t, err)
	require.Equal(t, presence{}, presentFields(s))
	require.Empty(t, s.Cwd)
}

func TestExtract_WireShapeOmitsAbsentOptionals(t *testing.T) {
	x := testExtractor()

	s, err := x.Extract(SourceClaudeCode, EventPreToolUse, []byte(`{"session_id":"s","tool_name":"Read","tool_input":{"file_path":"/a"}}`))
	require.NoError(t, err)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))

	require.NotContains(t, m, "tool_response")
	require.NotContains(t, m, "error")
	require.NotContains(t, m, "is_interrupt")
	require.NotContains(t, m, "model")
	require.Equal(t, map[string]any{"file_path": "/a"}, m["tool_input"])
	require.Contains(t, m, "metadata")
}

func TestExtract_Failures(t *testing.T) {
	x := testExtractor()

	_, err := x.Extract(SourceClaudeCode, EventStop, []byte(`not json`))
	require.ErrorIs(t, err, ErrPayloadParse)

	_, err = x.Extract(SourceClaudeCode, EventStop, []byte(`["array"]`))
	require.ErrorIs(t, err, ErrPayloadParse)

	_, err = x.Extract(SourceClaudeCode, EventStop, []byte(`{"session_id":""}`))
	require.ErrorIs(t, err, ErrMissingSessionID)

	_, err = x.Extract(SourceClaudeCode, EventStop, []byte(`{"session_id":42}`))
	require.ErrorIs(t, err, ErrMissingSessionID)

	_, err = x.Extract(SourceClaudeCode, " .: ", []byte(`{"session_id":"s"}`))
	require.ErrorIs(t, err, ErrMissingEventType)
}

func TestExtract_UndeclaredEventDegrades(t *testing.T) {
	x := testExtractor()

	s, err := x.Extract(SourceOpenCode, "file.edited", []byte(`{"sessionID":"s","cwd":"/w","file":"a.go","model":"m"}`))
	require.NoError(t, err)

	require.Equal(t, "file_edited", s.EventType)
	require.Equal(t, KindSession, s.Kind)
	require.Equal(t, StatusSuccess, s.Status)
	require.Equal(t, "/w", s.Cwd)
	require.Equal(t, presence{}, presentFields(s))
	require.Len(t, s.Metadata, 2)
}

func TestScenario_ClaudeSessionWithoutTools(t *testing.T) {
	x := testExtractor()
	events := []string{EventSessionStart, EventUserPromptSubmit, EventStop, EventSessionEnd}
	payload := []byte(`{"session_id":"sess-42","cwd":"/w","prompt":"hi","reason":"exit"}`)

	var spans []Span
	for _, e := range events {
		s, err := x.Extract(SourceClaudeCode, e, payload)
		require.NoError(t, err)
		spans = append(spans, s)
	}

	require.Len(t, spans, 4)
	var kinds []Kind
	ids := map[string]bool{}
	for _, s := range spans {
		require.Equal(t, "sess-42", s.SessionID)
		require.Equal(t, StatusSuccess, s.Status)
		kinds = append(kinds, s.Kind)
		ids[s.SpanID] = true
	}
	require.Equal(t, []Kind{KindSession, KindUserPrompt, KindSession, KindSession}, kinds)
	require.Len(t, ids, 4)
}

func TestScenario_ToolFailure(t *testing.T) {
	x := testExtractor()

	s, err := x.Extract(SourceClaudeCode, EventPostToolUseFailure,
		[]byte(`{"session_id":"s","tool_name":"Bash","tool_input":{"command":"false"},"error":{"code":1,"message":"exit status 1"}}`))
	require.NoError(t, err)

	require.Equal(t, KindToolUse, s.Kind)
	require.Equal(t, StatusError, s.Status)
	require.Equal(t, "Bash", s.ToolName)
	require.JSONEq(t, `{"code":1,"message":"exit status 1"}`, string(s.Error))
}

func TestNewExtractor_UniqueIDs(t *testing.T) {
	x := NewExtractor("dev", "p")
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		s, err := x.Extract(SourceClaudeCode, EventStop, []byte(`{"session_id":"s"}`))
		require.NoError(t, err)
		require.Len(t, s.SpanID, 36)
		require.False(t, seen[s.SpanID])
		seen[s.SpanID] = true
	}
}

func TestProperty_MissingSessionRejectedForEveryEvent(t *testing.T) {
	x := testExtractor()
	rapid.Check(t, func(t *rapid.T) {
		source := rapid.SampledFrom(Sources).Draw(t, "source")
		names := append(NativeEvents(source), rapid.StringMatching(`[a-z.:_]{0,12}`).Draw(t, "random"))
		name := rapid.SampledFrom(names).Draw(t, "event")

		_, err := x.Extract(source, name, []byte(`{"cwd":"/w","tool_name":"Bash"}`))
		if !errors.Is(err, ErrMissingSessionID) {
			t.Fatalf("%s/%s: expected ErrMissingSessionID, got %v", source, name, err)
		}
	})
}

func TestProperty_ExtractIsTotalWithSession(t *testing.T) {
	x := testExtractor()
	rapid.Check(t, func(t *rapid.T) {
		source := rapid.SampledFrom(Sources).Draw(t, "source")
		name := rapid.StringMatching(`[A-Za-z][A-Za-z.:_ -]{0,15}`).Draw(t, "event")

		s, err := x.Extract(source, name, []byte(`{"session_id":"s","sessionID":"s","sessionKey":"s"}`))
		if err != nil {
			t.Fatalf("%s/%q: %v", source, name, err)
		}
		if s.Kind == "" || s.Status == "" {
			t.Fatalf("incomplete span %+v", s)
		}
		if _, declared := resolve(source, nativeName(source, name, Payload{})); !declared && s.Kind != KindSession {
			t.Fatalf("undeclared %q got kind %s", name, s.Kind)
		}
	})
}

func TestToSnake(t *testing.T) {
	tests := map[string]string{
		"PostToolUse":        "post_tool_use",
		"tool.execute.after": "tool_execute_after",
		"command:new":        "command_new",
		"already_snake":      "already_snake",
		"HTTPRequest":        "http_request",
		"a--b..":             "a_b",
		"":                   "",
	}
	for in, want := range tests {
		require.Equal(t, want, toSnake(in), in)
	}
}

func TestParseSource(t *testing.T) {
	src, err := ParseSource(" opencode ")
	require.NoError(t, err)
	require.Equal(t, SourceOpenCode, src)

	_, err = ParseSource("cursor")
	require.ErrorIs(t, err, ErrUnknownSource)
}
