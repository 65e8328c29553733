package span

import "sort"

// target is a Span field a rule can populate.
type target int

const (
	toToolUseID target = iota
	toToolName
	toToolInput
	toToolResponse
	toError
	toIsInterrupt
	toModel
	toAgentName
	toMeta  // string metadata under copyOp.key
	toUsage // token/cost usage under metadata.usage
)

// copyOp copies the first present payload path in from into a span field.
type copyOp struct {
	to   target
	key  string
	from []string
}

// rule is the transformation for one (source, native event) pair.
type rule struct {
	eventType string
	failure   bool
	ops       []copyOp
	meta      map[string]string
}

func field(to target, from ...string) copyOp { return copyOp{to: to, from: from} }

func meta(key string, from ...string) copyOp { return copyOp{to: toMeta, key: key, from: from} }

func with(ops []copyOp, more ...copyOp) []copyOp {
	out := make([]copyOp, 0, len(ops)+len(more))
	out = append(out, ops...)
	return append(out, more...)
}

var claudeTool = []copyOp{
	field(toToolUseID, "tool_use_id"),
	field(toToolName, "tool_name"),
	field(toToolInput, "tool_input"),
}

var claudeSubagent = []copyOp{
	field(toAgentName, "agent_type", "agent_name"),
	meta("agent_id", "agent_id"),
}

// canonical rules double as the Claude Code table, whose hook names are
// already canonical.
var canonical = map[string]rule{
	EventPreToolUse:  {eventType: EventPreToolUse, ops: claudeTool},
	EventPostToolUse: {eventType: EventPostToolUse, ops: with(claudeTool, field(toToolResponse, "tool_response"))},
	EventPostToolUseFailure: {eventType: EventPostToolUseFailure, failure: true, ops: with(claudeTool,
		field(toError, "error"),
		field(toIsInterrupt, "is_interrupt"),
	)},
	EventSessionStart: {eventType: EventSessionStart, ops: []copyOp{
		field(toModel, "model"),
		meta("source", "source"),
	}},
	EventSessionEnd:       {eventType: EventSessionEnd, ops: []copyOp{meta("reason", "reason")}},
	EventStop:             {eventType: EventStop},
	EventSubagentStart:    {eventType: EventSubagentStart, ops: claudeSubagent},
	EventSubagentStop:     {eventType: EventSubagentStop, ops: claudeSubagent},
	EventUserPromptSubmit: {eventType: EventUserPromptSubmit, ops: []copyOp{meta("prompt", "prompt")}},
	EventNotification: {eventType: EventNotification, ops: []copyOp{
		meta("message", "message"),
		meta("title", "title"),
	}},
	EventAssistantMessage: {eventType: EventAssistantMessage, ops: []copyOp{
		field(toModel, "model"),
		{to: toUsage},
	}},
}

var openCodeTool = []copyOp{
	field(toToolUseID, "callID", "call_id"),
	field(toToolName, "tool"),
	field(toToolInput, "args"),
}

var openCode = map[string]rule{
	"session.created": {eventType: EventSessionStart, ops: []copyOp{field(toModel, "model")}},
	"session.idle":    {eventType: EventSessionEnd, meta: map[string]string{"reason": "idle"}},
	"session.error": {eventType: EventSessionEnd, failure: true,
		meta: map[string]string{"reason": "error"},
		ops:  []copyOp{field(toError, "error", "properties.error")},
	},
	"tool.execute.before": {eventType: EventPreToolUse, ops: openCodeTool},
	"tool.execute.after":  {eventType: EventPostToolUse, ops: with(openCodeTool, field(toToolResponse, "output"))},
	"chat.message":        {eventType: EventUserPromptSubmit, ops: []copyOp{meta("prompt", "prompt", "text")}},
	"message.completed": {eventType: EventAssistantMessage, ops: []copyOp{
		field(toModel, "model", "modelID"),
		{to: toUsage},
	}},
}

var openClawTool = []copyOp{
	field(toToolName, "toolName", "context.toolName"),
	field(toToolInput, "params", "context.params"),
}

var openClaw = map[string]rule{
	"command:new":     {eventType: EventSessionStart, ops: []copyOp{field(toModel, "model", "context.model")}},
	"command:reset":   {eventType: EventSessionEnd, meta: map[string]string{"reason": "reset"}},
	"command:stop":    {eventType: EventStop},
	"agent:bootstrap": {eventType: EventSubagentStart, ops: []copyOp{field(toAgentName, "agentId", "context.agentId")}},
	"message:received": {eventType: EventUserPromptSubmit, ops: []copyOp{
		meta("prompt", "context.content", "content"),
	}},
	"message:sent": {eventType: EventAssistantMessage, ops: []copyOp{field(toModel, "model", "context.model")}},
	"tool:before":  {eventType: EventPreToolUse, ops: openClawTool},
	"tool:after":   {eventType: EventPostToolUse, ops: with(openClawTool, field(toToolResponse, "result", "context.result"))},
	"tool:error": {eventType: EventPostToolUseFailure, failure: true, ops: with(openClawTool,
		field(toError, "error", "context.error"),
	)},
}

var tables = map[Source]map[string]rule{
	SourceClaudeCode: canonical,
	SourceOpenCode:   openCode,
	SourceOpenClaw:   openClaw,
}

// Where each source keeps its session id and working directory.
var (
	sessionPaths = map[Source][]string{
		SourceClaudeCode: {"session_id"},
		SourceOpenCode:   {"session_id", "sessionID", "properties.sessionID"},
		SourceOpenClaw:   {"session_id", "sessionKey", "context.sessionKey"},
	}
	cwdPaths = map[Source][]string{
		SourceClaudeCode: {"cwd"},
		SourceOpenCode:   {"cwd", "directory"},
		SourceOpenClaw:   {"cwd", "context.cwd"},
	}
)

// usagePaths maps metadata.usage keys to payload paths.
var usagePaths = []struct{ key, path string }{
	{"input_tokens", "tokens.input"},
	{"output_tokens", "tokens.output"},
	{"reasoning_tokens", "tokens.reasoning"},
	{"cache_read_tokens", "tokens.cache.read"},
	{"cache_write_tokens", "tokens.cache.write"},
	{"cost", "cost"},
}

// lookup finds the rule for a native event name. Names not in the source's
// table are tried against the canonical vocabulary.
func lookup(source Source, native string) (rule, bool) {
	if r, ok := tables[source][native]; ok {
		return r, true
	}
	r, ok := canonical[native]
	return r, ok
}

// NativeEvents lists the declared native event names for source, sorted.
func NativeEvents(source Source) []string {
	names := make([]string, 0, len(tables[source]))
	for name := range tables[source] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
