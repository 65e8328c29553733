package tracing

// Attribute keys carried by mirrored spans.
const (
	AttrSpanID      = "pulse.span_id"
	AttrSessionID   = "session.id"
	AttrSource      = "pulse.source"
	AttrKind        = "pulse.kind"
	AttrEventType   = "pulse.event_type"
	AttrStatus      = "pulse.status"
	AttrTimestamp   = "pulse.timestamp"
	AttrCWD         = "pulse.cwd"
	AttrModel       = "gen_ai.request.model"
	AttrAgentName   = "pulse.agent_name"
	AttrToolName    = "tool.name"
	AttrToolUseID   = "tool.use_id"
	AttrToolInput   = "tool.input"
	AttrToolOutput  = "tool.response"
	AttrIsInterrupt = "tool.is_interrupt"

	AttrErrorMessage = "error.message"

	// AttrMetadataPrefix prefixes flattened metadata keys.
	AttrMetadataPrefix = "pulse.metadata."
)
