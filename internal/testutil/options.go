package testutil

import "os"

// agentData holds files to create inside one agent's directory.
type agentData struct {
	primary string
	files   []fileData
}

// AgentOption configures an agent installation.
type AgentOption func(*agentData)

// WithConfig writes content to the agent's primary config location:
// settings.json for Claude Code, the plugin file for OpenCode, and HOOK.md
// for OpenClaw.
func WithConfig(content string) AgentOption {
	return func(a *agentData) {
		a.files = append(a.files, fileData{content: content, mode: 0o644})
	}
}

// WithAgentFile writes content to rel inside the agent directory.
func WithAgentFile(rel, content string) AgentOption {
	return func(a *agentData) {
		a.files = append(a.files, fileData{rel: rel, content: content, mode: 0o644})
	}
}

// WithReadOnlyConfig is WithConfig with mode 0444.
func WithReadOnlyConfig(content string) AgentOption {
	return func(a *agentData) {
		a.files = append(a.files, fileData{content: content, mode: os.FileMode(0o444)})
	}
}
