// Package testutil builds throwaway home directories populated with agent
// installations for adapter and command tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulsetrace/pulse/internal/paths"
)

// fileData is a file to be written relative to the home directory.
type fileData struct {
	rel     string
	content string
	mode    os.FileMode
}

// HomeBuilder accumulates agent installs and files, then writes them under a
// fresh t.TempDir().
type HomeBuilder struct {
	t     *testing.T
	dirs  []string
	files []fileData
}

// NewHome creates a builder rooted at a new temp directory.
func NewHome(t *testing.T) *HomeBuilder {
	t.Helper()
	return &HomeBuilder{t: t}
}

// WithClaudeCode marks Claude Code as installed.
func (b *HomeBuilder) WithClaudeCode(opts ...AgentOption) *HomeBuilder {
	return b.withAgent(".claude", "settings.json", opts)
}

// WithOpenCode marks OpenCode as installed.
func (b *HomeBuilder) WithOpenCode(opts ...AgentOption) *HomeBuilder {
	return b.withAgent(filepath.Join(".config", "opencode"), filepath.Join("plugins", "pulse-plugin.ts"), opts)
}

// WithOpenClaw marks OpenClaw as installed.
func (b *HomeBuilder) WithOpenClaw(opts ...AgentOption) *HomeBuilder {
	return b.withAgent(".openclaw", filepath.Join("hooks", "pulse-hook", "HOOK.md"), opts)
}

// WithFile adds an arbitrary file relative to home.
func (b *HomeBuilder) WithFile(rel, content string) *HomeBuilder {
	b.files = append(b.files, fileData{rel: rel, content: content, mode: 0o644})
	return b
}

func (b *HomeBuilder) withAgent(dir, primary string, opts []AgentOption) *HomeBuilder {
	a := agentData{primary: primary}
	for _, opt := range opts {
		opt(&a)
	}
	b.dirs = append(b.dirs, dir)
	for _, f := range a.files {
		rel := f.rel
		if rel == "" {
			rel = a.primary
		}
		b.files = append(b.files, fileData{rel: filepath.Join(dir, rel), content: f.content, mode: f.mode})
	}
	return b
}

// Build writes everything and returns the resulting layout.
func (b *HomeBuilder) Build() paths.Layout {
	b.t.Helper()
	home := b.t.TempDir()
	for _, d := range b.dirs {
		require.NoError(b.t, os.MkdirAll(filepath.Join(home, d), 0o755))
	}
	for _, f := range b.files {
		path := filepath.Join(home, f.rel)
		require.NoError(b.t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(b.t, os.WriteFile(path, []byte(f.content), f.mode))
	}
	return paths.ForHome(home)
}
