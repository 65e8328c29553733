package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulsetrace/pulse/internal/paths"
)

func TestHomeBuilder_Empty(t *testing.T) {
	l := NewHome(t).Build()

	require.True(t, paths.IsDir(l.Home))
	require.False(t, paths.Exists(l.ClaudeDir))
	require.False(t, paths.Exists(l.OpenCodeDir))
	require.False(t, paths.Exists(l.OpenClawDir))
}

func TestHomeBuilder_Agents(t *testing.T) {
	l := NewHome(t).
		WithClaudeCode(WithConfig(UserSettings)).
		WithOpenCode(WithAgentFile("plugins/other.ts", "// theirs")).
		WithOpenClaw().
		WithFile(".pulse/config.yaml", "api_url: http://x\n").
		Build()

	data, err := os.ReadFile(l.ClaudeSettings())
	require.NoError(t, err)
	require.Equal(t, UserSettings, string(data))

	require.True(t, paths.Exists(filepath.Join(l.OpenCodePluginDir(), "other.ts")))
	require.True(t, paths.IsDir(l.OpenClawDir))
	require.False(t, paths.Exists(l.OpenClawHooksDir()))
	require.True(t, paths.Exists(l.ConfigFile()))
}

func TestHomeBuilder_ReadOnlyConfig(t *testing.T) {
	l := NewHome(t).WithClaudeCode(WithReadOnlyConfig("{}")).Build()

	info, err := os.Stat(l.ClaudeSettings())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o444), info.Mode().Perm())
}
