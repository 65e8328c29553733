package flags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		registry *Registry
		flag     string
		expected bool
	}{
		{"mirror on", New(map[string]bool{FlagOTelMirror: true}), FlagOTelMirror, true},
		{"mirror explicitly off", New(map[string]bool{FlagOTelMirror: false}), FlagOTelMirror, false},
		{"auto-repair absent", New(map[string]bool{FlagOTelMirror: true}), FlagAutoRepair, false},
		{"unknown flag in config", New(map[string]bool{"beta-ui": true}), "beta-ui", false},
		{"nil registry", nil, FlagOTelMirror, false},
		{"nil map", New(nil), FlagAutoRepair, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.registry.Enabled(tt.flag))
		})
	}
}

func TestRegistry_Unknown(t *testing.T) {
	r := New(map[string]bool{"otel-mirorr": true, FlagAutoRepair: true, "beta-ui": false})
	require.Equal(t, []string{"beta-ui", "otel-mirorr"}, r.Unknown())
	require.True(t, r.Enabled(FlagAutoRepair))

	require.Empty(t, New(nil).Unknown())
	require.Nil(t, (*Registry)(nil).Unknown())
}

func TestRegistry_All_ListsKnownFlags(t *testing.T) {
	r := New(map[string]bool{FlagAutoRepair: true, "beta-ui": true})

	all := r.All()
	require.Equal(t, map[string]bool{FlagAutoRepair: true, FlagOTelMirror: false}, all)

	all[FlagOTelMirror] = true
	require.False(t, r.Enabled(FlagOTelMirror))
	require.Equal(t, map[string]bool{FlagAutoRepair: false, FlagOTelMirror: false}, (*Registry)(nil).All())
}

func TestKnown(t *testing.T) {
	require.ElementsMatch(t, []string{"otel-mirror", "auto-repair"}, Known)
}
