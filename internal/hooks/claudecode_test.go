package hooks

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/pulsetrace/pulse/internal/jsondoc"
	"github.com/pulsetrace/pulse/internal/paths"
	"github.com/pulsetrace/pulse/internal/testutil"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func countPulseCommands(t *testing.T, path string) int {
	t.Helper()
	return strings.Count(readFile(t, path), `"pulse emit `)
}

func TestClaudeCode_NotDetected(t *testing.T) {
	l := testutil.NewHome(t).Build()
	c := NewClaudeCode(l, Options{})

	require.False(t, c.Detect())

	st, err := c.Status()
	require.NoError(t, err)
	require.Equal(t, StateNotDetected, st.State())
	require.Equal(t, 10, st.Expected())

	_, err = c.Install()
	require.ErrorIs(t, err, ErrNotDetected)
	require.False(t, paths.Exists(l.ClaudeSettings()))
}

func TestClaudeCode_InstallCreatesSettings(t *testing.T) {
	l := testutil.NewHome(t).WithClaudeCode().Build()
	c := NewClaudeCode(l, Options{})

	st, err := c.Status()
	require.NoError(t, err)
	require.Equal(t, StateNotInstalled, st.State())
	require.Equal(t, "0/10", st.Summary())

	res, err := c.Install()
	require.NoError(t, err)
	require.Len(t, res.Added, 10)
	require.True(t, res.Changed())

	st, err = c.Status()
	require.NoError(t, err)
	require.Equal(t, StateFull, st.State())
	require.Equal(t, 10, countPulseCommands(t, l.ClaudeSettings()))

	body := readFile(t, l.ClaudeSettings())
	require.True(t, strings.HasPrefix(body, "{\n  \"hooks\": {\n    \"PreToolUse\": ["))
	require.Contains(t, body, `"command": "pulse emit post_tool_use_failure",`)
	require.Contains(t, body, `"async": true`)
}

func TestClaudeCode_InstallIsIdempotent(t *testing.T) {
	l := testutil.NewHome(t).WithClaudeCode(testutil.WithConfig(testutil.UserSettings)).Build()
	c := NewClaudeCode(l, Options{})

	_, err := c.Install()
	require.NoError(t, err)
	first := readFile(t, l.ClaudeSettings())

	res, err := c.Install()
	require.NoError(t, err)
	require.False(t, res.Changed())
	require.Equal(t, first, readFile(t, l.ClaudeSettings()))
}

func TestClaudeCode_RoundTripFromAbsent(t *testing.T) {
	l := testutil.NewHome(t).WithClaudeCode().Build()
	c := NewClaudeCode(l, Options{})

	_, err := c.Install()
	require.NoError(t, err)
	res, err := c.Uninstall()
	require.NoError(t, err)
	require.Len(t, res.Removed, 10)

	require.False(t, paths.Exists(l.ClaudeSettings()))
	st, err := c.Status()
	require.NoError(t, err)
	require.Equal(t, StateNotInstalled, st.State())
}

func TestClaudeCode_NonDestructiveMerge(t *testing.T) {
	l := testutil.NewHome(t).WithClaudeCode(testutil.WithConfig(testutil.UserSettings)).Build()
	c := NewClaudeCode(l, Options{})

	_, err := c.Install()
	require.NoError(t, err)

	root, err := jsondoc.Parse([]byte(readFile(t, l.ClaudeSettings())))
	require.NoError(t, err)
	require.Equal(t, []string{"model", "permissions", "hooks", "statusLine"}, root.Keys())

	hooksObj, _ := root.Get("hooks")
	keys := hooksObj.Keys()
	require.Equal(t, []string{"PreToolUse", "PreCompact"}, keys[:2])
	require.Len(t, keys, 11)

	pre, _ := hooksObj.Get("PreToolUse")
	require.Equal(t, 2, pre.Len())
	user := string(pre.Items()[0].Compact())
	require.Contains(t, user, "audit-bash.sh")

	_, err = c.Uninstall()
	require.NoError(t, err)
	require.Equal(t, testutil.UserSettings, readFile(t, l.ClaudeSettings()))
}

func TestClaudeCode_PartialRepair(t *testing.T) {
	var sections []string
	for _, h := range claudeHooks[:6] {
		sections = append(sections, `"`+h.Section+`":[`+testutil.PulseEntry(h.Event)+`]`)
	}
	doc := `{"hooks":{` + strings.Join(sections, ",") + `}}`
	l := testutil.NewHome(t).WithClaudeCode(testutil.WithConfig(doc)).Build()
	c := NewClaudeCode(l, Options{})

	st, err := c.Status()
	require.NoError(t, err)
	require.Equal(t, StatePartial, st.State())
	require.Equal(t, "6/10", st.Summary())
	require.Equal(t, []string{"SubagentStart", "SubagentStop", "UserPromptSubmit", "Notification"}, st.Missing())

	res, err := c.Install()
	require.NoError(t, err)
	require.Equal(t, []string{"SubagentStart", "SubagentStop", "UserPromptSubmit", "Notification"}, res.Added)

	st, err = c.Status()
	require.NoError(t, err)
	require.Equal(t, "10/10", st.Summary())
	require.Equal(t, 10, countPulseCommands(t, l.ClaudeSettings()))
}

func TestClaudeCode_UninstallKeepsSharedEntry(t *testing.T) {
	doc := `{
  "hooks": {
    "Stop": [
      {
        "matcher": "",
        "hooks": [
          {
            "type": "command",
            "command": "notify-send done"
          },
          {
            "type": "command",
            "command": "/usr/local/bin/pulse emit stop",
            "async": true
          }
        ]
      }
    ]
  }
}`
	l := testutil.NewHome(t).WithClaudeCode(testutil.WithConfig(doc)).Build()
	c := NewClaudeCode(l, Options{})

	st, err := c.Status()
	require.NoError(t, err)
	require.Equal(t, 1, st.Installed())

	res, err := c.Uninstall()
	require.NoError(t, err)
	require.Equal(t, []string{"Stop"}, res.Removed)

	body := readFile(t, l.ClaudeSettings())
	require.Contains(t, body, "notify-send done")
	require.NotContains(t, body, "pulse emit")
}

func TestClaudeCode_UninstallNoop(t *testing.T) {
	l := testutil.NewHome(t).WithClaudeCode(testutil.WithConfig(testutil.UserSettings)).Build()
	c := NewClaudeCode(l, Options{})

	res, err := c.Uninstall()
	require.NoError(t, err)
	require.False(t, res.Changed())
	require.Equal(t, testutil.UserSettings, readFile(t, l.ClaudeSettings()))

	// Never-installed agent with no settings at all.
	empty := NewClaudeCode(testutil.NewHome(t).Build(), Options{})
	res, err = empty.Uninstall()
	require.NoError(t, err)
	require.False(t, res.Changed())
}

func TestClaudeCode_MalformedSettings(t *testing.T) {
	tests := map[string]string{
		"syntax":       `{"hooks": {`,
		"array root":   `[]`,
		"hooks string": `{"hooks": "nope"}`,
		"section obj":  `{"hooks": {"Stop": {}}}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			l := testutil.NewHome(t).WithClaudeCode(testutil.WithConfig(doc)).Build()
			c := NewClaudeCode(l, Options{})

			_, err := c.Install()
			require.ErrorIs(t, err, ErrConfigParse)
			require.Equal(t, doc, readFile(t, l.ClaudeSettings()))
		})
	}
}

func TestClaudeCode_StatusReportsParseError(t *testing.T) {
	l := testutil.NewHome(t).WithClaudeCode(testutil.WithConfig(`{not json`)).Build()
	c := NewClaudeCode(l, Options{})

	st, err := c.Status()
	require.ErrorIs(t, err, ErrConfigParse)
	require.True(t, st.Detected)
	require.NotEmpty(t, st.Message)
}

func TestClaudeCode_WriteFailure(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	l := testutil.NewHome(t).WithClaudeCode().Build()
	require.NoError(t, os.Chmod(l.ClaudeDir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(l.ClaudeDir, 0o755) })

	_, err := NewClaudeCode(l, Options{}).Install()
	require.ErrorIs(t, err, ErrConfigWrite)
}

func TestClaudeCode_CustomCommand(t *testing.T) {
	l := testutil.NewHome(t).WithClaudeCode().Build()
	c := NewClaudeCode(l, Options{Command: "/opt/pulse/bin/pulse"})

	_, err := c.Install()
	require.NoError(t, err)
	require.Contains(t, readFile(t, l.ClaudeSettings()), `"/opt/pulse/bin/pulse emit stop"`)

	// The default-command adapter still owns these entries but wants them back.
	st, err := NewClaudeCode(l, Options{}).Status()
	require.NoError(t, err)
	require.Equal(t, StateFull, st.State())
	require.True(t, st.Outdated)
}

func TestClaudeCode_CommandChangeIsRewritten(t *testing.T) {
	l := testutil.NewHome(t).WithClaudeCode(testutil.WithConfig(testutil.UserSettings)).Build()
	_, err := NewClaudeCode(l, Options{}).Install()
	require.NoError(t, err)

	moved := NewClaudeCode(l, Options{Command: "/opt/bin/pulse"})
	st, err := moved.Status()
	require.NoError(t, err)
	require.Equal(t, StateFull, st.State())
	require.True(t, st.Outdated)
	require.Contains(t, st.Message, "/opt/bin/pulse")

	res, err := moved.Install()
	require.NoError(t, err)
	require.Empty(t, res.Added)
	require.Len(t, res.Updated, 10)

	body := readFile(t, l.ClaudeSettings())
	require.Zero(t, countPulseCommands(t, l.ClaudeSettings()))
	require.Equal(t, 10, strings.Count(body, `"/opt/bin/pulse emit `))
	require.Contains(t, body, "~/bin/audit-bash.sh")

	st, err = moved.Status()
	require.NoError(t, err)
	require.Equal(t, StateFull, st.State())
	require.False(t, st.Outdated)

	_, err = moved.Uninstall()
	require.NoError(t, err)
	require.Equal(t, testutil.UserSettings, readFile(t, l.ClaudeSettings()))
}

func TestClaudeCode_RoundTripKeepsInlineArraysAndCRLF(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"inline array", "{\n  \"permissions\": {\n    \"allow\": [\"Bash(ls)\", \"Read\"]\n  }\n}\n"},
		{"crlf", "{\r\n  \"model\": \"opus\"\r\n}\r\n"},
		{"tabs and inline hooks", "{\n\t\"hooks\": {\"Stop\": [{\"matcher\": \"\", \"hooks\": []}]},\n\t\"env\": {}\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := testutil.NewHome(t).WithClaudeCode(testutil.WithConfig(tt.doc)).Build()
			c := NewClaudeCode(l, Options{})

			_, err := c.Install()
			require.NoError(t, err)
			installed := readFile(t, l.ClaudeSettings())
			require.Equal(t, 10, countPulseCommands(t, l.ClaudeSettings()))
			if strings.Contains(tt.doc, "\r\n") {
				require.NotContains(t, strings.ReplaceAll(installed, "\r\n", ""), "\n")
			}

			_, err = c.Uninstall()
			require.NoError(t, err)
			require.Equal(t, tt.doc, readFile(t, l.ClaudeSettings()))
		})
	}
}

func TestClaudeCode_RoundTripFromEmptyObject(t *testing.T) {
	l := testutil.NewHome(t).WithClaudeCode(testutil.WithConfig("{}\n")).Build()
	c := NewClaudeCode(l, Options{})

	_, err := c.Install()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(readFile(t, l.ClaudeSettings()), "{\n  \"hooks\": {"))

	// "{}" and a missing file are equivalent to Claude Code, so nothing is left behind.
	_, err = c.Uninstall()
	require.NoError(t, err)
	require.False(t, paths.Exists(l.ClaudeSettings()))
}

func TestClaudeCode_PreviewDoesNotWrite(t *testing.T) {
	l := testutil.NewHome(t).WithClaudeCode().Build()
	c := NewClaudeCode(l, Options{})

	changes, err := c.PreviewInstall()
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Nil(t, changes[0].Before)
	require.Contains(t, string(changes[0].After), "pulse emit session_start")
	require.False(t, paths.Exists(l.ClaudeSettings()))

	_, err = c.Install()
	require.NoError(t, err)
	changes, err = c.PreviewInstall()
	require.NoError(t, err)
	require.Equal(t, changes[0].Before, changes[0].After)
}

// userDoc draws a settings document with user content only. Every container
// is non-empty so uninstall has nothing it may legitimately collapse.
func userDoc(t *rapid.T) *jsondoc.Node {
	root := jsondoc.NewObject()
	root.Set("model", jsondoc.NewString(rapid.SampledFrom([]string{"opus", "sonnet"}).Draw(t, "model")))

	if rapid.Bool().Draw(t, "hasHooks") {
		hooksObj := jsondoc.NewObject()
		sections := append(claudeSections(), "PreCompact")
		chosen := rapid.SliceOfNDistinct(rapid.SampledFrom(sections), 1, 4, rapid.ID[string]).Draw(t, "sections")
		for i, name := range chosen {
			cmd := rapid.StringMatching(`[a-z]{3,8}( --[a-z]{2,5})?`).Draw(t, "cmd")
			entry, err := jsondoc.Parse([]byte(`{"matcher":"","hooks":[{"type":"command","command":"` + cmd + `"}]}`))
			if err != nil {
				t.Fatalf("fixture %d: %v", i, err)
			}
			hooksObj.Set(name, jsondoc.NewArray(entry))
		}
		root.Set("hooks", hooksObj)
	}
	if rapid.Bool().Draw(t, "hasTrailer") {
		root.Set("includeCoAuthoredBy", jsondoc.NewBool(false))
	}
	return root
}

func TestProperty_ClaudeInstallIdempotentAndReversible(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		home := t.TempDir()
		l := paths.ForHome(filepath.Join(home, rapid.StringMatching(`h[a-z]{4}`).Draw(rt, "home")))
		_ = os.RemoveAll(l.Home)
		if err := os.MkdirAll(l.ClaudeDir, 0o755); err != nil {
			rt.Fatalf("mkdir: %v", err)
		}

		original := userDoc(rt).Encode(jsondoc.Format{
			Indent:          rapid.SampledFrom([]string{"  ", "    ", "\t"}).Draw(rt, "indent"),
			Newline:         rapid.SampledFrom([]string{"", "\r\n"}).Draw(rt, "eol"),
			TrailingNewline: rapid.Bool().Draw(rt, "nl"),
		})
		if err := os.WriteFile(l.ClaudeSettings(), original, 0o644); err != nil {
			rt.Fatalf("write: %v", err)
		}
		c := NewClaudeCode(l, Options{})

		if _, err := c.Install(); err != nil {
			rt.Fatalf("install: %v", err)
		}
		once, _ := os.ReadFile(l.ClaudeSettings())
		if _, err := c.Install(); err != nil {
			rt.Fatalf("second install: %v", err)
		}
		twice, _ := os.ReadFile(l.ClaudeSettings())
		if string(once) != string(twice) {
			rt.Fatalf("install not idempotent")
		}

		st, err := c.Status()
		if err != nil || st.State() != StateFull {
			rt.Fatalf("status after install: %v %v", st.State(), err)
		}

		if _, err := c.Uninstall(); err != nil {
			rt.Fatalf("uninstall: %v", err)
		}
		after, _ := os.ReadFile(l.ClaudeSettings())
		if string(after) != string(original) {
			rt.Fatalf("round trip changed settings:\n%s\n---\n%s", original, after)
		}
	})
}
