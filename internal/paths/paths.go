// Package paths provides path resolution utilities.
package paths

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoHome is returned when no home directory can be determined.
var ErrNoHome = errors.New("home directory not found")

// Layout holds every on-disk location pulse reads or writes.
type Layout struct {
	Home string

	// PulseDir holds config.yaml, debug.log and the reconcile lock.
	PulseDir string

	// ClaudeDir is the Claude Code user directory containing settings.json.
	ClaudeDir string

	// OpenCodeDir is the OpenCode config directory; plugins live under plugins/.
	OpenCodeDir string

	// OpenClawDir is the OpenClaw state directory; hook packages live under hooks/.
	OpenClawDir string
}

// Resolve builds a Layout from the process environment.
//
// Overrides:
//   - PULSE_HOME replaces ~/.pulse
//   - CLAUDE_CONFIG_DIR replaces ~/.claude
//   - XDG_CONFIG_HOME moves ~/.config/opencode
//   - OPENCLAW_STATE_DIR replaces ~/.openclaw
func Resolve() (Layout, error) {
	return ResolveEnv(os.Getenv)
}

// ResolveEnv is Resolve with an injectable environment lookup.
func ResolveEnv(getenv func(string) string) (Layout, error) {
	home := strings.TrimSpace(getenv("HOME"))
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil || h == "" {
			return Layout{}, ErrNoHome
		}
		home = h
	}

	l := ForHome(home)
	if v := clean(getenv("PULSE_HOME")); v != "" {
		l.PulseDir = v
	}
	if v := clean(getenv("CLAUDE_CONFIG_DIR")); v != "" {
		l.ClaudeDir = v
	}
	if v := clean(getenv("XDG_CONFIG_HOME")); v != "" {
		l.OpenCodeDir = filepath.Join(v, "opencode")
	}
	if v := clean(getenv("OPENCLAW_STATE_DIR")); v != "" {
		l.OpenClawDir = v
	}
	return l, nil
}

// ForHome returns the default Layout rooted at home, ignoring the environment.
func ForHome(home string) Layout {
	home = filepath.Clean(home)
	return Layout{
		Home:        home,
		PulseDir:    filepath.Join(home, ".pulse"),
		ClaudeDir:   filepath.Join(home, ".claude"),
		OpenCodeDir: filepath.Join(home, ".config", "opencode"),
		OpenClawDir: filepath.Join(home, ".openclaw"),
	}
}

// ConfigFile is the default pulse config path.
func (l Layout) ConfigFile() string { return filepath.Join(l.PulseDir, "config.yaml") }

// LogFile is the default debug log path.
func (l Layout) LogFile() string { return filepath.Join(l.PulseDir, "debug.log") }

// LockFile guards reconcile writes across processes.
func (l Layout) LockFile() string { return filepath.Join(l.PulseDir, "reconcile.lock") }

// ClaudeSettings is the Claude Code user settings document.
func (l Layout) ClaudeSettings() string { return filepath.Join(l.ClaudeDir, "settings.json") }

// OpenCodePluginDir is the directory OpenCode loads plugins from.
func (l Layout) OpenCodePluginDir() string { return filepath.Join(l.OpenCodeDir, "plugins") }

// OpenClawHooksDir is the parent directory of OpenClaw hook packages.
func (l Layout) OpenClawHooksDir() string { return filepath.Join(l.OpenClawDir, "hooks") }

// Exists reports whether path exists. Any stat error counts as absent.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Expand replaces a leading ~ with home.
func Expand(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func clean(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	return filepath.Clean(v)
}
