// Package hooks installs, removes, and inspects pulse hooks in each supported
// agent's own configuration.
package hooks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pulsetrace/pulse/internal/paths"
	"github.com/pulsetrace/pulse/internal/span"
)

var (
	// ErrNotDetected is returned by Install when the agent is not present.
	ErrNotDetected = errors.New("agent not detected")
	// ErrConfigParse means an existing agent config could not be understood.
	ErrConfigParse = errors.New("agent config is not valid")
	// ErrConfigWrite means an agent config could not be written.
	ErrConfigWrite = errors.New("writing agent config failed")
	// ErrForeignFile means a file pulse would own already exists without the
	// generated marker.
	ErrForeignFile = errors.New("file exists and was not generated by pulse")
)

// Adapter reconciles pulse hooks for one agent.
type Adapter interface {
	// Name is the span source this agent emits as.
	Name() span.Source
	// DisplayName is the human-facing agent name.
	DisplayName() string
	// Detect reports whether the agent is installed on this host.
	Detect() bool
	// Install adds every missing hook. Running it again changes nothing.
	Install() (Result, error)
	// Uninstall removes every pulse hook and nothing else.
	Uninstall() (Result, error)
	// Status reports per-hook presence without writing.
	Status() (HookStatus, error)
}

// Previewer is implemented by adapters that can show what Install would write.
type Previewer interface {
	PreviewInstall() ([]FileChange, error)
}

// FileChange is one file an install would rewrite.
type FileChange struct {
	Path string
	// Before is nil when the file does not exist yet.
	Before []byte
	After  []byte
}

// Result describes what an Install or Uninstall changed.
type Result struct {
	Agent   span.Source
	Path    string
	Added   []string
	Removed []string
	// Updated lists generated files rewritten because their content was stale.
	Updated []string
}

// Changed reports whether anything was written.
func (r Result) Changed() bool {
	return len(r.Added)+len(r.Removed)+len(r.Updated) > 0
}

// HookPresence is one expected hook and whether it is installed.
type HookPresence struct {
	Name      string
	Installed bool
}

// HookStatus is the observed hook state for one agent.
type HookStatus struct {
	Agent    span.Source
	Detected bool
	Path     string
	Hooks    []HookPresence
	// Outdated is set when generated content differs from this build's.
	Outdated bool
	Message  string
}

// Installed is the number of hooks present.
func (s HookStatus) Installed() int {
	n := 0
	for _, h := range s.Hooks {
		if h.Installed {
			n++
		}
	}
	return n
}

// Expected is the number of hooks pulse owns for this agent.
func (s HookStatus) Expected() int { return len(s.Hooks) }

// Missing lists hook names not yet installed.
func (s HookStatus) Missing() []string {
	var out []string
	for _, h := range s.Hooks {
		if !h.Installed {
			out = append(out, h.Name)
		}
	}
	return out
}

// State classifies the status.
func (s HookStatus) State() State {
	switch {
	case !s.Detected:
		return StateNotDetected
	case s.Installed() == 0:
		return StateNotInstalled
	case s.Installed() < s.Expected():
		return StatePartial
	default:
		return StateFull
	}
}

// Summary renders "n/total".
func (s HookStatus) Summary() string {
	return fmt.Sprintf("%d/%d", s.Installed(), s.Expected())
}

// State is the per-agent reconciliation state.
type State int

const (
	StateNotDetected State = iota
	StateNotInstalled
	StatePartial
	StateFull
)

func (s State) String() string {
	switch s {
	case StateNotDetected:
		return "not detected"
	case StateNotInstalled:
		return "not installed"
	case StatePartial:
		return "partially installed"
	case StateFull:
		return "installed"
	default:
		return "unknown"
	}
}

// Options configures the adapter set.
type Options struct {
	// Command is the executable hooks invoke, "pulse" unless overridden.
	Command string
}

// DefaultCommand is the hook executable when none is configured.
const DefaultCommand = "pulse"

func (o Options) command() string {
	if c := strings.TrimSpace(o.Command); c != "" {
		return c
	}
	return DefaultCommand
}

// All returns the adapters for every supported agent, in display order.
func All(layout paths.Layout, opts Options) []Adapter {
	return []Adapter{
		NewClaudeCode(layout, opts),
		NewOpenCode(layout, opts),
		NewOpenClaw(layout, opts),
	}
}

func notDetected(agent span.Source, path string, names []string) HookStatus {
	st := HookStatus{Agent: agent, Path: path}
	for _, n := range names {
		st.Hooks = append(st.Hooks, HookPresence{Name: n})
	}
	return st
}
