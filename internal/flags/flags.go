// Package flags reads the optional behaviors switched on under "flags:" in
// ~/.pulse/config.yaml.
//
//	flags:
//	  otel-mirror: true
//	  auto-repair: true
//
// Every flag defaults to off. Names this build does not know are kept so
// `pulse status` can point out typos, but they never enable anything.
package flags

import (
	"slices"

	"github.com/pulsetrace/pulse/internal/log"
)

const (
	// FlagOTelMirror makes `pulse emit` record each span into the configured
	// OpenTelemetry exporter in addition to posting it to the trace service.
	FlagOTelMirror = "otel-mirror"

	// FlagAutoRepair lets `pulse watch` reinstall hooks when a detected
	// agent loses some or all of them, or when they point at another binary.
	FlagAutoRepair = "auto-repair"
)

// Known lists every flag this build reads, in the order `pulse status` shows them.
var Known = []string{FlagOTelMirror, FlagAutoRepair}

// Registry is the flag section of one loaded config.
type Registry struct {
	on      map[string]bool
	unknown []string
}

// New builds a Registry from the decoded "flags:" map, which may be nil.
func New(values map[string]bool) *Registry {
	r := &Registry{on: make(map[string]bool, len(Known))}
	for name, v := range values {
		if !slices.Contains(Known, name) {
			r.unknown = append(r.unknown, name)
			continue
		}
		r.on[name] = v
	}
	slices.Sort(r.unknown)
	if len(r.unknown) > 0 {
		log.Warn(log.CatConfig, "ignoring unknown feature flags", "flags", r.unknown)
	}
	log.Debug(log.CatConfig, "feature flags loaded", "enabled", r.enabledNames())
	return r
}

// Enabled reports whether a known flag is switched on. A nil Registry has
// everything off.
func (r *Registry) Enabled(name string) bool {
	if r == nil {
		return false
	}
	return r.on[name]
}

// Unknown returns the configured names this build ignores, sorted.
func (r *Registry) Unknown() []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.unknown)
}

// All returns the state of every known flag.
func (r *Registry) All() map[string]bool {
	all := make(map[string]bool, len(Known))
	for _, name := range Known {
		all[name] = r.Enabled(name)
	}
	return all
}

func (r *Registry) enabledNames() []string {
	var names []string
	for _, name := range Known {
		if r.on[name] {
			names = append(names, name)
		}
	}
	return names
}
