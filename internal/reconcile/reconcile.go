// Package reconcile drives every agent adapter toward the desired hook state
// for the interactive connect, disconnect, and status commands.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pulsetrace/pulse/internal/hooks"
	"github.com/pulsetrace/pulse/internal/lock"
	"github.com/pulsetrace/pulse/internal/log"
	"github.com/pulsetrace/pulse/internal/span"
)

// HealthChecker reports whether the trace service is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Options configures a Reconciler.
type Options struct {
	Adapters []hooks.Adapter

	// LockPath, when set, serializes Connect and Disconnect across processes.
	LockPath string

	// Health is consulted by Status. Nil skips the connectivity check.
	Health HealthChecker
}

// Reconciler orchestrates the adapters. Each agent is handled in isolation:
// one agent failing never stops the others.
type Reconciler struct {
	adapters []hooks.Adapter
	lockPath string
	health   HealthChecker
}

// New builds a Reconciler.
func New(opts Options) *Reconciler {
	return &Reconciler{adapters: opts.Adapters, lockPath: opts.LockPath, health: opts.Health}
}

// Outcome is the result of one adapter during Connect or Disconnect.
type Outcome struct {
	Agent       span.Source
	DisplayName string
	Detected    bool
	Result      hooks.Result
	Err         error
}

// Skipped reports an agent that Connect left alone because it is absent.
func (o Outcome) Skipped() bool { return !o.Detected && o.Err == nil }

// Report aggregates per-agent outcomes.
type Report struct {
	Outcomes []Outcome
}

// Changed reports whether any adapter wrote anything.
func (r Report) Changed() bool {
	for _, o := range r.Outcomes {
		if o.Result.Changed() {
			return true
		}
	}
	return false
}

// Failed returns the outcomes that ended in an error.
func (r Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Err joins every per-agent error, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, o := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", o.DisplayName, o.Err))
	}
	return errors.Join(errs...)
}

func (r *Reconciler) withLock(ctx context.Context, fn func()) error {
	if r.lockPath == "" {
		fn()
		return nil
	}
	unlock, err := lock.FlockAcquireContext(ctx, r.lockPath)
	if err != nil {
		return fmt.Errorf("acquiring reconcile lock: %w", err)
	}
	defer unlock()
	fn()
	return nil
}

// Connect installs hooks into every detected agent.
func (r *Reconciler) Connect(ctx context.Context) (Report, error) {
	var report Report
	err := r.withLock(ctx, func() {
		for _, a := range r.adapters {
			o := Outcome{Agent: a.Name(), DisplayName: a.DisplayName(), Detected: a.Detect()}
			if !o.Detected {
				log.Debug(log.CatReconcile, "agent not detected", "agent", o.Agent)
				report.Outcomes = append(report.Outcomes, o)
				continue
			}
			start := time.Now()
			o.Result, o.Err = a.Install()
			logOutcome("install", o, time.Since(start))
			report.Outcomes = append(report.Outcomes, o)
		}
	})
	return report, err
}

// Disconnect removes pulse hooks from every agent, detected or not.
func (r *Reconciler) Disconnect(ctx context.Context) (Report, error) {
	var report Report
	err := r.withLock(ctx, func() {
		for _, a := range r.adapters {
			o := Outcome{Agent: a.Name(), DisplayName: a.DisplayName(), Detected: a.Detect()}
			start := time.Now()
			o.Result, o.Err = a.Uninstall()
			logOutcome("uninstall", o, time.Since(start))
			report.Outcomes = append(report.Outcomes, o)
		}
	})
	return report, err
}

// AgentStatus is one agent's entry in a StatusReport.
type AgentStatus struct {
	DisplayName string
	hooks.HookStatus
	Err error
}

// StatusReport combines per-agent hook state with trace service reachability.
type StatusReport struct {
	Agents []AgentStatus
	// HealthChecked is false when no HealthChecker was configured.
	HealthChecked bool
	HealthErr     error
}

// Reachable reports a successful health check.
func (s StatusReport) Reachable() bool { return s.HealthChecked && s.HealthErr == nil }

// Status inspects every agent without writing anything.
func (r *Reconciler) Status(ctx context.Context) StatusReport {
	var report StatusReport
	for _, a := range r.adapters {
		st, err := a.Status()
		if err != nil {
			log.Warn(log.CatReconcile, "status failed", "agent", a.Name(), "error", err)
		}
		if st.Agent == "" {
			st.Agent = a.Name()
		}
		report.Agents = append(report.Agents, AgentStatus{DisplayName: a.DisplayName(), HookStatus: st, Err: err})
	}
	if r.health != nil {
		report.HealthChecked = true
		report.HealthErr = r.health.Health(ctx)
		log.Debug(log.CatReconcile, "health check", "reachable", report.HealthErr == nil, "error", report.HealthErr)
	}
	return report
}

// Repair runs Install for detected agents whose hooks are missing or
// outdated, and leaves the rest untouched.
func (r *Reconciler) Repair(ctx context.Context) (Report, error) {
	var report Report
	err := r.withLock(ctx, func() {
		for _, a := range r.adapters {
			if !a.Detect() {
				continue
			}
			st, err := a.Status()
			if err != nil || (st.State() == hooks.StateFull && !st.Outdated) {
				continue
			}
			o := Outcome{Agent: a.Name(), DisplayName: a.DisplayName(), Detected: true}
			start := time.Now()
			o.Result, o.Err = a.Install()
			logOutcome("repair", o, time.Since(start))
			report.Outcomes = append(report.Outcomes, o)
		}
	})
	return report, err
}

func logOutcome(op string, o Outcome, d time.Duration) {
	if o.Err != nil {
		log.ErrorErr(log.CatReconcile, op+" failed", o.Err, "agent", o.Agent, "duration", d)
		return
	}
	log.Info(log.CatReconcile, op+" done", "agent", o.Agent,
		"added", len(o.Result.Added), "removed", len(o.Result.Removed),
		"updated", len(o.Result.Updated), "duration", d)
}
