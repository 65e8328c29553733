package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pulsetrace/pulse/internal/cachemanager"
	"github.com/pulsetrace/pulse/internal/flags"
	"github.com/pulsetrace/pulse/internal/hooks"
	"github.com/pulsetrace/pulse/internal/log"
	"github.com/pulsetrace/pulse/internal/reconcile"
	"github.com/pulsetrace/pulse/internal/span"
	"github.com/pulsetrace/pulse/internal/style"
	"github.com/pulsetrace/pulse/internal/watcher"
)

const (
	// healthTTL limits how often watch calls the health endpoint.
	healthTTL = 30 * time.Second
	// transitionTTL forgets a reported state so it is printed again eventually.
	transitionTTL = time.Hour
)

// healthKey is the single key health results are cached under.
const healthKey = "trace-service"

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Report agent hook changes as they happen",
		Long: `Watch every agent's configuration and print a line whenever an agent's hook
state changes, e.g. when an agent update rewrites its settings.

With the auto-repair feature flag on, hooks that go missing on a detected agent
are installed again:

  flags:
    auto-repair: true`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			adapters := hooks.All(a.layout, a.hookOptions())
			w, err := watcher.New(watcher.DefaultConfig(watchPaths(a, adapters)...))
			if err != nil {
				return err
			}
			changes, err := w.Start()
			if err != nil {
				_ = w.Stop()
				return fmt.Errorf("starting watcher: %w", err)
			}
			defer func() { _ = w.Stop() }()

			loop := a.newWatchLoop(cmd.OutOrStdout(), adapters)
			fmt.Fprintln(cmd.OutOrStdout(), loop.styles.Muted.Render("Watching agent configuration, press Ctrl+C to stop."))
			loop.run(ctx, changes)
			return nil
		},
	}
}

// watchPaths lists each agent's home directory and the file pulse writes.
func watchPaths(a *app, adapters []hooks.Adapter) []string {
	out := []string{a.layout.ClaudeDir, a.layout.OpenCodeDir, a.layout.OpenClawDir}
	for _, ad := range adapters {
		if p, ok := ad.(interface{ Path() string }); ok {
			out = append(out, p.Path())
		}
	}
	return out
}

// watchLoop re-inspects agents on every change and prints transitions.
type watchLoop struct {
	out         io.Writer
	styles      *style.Styles
	rec         *reconcile.Reconciler
	transitions *cachemanager.Transitions[span.Source]
	autoRepair  bool
}

func (a *app) newWatchLoop(out io.Writer, adapters []hooks.Adapter) *watchLoop {
	var health reconcile.HealthChecker
	if a.cfg.Connected() {
		if client, err := newClient(a.cfg.Connection(), 0); err == nil {
			health = newCachedHealth(client)
		}
	}
	return &watchLoop{
		out:    out,
		styles: style.New(out),
		rec: reconcile.New(reconcile.Options{
			Adapters: adapters,
			LockPath: a.layout.LockFile(),
			Health:   health,
		}),
		transitions: cachemanager.NewTransitions[span.Source](
			cachemanager.NewInMemoryCacheManager[span.Source, string]("watch-transitions", transitionTTL, cachemanager.DefaultCleanupInterval),
			transitionTTL,
		),
		autoRepair: flags.New(a.cfg.Flags).Enabled(flags.FlagAutoRepair),
	}
}

// run reports the initial state, then one check per change until ctx ends.
func (l *watchLoop) run(ctx context.Context, changes <-chan struct{}) {
	l.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			log.Debug(log.CatWatch, "agent config changed")
			l.check(ctx)
		}
	}
}

func (l *watchLoop) check(ctx context.Context) {
	report := l.rec.Status(ctx)
	l.printTransitions(ctx, report)
	if !l.autoRepair || !needsRepair(report) {
		return
	}

	repaired, err := l.rec.Repair(ctx)
	if err != nil {
		log.ErrorErr(log.CatWatch, "auto-repair failed", err)
		fmt.Fprintf(l.out, "%s auto-repair: %s\n", l.styles.Mark(style.MarkFailed), err)
		return
	}
	for _, o := range repaired.Outcomes {
		fmt.Fprintf(l.out, "%s auto-repair: %s\n", timestamp(), outcomeLine(l.styles, o, false))
	}
	l.printTransitions(ctx, l.rec.Status(ctx))
}

func (l *watchLoop) printTransitions(ctx context.Context, report reconcile.StatusReport) {
	for _, ag := range report.Agents {
		key := fmt.Sprintf("%s|%s|%t", ag.State(), ag.Summary(), ag.Outdated)
		if ag.Err != nil {
			key = "error|" + ag.Err.Error()
		}
		if l.transitions.Changed(ctx, ag.Agent, key) {
			fmt.Fprintf(l.out, "%s %s\n", timestamp(), agentLine(l.styles, ag))
		}
	}
	if report.HealthChecked {
		state := "reachable"
		if report.HealthErr != nil {
			state = "unreachable"
		}
		if l.transitions.Changed(ctx, span.Source(healthKey), state) {
			fmt.Fprintf(l.out, "%s trace service %s\n", timestamp(), state)
		}
	}
}

// needsRepair reports a detected agent with missing or outdated hooks.
func needsRepair(report reconcile.StatusReport) bool {
	for _, ag := range report.Agents {
		if ag.Err != nil || !ag.Detected {
			continue
		}
		if ag.State() != hooks.StateFull || ag.Outdated {
			return true
		}
	}
	return false
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}

// cachedHealth caches health results so bursts of changes cost one request.
type cachedHealth struct {
	cache *cachemanager.ReadThroughCache[string, healthResult, reconcile.HealthChecker]
	inner reconcile.HealthChecker
}

type healthResult struct {
	Err error
}

func newCachedHealth(inner reconcile.HealthChecker) *cachedHealth {
	store := cachemanager.NewInMemoryCacheManager[string, healthResult]("watch-health", healthTTL, cachemanager.DefaultCleanupInterval)
	fetch := func(ctx context.Context, h reconcile.HealthChecker) (healthResult, error) {
		return healthResult{Err: h.Health(ctx)}, nil
	}
	return &cachedHealth{
		cache: cachemanager.NewReadThroughCache[string, healthResult, reconcile.HealthChecker](store, fetch, false),
		inner: inner,
	}
}

func (c *cachedHealth) Health(ctx context.Context) error {
	res, err := c.cache.Get(ctx, healthKey, c.inner, healthTTL)
	if err != nil {
		return err
	}
	return res.Err
}
