package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/pulsetrace/pulse/internal/emit"
	"github.com/pulsetrace/pulse/internal/flags"
	"github.com/pulsetrace/pulse/internal/log"
	"github.com/pulsetrace/pulse/internal/span"
	"github.com/pulsetrace/pulse/internal/tracing"
)

// shutdownTimeout bounds flushing the OTel mirror after an emit.
const shutdownTimeout = time.Second

func newEmitCmd(a *app) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "emit [event-type]",
		Short: "Send one hook payload read from stdin (invoked by agent hooks)",
		Long: `Read one hook payload from stdin, turn it into a span, and send it to the
trace service. Agents run this from the hooks pulse installs; it always exits 0
and never writes to stdout or stderr, so it can never break the agent.

The event type is usually the first argument. OpenClaw payloads carry their own
event key, so the argument may be omitted for --source openclaw.`,
		Annotations:        map[string]string{hotPath: "true"},
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		Hidden:             true,
		RunE: func(cmd *cobra.Command, args []string) error {
			eventType := ""
			if len(args) > 0 {
				eventType = args[0]
			}
			a.runEmit(cmd.Context(), cmd, source, eventType)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", string(span.SourceClaudeCode),
		"agent the payload comes from: claude_code, opencode, openclaw")
	return cmd
}

func (a *app) runEmit(ctx context.Context, cmd *cobra.Command, rawSource, eventType string) {
	src, err := span.ParseSource(rawSource)
	if err != nil {
		log.Debug(log.CatEmit, "dropped event", "error", err)
		return
	}

	var sinks []emit.Sink
	if a.cfg.Connected() {
		client, err := newClient(a.cfg.Connection(), a.cfg.EmitTimeout)
		if err != nil {
			log.Debug(log.CatEmit, "no http sink", "error", err)
		} else {
			sinks = append(sinks, emit.NewHTTPSink(client))
		}
	} else {
		log.Debug(log.CatEmit, "not initialized, span will not be sent")
	}

	if flags.New(a.cfg.Flags).Enabled(flags.FlagOTelMirror) && a.cfg.Tracing.Enabled {
		provider, err := tracing.NewProvider(a.cfg.TracingConfig(a.layout.Home))
		if err != nil {
			log.Debug(log.CatTrace, "otel mirror disabled", "error", err)
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()
				if err := provider.Shutdown(sctx); err != nil {
					log.Debug(log.CatTrace, "otel shutdown", "error", err)
				}
			}()
			sinks = append(sinks, emit.NewOTelSink(provider.Tracer()))
		}
	}

	d := emit.New(emit.Options{
		Extractor: span.NewExtractor(version, a.cfg.ProjectID),
		Sinks:     sinks,
		Timeout:   a.cfg.EmitTimeout,
	})
	d.Emit(ctx, src, eventType, cmd.InOrStdin())
}
