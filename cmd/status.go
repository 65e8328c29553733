package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pulsetrace/pulse/internal/flags"
	"github.com/pulsetrace/pulse/internal/log"
	"github.com/pulsetrace/pulse/internal/reconcile"
	"github.com/pulsetrace/pulse/internal/style"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the connection and per-agent hook state",
		Long: `Show the saved connection, whether the trace service is reachable, and how
many pulse hooks each agent has installed. Nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			s := style.New(out)

			var health reconcile.HealthChecker
			if a.cfg.Connected() {
				client, err := newClient(a.cfg.Connection(), 0)
				if err != nil {
					log.Warn(log.CatHTTP, "cannot build client", "error", err)
				} else {
					health = client
				}
			}
			report := a.reconciler(health).Status(cmd.Context())

			fmt.Fprintln(out, s.RenderSection(a.connectionRows(s, report), "Connection", a.configPath, 0))
			fmt.Fprintln(out, s.RenderSection(agentRows(s, report), "Agents", "", 0))
			fmt.Fprintln(out, s.RenderSection(flagRows(s, flags.New(a.cfg.Flags)), "Feature flags", "", 0))
			return nil
		},
	}
}

const labelWidth = 10

func (a *app) connectionRows(s *style.Styles, report reconcile.StatusReport) []string {
	if !a.cfg.Connected() {
		return []string{s.KeyValue("State", labelWidth, s.Warning.Render("not initialized, run `pulse init`"))}
	}
	service := s.Success.Render("reachable")
	switch {
	case !report.HealthChecked:
		service = s.Muted.Render("not checked")
	case report.HealthErr != nil:
		service = s.Error.Render("unreachable") + " " + s.Muted.Render(style.TruncateString(report.HealthErr.Error(), 60))
	}
	return []string{
		s.KeyValue("API URL", labelWidth, a.cfg.APIURL),
		s.KeyValue("API key", labelWidth, a.cfg.MaskedKey()),
		s.KeyValue("Project", labelWidth, a.cfg.ProjectID),
		s.KeyValue("Service", labelWidth, service),
	}
}

func agentRows(s *style.Styles, report reconcile.StatusReport) []string {
	rows := make([]string, 0, len(report.Agents))
	for _, ag := range report.Agents {
		rows = append(rows, " "+agentLine(s, ag)+" ")
	}
	return rows
}

func flagRows(s *style.Styles, reg *flags.Registry) []string {
	rows := make([]string, 0, len(flags.Known))
	for _, name := range flags.Known {
		state := s.Muted.Render("off")
		if reg.Enabled(name) {
			state = s.Success.Render("on")
		}
		rows = append(rows, s.KeyValue(name, maxLen(flags.Known), state))
	}
	for _, name := range reg.Unknown() {
		rows = append(rows, s.KeyValue(name, maxLen(flags.Known), s.Warning.Render("unknown, ignored")))
	}
	return rows
}

func maxLen(names []string) int {
	n := 0
	for _, name := range names {
		n = max(n, len(strings.TrimSpace(name)))
	}
	return n
}
