package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pulsetrace/pulse/internal/config"
	"github.com/pulsetrace/pulse/internal/reconcile"
	"github.com/pulsetrace/pulse/internal/style"
)

func newConnectCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Install pulse hooks into every detected agent",
		Long: `Install pulse hooks into the configuration of every detected coding agent.

Hooks already present are left alone, so connect can be run any number of times.
Agents that are not installed are skipped. With --dry-run the changes are shown
as a diff and nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			s := style.New(out)
			rec := a.reconciler(nil)

			if dryRun {
				printPreview(out, s, rec.Preview(cmd.Context()))
				return nil
			}
			if !a.cfg.Connected() {
				return config.ErrNotInitialized
			}

			report, err := rec.Connect(cmd.Context())
			if err != nil {
				return err
			}
			printReport(out, s, report, false)
			if !anyDetected(report.Outcomes) {
				fmt.Fprintln(out, s.Warning.Render("No supported agents detected."))
			}
			if err := report.Err(); err != nil {
				return fmt.Errorf("some agents could not be connected: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the changes without writing them")
	return cmd
}

func newDisconnectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Remove pulse hooks from every agent",
		Long: `Remove every hook pulse installed. Hooks and settings written by anyone else
are kept. The pulse config file is not touched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			s := style.New(out)

			report, err := a.reconciler(nil).Disconnect(cmd.Context())
			if err != nil {
				return err
			}
			printReport(out, s, report, true)
			if err := report.Err(); err != nil {
				return fmt.Errorf("some agents could not be disconnected: %w", err)
			}
			return nil
		},
	}
}

func anyDetected(outcomes []reconcile.Outcome) bool {
	for _, o := range outcomes {
		if o.Detected || o.Err != nil {
			return true
		}
	}
	return false
}
