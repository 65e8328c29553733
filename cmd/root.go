// Package cmd implements the pulse command line.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pulsetrace/pulse/internal/config"
	"github.com/pulsetrace/pulse/internal/hooks"
	"github.com/pulsetrace/pulse/internal/log"
	"github.com/pulsetrace/pulse/internal/paths"
	"github.com/pulsetrace/pulse/internal/reconcile"
)

// hotPath marks commands that agents invoke. They never fail on setup errors.
const hotPath = "hot-path"

var (
	version = "dev"
	rootCmd = newRootCmd(os.Getenv)
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfgFile string
	debug   bool

	v          *viper.Viper
	layout     paths.Layout
	configPath string
	cfg        config.Config
	closeLog   func()

	getenv func(string) string
}

// newRootCmd builds the command tree. getenv resolves paths and config
// locations.
func newRootCmd(getenv func(string) string) *cobra.Command {
	a := &app{v: viper.New(), getenv: getenv}

	root := &cobra.Command{
		Use:   "pulse",
		Short: "Trace coding agent sessions",
		Long: `pulse instruments coding agents (Claude Code, OpenCode, OpenClaw) with hooks
that report every session, prompt, and tool call to a trace service.

Get started:
  pulse init --api-url https://traces.example.com --api-key KEY --project-id PROJECT
  pulse connect`,
		Version:       version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			err := a.setup(cmd)
			if err != nil && cmd.Annotations[hotPath] == "true" {
				log.ErrorErr(log.CatConfig, "setup failed on hot path", err)
				return nil
			}
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.closeLog != nil {
				a.closeLog()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default: ~/.pulse/config.yaml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false,
		"write a debug log (default: ~/.pulse/debug.log)")

	// Bind flags to viper
	_ = a.v.BindPFlag("debug", root.PersistentFlags().Lookup("debug"))

	root.AddCommand(
		newInitCmd(a),
		newConnectCmd(a),
		newDisconnectCmd(a),
		newStatusCmd(a),
		newEmitCmd(a),
		newWatchCmd(a),
	)
	return root
}

// setup resolves paths, loads the config file, and starts the debug log.
func (a *app) setup(cmd *cobra.Command) error {
	env := a.getenv
	layout, err := paths.ResolveEnv(env)
	if err != nil {
		return err
	}
	a.layout = layout

	// Config lookup order:
	// 1. --config
	// 2. PULSE_CONFIG
	// 3. ~/.pulse/config.yaml
	switch {
	case a.cfgFile != "":
		a.configPath = paths.Expand(a.cfgFile, layout.Home)
	case strings.TrimSpace(env("PULSE_CONFIG")) != "":
		a.configPath = paths.Expand(strings.TrimSpace(env("PULSE_CONFIG")), layout.Home)
	default:
		a.configPath = layout.ConfigFile()
	}

	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		a.cfg = config.Defaults()
		return err
	}
	a.cfg = cfg.Sanitized()

	if a.cfg.Debug {
		a.startLog()
	}
	log.Debug(log.CatConfig, "command starting", "command", cmd.CommandPath(), "config", a.configPath)
	return nil
}

func (a *app) startLog() {
	path := strings.TrimSpace(a.getenv("PULSE_LOG"))
	if path == "" {
		path = a.cfg.LogPath
	}
	if path == "" {
		path = a.layout.LogFile()
	}
	closeFn, err := log.Init(paths.Expand(path, a.layout.Home))
	if err != nil {
		fmt.Fprintf(os.Stderr, "pulse: debug log disabled: %v\n", err)
		return
	}
	a.closeLog = closeFn
}

func (a *app) hookOptions() hooks.Options {
	return hooks.Options{Command: a.cfg.Command}
}

// reconciler builds a Reconciler over every supported agent. health may be nil.
func (a *app) reconciler(health reconcile.HealthChecker) *reconcile.Reconciler {
	return reconcile.New(reconcile.Options{
		Adapters: hooks.All(a.layout, a.hookOptions()),
		LockPath: a.layout.LockFile(),
		Health:   health,
	})
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version strings (called from main with ldflags). short
// is reported to the trace service; full is printed by --version.
func SetVersion(short, full string) {
	version = short
	rootCmd.Version = full
}
