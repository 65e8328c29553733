package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pulsetrace/pulse/internal/config"
	"github.com/pulsetrace/pulse/internal/log"
	"github.com/pulsetrace/pulse/internal/style"
	"github.com/pulsetrace/pulse/internal/transport"
)

type initOptions struct {
	apiURL     string
	apiKey     string
	projectID  string
	noValidate bool
}

func newInitCmd(a *app) *cobra.Command {
	var opts initOptions
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Save the trace service connection",
		Long: `Save the trace service URL, API key, and project id to the pulse config file.

Values not given as flags are taken from the existing config or PULSE_* environment
variables. The connection is checked against the service's health endpoint before
saving unless --no-validate is set. Other settings and comments in the file are kept.

Examples:
  pulse init --api-url https://traces.example.com --api-key KEY --project-id my-project
  pulse init --api-key NEW_KEY`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.apiURL, "api-url", "", "trace service base URL")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "trace service API key")
	cmd.Flags().StringVar(&opts.projectID, "project-id", "", "project spans are recorded under")
	cmd.Flags().BoolVar(&opts.noValidate, "no-validate", false, "save without checking the connection")
	return cmd
}

func (a *app) runInit(cmd *cobra.Command, opts initOptions) error {
	out := cmd.OutOrStdout()
	s := style.New(out)

	conn := a.cfg.Connection()
	if cmd.Flags().Changed("api-url") {
		conn.APIURL = opts.apiURL
	}
	if cmd.Flags().Changed("api-key") {
		conn.APIKey = opts.apiKey
	}
	if cmd.Flags().Changed("project-id") {
		conn.ProjectID = opts.projectID
	}
	if err := conn.Validate(); err != nil {
		return fmt.Errorf("%w (set it with --api-url, --api-key, --project-id)", err)
	}

	if !opts.noValidate {
		if err := checkConnection(cmd.Context(), conn); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", s.Mark(style.MarkOK), "trace service reachable")
	}

	if err := config.Save(a.configPath, conn); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	log.Info(log.CatConfig, "saved connection", "path", a.configPath, "url", conn.APIURL, "project", conn.ProjectID)

	fmt.Fprintf(out, "%s Saved configuration to %s\n", s.Mark(style.MarkOK), a.configPath)
	fmt.Fprintln(out, s.Muted.Render("Run `pulse connect` to install agent hooks."))
	return nil
}

// checkConnection runs the health check against conn.
func checkConnection(ctx context.Context, conn config.Connection) error {
	client, err := newClient(conn, 0)
	if err != nil {
		return err
	}
	if err := client.Health(ctx); err != nil {
		if errors.Is(err, transport.ErrUnauthorized) {
			return fmt.Errorf("trace service rejected the API key: %w", err)
		}
		return fmt.Errorf("trace service unreachable at %s: %w (use --no-validate to save anyway)", conn.APIURL, err)
	}
	return nil
}

// newClient builds a trace service client. A zero timeout uses the client default.
func newClient(conn config.Connection, timeout time.Duration) (*transport.Client, error) {
	return transport.New(transport.Options{
		BaseURL:   conn.APIURL,
		APIKey:    conn.APIKey,
		ProjectID: conn.ProjectID,
		Version:   version,
		Timeout:   timeout,
	})
}
