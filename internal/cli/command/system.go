package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/recall-go/internal/cli/output"
	"github.com/yndnr/recall-go/internal/cli/view"
	"github.com/yndnr/recall-go/internal/core/service"
	"github.com/yndnr/recall-go/internal/infra/buildinfo"
)

var errUnreachable = errors.New("backend unreachable")

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Connectivity and build information",
		Subcommands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Check that the backend is reachable",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Health check deadline",
						Value: service.DefaultHealthTimeout,
					},
				},
				Action: withRuntime(systemStatus),
			},
			{
				Name:   "version",
				Usage:  "Show build information",
				Action: systemVersion,
			},
			{
				Name:  "metrics",
				Usage: "Dump client metrics in the Prometheus text format",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Only families whose name starts with PREFIX",
						Value: "recall_",
					},
				},
				Action: withRuntime(systemMetrics),
			},
		},
	}
}

func systemStatus(ctx context.Context, c *cli.Context, rt *Runtime) error {
	report := service.CheckHealth(ctx, rt.Client, c.Duration("timeout"))
	if err := rt.Render(report, view.Health(report)); err != nil {
		return err
	}
	if !report.Reachable {
		return errUnreachable
	}
	return nil
}

func systemVersion(c *cli.Context) error {
	info := buildinfo.Get()
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	if format != output.FormatTable {
		return output.NewFormatter(format, false).Format(c.App.Writer, info)
	}
	fmt.Fprintf(c.App.Writer, "recall-cli %s\n", info.Version)
	fmt.Fprintf(c.App.Writer, "  commit:  %s\n", info.Commit)
	fmt.Fprintf(c.App.Writer, "  built:   %s\n", info.BuildTime)
	fmt.Fprintf(c.App.Writer, "  go:      %s\n", info.GoVersion)
	fmt.Fprintf(c.App.Writer, "  backend: %s\n", info.Backend)
	return nil
}

func systemMetrics(_ context.Context, c *cli.Context, rt *Runtime) error {
	return rt.Metrics.WriteText(rt.Out, c.String("prefix"))
}
