package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/recall-go/internal/core/domain"
	"github.com/yndnr/recall-go/internal/infra/buildinfo"
	"github.com/yndnr/recall-go/internal/telemetry/logger"
)

// App creates the CLI application.
func App() *cli.App {
	return newApp(BuildRuntime)
}

func newApp(build Builder) *cli.App {
	lazy := &lazyRuntime{build: build}
	return &cli.App{
		Name:    "recall-cli",
		Usage:   "Spaced-repetition review client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			LoginCommand(),
			SignupCommand(),
			LogoutCommand(),
			WhoamiCommand(),
			ForgotPasswordCommand(),
			DashboardCommand(),
			StatsCommand(),
			TodayCommand(),
			HeatmapCommand(),
			PatternsCommand(),
			ProblemsCommand(),
			AnalyzeCommand(),
			SolveCommand(),
			SettingsCommand(),
			ConfigCommand(),
			SystemCommand(),
			ShellCommand(),
		},
		Action: shellAction,
		Metadata: map[string]any{
			runtimeKey: lazy,
		},
		After: func(*cli.Context) error {
			return lazy.close()
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Backend URL for this run (overrides settings and config)",
			EnvVars: []string{"RECALL_SERVER"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file path (default ~/.recall/cli.yaml)",
			EnvVars: []string{"RECALL_CONFIG"},
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log debug output to stderr",
		},
		&cli.BoolFlag{
			Name:  "ephemeral",
			Usage: "Keep the session in memory only",
		},
	}
}

// commandTimeout bounds one command; the engine's call budget is tighter.
const commandTimeout = 2 * time.Minute

// withRuntime adapts fn to a cli.ActionFunc. fn receives the Runtime and a
// context carrying the run's logger, cancelled on SIGINT/SIGTERM or after
// commandTimeout.
func withRuntime(fn func(ctx context.Context, c *cli.Context, rt *Runtime) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		rt, err := RuntimeFrom(c)
		if err != nil {
			return err
		}
		ctx, stop := rt.Shutdown.NotifyContext(c.Context)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		return fn(logger.WithLogger(ctx, rt.Logger), c, rt)
	}
}

// ErrorMessage renders err for the terminal.
func ErrorMessage(err error) string {
	if errors.Is(err, domain.ErrNotLoggedIn) {
		return "not logged in; run 'recall-cli login' first"
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return domain.UserMessage(err)
	}
	if errors.Is(err, context.Canceled) {
		return "interrupted"
	}
	return err.Error()
}

// PrintError prints an error message to w.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %s\n", ErrorMessage(err))
}
