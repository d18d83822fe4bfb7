package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/recall-go/internal/cli/config"
	"github.com/yndnr/recall-go/internal/cli/navigation"
	"github.com/yndnr/recall-go/internal/cli/repl"
	"github.com/yndnr/recall-go/internal/infra/confloader"
	"github.com/yndnr/recall-go/internal/telemetry/logger"
)

// ShellCommand returns the shell command. Running recall-cli without a
// command does the same.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:   "shell",
		Usage:  "Start the interactive shell",
		Action: shellAction,
	}
}

func shellAction(c *cli.Context) error {
	if c.Args().Present() {
		return cli.ShowAppHelp(c)
	}
	rt, err := RuntimeFrom(c)
	if err != nil {
		return err
	}
	ctx, stop := rt.Shutdown.NotifyContext(c.Context)
	defer stop()
	slogger := rt.Logger.Slog()

	nav := navigation.New(navigation.Config{
		Sessions: rt.Auth,
		Loader:   rt.Reviews,
		Store:    rt.Store,
		Expiry:   rt.Engine,
		Logger:   slogger,
	})
	defer nav.Close()

	if err := nav.Init(ctx); err != nil {
		rt.Printf("Stored session is no longer valid: %s\n", ErrorMessage(err))
	}

	if w := watchConfig(c, rt); w != nil {
		defer w.Stop()
	}

	history := ""
	if !rt.Config.Storage.Ephemeral {
		history = rt.Config.HistoryFile()
	}
	shell := repl.New(repl.Config{
		In:       rt.In,
		Out:      rt.Out,
		Nav:      nav,
		Reviews:  rt.Reviews,
		Accounts: rt.Auth,
		Source:   rt.Bridge,
		Settings: rt.Store,
		History:  repl.NewHistory(history, repl.DefaultHistorySize),
		Logger:   slogger,
		Wide:     rt.Wide,
	})
	return shell.Run(ctx)
}

// watchConfig applies log level changes of the config file while the shell
// runs. It returns nil when the file cannot be watched.
func watchConfig(c *cli.Context, rt *Runtime) *confloader.Watcher {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(rt.Logger.Slog()))
	if err != nil {
		rt.Logger.Debug("config watcher unavailable", "error", err)
		return nil
	}
	if err := w.Watch(rt.ConfigPath); err != nil {
		w.Stop()
		return nil
	}
	overrides := configOverrides(c)
	w.OnChange(func(path string) {
		cfg, err := config.Load(path, overrides)
		if err != nil {
			rt.Logger.Warn("config reload failed", "path", path, "error", err)
			return
		}
		logger.SetLevel(cfg.Log.Level)
		rt.Logger.Info("config reloaded", "path", path, "log_level", cfg.Log.Level)
	})
	w.StartAsync()
	return w
}
