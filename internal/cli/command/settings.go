package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/recall-go/internal/cli/view"
	"github.com/yndnr/recall-go/internal/core/domain"
)

// SettingsCommand returns the settings subcommand group.
func SettingsCommand() *cli.Command {
	keys := strings.Join(domain.SettingKeys, ", ")
	return &cli.Command{
		Name:  "settings",
		Usage: "Local preferences",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show every setting",
				Action: withRuntime(settingsShow),
			},
			{
				Name:      "get",
				Usage:     "Print one setting (" + keys + ")",
				ArgsUsage: "KEY",
				Action:    withRuntime(settingsGet),
			},
			{
				Name:      "set",
				Usage:     "Change one setting (" + keys + ")",
				ArgsUsage: "KEY VALUE",
				Action:    withRuntime(settingsSet),
			},
			{
				Name:   "reset",
				Usage:  "Restore the defaults",
				Action: withRuntime(settingsReset),
			},
		},
	}
}

func settingsShow(ctx context.Context, _ *cli.Context, rt *Runtime) error {
	s, err := rt.Store.Settings(ctx)
	if err != nil {
		return err
	}
	return rt.Render(s, view.Settings(s))
}

func settingsGet(ctx context.Context, c *cli.Context, rt *Runtime) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: settings get KEY")
	}
	s, err := rt.Store.Settings(ctx)
	if err != nil {
		return err
	}
	v, err := s.Get(c.Args().First())
	if err != nil {
		return err
	}
	rt.Printf("%s\n", v)
	return nil
}

func settingsSet(ctx context.Context, c *cli.Context, rt *Runtime) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: settings set KEY VALUE")
	}
	s, err := rt.Store.Settings(ctx)
	if err != nil {
		return err
	}
	key := c.Args().First()
	if err := s.Set(key, strings.Join(c.Args().Tail(), " ")); err != nil {
		return err
	}
	if err := rt.Store.SaveSettings(ctx, s); err != nil {
		return err
	}
	v, _ := s.Get(key)
	rt.Printf("✓ %s = %s\n", key, v)
	return nil
}

func settingsReset(ctx context.Context, _ *cli.Context, rt *Runtime) error {
	if err := rt.Store.SaveSettings(ctx, domain.DefaultSettings()); err != nil {
		return err
	}
	rt.Printf("✓ Settings restored to defaults\n")
	return nil
}
