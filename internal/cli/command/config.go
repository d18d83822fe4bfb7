package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/recall-go/internal/cli/config"
)

// ConfigCommand returns the config subcommand group. None of its commands
// open the credential store.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "CLI configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:   "path",
				Usage:  "Print the config file path",
				Action: configPath,
			},
			{
				Name:  "init",
				Usage: "Write the default configuration",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Overwrite an existing file",
					},
				},
				Action: configInit,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration",
				Action: configValidate,
			},
		},
	}
}

func configFilePath(c *cli.Context) string {
	if p := c.String("config"); p != "" {
		return p
	}
	return config.DefaultConfigPath()
}

func configShow(c *cli.Context) error {
	cfg, err := config.Load(configFilePath(c), configOverrides(c))
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "# %s\n# backend: %s\n%s", configFilePath(c), cfg.BackendURL(), data)
	return nil
}

func configPath(c *cli.Context) error {
	fmt.Fprintln(c.App.Writer, configFilePath(c))
	return nil
}

func configInit(c *cli.Context) error {
	path := configFilePath(c)
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Save(config.Default(), path); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "✓ Wrote %s\n", path)
	return nil
}

func configValidate(c *cli.Context) error {
	path := configFilePath(c)
	if _, err := config.Load(path, configOverrides(c)); err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(c.App.Writer, "No configuration file at %s; defaults are valid.\n", path)
		return nil
	}
	fmt.Fprintf(c.App.Writer, "✓ Configuration is valid: %s\n", path)
	return nil
}
