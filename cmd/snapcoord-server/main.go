package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapcoord/internal/infra/buildinfo"
	"github.com/yndnr/snapcoord/internal/server/config"
)

func main() {
	if err := app().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func app() *cli.App {
	return &cli.App{
		Name:    "snapcoord-server",
		Usage:   "host/guest snapshot coordinator",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				EnvVars: []string{"SNAPCOORD_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override log.level (debug, info, warn, error)",
			},
		},
		Action: func(c *cli.Context) error {
			overrides := flagOverrides(c)
			cfg, loaderPath, err := loadConfig(c.String("config"), overrides)
			if err != nil {
				return err
			}
			return run(cfg, loaderPath, overrides)
		},
		Commands: []*cli.Command{
			{
				Name:  "check-config",
				Usage: "Validate the configuration and exit",
				Action: func(c *cli.Context) error {
					cfg, path, err := loadConfig(c.String("config"), flagOverrides(c))
					if err != nil {
						return err
					}
					if path == "" {
						path = "(defaults and environment)"
					}
					fmt.Fprintf(c.App.Writer, "configuration OK: %s\n", path)
					fmt.Fprintf(c.App.Writer, "  agent socket:   %s\n", cfg.Server.Agent.Socket)
					fmt.Fprintf(c.App.Writer, "  event socket:   %s\n", cfg.Server.Host.EventSocket)
					fmt.Fprintf(c.App.Writer, "  report socket:  %s\n", cfg.Server.Host.ReportSocket)
					fmt.Fprintf(c.App.Writer, "  features:       %v\n", cfg.Device.Features)
					fmt.Fprintf(c.App.Writer, "  units:          %d\n", len(cfg.Device.Units))
					return nil
				},
			},
			{
				Name:  "features",
				Usage: "List the feature names accepted in device.features",
				Action: func(c *cli.Context) error {
					for _, name := range config.FeatureNames() {
						fmt.Fprintln(c.App.Writer, name)
					}
					return nil
				},
			},
		},
	}
}
