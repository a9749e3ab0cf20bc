package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapcoord/internal/infra/buildinfo"
	"github.com/yndnr/snapcoord/internal/infra/confloader"
	"github.com/yndnr/snapcoord/internal/server/config"
	"github.com/yndnr/snapcoord/internal/telemetry/logger"
)

// loadConfig loads configuration from defaults, the optional file, the
// environment and the flag overrides, then validates it. It returns the
// file path actually used.
func loadConfig(configFile string, overrides map[string]any) (*config.ServerConfig, string, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	loader := confloader.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader.FilePath(), nil
}

// flagOverrides collects the command-line flags that override config keys.
func flagOverrides(c *cli.Context) map[string]any {
	overrides := map[string]any{}
	if lvl := c.String("log-level"); lvl != "" {
		overrides["log.level"] = lvl
	}
	return overrides
}

// initLogger builds the process logger and installs it as the default.
func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

// driverVersion returns the configured driver version, falling back to the
// build version.
func driverVersion(cfg *config.ServerConfig) uint64 {
	if cfg.Device.DriverVersion != 0 {
		return cfg.Device.DriverVersion
	}
	return buildinfo.DriverVersion()
}
