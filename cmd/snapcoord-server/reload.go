package main

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/yndnr/snapcoord/internal/server/config"
	"github.com/yndnr/snapcoord/internal/telemetry/logger"
)

// reloader applies configuration changes that are safe at runtime.
type reloader struct {
	path string
	// overrides are the command-line values; they win over the file on
	// every reload.
	overrides map[string]any
	c         *components
	log       *slog.Logger

	mu      sync.Mutex
	current *config.ServerConfig
}

func (r *reloader) reload() {
	next, _, err := loadConfig(r.path, r.overrides)
	if err != nil {
		r.log.Warn("configuration reload rejected, keeping current settings", "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.apply(next); err != nil {
		r.log.Warn("configuration reload rejected, keeping current settings", "error", err)
		return
	}
	if fields := restartRequired(r.current, next); len(fields) > 0 {
		r.log.Warn("configuration changes require a restart", "fields", fields)
	}
	r.current = next
	r.log.Info("configuration reloaded", "path", r.path)
}

func (r *reloader) apply(next *config.ServerConfig) error {
	units, err := next.Device.LogicalUnits()
	if err != nil {
		return err
	}
	if err := logger.SetLevel(next.Log.Level); err != nil {
		return err
	}
	r.c.coord.SetTimeouts(timeouts(next))
	r.c.bridge.SetMaxWait(next.Snapshot.MaxAgentWait)
	r.c.units.Replace(units)
	return nil
}

// restartRequired lists the settings that only take effect at start-up.
func restartRequired(old, next *config.ServerConfig) []string {
	var fields []string
	if old.Server.Agent != next.Server.Agent {
		fields = append(fields, "server.agent")
	}
	if old.Server.Host != next.Server.Host {
		fields = append(fields, "server.host")
	}
	if old.Server.HTTP != next.Server.HTTP {
		fields = append(fields, "server.http")
	}
	if old.Log.Format != next.Log.Format {
		fields = append(fields, "log.format")
	}
	if old.Device.DriverVersion != next.Device.DriverVersion ||
		old.Device.ReportDriverVersion != next.Device.ReportDriverVersion {
		fields = append(fields, "device.driver_version")
	}
	if !slices.Equal(old.Device.Features, next.Device.Features) {
		fields = append(fields, "device.features")
	}
	return fields
}
