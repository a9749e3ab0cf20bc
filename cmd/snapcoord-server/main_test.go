package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/snapcoord/internal/core/domain"
	"github.com/yndnr/snapcoord/internal/server/config"
	"github.com/yndnr/snapcoord/internal/telemetry/logger"
	"github.com/yndnr/snapcoord/internal/telemetry/metric"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "server.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func socketConfig(dir string) string {
	return "server:\n" +
		"  agent:\n    socket: " + filepath.Join(dir, "agent.sock") + "\n" +
		"  host:\n" +
		"    event_socket: " + filepath.Join(dir, "event.sock") + "\n" +
		"    report_socket: " + filepath.Join(dir, "report.sock") + "\n" +
		"  http:\n    addr: \"\"\n"
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, socketConfig(dir)+"snapshot:\n  vote_timeout: 5s\n")

	cfg, used, err := loadConfig(path, nil)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if used != path {
		t.Errorf("path = %q, want %q", used, path)
	}
	if cfg.Snapshot.VoteTimeout != 5*time.Second {
		t.Errorf("VoteTimeout = %v, want 5s", cfg.Snapshot.VoteTimeout)
	}
	if cfg.Snapshot.PickupTimeout != config.Default().Snapshot.PickupTimeout {
		t.Errorf("PickupTimeout lost its default: %v", cfg.Snapshot.PickupTimeout)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, socketConfig(dir)+"device:\n  features: [bogus]\n")

	if _, _, err := loadConfig(path, nil); err == nil {
		t.Error("loadConfig() should reject an unknown feature")
	}
}

func TestDriverVersion(t *testing.T) {
	cfg := config.Default()
	cfg.Device.DriverVersion = 0x010203
	if got := driverVersion(cfg); got != 0x010203 {
		t.Errorf("driverVersion() = %#x, want configured value", got)
	}
}

func TestRestartRequired(t *testing.T) {
	old := config.Default()

	same := config.Default()
	same.Log.Level = "debug"
	same.Snapshot.VoteTimeout = time.Second
	if fields := restartRequired(old, same); len(fields) != 0 {
		t.Errorf("runtime-only changes flagged: %v", fields)
	}

	next := config.Default()
	next.Server.Agent.Socket = "/tmp/other.sock"
	next.Device.Features = []string{"snapshot"}
	next.Log.Format = "text"
	want := []string{"server.agent", "log.format", "device.features"}
	if got := restartRequired(old, next); !slices.Equal(got, want) {
		t.Errorf("restartRequired() = %v, want %v", got, want)
	}
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, socketConfig(dir))
	cfg, _, err := loadConfig(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := build(cfg, metric.NewRegistry(), log)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	t.Cleanup(func() {
		_ = c.agent.Shutdown(context.Background())
		_ = c.events.Shutdown(context.Background())
		c.coord.Teardown()
		c.dispatcher.Close()
	})

	r := &reloader{path: path, current: cfg, c: c, log: log}

	// An invalid file keeps the running settings
	writeConfig(t, dir, socketConfig(dir)+"snapshot:\n  vote_timeout: -1s\n")
	r.reload()
	if got := c.coord.Timeouts().Vote; got != cfg.Snapshot.VoteTimeout {
		t.Errorf("invalid reload changed vote timeout to %v", got)
	}

	writeConfig(t, dir, socketConfig(dir)+
		"snapshot:\n  vote_timeout: 7s\n"+
		"device:\n  units:\n    - target: 0\n      lun: 3\n")
	r.reload()

	if got := c.coord.Timeouts().Vote; got != 7*time.Second {
		t.Errorf("vote timeout = %v, want 7s", got)
	}
	if !c.units.Known(domain.LogicalUnit{Target: 0, Lun: 3}) {
		t.Error("unit 0/3 should be known after reload")
	}
	if c.units.Known(domain.LogicalUnit{Target: 0, Lun: 4}) {
		t.Error("unit 0/4 should be unknown after reload")
	}
	if r.current.Snapshot.VoteTimeout != 7*time.Second {
		t.Error("reloader did not keep the applied config")
	}
}

func TestApp_Features(t *testing.T) {
	var out bytes.Buffer
	a := app()
	a.Writer = &out
	if err := a.Run([]string{"snapcoord-server", "features"}); err != nil {
		t.Fatal(err)
	}
	for _, name := range config.FeatureNames() {
		if !strings.Contains(out.String(), name) {
			t.Errorf("output lacks feature %q", name)
		}
	}
}

func TestApp_CheckConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, socketConfig(dir))

	var out bytes.Buffer
	a := app()
	a.Writer = &out
	if err := a.Run([]string{"snapcoord-server", "--config", path, "check-config"}); err != nil {
		t.Fatalf("check-config error = %v", err)
	}
	if !strings.Contains(out.String(), "configuration OK") {
		t.Errorf("output = %q", out.String())
	}
}

func TestLoadConfig_FlagOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, socketConfig(dir)+"log:\n  level: error\n")

	cfg, _, err := loadConfig(path, map[string]any{"log.level": "debug"})
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want flag value debug", cfg.Log.Level)
	}
}

func TestReload_KeepsFlagLevel(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, socketConfig(dir))
	overrides := map[string]any{"log.level": "debug"}
	cfg, _, err := loadConfig(path, overrides)
	if err != nil {
		t.Fatal(err)
	}

	prev := logger.GetLevel()
	t.Cleanup(func() { _ = logger.SetLevel(prev) })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := build(cfg, metric.NewRegistry(), log)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	t.Cleanup(func() {
		_ = c.agent.Shutdown(context.Background())
		_ = c.events.Shutdown(context.Background())
		c.coord.Teardown()
		c.dispatcher.Close()
	})

	r := &reloader{path: path, overrides: overrides, current: cfg, c: c, log: log}
	writeConfig(t, dir, socketConfig(dir)+
		"log:\n  level: error\n"+
		"snapshot:\n  vote_timeout: 9s\n")
	r.reload()

	if got := c.coord.Timeouts().Vote; got != 9*time.Second {
		t.Fatalf("vote timeout = %v, reload not applied", got)
	}
	if got := logger.GetLevel(); got != "debug" {
		t.Errorf("level after reload = %q, want flag value debug", got)
	}
	if r.current.Log.Level != "debug" {
		t.Errorf("current Log.Level = %q, want debug", r.current.Log.Level)
	}
}
