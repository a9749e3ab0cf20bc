package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifySnapshot(&cfg.Snapshot),
		verifyDevice(&cfg.Device),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(cfg *ServerSection) error {
	var errs []error
	if cfg.Agent.Socket == "" {
		errs = append(errs, errors.New("server.agent.socket is required"))
	}
	if cfg.Host.EventSocket == "" {
		errs = append(errs, errors.New("server.host.event_socket is required"))
	}
	if cfg.Host.ReportSocket == "" {
		errs = append(errs, errors.New("server.host.report_socket is required"))
	}
	paths := map[string]string{}
	for key, path := range map[string]string{
		"server.agent.socket":       cfg.Agent.Socket,
		"server.host.event_socket":  cfg.Host.EventSocket,
		"server.host.report_socket": cfg.Host.ReportSocket,
	} {
		if path == "" {
			continue
		}
		if other, dup := paths[path]; dup {
			errs = append(errs, fmt.Errorf("%s and %s share path %s", key, other, path))
		}
		paths[path] = key
	}
	if cfg.Agent.RateLimit < 0 {
		errs = append(errs, errors.New("server.agent.rate_limit must not be negative"))
	}
	if cfg.Agent.RateLimit > 0 && cfg.Agent.Burst < 1 {
		errs = append(errs, errors.New("server.agent.burst must be at least 1 when rate limiting"))
	}
	if cfg.Host.ReportTimeout <= 0 {
		errs = append(errs, errors.New("server.host.report_timeout must be positive"))
	}
	if cfg.Host.ReportQueue < 1 {
		errs = append(errs, errors.New("server.host.report_queue must be at least 1"))
	}
	if cfg.HTTP.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
			errs = append(errs, fmt.Errorf("server.http.addr: %w", err))
		}
	}
	return errors.Join(errs...)
}

func verifySnapshot(cfg *SnapshotSection) error {
	var errs []error
	for key, d := range map[string]int64{
		"snapshot.pickup_timeout":   int64(cfg.PickupTimeout),
		"snapshot.vote_timeout":     int64(cfg.VoteTimeout),
		"snapshot.complete_timeout": int64(cfg.CompleteTimeout),
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", key))
		}
	}
	if cfg.MaxAgentWait < 0 {
		errs = append(errs, errors.New("snapshot.max_agent_wait must not be negative"))
	}
	return errors.Join(errs...)
}

func verifyDevice(cfg *DeviceSection) error {
	if _, err := cfg.FeatureBits(); err != nil {
		return err
	}
	_, err := cfg.LogicalUnits()
	return err
}

func verifyLog(cfg *LogSection) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
		return nil
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Format)
	}
}
