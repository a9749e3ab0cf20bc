// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for snapcoord-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Snapshot SnapshotSection `koanf:"snapshot"`
	Device   DeviceSection   `koanf:"device"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	Agent AgentConfig `koanf:"agent"`
	Host  HostConfig  `koanf:"host"`
	HTTP  HTTPConfig  `koanf:"http"`
}

// AgentConfig configures the agent control socket.
type AgentConfig struct {
	Socket string `koanf:"socket"`
	// RateLimit caps agent calls per second; 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`
}

// HostConfig configures the host control queue sockets.
type HostConfig struct {
	// EventSocket is where the host delivers lifecycle events.
	EventSocket string `koanf:"event_socket"`
	// ReportSocket is where snapshot-ready reports are sent.
	ReportSocket  string        `koanf:"report_socket"`
	ReportTimeout time.Duration `koanf:"report_timeout"`
	ReportQueue   int           `koanf:"report_queue"`
}

// HTTPConfig configures the status HTTP server. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// SnapshotSection bounds how long a session may stay in each live phase.
type SnapshotSection struct {
	PickupTimeout   time.Duration `koanf:"pickup_timeout"`
	VoteTimeout     time.Duration `koanf:"vote_timeout"`
	CompleteTimeout time.Duration `koanf:"complete_timeout"`
	// MaxAgentWait caps how long a pickup may wait for a start event.
	MaxAgentWait time.Duration `koanf:"max_agent_wait"`
}

// DeviceSection describes the emulated controller.
type DeviceSection struct {
	// DriverVersion is reported to the host at start-up; 0 uses the build version.
	DriverVersion       uint64 `koanf:"driver_version"`
	ReportDriverVersion bool   `koanf:"report_driver_version"`
	// Features lists negotiated feature names, see FeatureNames.
	Features []string `koanf:"features"`
	// Units lists the attached logical units. Empty accepts any unit.
	Units []UnitConfig `koanf:"units"`
}

// UnitConfig identifies one logical unit.
type UnitConfig struct {
	Target int `koanf:"target"`
	Lun    int `koanf:"lun"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
