package config

import "time"

// Default configuration values.
const (
	DefaultAgentSocket  = "/var/run/snapcoord/agent.sock"
	DefaultEventSocket  = "/var/run/snapcoord/host-event.sock"
	DefaultReportSocket = "/var/run/snapcoord/host-report.sock"
	DefaultHTTPAddr     = "127.0.0.1:5090"

	DefaultAgentRateLimit = 50
	DefaultAgentBurst     = 10
	DefaultReportTimeout  = 5 * time.Second
	DefaultReportQueue    = 64

	DefaultPickupTimeout   = 30 * time.Second
	DefaultVoteTimeout     = 60 * time.Second
	DefaultCompleteTimeout = 10 * time.Minute
	DefaultMaxAgentWait    = 30 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Agent: AgentConfig{
				Socket:    DefaultAgentSocket,
				RateLimit: DefaultAgentRateLimit,
				Burst:     DefaultAgentBurst,
			},
			Host: HostConfig{
				EventSocket:   DefaultEventSocket,
				ReportSocket:  DefaultReportSocket,
				ReportTimeout: DefaultReportTimeout,
				ReportQueue:   DefaultReportQueue,
			},
			HTTP: HTTPConfig{
				Addr: DefaultHTTPAddr,
			},
		},
		Snapshot: SnapshotSection{
			PickupTimeout:   DefaultPickupTimeout,
			VoteTimeout:     DefaultVoteTimeout,
			CompleteTimeout: DefaultCompleteTimeout,
			MaxAgentWait:    DefaultMaxAgentWait,
		},
		Device: DeviceSection{
			ReportDriverVersion: true,
			Features:            FeatureNames(),
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
