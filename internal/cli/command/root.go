package command

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapcoord/internal/cli/connection"
	"github.com/yndnr/snapcoord/internal/cli/output"
	"github.com/yndnr/snapcoord/internal/infra/buildinfo"
)

// Default endpoints, matching the server defaults.
const (
	DefaultAgentSocket  = "/var/run/snapcoord/agent.sock"
	DefaultEventSocket  = "/var/run/snapcoord/host-event.sock"
	DefaultReportSocket = "/var/run/snapcoord/host-report.sock"
	DefaultServer       = "127.0.0.1:5090"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "snapcoord-cli",
		Usage:   "snapcoord agent/host emulator and status tool",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			AgentCommand(),
			HostCommand(),
			StatusCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "agent-socket",
			Usage:   "Agent control socket",
			EnvVars: []string{"SNAPCOORD_AGENT_SOCKET"},
			Value:   DefaultAgentSocket,
		},
		&cli.StringFlag{
			Name:    "event-socket",
			Usage:   "Host event socket",
			EnvVars: []string{"SNAPCOORD_EVENT_SOCKET"},
			Value:   DefaultEventSocket,
		},
		&cli.StringFlag{
			Name:    "report-socket",
			Usage:   "Host report socket (listened on by 'host listen')",
			EnvVars: []string{"SNAPCOORD_REPORT_SOCKET"},
			Value:   DefaultReportSocket,
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "HTTP status address (e.g., 127.0.0.1:5090)",
			EnvVars: []string{"SNAPCOORD_SERVER"},
			Value:   DefaultServer,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Bound on a single request, including any server-side wait",
			Value: time.Minute,
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	AgentSocket  string
	EventSocket  string
	ReportSocket string
	Server       string

	Output  string // table, json, yaml
	Wide    bool
	Timeout time.Duration
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		AgentSocket:  c.String("agent-socket"),
		EventSocket:  c.String("event-socket"),
		ReportSocket: c.String("report-socket"),
		Server:       c.String("server"),
		Output:       c.String("output"),
		Wide:         c.Bool("wide"),
		Timeout:      c.Duration("timeout"),
	}
}

// requestContext derives the per-request context from the --timeout flag.
func requestContext(c *cli.Context) (context.Context, context.CancelFunc) {
	if d := c.Duration("timeout"); d > 0 {
		return context.WithTimeout(c.Context, d)
	}
	return context.WithCancel(c.Context)
}

// render writes data in the selected output format.
func render(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	switch f := output.Format(flags.Output); f {
	case output.FormatTable, output.FormatJSON, output.FormatYAML:
		return output.NewFormatter(f, flags.Wide).Format(writer(c), data)
	default:
		return fmt.Errorf("unknown output format %q", flags.Output)
	}
}

func writer(c *cli.Context) io.Writer {
	return c.App.Writer
}

func httpClient(c *cli.Context) *connection.HTTPClient {
	return connection.NewHTTPClient(c.String("server"))
}
