package command

import (
	"fmt"
	"math"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapcoord/internal/cli/connection"
	"github.com/yndnr/snapcoord/internal/core/domain"
	"github.com/yndnr/snapcoord/internal/protocol/wire"
)

// AgentResult is the decoded reply to an agent call.
type AgentResult struct {
	Call   string `json:"call"`
	Status string `json:"status"`
	Target uint8  `json:"target"`
	Lun    uint8  `json:"lun"`
}

// AgentCommand returns the agent subcommand group.
func AgentCommand() *cli.Command {
	unitFlags := []cli.Flag{
		&cli.UintFlag{Name: "target", Aliases: []string{"t"}, Usage: "Target ID"},
		&cli.UintFlag{Name: "lun", Aliases: []string{"l"}, Usage: "Logical unit number (0-255)"},
	}
	waitFlag := &cli.DurationFlag{
		Name:  "wait",
		Usage: "Ask the server to wait this long for a start event (whole seconds)",
	}

	return &cli.Command{
		Name:  "agent",
		Usage: "Act as the guest snapshot agent",
		Subcommands: []*cli.Command{
			{
				Name:  "request",
				Usage: "Pick up a pending per-unit snapshot",
				Flags: []cli.Flag{waitFlag},
				Action: func(c *cli.Context) error {
					return agentCall(c, wire.CallPickup, domain.LogicalUnit{}, wire.StatusSucceeded)
				},
			},
			{
				Name:  "request-all",
				Usage: "Pick up a pending all-disk snapshot",
				Flags: []cli.Flag{waitFlag},
				Action: func(c *cli.Context) error {
					return agentCall(c, wire.CallPickupAll, domain.LogicalUnit{}, wire.StatusSucceeded)
				},
			},
			{
				Name:  "proceed",
				Usage: "Vote on a dispatched snapshot and wait for the host verdict",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{Name: "abort", Usage: "Vote to abort instead of proceeding"},
				}, unitFlags...),
				Action: func(c *cli.Context) error {
					unit, err := unitFromFlags(c)
					if err != nil {
						return err
					}
					status := wire.StatusSucceeded
					if c.Bool("abort") {
						status = wire.StatusCancelled
					}
					return agentCall(c, wire.CallVote, unit, status)
				},
			},
			{
				Name:  "discard",
				Usage: "Abandon a pending or dispatched snapshot",
				Flags: unitFlags,
				Action: func(c *cli.Context) error {
					unit, err := unitFromFlags(c)
					if err != nil {
						return err
					}
					return agentCall(c, wire.CallDiscard, unit, wire.StatusSucceeded)
				},
			},
		},
	}
}

func unitFromFlags(c *cli.Context) (domain.LogicalUnit, error) {
	target, lun := c.Uint("target"), c.Uint("lun")
	if target > math.MaxUint8 {
		return domain.LogicalUnit{}, fmt.Errorf("target %d out of range", target)
	}
	// The agent buffer carries an 8-bit LUN.
	if lun > math.MaxUint8 {
		return domain.LogicalUnit{}, fmt.Errorf("lun %d out of range", lun)
	}
	return domain.LogicalUnit{Target: uint8(target), Lun: uint16(lun)}, nil
}

// agentCall sends one agent buffer and renders the reply. A non-success
// status exits with the status value as exit code.
func agentCall(c *cli.Context, kind wire.CallKind, unit domain.LogicalUnit, status wire.AgentStatus) error {
	req := wire.NewAgentBuffer(kind.ControlCode(), unit, status)
	if wait := c.Duration("wait"); wait > 0 {
		req.Header.Timeout = uint32(wait.Round(time.Second) / time.Second)
	}
	frame, err := req.MarshalBinary()
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	client := connection.NewSocketClient(c.String("agent-socket"))
	defer client.Close()
	raw, err := client.RoundTrip(ctx, frame, wire.AgentBufferSize)
	if err != nil {
		return err
	}

	var reply wire.AgentBuffer
	if err := reply.UnmarshalBinary(raw); err != nil {
		return err
	}
	got := wire.AgentStatus(reply.Status)
	result := AgentResult{
		Call:   kind.String(),
		Status: got.String(),
		Target: reply.Target,
		Lun:    reply.Lun,
	}
	if err := render(c, []AgentResult{result}); err != nil {
		return err
	}
	if got != wire.StatusSucceeded {
		return cli.Exit("", int(got))
	}
	return nil
}
