package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapcoord/internal/cli/connection"
	"github.com/yndnr/snapcoord/internal/core/domain"
	"github.com/yndnr/snapcoord/internal/protocol/wire"
	"github.com/yndnr/snapcoord/internal/server/localserver"
)

// EventResult is the server's acknowledgement of a host event.
type EventResult struct {
	Event       string `json:"event"`
	Scope       string `json:"scope"`
	Correlation uint64 `json:"correlation" table:"hex"`
	Ack         string `json:"ack"`
}

// Report is a guest-to-host report received by 'host listen'.
type Report struct {
	Time   time.Time `json:"time"`
	Kind   string    `json:"kind"`
	Scope  string    `json:"scope,omitempty"`
	Status string    `json:"status,omitempty"`
	Value  uint64    `json:"value" table:"hex"`
}

// HostCommand returns the host subcommand group.
func HostCommand() *cli.Command {
	scopeFlags := []cli.Flag{
		&cli.BoolFlag{Name: "all", Usage: "Address every attached unit"},
		&cli.UintFlag{Name: "target", Aliases: []string{"t"}, Usage: "Target ID"},
		&cli.UintFlag{Name: "lun", Aliases: []string{"l"}, Usage: "Logical unit number (0-16383)"},
		&cli.Uint64Flag{Name: "correlation", Aliases: []string{"id"}, Usage: "Correlation value echoed by the host", Required: true},
	}

	return &cli.Command{
		Name:  "host",
		Usage: "Act as the host",
		Subcommands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Request a snapshot",
				Flags: scopeFlags,
				Action: func(c *cli.Context) error {
					return hostEvent(c, wire.EventStart, 0)
				},
			},
			{
				Name:  "complete",
				Usage: "Report the outcome of a prepared snapshot",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{Name: "failed", Usage: "Report a backend failure"},
				}, scopeFlags...),
				Action: func(c *cli.Context) error {
					var result uint32
					if c.Bool("failed") {
						result = 1
					}
					return hostEvent(c, wire.EventComplete, result)
				},
			},
			{
				Name:  "listen",
				Usage: "Receive reports on the report socket and print them",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "reject", Usage: "Answer every report with a rejection"},
					&cli.IntFlag{Name: "count", Usage: "Exit after this many reports (0 = until interrupted)"},
				},
				Action: hostListen,
			},
		},
	}
}

func scopeFromFlags(c *cli.Context) (domain.Scope, error) {
	if c.Bool("all") {
		if c.IsSet("target") || c.IsSet("lun") {
			return domain.Scope{}, errors.New("--all excludes --target and --lun")
		}
		return domain.AllUnits(), nil
	}
	target, lun := c.Uint("target"), c.Uint("lun")
	if target > math.MaxUint8 {
		return domain.Scope{}, fmt.Errorf("target %d out of range", target)
	}
	if lun > math.MaxUint16 {
		return domain.Scope{}, fmt.Errorf("lun %d out of range", lun)
	}
	u := domain.LogicalUnit{Target: uint8(target), Lun: uint16(lun)}
	if err := u.Validate(); err != nil {
		return domain.Scope{}, err
	}
	return domain.PerUnit(u), nil
}

func hostEvent(c *cli.Context, kind wire.EventKind, result uint32) error {
	scope, err := scopeFromFlags(c)
	if err != nil {
		return err
	}
	ev := wire.HostEvent{
		Kind:        kind,
		Scope:       scope,
		Correlation: c.Uint64("correlation"),
		Result:      result,
	}
	frame, err := ev.Request().MarshalBinary()
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	client := connection.NewSocketClient(c.String("event-socket"))
	defer client.Close()
	raw, err := client.RoundTrip(ctx, frame, wire.ControlResponseSize)
	if err != nil {
		return err
	}
	var resp wire.ControlResponse
	if err := resp.UnmarshalBinary(raw); err != nil {
		return err
	}

	ack := "accepted"
	if resp.Response != wire.ResponseOK {
		ack = "rejected"
	}
	if err := render(c, []EventResult{{
		Event:       kind.String(),
		Scope:       scope.String(),
		Correlation: ev.Correlation,
		Ack:         ack,
	}}); err != nil {
		return err
	}
	if resp.Response != wire.ResponseOK {
		return cli.Exit("", 1)
	}
	return nil
}

// decodeReport turns a guest-to-host control request into a Report.
func decodeReport(req wire.ControlRequest) Report {
	r := Report{Time: time.Now(), Value: req.Data}
	if req.Type != wire.TypeGoogle {
		r.Kind = fmt.Sprintf("unknown(%#x)", req.Type)
		return r
	}
	switch req.Subtype {
	case wire.SubtypeReportDriverVersion:
		r.Kind = "driver-version"
	case wire.SubtypeReportSnapshotReady:
		r.Kind = "snapshot-ready"
		r.Status = wire.ReportStatus(req.Data).String()
		if scope, err := req.ReportScope(); err == nil {
			r.Scope = scope.String()
		} else {
			r.Scope = "invalid-lun"
		}
	default:
		r.Kind = fmt.Sprintf("unknown-subtype(%d)", req.Subtype)
	}
	return r
}

func hostListen(c *cli.Context) error {
	reply := wire.ResponseOK
	if c.Bool("reject") {
		reply = wire.ResponseRejected
	}
	ack, _ := wire.ControlResponse{Response: reply}.MarshalBinary()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu    sync.Mutex
		seen  int
		limit = c.Int("count")
	)
	handler := localserver.HandlerFunc(wire.ControlRequestSize, func(_ context.Context, frame []byte) ([]byte, error) {
		req, err := wire.DecodeControlRequest(frame)
		if err != nil {
			return nil, err
		}

		mu.Lock()
		defer mu.Unlock()
		if limit > 0 && seen >= limit {
			return nil, errors.New("report limit reached")
		}
		if err := render(c, []Report{decodeReport(req)}); err != nil {
			return nil, err
		}
		seen++
		if limit > 0 && seen >= limit {
			cancel()
		}
		return ack, nil
	})

	srv := localserver.New(localserver.Config{
		Name: "host-report",
		Path: c.String("report-socket"),
	}, handler, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := srv.Listen(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Let the final ack reach the guest before closing its connection.
	time.Sleep(50 * time.Millisecond)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
