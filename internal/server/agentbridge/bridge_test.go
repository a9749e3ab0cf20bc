package agentbridge

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/snapcoord/internal/core/domain"
	"github.com/yndnr/snapcoord/internal/core/service"
	"github.com/yndnr/snapcoord/internal/protocol/wire"
	"github.com/yndnr/snapcoord/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopReporter struct{}

func (nopReporter) Report(domain.Scope, wire.ReportStatus) {}

// fakeCoordinator records requests and returns canned results.
type fakeCoordinator struct {
	mu      sync.Mutex
	pickups []service.PickupRequest
	votes   []service.VoteRequest
	pickup  *service.PickupResponse
	err     error
}

func (f *fakeCoordinator) Pickup(_ context.Context, req *service.PickupRequest) (*service.PickupResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pickups = append(f.pickups, *req)
	return f.pickup, f.err
}

func (f *fakeCoordinator) Vote(_ context.Context, req *service.VoteRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes = append(f.votes, *req)
	return f.err
}

func (f *fakeCoordinator) Discard(context.Context, *service.DiscardRequest) error {
	return f.err
}

func frame(t *testing.T, buf wire.AgentBuffer) []byte {
	t.Helper()
	b, err := buf.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestBridge_Validation(t *testing.T) {
	unit := domain.LogicalUnit{Target: 1, Lun: 2}
	good := wire.NewAgentBuffer(wire.IoctlSnapshotDiscard, unit, 0)

	badSig := good
	copy(badSig.Header.Signature[:], "GOOOGXXX")

	badHeader := good
	badHeader.Header.HeaderLength = 24

	shortPayload := good
	shortPayload.Header.Length = 4

	badCode := good
	badCode.Header.ControlCode = 0xE04023FF

	tests := []struct {
		name  string
		frame []byte
	}{
		{"bad signature", frame(t, badSig)},
		{"bad header length", frame(t, badHeader)},
		{"short payload length", frame(t, shortPayload)},
		{"unknown control code", frame(t, badCode)},
		{"truncated buffer", frame(t, good)[:wire.AgentBufferSize-1]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord := &fakeCoordinator{}
			b := New(coord, Config{}, WithLogger(testLogger()))

			out := b.Call(context.Background(), tt.frame)
			if wire.AgentStatus(out.Status) != wire.StatusInvalidRequest {
				t.Errorf("status = %s, want invalid-request", wire.AgentStatus(out.Status))
			}
			if out.Header.ReturnCode != uint32(wire.StatusInvalidRequest) {
				t.Errorf("return code = %d, want %d", out.Header.ReturnCode, wire.StatusInvalidRequest)
			}
			if len(coord.pickups)+len(coord.votes) != 0 {
				t.Error("coordinator touched by invalid buffer")
			}
		})
	}
}

func TestBridge_PickupWait(t *testing.T) {
	tests := []struct {
		name    string
		timeout uint32
		maxWait time.Duration
		want    time.Duration
	}{
		{"no wait requested", 0, time.Minute, 0},
		{"within cap", 5, time.Minute, 5 * time.Second},
		{"capped", 120, 10 * time.Second, 10 * time.Second},
		{"waiting disabled", 5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord := &fakeCoordinator{pickup: &service.PickupResponse{Scope: domain.AllUnits()}}
			b := New(coord, Config{MaxWait: tt.maxWait}, WithLogger(testLogger()))

			buf := wire.NewAgentBuffer(wire.IoctlAllDiskSnapshotRequested, domain.LogicalUnit{}, 0)
			buf.Header.Timeout = tt.timeout
			b.Call(context.Background(), frame(t, buf))

			if len(coord.pickups) != 1 {
				t.Fatalf("pickups = %d, want 1", len(coord.pickups))
			}
			if got := coord.pickups[0]; got.Wait != tt.want || !got.All {
				t.Errorf("pickup request = %+v, want All wait %v", got, tt.want)
			}
		})
	}
}

func TestBridge_VoteProceedFlag(t *testing.T) {
	coord := &fakeCoordinator{}
	b := New(coord, Config{}, WithLogger(testLogger()))
	unit := domain.LogicalUnit{Target: 0, Lun: 5}

	b.Call(context.Background(), frame(t, wire.NewAgentBuffer(wire.IoctlSnapshotCanProceed, unit, wire.StatusSucceeded)))
	b.Call(context.Background(), frame(t, wire.NewAgentBuffer(wire.IoctlSnapshotCanProceed, unit, wire.StatusBackendFailed)))

	if len(coord.votes) != 2 {
		t.Fatalf("votes = %d, want 2", len(coord.votes))
	}
	if !coord.votes[0].Proceed || coord.votes[1].Proceed {
		t.Errorf("proceed flags = %v, %v; want true, false", coord.votes[0].Proceed, coord.votes[1].Proceed)
	}
	if coord.votes[0].Unit != unit {
		t.Errorf("vote unit = %s, want %s", coord.votes[0].Unit, unit)
	}
}

func TestBridge_RateLimit(t *testing.T) {
	coord := &fakeCoordinator{}
	b := New(coord, Config{RateLimit: 0.001, Burst: 1}, WithLogger(testLogger()))
	req := frame(t, wire.NewAgentBuffer(wire.IoctlSnapshotDiscard, domain.LogicalUnit{}, 0))

	first := b.Call(context.Background(), req)
	second := b.Call(context.Background(), req)

	if wire.AgentStatus(first.Status) != wire.StatusSucceeded {
		t.Errorf("first status = %s, want succeeded", wire.AgentStatus(first.Status))
	}
	if wire.AgentStatus(second.Status) != wire.StatusInvalidRequest {
		t.Errorf("second status = %s, want invalid-request", wire.AgentStatus(second.Status))
	}
}

// TestBridge_Lifecycle drives a full snapshot through the real coordinator.
func TestBridge_Lifecycle(t *testing.T) {
	coord := service.NewCoordinator(memory.NewTable(), nopReporter{}, service.WithLogger(testLogger()))
	defer coord.Teardown()
	b := New(coord, Config{}, WithLogger(testLogger()))
	ctx := context.Background()
	unit := domain.LogicalUnit{Target: 1, Lun: 2}

	// Nothing pending yet
	out := b.Call(ctx, frame(t, wire.NewAgentBuffer(wire.IoctlSnapshotRequested, domain.LogicalUnit{}, 0)))
	if wire.AgentStatus(out.Status) != wire.StatusInvalidRequest {
		t.Fatalf("empty pickup status = %s, want invalid-request", wire.AgentStatus(out.Status))
	}

	if err := coord.HandleStart(domain.PerUnit(unit), 42); err != nil {
		t.Fatal(err)
	}

	out = b.Call(ctx, frame(t, wire.NewAgentBuffer(wire.IoctlSnapshotRequested, domain.LogicalUnit{}, 0)))
	if wire.AgentStatus(out.Status) != wire.StatusSucceeded {
		t.Fatalf("pickup status = %s", wire.AgentStatus(out.Status))
	}
	if out.Unit() != unit {
		t.Errorf("pickup unit = %s, want %s", out.Unit(), unit)
	}

	vote := frame(t, wire.NewAgentBuffer(wire.IoctlSnapshotCanProceed, unit, wire.StatusSucceeded))
	voted := make(chan wire.AgentBuffer, 1)
	go func() {
		voted <- b.Call(ctx, vote)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		views := coord.Sessions()
		if len(views) == 1 && views[0].Phase == domain.PhasePrepared {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session never reached prepared")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := coord.HandleComplete(domain.PerUnit(unit), 42, false); err != nil {
		t.Fatal(err)
	}

	select {
	case out := <-voted:
		if wire.AgentStatus(out.Status) != wire.StatusSucceeded {
			t.Errorf("vote status = %s, want succeeded", wire.AgentStatus(out.Status))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("vote did not return")
	}

	// Discard on an idle unit
	out = b.Call(ctx, frame(t, wire.NewAgentBuffer(wire.IoctlSnapshotDiscard, unit, 0)))
	if wire.AgentStatus(out.Status) != wire.StatusInvalidDevice {
		t.Errorf("discard status = %s, want invalid-device", wire.AgentStatus(out.Status))
	}
}

func TestBridge_ServeFrame(t *testing.T) {
	b := New(&fakeCoordinator{}, Config{}, WithLogger(testLogger()))
	if b.FrameSize() != wire.AgentBufferSize {
		t.Errorf("FrameSize() = %d", b.FrameSize())
	}

	reply, err := b.ServeFrame(context.Background(), frame(t, wire.NewAgentBuffer(wire.IoctlSnapshotDiscard, domain.LogicalUnit{}, 0)))
	if err != nil {
		t.Fatalf("ServeFrame() error = %v", err)
	}
	if len(reply) != wire.AgentBufferSize {
		t.Errorf("reply length = %d, want %d", len(reply), wire.AgentBufferSize)
	}
}
