package benchmark

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"testing"
	"time"

	"github.com/yndnr/snapcoord/internal/core/domain"
	"github.com/yndnr/snapcoord/internal/core/service"
	"github.com/yndnr/snapcoord/internal/protocol/wire"
	"github.com/yndnr/snapcoord/internal/storage/memory"
)

// UnitCounts defines the attached unit counts for benchmarking.
var UnitCounts = []int{1, 16, 256, 4096}

// nopReporter drops host reports.
type nopReporter struct{}

func (nopReporter) Report(domain.Scope, wire.ReportStatus) {}

// newCoordinator returns a coordinator over a fresh table with logging off.
func newCoordinator(b *testing.B) (*service.Coordinator, *memory.Table) {
	b.Helper()

	table := memory.NewTable()
	coord := service.NewCoordinator(table, nopReporter{},
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		service.WithTimeouts(service.Timeouts{
			Pickup:   time.Hour,
			Vote:     time.Hour,
			Complete: time.Hour,
		}))
	b.Cleanup(coord.Teardown)
	return coord, table
}

// units returns n distinct logical units spread over targets.
func units(n int) []domain.LogicalUnit {
	out := make([]domain.LogicalUnit, n)
	for i := range out {
		out[i] = domain.LogicalUnit{Target: uint8(i / 64), Lun: uint16(i % 64)}
	}
	return out
}

// prefill opens a Pending session for every unit.
func prefill(b *testing.B, table *memory.Table, us []domain.LogicalUnit) []*domain.Session {
	b.Helper()

	sessions := make([]*domain.Session, len(us))
	for i, u := range us {
		s, err := domain.NewSession(domain.PerUnit(u), uint64(i), time.Now())
		if err != nil {
			b.Fatalf("NewSession failed: %v", err)
		}
		if err := table.Insert(s); err != nil {
			b.Fatalf("Insert failed: %v", err)
		}
		sessions[i] = s
	}
	return sessions
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithUnitCounts runs a benchmark function with various unit counts.
func runWithUnitCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("units_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
