package benchmark

import (
	"testing"

	"github.com/yndnr/snapcoord/internal/storage/memory"
)

// BenchmarkTableGoverning benchmarks the per-unit lookup used by every vote.
func BenchmarkTableGoverning(b *testing.B) {
	runWithUnitCounts(b, UnitCounts, func(b *testing.B, count int) {
		table := memory.NewTable()
		us := units(count)
		prefill(b, table, us)

		b.ResetTimer()
		b.ReportAllocs()

		for i := 0; i < b.N; i++ {
			if _, ok := table.Governing(us[i%len(us)]); !ok {
				b.Fatal("Governing missed a live session")
			}
		}
	})
}

// BenchmarkTableUnitSessions benchmarks the oldest-first scan used by pickup.
func BenchmarkTableUnitSessions(b *testing.B) {
	runWithUnitCounts(b, UnitCounts, func(b *testing.B, count int) {
		table := memory.NewTable()
		prefill(b, table, units(count))

		b.ResetTimer()
		b.ReportAllocs()

		for i := 0; i < b.N; i++ {
			if got := table.UnitSessions(); len(got) != count {
				b.Fatalf("UnitSessions() = %d, want %d", len(got), count)
			}
		}
	})
}

// BenchmarkTableInsertRemove benchmarks the churn of one session per unit.
func BenchmarkTableInsertRemove(b *testing.B) {
	table := memory.NewTable()
	us := units(256)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		sessions := prefill(b, memory.NewTable(), us[i%len(us):i%len(us)+1])
		b.StartTimer()

		if err := table.Insert(sessions[0]); err != nil {
			b.Fatalf("Insert failed: %v", err)
		}
		if !table.Remove(sessions[0]) {
			b.Fatal("Remove missed the session")
		}
	}
}
