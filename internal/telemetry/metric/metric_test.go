package metric

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/snapcoord/internal/core/domain"
)

func TestRegistry_SessionMetrics(t *testing.T) {
	r := NewRegistry()

	r.SessionStarted(domain.PerUnit(domain.LogicalUnit{Target: 1, Lun: 2}))
	r.SessionStarted(domain.AllUnits())
	r.SessionResolved(domain.AllUnits(), "done", 2*time.Second)
	r.StartRejected("scope_conflict")
	r.LiveSessions(3)

	if got := testutil.ToFloat64(r.sessionsStarted.WithLabelValues("unit")); got != 1 {
		t.Errorf("started{unit} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.sessionsResolved.WithLabelValues("all-units", "done")); got != 1 {
		t.Errorf("resolved{all-units,done} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.startsRejected.WithLabelValues("scope_conflict")); got != 1 {
		t.Errorf("start_rejected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.sessionsLive); got != 3 {
		t.Errorf("live = %v, want 3", got)
	}
}

func TestRegistry_ChannelMetrics(t *testing.T) {
	r := NewRegistry()

	r.HostEvent("start", "accepted")
	r.HostReport("snapshot-ready", "sent")
	r.HostReport("snapshot-ready", "sent")
	r.AgentCall("vote", "succeeded", 10*time.Millisecond)

	if got := testutil.ToFloat64(r.hostEvents.WithLabelValues("start", "accepted")); got != 1 {
		t.Errorf("host events = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.hostReports.WithLabelValues("snapshot-ready", "sent")); got != 2 {
		t.Errorf("host reports = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.agentCalls.WithLabelValues("vote", "succeeded")); got != 1 {
		t.Errorf("agent calls = %v, want 1", got)
	}
}

type fixedQueue int

func (q fixedQueue) Pending() int { return int(q) }

func TestQueueCollector(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(NewQueueCollector("report", fixedQueue(4))); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	expected := `
# HELP snapcoord_report_queue_depth Items waiting in the queue.
# TYPE snapcoord_report_queue_depth gauge
snapcoord_report_queue_depth 4
`
	if err := testutil.GatherAndCompare(r.Prometheus(), strings.NewReader(expected), "snapcoord_report_queue_depth"); err != nil {
		t.Error(err)
	}
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.LiveSessions(1)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(string(body), "snapcoord_sessions_live 1") {
		t.Errorf("metrics output missing live gauge:\n%s", body)
	}
}
