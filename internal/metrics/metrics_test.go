package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.MessageSent()
	m.MessageSent()
	m.MessageReceived()
	m.MessageAcked()
	m.SendFailed()
	m.ReconnectAttempt()

	if got := testutil.ToFloat64(m.messagesSent); got != 2 {
		t.Errorf("sent = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.messagesReceived); got != 1 {
		t.Errorf("received = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.reconnectAttempts); got != 1 {
		t.Errorf("reconnects = %v, want 1", got)
	}
}

func TestSetStateIsExclusive(t *testing.T) {
	m := New()
	all := []string{"DISCONNECTED", "CONNECTING", "CONNECTED"}
	m.SetState("CONNECTING", all...)
	m.SetState("CONNECTED", all...)

	if got := testutil.ToFloat64(m.connectionState.WithLabelValues("CONNECTED")); got != 1 {
		t.Errorf("CONNECTED = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.connectionState.WithLabelValues("CONNECTING")); got != 0 {
		t.Errorf("CONNECTING = %v, want 0", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.MessageSent()
	m.SetState("CONNECTED")
	m.ObserveRequest("/users", 200, time.Millisecond)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.MessageSent()
	m.ObserveRequest("/login", 200, 20*time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{"sigma_messages_sent_total 1", "sigma_backend_request_duration_seconds_count"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}

type busStats struct {
	subs    int
	dropped uint64
}

func (b busStats) Subscribers() int { return b.subs }
func (b busStats) Dropped() uint64  { return b.dropped }

func TestWatchBus(t *testing.T) {
	m := New()
	m.WatchBus(busStats{subs: 2, dropped: 3})

	expected := `
# HELP sigma_bus_dropped_events_total Events skipped because a subscriber was too slow
# TYPE sigma_bus_dropped_events_total counter
sigma_bus_dropped_events_total 3
# HELP sigma_bus_subscribers Live event bus subscriptions
# TYPE sigma_bus_subscribers gauge
sigma_bus_subscribers 2
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"sigma_bus_dropped_events_total", "sigma_bus_subscribers"); err != nil {
		t.Fatal(err)
	}
}
