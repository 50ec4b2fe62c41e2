package monitor

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/roulette/room"
)

var _ room.Observer = (*Monitor)(nil)

func TestNewMetrics_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("roulette", reg)
	m.ActiveRooms.Set(3)

	n, err := testutil.GatherAndCount(reg, "roulette_active_rooms")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Panics(t, func() { NewMetrics("roulette", reg) }, "duplicate registration")
}

func TestMonitor_Observer(t *testing.T) {
	m := NewMonitor("roulette")
	metrics := m.Metrics()

	m.PlayersChanged("main-room", 2)
	m.PlayersChanged("main-room", 3)
	m.SpinCompleted("main-room", false)
	m.SpinCompleted("main-room", true)
	m.SpinCompleted("main-room", true)
	m.RoundFinished("main-room", true)
	m.RoundFinished("room-2", false)
	m.TickDropped("room-3")

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.PlayersInRoom.WithLabelValues("main-room")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Spins.WithLabelValues("main-room", "false")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Spins.WithLabelValues("main-room", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RoundsFinished.WithLabelValues("main-room", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RoundsFinished.WithLabelValues("room-2", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TicksDropped.WithLabelValues("room-3")))
}

func TestMonitor_TransportCounters(t *testing.T) {
	m := NewMonitor("roulette")
	metrics := m.Metrics()

	m.IncOnlineConnections()
	m.IncOnlineConnections()
	m.DecOnlineConnections()
	m.SetActiveRooms(3)
	m.IncMessagesReceived()
	m.IntentRejected("SeatTaken")
	m.IntentRejected("SeatTaken")
	m.ObserveMessageLatency(3 * time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OnlineConnections))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ActiveRooms))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MessagesReceived))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.IntentsRejected.WithLabelValues("SeatTaken")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.MessageLatency))
}

func TestMonitor_Handler(t *testing.T) {
	m := NewMonitor("roulette")
	m.TickDropped("main-room")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `roulette_ticks_dropped_total{room="main-room"} 1`)
	assert.Contains(t, string(body), "roulette_uptime_seconds")
}
