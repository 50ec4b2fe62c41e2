package monitor

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlineConnections prometheus.Gauge
	ActiveRooms       prometheus.Gauge
	PlayersInRoom     *prometheus.GaugeVec
	Spins             *prometheus.CounterVec
	RoundsFinished    *prometheus.CounterVec
	TicksDropped      *prometheus.CounterVec
	IntentsRejected   *prometheus.CounterVec
	MessagesReceived  prometheus.Counter
	MessageLatency    prometheus.Histogram
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlineConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_connections",
			Help:      "Number of open client connections",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of rooms",
		}),
		PlayersInRoom: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "room_players",
			Help:      "Players currently in each room",
		}, []string{"room"}),
		Spins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spins_total",
			Help:      "Revolver spins by outcome",
		}, []string{"room", "eliminated"}),
		RoundsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_finished_total",
			Help:      "Finished rounds, split by whether someone survived",
		}, []string{"room", "winner"}),
		TicksDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_dropped_total",
			Help:      "Heartbeat ticks dropped because the room was still busy",
		}, []string{"room"}),
		IntentsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_rejected_total",
			Help:      "Client intents rejected, by error kind",
		}, []string{"kind"}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
	}

	reg.MustRegister(
		m.OnlineConnections,
		m.ActiveRooms,
		m.PlayersInRoom,
		m.Spins,
		m.RoundsFinished,
		m.TicksDropped,
		m.IntentsRejected,
		m.MessagesReceived,
		m.MessageLatency,
	)

	return m
}

// Monitor owns a private registry and implements room.Observer.
type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := &Monitor{
		metrics:   NewMetrics(namespace, reg),
		registry:  reg,
		startTime: time.Now(),
	}
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since the process started",
	}, func() float64 {
		return time.Since(m.startTime).Seconds()
	}))
	return m
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Monitor) IncOnlineConnections() {
	m.metrics.OnlineConnections.Inc()
}

func (m *Monitor) DecOnlineConnections() {
	m.metrics.OnlineConnections.Dec()
}

func (m *Monitor) SetActiveRooms(count int) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived() {
	m.metrics.MessagesReceived.Inc()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	m.metrics.MessageLatency.Observe(duration.Seconds())
}

func (m *Monitor) IntentRejected(kind string) {
	m.metrics.IntentsRejected.WithLabelValues(kind).Inc()
}

func (m *Monitor) PlayersChanged(roomID string, count int) {
	m.metrics.PlayersInRoom.WithLabelValues(roomID).Set(float64(count))
}

func (m *Monitor) SpinCompleted(roomID string, eliminated bool) {
	m.metrics.Spins.WithLabelValues(roomID, strconv.FormatBool(eliminated)).Inc()
}

func (m *Monitor) RoundFinished(roomID string, hasWinner bool) {
	m.metrics.RoundsFinished.WithLabelValues(roomID, strconv.FormatBool(hasWinner)).Inc()
}

func (m *Monitor) TickDropped(roomID string) {
	m.metrics.TicksDropped.WithLabelValues(roomID).Inc()
}
