// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OnlinePlayers    prometheus.Gauge
	ActiveRooms      prometheus.Gauge
	MessagesReceived *prometheus.CounterVec
	MessageLatency   *prometheus.HistogramVec
	ErrorsSent       *prometheus.CounterVec
	GamesCompleted   *prometheus.CounterVec
	RoomsEvicted     prometheus.Counter
	FramesDropped    prometheus.Counter
	ResultErrors     *prometheus.CounterVec
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of open client connections",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of active rooms",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}, []string{"type"}),
		MessageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}, []string{"type"}),
		ErrorsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_sent_total",
			Help:      "Error replies sent to clients",
		}, []string{"type"}),
		GamesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_completed_total",
			Help:      "Games that finished with a win or draw",
		}, []string{"game", "outcome"}),
		RoomsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_evicted_total",
			Help:      "Rooms removed by the idle sweep",
		}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Outbound frames dropped on full or closed connections",
		}),
		ResultErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_errors_total",
			Help:      "Finished games that failed to save or publish",
		}, []string{"stage"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.OnlinePlayers,
			m.ActiveRooms,
			m.MessagesReceived,
			m.MessageLatency,
			m.ErrorsSent,
			m.GamesCompleted,
			m.RoomsEvicted,
			m.FramesDropped,
			m.ResultErrors,
		)
	}

	return m
}

type Monitor struct {
	metrics      *Metrics
	gatherer     prometheus.Gatherer
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

var publishOnce sync.Once

// NewMonitor 使用独立的 registry，测试之间互不影响
func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &Monitor{
		metrics:   NewMetrics(namespace, reg),
		gatherer:  reg,
		startTime: time.Now(),
	}
}

// Handler 暴露 /metrics
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// PublishExpvar 添加 expvar 指标，进程内只发布一次
func (m *Monitor) PublishExpvar() {
	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))

		expvar.Publish("requests", expvar.Func(func() interface{} {
			return m.RequestCount()
		}))
	})
}

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) SetActiveRooms(count int) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived(msgType string) {
	m.metrics.MessagesReceived.WithLabelValues(msgType).Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) RequestCount() int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.requestCount
}

func (m *Monitor) ObserveMessageLatency(msgType string, duration time.Duration) {
	m.metrics.MessageLatency.WithLabelValues(msgType).Observe(duration.Seconds())
}

func (m *Monitor) IncErrorsSent(msgType string) {
	m.metrics.ErrorsSent.WithLabelValues(msgType).Inc()
}

func (m *Monitor) IncGamesCompleted(gameID, outcome string) {
	m.metrics.GamesCompleted.WithLabelValues(gameID, outcome).Inc()
}

func (m *Monitor) AddRoomsEvicted(n int) {
	m.metrics.RoomsEvicted.Add(float64(n))
}

func (m *Monitor) IncFramesDropped() {
	m.metrics.FramesDropped.Inc()
}

// IncResultErrors stage 为 save 或 publish
func (m *Monitor) IncResultErrors(stage string) {
	m.metrics.ResultErrors.WithLabelValues(stage).Inc()
}
