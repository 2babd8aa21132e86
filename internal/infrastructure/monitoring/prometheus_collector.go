package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements ports.MetricsRecorder on top of
// promauto-registered collectors.
type PrometheusCollector struct {
	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter

	roomsActive  prometheus.Gauge
	roomsTotal   prometheus.Counter
	roomLifetime prometheus.Histogram

	viewersActive prometheus.Gauge
	viewersTotal  prometheus.Counter

	signalsRouted  *prometheus.CounterVec
	protocolErrors *prometheus.CounterVec
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		connectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "beamshare_connections_active",
			Help: "Number of open signaling connections",
		}),

		connectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "beamshare_connections_total",
			Help: "Total number of signaling connections accepted",
		}),

		roomsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "beamshare_rooms_active",
			Help: "Number of rooms with a registered host",
		}),

		roomsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "beamshare_rooms_total",
			Help: "Total number of rooms created",
		}),

		roomLifetime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "beamshare_room_lifetime_seconds",
			Help:    "Lifetime of rooms from registration to close",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),

		viewersActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "beamshare_viewers_active",
			Help: "Number of viewers currently joined to a room",
		}),

		viewersTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "beamshare_viewers_total",
			Help: "Total number of viewer joins",
		}),

		signalsRouted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "beamshare_signals_routed_total",
			Help: "Total number of signal frames relayed between peers",
		}, []string{"from"}),

		protocolErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "beamshare_protocol_errors_total",
			Help: "Total number of rejected client frames by reason",
		}, []string{"reason"}),
	}
}

func (p *PrometheusCollector) ConnectionOpened() {
	p.connectionsActive.Inc()
	p.connectionsTotal.Inc()
}

func (p *PrometheusCollector) ConnectionClosed() {
	p.connectionsActive.Dec()
}

func (p *PrometheusCollector) RoomCreated() {
	p.roomsActive.Inc()
	p.roomsTotal.Inc()
}

func (p *PrometheusCollector) RoomClosed(lifetime time.Duration) {
	p.roomsActive.Dec()
	p.roomLifetime.Observe(lifetime.Seconds())
}

func (p *PrometheusCollector) ViewerJoined() {
	p.viewersActive.Inc()
	p.viewersTotal.Inc()
}

func (p *PrometheusCollector) ViewerLeft() {
	p.viewersActive.Dec()
}

func (p *PrometheusCollector) SignalRouted(from string) {
	p.signalsRouted.WithLabelValues(from).Inc()
}

func (p *PrometheusCollector) ProtocolError(reason string) {
	p.protocolErrors.WithLabelValues(reason).Inc()
}
