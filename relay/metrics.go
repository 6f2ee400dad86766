package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "tapserver"

// Eviction reasons used as label values.
const (
	evictRead      = "read"
	evictOversized = "oversized"
	evictWrite     = "write"
)

type Metrics struct {
	deviceFramesRead    prometheus.Counter
	deviceFramesWritten prometheus.Counter
	clientFramesRecv    prometheus.Counter
	clientFramesSent    prometheus.Counter
	evictions           *prometheus.CounterVec
	accepts             prometheus.Counter
	acceptErrors        prometheus.Counter
	clients             prometheus.Gauge
}

// NewMetrics registers the relay collectors with reg. Passing nil uses a
// private registry, which keeps several servers in one process from
// colliding.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		deviceFramesRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "device_frames_read_total",
			Help:      "Frames read from the device",
		}),
		deviceFramesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "device_frames_written_total",
			Help:      "Frames written to the device",
		}),
		clientFramesRecv: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "client_frames_received_total",
			Help:      "Frames decoded from clients",
		}),
		clientFramesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "client_frames_sent_total",
			Help:      "Frames written to clients",
		}),
		evictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "client_evictions_total",
			Help:      "Clients removed after an I/O failure",
		}, []string{"reason"}),
		accepts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "accepts_total",
			Help:      "Accepted client connections",
		}),
		acceptErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "accept_errors_total",
			Help:      "Failed accept attempts",
		}),
		clients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "clients",
			Help:      "Currently registered clients",
		}),
	}
}
