package simplecatalog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the catalog's Prometheus metrics. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	SyncAdded     *prometheus.CounterVec
	SyncRemoved   *prometheus.CounterVec
	SyncErrors    *prometheus.CounterVec
	IndexWrites   *prometheus.CounterVec
	CacheRequests *prometheus.CounterVec
	GuardWait     prometheus.Histogram
	IOInFlight    prometheus.Gauge
}

// NewMetrics creates the catalog metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		SyncAdded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "simplecatalog",
				Subsystem: "sync",
				Name:      "added_total",
				Help:      "Index entries created for orphan blobs",
			},
			[]string{"type"},
		),
		SyncRemoved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "simplecatalog",
				Subsystem: "sync",
				Name:      "removed_total",
				Help:      "Index entries dropped because their blob is missing",
			},
			[]string{"type"},
		),
		SyncErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "simplecatalog",
				Subsystem: "sync",
				Name:      "errors_total",
				Help:      "Per-type sync passes that failed",
			},
			[]string{"type"},
		),
		IndexWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "simplecatalog",
				Subsystem: "index",
				Name:      "writes_total",
				Help:      "Index files written back to storage",
			},
			[]string{"type"},
		),
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "simplecatalog",
				Subsystem: "cache",
				Name:      "requests_total",
				Help:      "Query cache lookups by result",
			},
			[]string{"result"},
		),
		GuardWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "simplecatalog",
				Subsystem: "guard",
				Name:      "wait_seconds",
				Help:      "Time spent waiting for the index guard",
				Buckets:   prometheus.DefBuckets,
			},
		),
		IOInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "simplecatalog",
				Subsystem: "io",
				Name:      "in_flight",
				Help:      "Backend calls currently running in the IO pool",
			},
		),
	}

	if reg != nil {
		collectors := []prometheus.Collector{
			m.SyncAdded, m.SyncRemoved, m.SyncErrors, m.IndexWrites,
			m.CacheRequests, m.GuardWait, m.IOInFlight,
		}
		for _, c := range collectors {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observeSync(t TypeTag, r TypeReport) {
	if m == nil {
		return
	}
	if r.Error != "" {
		m.SyncErrors.WithLabelValues(string(t)).Inc()
		return
	}
	m.SyncAdded.WithLabelValues(string(t)).Add(float64(r.Added))
	m.SyncRemoved.WithLabelValues(string(t)).Add(float64(r.Removed))
}

func (m *Metrics) indexWritten(t TypeTag) {
	if m == nil {
		return
	}
	m.IndexWrites.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) cacheResult(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) observeGuardWait(d time.Duration) {
	if m == nil {
		return
	}
	m.GuardWait.Observe(d.Seconds())
}

func (m *Metrics) ioStarted() {
	if m == nil {
		return
	}
	m.IOInFlight.Inc()
}

func (m *Metrics) ioFinished() {
	if m == nil {
		return
	}
	m.IOInFlight.Dec()
}
