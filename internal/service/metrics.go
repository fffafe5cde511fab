package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the asset service collectors.
type Metrics struct {
	operations   *prometheus.CounterVec
	orphanBlobs  prometheus.Counter
	ingestedSize prometheus.Histogram
}

// NewMetrics creates the service collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asset_operations_total",
				Help: "Asset service operations by operation and outcome kind.",
			},
			[]string{"operation", "outcome"},
		),
		orphanBlobs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "asset_orphan_blobs_total",
			Help: "Blobs that could not be removed after a failed ingest and were left on storage.",
		}),
		ingestedSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "asset_ingested_bytes",
			Help:    "Size of successfully ingested assets.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),
	}

	for _, c := range []prometheus.Collector{m.operations, m.orphanBlobs, m.ingestedSize} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(op, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) orphaned() {
	if m == nil {
		return
	}
	m.orphanBlobs.Inc()
}

func (m *Metrics) ingested(size int64) {
	if m == nil {
		return
	}
	m.ingestedSize.Observe(float64(size))
}
