package arb

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the Prometheus collectors the scanning pipeline updates.
// Modeled on the upstream monitoring package's pattern of a struct of
// pre-registered vectors rather than package-level globals, so a Scanner,
// Optimizer, or FeedManager can be constructed more than once in a test
// process without double-registering.
type Metrics struct {
	ScanDuration        prometheus.Histogram
	OpportunitiesFound  *prometheus.CounterVec
	OptimizerRejections *prometheus.CounterVec
	FeedReconnects      *prometheus.CounterVec
	PoolCount           prometheus.Gauge
	PriceUpdateTotal    prometheus.Counter
}

// NewMetrics builds and registers the core's collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the process-wide
// default registry; the production wiring in cmd/arb-core uses
// prometheus.DefaultRegisterer, which its /metrics handler serves.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "arbcore",
			Subsystem: "scanner",
			Name:      "scan_duration_seconds",
			Help:      "Duration of a single scanner tick across all enabled chains.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		OpportunitiesFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbcore",
			Subsystem: "scanner",
			Name:      "opportunities_found_total",
			Help:      "Opportunities surviving filter and optimizer, by chain and strategy.",
		}, []string{"chain", "strategy"}),
		OptimizerRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbcore",
			Subsystem: "optimizer",
			Name:      "rejections_total",
			Help:      "Opportunities rejected by the optimizer, by reason.",
		}, []string{"reason"}),
		FeedReconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbcore",
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Feed reconnect attempts, by chain and dex.",
		}, []string{"chain", "dex"}),
		PoolCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arbcore",
			Subsystem: "pricestate",
			Name:      "pool_count",
			Help:      "Number of pool entries currently held in Price State.",
		}),
		PriceUpdateTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arbcore",
			Subsystem: "pricestate",
			Name:      "updates_total",
			Help:      "Total pool/price/block updates applied to Price State.",
		}),
	}

	reg.MustRegister(
		m.ScanDuration,
		m.OpportunitiesFound,
		m.OptimizerRejections,
		m.FeedReconnects,
		m.PoolCount,
		m.PriceUpdateTotal,
	)
	return m
}
