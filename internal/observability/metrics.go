package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// bulletin ingest pipeline.
type Metrics struct {
	BulletinsConsumed prometheus.Counter
	BulletinsArchived prometheus.Counter
	DecodeFailures    prometheus.Counter
	PipelineRunning   prometheus.Gauge

	// Handling metrics.
	HandleDuration prometheus.Histogram

	// Decode outcome metrics.
	DecodeOutcomes *prometheus.CounterVec // labels: kind={metar,taf,sigmet,unparsed}, outcome={decoded,partial,unparsed}
	Transitions    *prometheus.CounterVec // labels: direction={worsened,improved}
	StationsActive *prometheus.GaugeVec   // labels: category={VFR,MVFR,IFR,LIFR,Unknown}

	// Sink metrics.
	SinkWrites *prometheus.CounterVec // labels: sink={clickhouse,postgres}, outcome={success,error}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		BulletinsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wx_decoder",
			Name:      "bulletins_consumed_total",
			Help:      "Total bulletins read from the feed subjects.",
		}),
		BulletinsArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wx_decoder",
			Name:      "bulletins_archived_total",
			Help:      "Total bulletins written to the SQLite archive.",
		}),
		DecodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wx_decoder",
			Name:      "decode_failures_total",
			Help:      "Total envelopes that could not be decoded at all.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wx_decoder",
			Name:      "pipeline_running",
			Help:      "1 when the ingest pipeline is active, 0 when shut down.",
		}),
		HandleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wx_decoder",
			Name:      "handle_duration_seconds",
			Help:      "Duration of a complete decode-extract-store cycle per bulletin.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		DecodeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wx_decoder",
			Name:      "decode_outcomes_total",
			Help:      "Decode results by bulletin kind and outcome.",
		}, []string{"kind", "outcome"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wx_decoder",
			Name:      "category_transitions_total",
			Help:      "Flight category transitions by direction.",
		}, []string{"direction"}),
		StationsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wx_decoder",
			Name:      "stations_active",
			Help:      "Stations with a current observation, by flight category.",
		}, []string{"category"}),
		SinkWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wx_decoder",
			Name:      "sink_writes_total",
			Help:      "Analytical and state sink writes by destination and outcome.",
		}, []string{"sink", "outcome"}),
	}

	prometheus.MustRegister(
		m.BulletinsConsumed,
		m.BulletinsArchived,
		m.DecodeFailures,
		m.PipelineRunning,
		m.HandleDuration,
		m.DecodeOutcomes,
		m.Transitions,
		m.StationsActive,
		m.SinkWrites,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		BulletinsConsumed: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wx_decoder", Name: "bulletins_consumed_total"}),
		BulletinsArchived: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wx_decoder", Name: "bulletins_archived_total"}),
		DecodeFailures:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wx_decoder", Name: "decode_failures_total"}),
		PipelineRunning:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "wx_decoder", Name: "pipeline_running"}),
		HandleDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "wx_decoder", Name: "handle_duration_seconds"}),
		DecodeOutcomes:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "wx_decoder", Name: "decode_outcomes_total"}, []string{"kind", "outcome"}),
		Transitions:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "wx_decoder", Name: "category_transitions_total"}, []string{"direction"}),
		StationsActive:    prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "wx_decoder", Name: "stations_active"}, []string{"category"}),
		SinkWrites:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "wx_decoder", Name: "sink_writes_total"}, []string{"sink", "outcome"}),
	}
}
