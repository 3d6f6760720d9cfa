// Package metrics exposes job counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metric names.
const (
	MetricBackfillRecordsTotal        = "bakehouse_backfill_records_total"
	MetricBackfillUpdatesAppliedTotal = "bakehouse_backfill_updates_applied_total"
	MetricBackfillPagesTotal          = "bakehouse_backfill_pages_total"
	MetricIntegrityCustomersTotal     = "bakehouse_integrity_customers_total"
	MetricIntegrityStaleMetrics       = "bakehouse_integrity_stale_metrics"
	MetricJobDurationSeconds          = "bakehouse_job_duration_seconds"
)

// Metrics holds the collectors on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	backfillRecords        *prometheus.CounterVec
	backfillUpdatesApplied prometheus.Counter
	backfillPages          prometheus.Counter
	integrityCustomers     *prometheus.CounterVec
	integrityStale         prometheus.Gauge
	jobDuration            *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		backfillRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricBackfillRecordsTotal,
			Help: "Order records seen by the timeslot backfill, by outcome.",
		}, []string{"outcome"}),
		backfillUpdatesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricBackfillUpdatesAppliedTotal,
			Help: "Field updates committed by the timeslot backfill.",
		}),
		backfillPages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricBackfillPagesTotal,
			Help: "Pages fetched by the timeslot backfill.",
		}),
		integrityCustomers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricIntegrityCustomersTotal,
			Help: "Customers checked by the integrity validator, by result.",
		}, []string{"result"}),
		integrityStale: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricIntegrityStaleMetrics,
			Help: "Metrics entries older than the freshness window at the last check.",
		}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricJobDurationSeconds,
			Help:    "Wall-clock duration of job runs.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"job"}),
	}

	m.registry.MustRegister(
		m.backfillRecords,
		m.backfillUpdatesApplied,
		m.backfillPages,
		m.integrityCustomers,
		m.integrityStale,
		m.jobDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObservePage records one scanned page.
func (m *Metrics) ObservePage(skipped, staged, undetermined int) {
	if m == nil {
		return
	}
	m.backfillPages.Inc()
	m.backfillRecords.WithLabelValues("skipped").Add(float64(skipped))
	m.backfillRecords.WithLabelValues("staged").Add(float64(staged))
	m.backfillRecords.WithLabelValues("undetermined").Add(float64(undetermined))
}

func (m *Metrics) AddApplied(n int) {
	if m == nil {
		return
	}
	m.backfillUpdatesApplied.Add(float64(n))
}

// ObserveIntegrity records the outcome of one validation run.
func (m *Metrics) ObserveIntegrity(passed, failed, missing, stale int) {
	if m == nil {
		return
	}
	m.integrityCustomers.WithLabelValues("passed").Add(float64(passed))
	m.integrityCustomers.WithLabelValues("failed").Add(float64(failed))
	m.integrityCustomers.WithLabelValues("missing").Add(float64(missing))
	m.integrityStale.Set(float64(stale))
}

func (m *Metrics) ObserveJob(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}
