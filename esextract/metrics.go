package esextract

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the extraction counters, labelled by index.
type Metrics struct {
	Pages        *prometheus.CounterVec
	Hits         *prometheus.CounterVec
	Rows         *prometheus.CounterVec
	Filtered     *prometheus.CounterVec
	Dirty        *prometheus.CounterVec
	QuerySeconds *prometheus.HistogramVec
}

// NewMetrics builds the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esextract_pages_total",
			Help: "Page queries issued",
		}, []string{"index"}),
		Hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esextract_hits_total",
			Help: "Hits received from the engine",
		}, []string{"index"}),
		Rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esextract_rows_emitted_total",
			Help: "Records handed to the sink",
		}, []string{"index"}),
		Filtered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esextract_rows_dropped_total",
			Help: "Rows dropped before the sink",
		}, []string{"index", "reason"}),
		Dirty: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "esextract_dirty_records_total",
			Help: "Records with at least one field that could not be typed",
		}, []string{"index"}),
		QuerySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "esextract_query_duration_seconds",
			Help:    "Page query latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"index"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.Pages, m.Hits, m.Rows, m.Filtered, m.Dirty, m.QuerySeconds} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) page(index string, hits int, took time.Duration) {
	if m == nil {
		return
	}
	m.Pages.WithLabelValues(index).Inc()
	m.Hits.WithLabelValues(index).Add(float64(hits))
	m.QuerySeconds.WithLabelValues(index).Observe(took.Seconds())
}

func (m *Metrics) emitted(index string) {
	if m != nil {
		m.Rows.WithLabelValues(index).Inc()
	}
}

func (m *Metrics) dropped(index, reason string) {
	if m != nil {
		m.Filtered.WithLabelValues(index, reason).Inc()
	}
}

func (m *Metrics) dirty(index string) {
	if m != nil {
		m.Dirty.WithLabelValues(index).Inc()
	}
}
