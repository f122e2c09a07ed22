package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fatflowers/gymdesk/pkg/apperr"
)

var HistogramBuckets = []float64{
	// --- Fast responses (0 - 500ms) ---
	5, 10, 25, 50, 75, 100, 150, 200, 300, 400, 500,

	// --- Slow store round trips (500ms - 5s) ---
	750, 1000, 1500, 2000, 3000, 5000,

	// --- Retry storms / store outages ---
	10000, 20000, 30000,
}

// Metric is a definition for the name, description, type, ID, and
// prometheus.Collector type (i.e. CounterVec, Summary, etc) of each metric
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            string
	Args            []string
}

// NewMetric associates prometheus.Collector based on Metric.Type
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	var metric prometheus.Collector
	switch m.Type {
	case "counter_vec":
		metric = prometheus.NewCounterVec(
			prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description},
			m.Args,
		)
	case "counter":
		metric = prometheus.NewCounter(
			prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description},
		)
	case "gauge_vec":
		metric = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description},
			m.Args,
		)
	case "histogram_vec":
		metric = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description, Buckets: HistogramBuckets},
			m.Args,
		)
	case "summary_vec":
		metric = prometheus.NewSummaryVec(
			prometheus.SummaryOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description},
			m.Args,
		)
	}
	return metric
}

// MetricsBusinessProcess times every consistency operation, labelled by the
// owning service (type) and the operation (subtype) and its outcome.
var MetricsBusinessProcess = &Metric{
	ID:          "bpDur",
	Name:        "bp_dur",
	Description: "business process latency in milliseconds",
	Type:        "histogram_vec",
	Args:        []string{"type", "subtype", "outcome"},
}

var businessProcess = NewMetric(MetricsBusinessProcess, "gymdesk").(*prometheus.HistogramVec)

func init() {
	MetricsBusinessProcess.MetricCollector = businessProcess
	prometheus.MustRegister(businessProcess)
}

// ObserveBusinessProcess records the latency of one operation. outcome is
// the error kind, or "ok".
func ObserveBusinessProcess(typ, subtype, outcome string, start time.Time) {
	businessProcess.WithLabelValues(typ, subtype, outcome).Observe(MillisecondsSince(start))
}

// MillisecondsSince returns the elapsed time since start in fractional ms.
func MillisecondsSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

const (
	RefererKey = "X-Referer"
)

// Outcome labels an operation result for MetricsBusinessProcess.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperr.KindOf(err))
}
