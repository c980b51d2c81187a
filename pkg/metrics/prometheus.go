package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsEmitted    *prometheus.CounterVec
	signalsSuppressed *prometheus.CounterVec
	jobsEnqueued      *prometheus.CounterVec
	alertsTriggered   *prometheus.CounterVec
	digestsSent       prometheus.Counter
	fetchErrors       *prometheus.CounterVec
	lastPrice         *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsEmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigflow_signals_emitted_total",
				Help: "Total signals that passed dedupe and routing",
			},
			[]string{"strategy", "instrument"},
		),
		signalsSuppressed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigflow_signals_suppressed_total",
				Help: "Total signals dropped by the dedupe guard",
			},
			[]string{"reason"},
		),
		jobsEnqueued: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigflow_jobs_enqueued_total",
				Help: "Total delivery jobs enqueued",
			},
			[]string{"type"},
		),
		alertsTriggered: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigflow_alerts_triggered_total",
				Help: "Total one-shot price alerts fired",
			},
			[]string{"type"},
		),
		digestsSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sigflow_digests_sent_total",
				Help: "Total daily digests sent",
			},
		),
		fetchErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigflow_fetch_errors_total",
				Help: "Total upstream market data fetch failures",
			},
			[]string{"provider"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sigflow_last_price",
				Help: "Last observed price for a symbol",
			},
			[]string{"symbol"},
		),
	}
}

func (r *Recorder) RecordSignalEmitted(strategy, instrument string) {
	r.signalsEmitted.WithLabelValues(strategy, instrument).Inc()
}

func (r *Recorder) RecordSignalSuppressed(reason string) {
	r.signalsSuppressed.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordJobEnqueued(jobType string) {
	r.jobsEnqueued.WithLabelValues(jobType).Inc()
}

func (r *Recorder) RecordAlertTriggered(alertType string) {
	r.alertsTriggered.WithLabelValues(alertType).Inc()
}

func (r *Recorder) RecordDigestSent() {
	r.digestsSent.Inc()
}

func (r *Recorder) RecordFetchError(provider string) {
	r.fetchErrors.WithLabelValues(provider).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}
