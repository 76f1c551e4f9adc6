package metrics

import (
	"math"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder handles metrics recording and exposure. Every recorder owns its
// registry, so several can coexist in one process.
type Recorder struct {
	registry *prometheus.Registry

	// API metrics
	apiRequestCounter   *prometheus.CounterVec
	apiLatencyHistogram *prometheus.HistogramVec

	// Calculation metrics
	calcCounter       *prometheus.CounterVec
	calcLatency       *prometheus.HistogramVec
	mcStandardError   *prometheus.GaugeVec
	mcTrialsHistogram *prometheus.HistogramVec

	// Kafka metrics
	kafkaMessageCounter *prometheus.CounterVec

	// System metrics
	memoryUsageGauge    prometheus.Gauge
	goroutineCountGauge prometheus.Gauge
}

// NewRecorder creates a new metrics recorder
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,

		apiRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qf_api_requests_total",
				Help: "The total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		apiLatencyHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qf_api_latency_seconds",
				Help:    "API request latency distribution",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // From 1ms to ~16s
			},
			[]string{"method", "path"},
		),

		calcCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qf_calculations_total",
				Help: "The total number of calculations by operation and outcome",
			},
			[]string{"operation", "status"},
		),
		calcLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qf_calculation_duration_seconds",
				Help:    "Calculation latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 12), // From 100µs to ~7min
			},
			[]string{"operation"},
		),
		mcStandardError: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "qf_mc_standard_error",
				Help: "Standard error of the latest Monte Carlo estimate",
			},
			[]string{"payoff"},
		),
		mcTrialsHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qf_mc_trials",
				Help:    "Trials per Monte Carlo estimate",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6), // From 100 to 10M
			},
			[]string{"payoff"},
		),

		kafkaMessageCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qf_kafka_messages_total",
				Help: "Kafka messages by topic, direction and outcome",
			},
			[]string{"topic", "direction", "status"},
		),

		memoryUsageGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "qf_memory_usage_bytes",
				Help: "Memory usage of the application in bytes",
			},
		),
		goroutineCountGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "qf_goroutine_count",
				Help: "Number of goroutines",
			},
		),
	}
}

// Registry exposes the underlying registry, mostly for tests
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RecordAPIRequest records metrics for an API request
func (r *Recorder) RecordAPIRequest(method, path string, status int, latency time.Duration) {
	r.apiRequestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.apiLatencyHistogram.WithLabelValues(method, path).Observe(latency.Seconds())
}

// RecordCalculation records the outcome and latency of one calculation
func (r *Recorder) RecordCalculation(operation string, err error, latency time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.calcCounter.WithLabelValues(operation, status).Inc()
	r.calcLatency.WithLabelValues(operation).Observe(latency.Seconds())
}

// RecordMonteCarlo records the precision of a Monte Carlo estimate. An
// undefined standard error leaves the gauge untouched.
func (r *Recorder) RecordMonteCarlo(payoff string, trials int, standardError float64) {
	r.mcTrialsHistogram.WithLabelValues(payoff).Observe(float64(trials))
	if !math.IsNaN(standardError) {
		r.mcStandardError.WithLabelValues(payoff).Set(standardError)
	}
}

// RecordKafkaMessage counts a consumed ("in") or produced ("out") message
func (r *Recorder) RecordKafkaMessage(topic, direction string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.kafkaMessageCounter.WithLabelValues(topic, direction, status).Inc()
}

// RecordSystemStats samples goroutine count and heap usage
func (r *Recorder) RecordSystemStats() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	r.memoryUsageGauge.Set(float64(mem.Alloc))
	r.goroutineCountGauge.Set(float64(runtime.NumGoroutine()))
}
