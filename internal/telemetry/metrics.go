package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records benchmark and simulation measurements in its own registry.
type Metrics struct {
	Registry *prometheus.Registry

	stepSeconds   *prometheus.HistogramVec
	runSeconds    *prometheus.HistogramVec
	memoryMB      *prometheus.GaugeVec
	runsTotal     *prometheus.CounterVec
	triggersTotal *prometheus.CounterVec
	specSwaps     prometheus.Counter
}

// NewMetrics registers the fmubench collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		stepSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fmubench_step_duration_seconds",
			Help:    "Wall time of a single FMU doStep call",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"variant"}),
		runSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fmubench_run_duration_seconds",
			Help:    "Wall time of one full simulation run",
			Buckets: prometheus.DefBuckets,
		}, []string{"variant"}),
		memoryMB: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fmubench_memory_megabytes",
			Help: "Process resident memory at the end of the last run",
		}, []string{"variant"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fmubench_runs_total",
			Help: "Completed simulation runs",
		}, []string{"variant"}),
		triggersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fmubench_triggers_total",
			Help: "Monitor triggers parsed from FMU output",
		}, []string{"id"}),
		specSwaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fmubench_spec_swaps_total",
			Help: "Specifications hot-swapped during simulation",
		}),
	}
	reg.MustRegister(
		m.stepSeconds, m.runSeconds, m.memoryMB, m.runsTotal, m.triggersTotal, m.specSwaps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveStep(label string, d time.Duration) {
	m.stepSeconds.WithLabelValues(label).Observe(d.Seconds())
}

func (m *Metrics) ObserveRun(label string, total time.Duration, memoryKB float64) {
	m.runSeconds.WithLabelValues(label).Observe(total.Seconds())
	m.memoryMB.WithLabelValues(label).Set(memoryKB / 1024)
	m.runsTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) TrackTrigger(id int) {
	m.triggersTotal.WithLabelValues(strconv.Itoa(id)).Inc()
}

func (m *Metrics) TrackSpecSwap() {
	m.specSwaps.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// StartMetricsServer serves /metrics on addr until ctx is done.
func StartMetricsServer(ctx context.Context, addr string, m *Metrics, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting metrics server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
