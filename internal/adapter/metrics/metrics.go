package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/semmidev/dbwarden/internal/domain"
)

const namespace = "dbwarden"

// Recorder turns cycle results into Prometheus metrics. It is registered
// as a reporter like any other monitoring sink.
type Recorder struct {
	registry *prometheus.Registry

	cycles      *prometheus.CounterVec
	targets     *prometheus.CounterVec
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
	deleted     *prometheus.CounterVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Backup cycles run, by outcome.",
		}, []string{"outcome"}),
		targets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "targets_total",
			Help:      "Containers processed, by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a backup cycle.",
			Buckets:   []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600, 7200},
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last fully successful cycle.",
		}),
		deleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_deleted_total",
			Help:      "Artifacts removed by retention.",
		}, []string{"location"}),
	}
}

func (r *Recorder) Name() string { return "metrics" }

func (r *Recorder) CycleStarted(context.Context) error { return nil }

func (r *Recorder) CycleFinished(_ context.Context, result *domain.CycleResult) error {
	outcome := "failure"
	switch {
	case result.FullySuccessful():
		outcome = "success"
		r.lastSuccess.Set(float64(result.StartedAt.Add(result.Duration).Unix()))
	case result.Skipped():
		outcome = "skipped"
	}
	r.cycles.WithLabelValues(outcome).Inc()
	r.duration.Observe(result.Duration.Seconds())

	r.targets.WithLabelValues("success").Add(float64(result.Succeeded))
	for _, e := range result.Errors {
		r.targets.WithLabelValues(string(e.Kind)).Inc()
	}

	r.deleted.WithLabelValues("local").Add(float64(result.Retention.Deleted))
	r.deleted.WithLabelValues("remote").Add(float64(result.RemoteRetention.Deleted))
	return nil
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
