// Package metrics exports stream lifecycle events as prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/kralicky/streamrelay/pkg/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "streamrelay"

type Collectors struct {
	started        prometheus.Counter
	startFailures  prometheus.Counter
	stopped        *prometheus.CounterVec
	selfTerminated prometheus.Counter
	active         prometheus.Gauge
	duration       prometheus.Histogram
}

func NewCollectors() *Collectors {
	return &Collectors{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "streams",
			Name:      "started_total",
			Help:      "Number of streams started.",
		}),
		startFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "streams",
			Name:      "start_failures_total",
			Help:      "Number of streams whose transcoder failed to launch.",
		}),
		stopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "streams",
			Name:      "stopped_total",
			Help:      "Number of streams stopped on request, by termination outcome.",
		}, []string{"outcome"}),
		selfTerminated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "streams",
			Name:      "self_terminated_total",
			Help:      "Number of streams whose transcoder exited without being stopped.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "streams",
			Name:      "active",
			Help:      "Number of streams currently running.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "duration_seconds",
			Help:      "How long streams ran before they were stopped or exited.",
			Buckets:   []float64{60, 300, 900, 1800, 3600, 7200, 14400, 28800, 86400},
		}),
	}
}

// Register registers every collector with r.
func (c *Collectors) Register(r prometheus.Registerer) error {
	for _, col := range []prometheus.Collector{
		c.started, c.startFailures, c.stopped, c.selfTerminated, c.active, c.duration,
	} {
		if err := r.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe updates the collectors from events published on bus. The
// returned function removes the subscriptions.
func (c *Collectors) Subscribe(bus *events.Bus) func() {
	unsubscribe := []func(){
		events.Subscribe(bus, func(events.StreamStarted) {
			c.started.Inc()
			c.active.Inc()
		}),
		events.Subscribe(bus, func(events.StreamStartFailed) {
			c.startFailures.Inc()
		}),
		events.Subscribe(bus, func(e events.StreamStopped) {
			c.stopped.WithLabelValues(e.Outcome).Inc()
			c.active.Dec()
			c.duration.Observe(e.Duration.Seconds())
		}),
		events.Subscribe(bus, func(e events.StreamSelfTerminated) {
			c.selfTerminated.Inc()
			c.active.Dec()
			c.duration.Observe(e.Duration.Seconds())
		}),
	}
	return func() {
		for _, fn := range unsubscribe {
			fn()
		}
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return mux
}

// ListenAndServe serves the metrics gathered by g on address until ctx is
// canceled.
func ListenAndServe(ctx context.Context, address string, g prometheus.Gatherer) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           Handler(g),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	lg := slog.With("address", listener.Addr().String())
	lg.Info("metrics server starting")

	errC := make(chan error, 1)
	go func() {
		errC <- srv.Serve(listener)
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		<-errC
		lg.Info("metrics server stopped")
		return err
	case err := <-errC:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
