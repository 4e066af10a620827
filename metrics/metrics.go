// Package metrics records session, command and data path activity. The
// Prometheus implementation is optional; Nop is used when metrics are off.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cyberinferno/rftool/logger"
	"github.com/cyberinferno/rftool/status"
)

// Recorder receives service events.
type Recorder interface {
	// SessionStarted is called when a session becomes active.
	SessionStarted()

	// SessionEnded is called after teardown with the end reason.
	SessionEnded(reason string, duration time.Duration)

	// CommandProcessed is called once per processed command line.
	CommandProcessed(command string, code status.Code)

	// DataTransferred counts bytes moved over the data channel.
	DataTransferred(n int)
}

// Nop discards everything.
type Nop struct{}

func (Nop) SessionStarted()                      {}
func (Nop) SessionEnded(string, time.Duration)   {}
func (Nop) CommandProcessed(string, status.Code) {}
func (Nop) DataTransferred(int)                  {}

// Prometheus is a Recorder backed by Prometheus collectors. A nil *Prometheus
// is a valid no-op Recorder.
type Prometheus struct {
	SessionsTotal   *prometheus.CounterVec
	SessionActive   prometheus.Gauge
	SessionDuration prometheus.Histogram
	CommandsTotal   *prometheus.CounterVec
	DataBytesTotal  prometheus.Counter
}

// NewPrometheus creates the collectors and registers them with reg. If reg is
// nil the collectors are created but not registered.
//
// Parameters:
//   - reg: Registerer receiving the collectors
//
// Returns:
//   - The recorder, or an error if registration fails for a reason other than
//     the collector already being registered
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	m := &Prometheus{
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rftool",
			Name:      "sessions_total",
			Help:      "Sessions ended, by end reason",
		}, []string{"reason"}),
		SessionActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rftool",
			Name:      "session_active",
			Help:      "1 while a client session is active",
		}),
		SessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rftool",
			Name:      "session_duration_seconds",
			Help:      "Lifetime of client sessions in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 10),
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rftool",
			Name:      "commands_total",
			Help:      "Processed command lines, by command and status",
		}, []string{"command", "status"}),
		DataBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rftool",
			Name:      "datapath_bytes_total",
			Help:      "Bytes sent over the data channel",
		}),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	if m.SessionsTotal, err = register(reg, m.SessionsTotal); err != nil {
		return nil, err
	}
	if m.SessionActive, err = register(reg, m.SessionActive); err != nil {
		return nil, err
	}
	if m.SessionDuration, err = register(reg, m.SessionDuration); err != nil {
		return nil, err
	}
	if m.CommandsTotal, err = register(reg, m.CommandsTotal); err != nil {
		return nil, err
	}
	if m.DataBytesTotal, err = register(reg, m.DataBytesTotal); err != nil {
		return nil, err
	}

	return m, nil
}

// register adds c to reg. When an equal collector is already registered, the
// existing one is returned so a restarted server keeps counting.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}

		return c, err
	}

	return c, nil
}

// SessionStarted implements Recorder.
func (m *Prometheus) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionActive.Set(1)
}

// SessionEnded implements Recorder.
func (m *Prometheus) SessionEnded(reason string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SessionActive.Set(0)
	m.SessionsTotal.WithLabelValues(reason).Inc()
	m.SessionDuration.Observe(duration.Seconds())
}

// CommandProcessed implements Recorder. Unknown command names are folded into
// one label value to bound cardinality.
func (m *Prometheus) CommandProcessed(command string, code status.Code) {
	if m == nil {
		return
	}
	if command == "" {
		command = "unknown"
	}
	m.CommandsTotal.WithLabelValues(command, code.String()).Inc()
}

// DataTransferred implements Recorder.
func (m *Prometheus) DataTransferred(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DataBytesTotal.Add(float64(n))
}

// Serve exposes gatherer on addr under /metrics until ctx is cancelled.
//
// Parameters:
//   - ctx: Stops the server when cancelled
//   - addr: Listen address such as ":9100"
//   - gatherer: Source of the exposed metrics
//   - log: Logger for lifecycle messages
//
// Returns:
//   - nil after a clean shutdown, or the listen/serve error
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, log logger.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	return ServeListener(ctx, ln, gatherer, log)
}

// ServeListener is Serve on an existing listener.
func ServeListener(ctx context.Context, ln net.Listener, gatherer prometheus.Gatherer, log logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stop()

	log.Info("metrics server started", logger.Field{Key: "addr", Value: ln.Addr().String()})
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		log.Info("metrics server stopped")
		return nil
	}

	return err
}
