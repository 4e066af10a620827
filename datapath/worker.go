// Package datapath moves sample data over the data channel while a session
// is active. The Worker owns the loop; a Mover produces the samples.
package datapath

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/cyberinferno/rftool/logger"
	"github.com/cyberinferno/rftool/metrics"
	"github.com/cyberinferno/rftool/perfmonitor"
)

// DefaultPollInterval bounds how long the worker goes without checking its
// running flag.
const DefaultPollInterval = 100 * time.Millisecond

// Channel is the data connection as seen by the worker.
type Channel interface {
	io.ReadWriter
	SetDeadline(t time.Time) error
}

// Mover is the sample source. Start and Stop bracket one session; Move
// transfers at most one unit of data and may return early with a timeout
// error when the channel deadline passes.
type Mover interface {
	Start() error
	Move(ch io.ReadWriter) (int, error)
	Stop() error
}

// Stats summarizes one run of the worker.
type Stats struct {
	Bytes   uint64
	Elapsed time.Duration
	MBps    float64
}

// Worker runs a Mover against a data channel.
type Worker struct {
	mover    Mover
	poll     time.Duration
	log      logger.Logger
	recorder metrics.Recorder
}

// NewWorker creates a worker.
//
// Parameters:
//   - mover: Sample source
//   - poll: Maximum time between running flag checks; DefaultPollInterval if zero
//   - log: Logger
//   - recorder: Receives transferred byte counts; may be nil
//
// Returns:
//   - The worker
func NewWorker(mover Mover, poll time.Duration, log logger.Logger, recorder metrics.Recorder) *Worker {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	return &Worker{mover: mover, poll: poll, log: log.With(logger.Field{Key: "component", Value: "datapath"}), recorder: recorder}
}

// Run moves data until running is cleared, ctx ends or the transfer fails.
// Before each step the channel deadline is set one poll interval ahead, so a
// stalled peer cannot keep the worker from seeing the flag. Deadline expiry is
// not a failure; any other error ends the run and is returned.
//
// Parameters:
//   - ctx: Cancels the run
//   - ch: The session's data channel
//   - running: Cleared by the session manager to stop the worker
//
// Returns:
//   - Transfer statistics, and the transfer error if the run did not end
//     because it was asked to stop
func (w *Worker) Run(ctx context.Context, ch Channel, running *atomic.Bool) (Stats, error) {
	pm := perfmonitor.NewPerformanceMonitor()

	if err := w.mover.Start(); err != nil {
		return Stats{}, fmt.Errorf("start mover: %w", err)
	}
	defer func() {
		if err := w.mover.Stop(); err != nil {
			w.log.Warn("mover stop failed", logger.Field{Key: "error", Value: err})
		}
	}()

	pm.Start()

	w.log.Debug("data path started")

	for running.Load() && ctx.Err() == nil {
		if err := ch.SetDeadline(time.Now().Add(w.poll)); err != nil {
			return stats(pm), fmt.Errorf("set data channel deadline: %w", err)
		}

		n, err := w.mover.Move(ch)
		pm.Add(n)
		w.recorder.DataTransferred(n)

		if err != nil && !IsTimeout(err) {
			if !running.Load() {
				// channel torn down after the stop request
				break
			}

			return stats(pm), fmt.Errorf("data path transfer: %w", err)
		}
	}

	st := stats(pm)
	w.log.Debug("data path stopped",
		logger.Field{Key: "bytes", Value: st.Bytes},
		logger.Field{Key: "mbps", Value: st.MBps},
	)

	return st, nil
}

func stats(pm *perfmonitor.PerformanceMonitor) Stats {
	pm.Stop()
	return Stats{Bytes: pm.Bytes(), Elapsed: pm.Elapsed(), MBps: pm.MegabytesPerSecond()}
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
