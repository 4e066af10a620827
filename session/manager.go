package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cyberinferno/rftool/command"
	"github.com/cyberinferno/rftool/datapath"
	"github.com/cyberinferno/rftool/idgenerator"
	"github.com/cyberinferno/rftool/logger"
	"github.com/cyberinferno/rftool/metrics"
	"github.com/cyberinferno/rftool/status"
	"github.com/cyberinferno/rftool/tcpserver"
	"github.com/cyberinferno/rftool/utils"
)

// acceptRetryDelay spaces retries after a transient accept failure.
const acceptRetryDelay = 100 * time.Millisecond

var errWorkerFailed = errors.New("data path worker failed")

// Acceptor yields connection pairs, data first.
type Acceptor interface {
	AcceptPair(ctx context.Context) (tcpserver.Pair, error)
}

// Processor answers one command line.
type Processor interface {
	Process(ctx context.Context, line string) command.Response
}

// Worker streams data while running is set.
type Worker interface {
	Run(ctx context.Context, ch datapath.Channel, running *atomic.Bool) (datapath.Stats, error)
}

// Config configures a Manager. Acceptor, Processor and Worker are required.
type Config struct {
	Acceptor  Acceptor
	Processor Processor
	Worker    Worker
	Logger    logger.Logger
	Recorder  metrics.Recorder

	// IdleTimeout ends a session whose client sends nothing for this long.
	// Zero waits indefinitely.
	IdleTimeout time.Duration

	// OnSessionEnd is called after teardown completes, before the next
	// accept.
	OnSessionEnd func(Summary)
}

// Manager runs sessions one after another.
type Manager struct {
	cfg    Config
	log    logger.Logger
	ids    *idgenerator.IdGenerator
	state  atomic.Int32
	active atomic.Int32

	rx [status.MaxLineLength]byte
	tx [status.MaxLineLength]byte
}

// NewManager validates cfg and returns an idle manager.
//
// Parameters:
//   - cfg: Collaborators and session policy
//
// Returns:
//   - The manager, or an error when a required collaborator is missing
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Acceptor == nil || cfg.Processor == nil || cfg.Worker == nil {
		return nil, errors.New("session manager requires an acceptor, a processor and a worker")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.Nop{}
	}

	return &Manager{
		cfg: cfg,
		log: cfg.Logger.With(logger.Field{Key: "component", Value: "session"}),
		ids: idgenerator.NewIdGenerator(0),
	}, nil
}

// State returns the current state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// ActiveSessions returns the number of sessions between accept and the end of
// teardown. It is never more than one.
func (m *Manager) ActiveSessions() int {
	return int(m.active.Load())
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
}

// Serve accepts and runs sessions until ctx is cancelled or the acceptor
// stops. Transient accept errors are logged and retried.
//
// Parameters:
//   - ctx: Cancelling it ends the current session with Shutdown and returns
//
// Returns:
//   - nil on shutdown, or the error that made accepting impossible
func (m *Manager) Serve(ctx context.Context) error {
	for {
		s, err := m.acceptSession(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, tcpserver.ErrNotRunning) {
				return err
			}

			m.log.Warn("accept failed", logger.Field{Key: "error", Value: err.Error()})
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(acceptRetryDelay):
			}
			continue
		}

		m.runSession(ctx, s)
	}
}

// acceptSession waits for the next client. Both buffers are zeroed before the
// session can use them.
func (m *Manager) acceptSession(ctx context.Context) (*Session, error) {
	m.setState(Accepting)

	pair, err := m.cfg.Acceptor.AcceptPair(ctx)
	if err != nil {
		m.setState(Idle)
		return nil, err
	}

	m.clearBuffers()

	s := &Session{
		ID:      m.ids.Id(),
		pair:    pair,
		Remote:  remote(pair),
		rx:      m.rx[:],
		tx:      m.tx[:],
		started: time.Now(),
	}
	s.log = m.log.With(
		logger.Field{Key: "session_id", Value: s.ID},
		logger.Field{Key: "remote", Value: s.Remote},
	)

	return s, nil
}

// runSession serves s until it ends and tears it down. The worker is joined
// before either connection is closed.
func (m *Manager) runSession(ctx context.Context, s *Session) EndReason {
	m.active.Add(1)
	m.setState(Active)
	m.cfg.Recorder.SessionStarted()
	s.log.Info("session started")

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(sessionCtx)

	var stats datapath.Stats
	s.running.Store(true)
	g.Go(func() error {
		st, err := m.cfg.Worker.Run(gctx, s.pair.Data, &s.running)
		stats = st
		if err != nil {
			return fmt.Errorf("%w: %w", errWorkerFailed, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// unblocks a pending command read or response write
		_ = s.pair.Command.SetDeadline(time.Now())
		return nil
	})

	reason := m.commandLoop(ctx, gctx, s)

	m.setState(TearingDown)
	s.running.Store(false)
	cancel()
	workerErr := g.Wait()

	if err := s.pair.Close(); err != nil {
		s.log.Debug("closing connections", logger.Field{Key: "error", Value: err.Error()})
	}
	m.clearBuffers()

	summary := Summary{
		ID:        s.ID,
		Remote:    s.Remote,
		Reason:    reason,
		Commands:  s.commands,
		Duration:  time.Since(s.started),
		DataBytes: stats.Bytes,
	}
	if reason == WorkerFailed {
		summary.Err = workerErr
	}

	m.setState(Idle)
	m.active.Add(-1)

	fields := []logger.Field{
		{Key: "reason", Value: reason.String()},
		{Key: "commands", Value: summary.Commands},
		{Key: "data_bytes", Value: summary.DataBytes},
		{Key: "duration_ms", Value: summary.Duration.Milliseconds()},
	}
	if workerErr != nil {
		fields = append(fields, logger.Field{Key: "error", Value: workerErr.Error()})
		s.log.Warn("session ended", fields...)
	} else {
		s.log.Info("session ended", fields...)
	}

	m.cfg.Recorder.SessionEnded(reason.String(), summary.Duration)
	if m.cfg.OnSessionEnd != nil {
		m.cfg.OnSessionEnd(summary)
	}

	return reason
}

// commandLoop reads and answers lines until the session ends. ctx is the
// process context and gctx the session group context, which ends early when
// the worker fails.
func (m *Manager) commandLoop(ctx, gctx context.Context, s *Session) EndReason {
	reader := newLineReader(s.pair.Command)

	for {
		if m.cfg.IdleTimeout > 0 {
			_ = s.pair.Command.SetReadDeadline(time.Now().Add(m.cfg.IdleTimeout))
		}
		if gctx.Err() != nil {
			return m.abortReason(ctx)
		}

		n, oversized, err := reader.readLine(s.rx)
		if err != nil {
			if gctx.Err() != nil {
				return m.abortReason(ctx)
			}
			if datapath.IsTimeout(err) {
				s.log.Info("idle timeout")
			} else {
				s.log.Debug("command channel closed", logger.Field{Key: "error", Value: err.Error()})
			}
			return ConnectionLost
		}

		s.commands++

		var resp command.Response
		if oversized {
			resp = command.Response{Status: status.CommandUndefined}
			m.cfg.Recorder.CommandProcessed("", status.CommandUndefined)
			s.log.Debug("discarded oversized line")
		} else {
			resp = m.cfg.Processor.Process(gctx, utils.ReadStringFromBytes(s.rx[:n]))
		}

		if err := m.respond(s, resp); err != nil {
			if gctx.Err() != nil {
				return m.abortReason(ctx)
			}
			s.log.Debug("response write failed", logger.Field{Key: "error", Value: err.Error()})
			return ConnectionLost
		}

		if resp.Status == status.Success && resp.Disconnect() {
			return Disconnect
		}

		clear(s.rx)
		clear(s.tx)
	}
}

// respond formats resp into tx and writes it with a trailing newline.
func (m *Manager) respond(s *Session, resp command.Response) error {
	var n int
	if resp.Status == status.Success {
		n = utils.CopyBounded(s.tx, []byte(resp.Text))
		if n < len(resp.Text) {
			s.log.Debug("response truncated",
				logger.Field{Key: "command", Value: resp.Command},
				logger.Field{Key: "length", Value: len(resp.Text)},
			)
		}
	} else {
		n = status.Report(s.tx, resp.Status)
	}
	s.tx[n] = '\n'

	_, err := s.pair.Command.Write(s.tx[:n+1])
	return err
}

func (m *Manager) abortReason(ctx context.Context) EndReason {
	if ctx.Err() != nil {
		return Shutdown
	}

	return WorkerFailed
}

func (m *Manager) clearBuffers() {
	clear(m.rx[:])
	clear(m.tx[:])
}

func remote(p tcpserver.Pair) string {
	if p.Command == nil {
		return ""
	}

	return p.Command.RemoteAddr().String()
}
