// Package tcpserver accepts the two connections of a client: the data channel
// first, then the command channel.
package tcpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyberinferno/rftool/logger"
)

var (
	ErrNotRunning     = errors.New("listener not running")
	ErrAlreadyRunning = errors.New("listener already running")
)

// Pair is an accepted data and command connection.
type Pair struct {
	Data    net.Conn
	Command net.Conn
}

// Close closes both connections and returns the first error.
func (p Pair) Close() error {
	var errs []error
	if p.Command != nil {
		errs = append(errs, p.Command.Close())
	}
	if p.Data != nil {
		errs = append(errs, p.Data.Close())
	}

	return errors.Join(errs...)
}

// PairListener owns the data and command listeners. AcceptPair is meant to be
// called from one goroutine at a time.
type PairListener struct {
	Logger      logger.Logger
	Name        string
	DataAddr    string
	CommandAddr string
	Running     atomic.Bool

	mu      sync.Mutex
	data    net.Listener
	command net.Listener
}

// Start binds both listeners.
//
// Returns:
//   - ErrAlreadyRunning, or the bind error of either address
func (l *PairListener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Running.Load() {
		return fmt.Errorf("%s: %w", l.Name, ErrAlreadyRunning)
	}

	data, err := net.Listen("tcp", l.DataAddr)
	if err != nil {
		l.Logger.Error("data listener failed to start", logger.Field{Key: "error", Value: err})
		return fmt.Errorf("%s data listener failed to start: %w", l.Name, err)
	}

	command, err := net.Listen("tcp", l.CommandAddr)
	if err != nil {
		_ = data.Close()
		l.Logger.Error("command listener failed to start", logger.Field{Key: "error", Value: err})
		return fmt.Errorf("%s command listener failed to start: %w", l.Name, err)
	}

	l.data, l.command = data, command
	l.Running.Store(true)

	l.Logger.Info(fmt.Sprintf("%s listeners started", l.Name),
		logger.Field{Key: "data_addr", Value: data.Addr().String()},
		logger.Field{Key: "command_addr", Value: command.Addr().String()},
	)

	return nil
}

// Stop closes both listeners, unblocking a pending AcceptPair. Accepted pairs
// are owned by the caller and stay open.
func (l *PairListener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.Running.Swap(false) {
		return
	}

	_ = l.data.Close()
	_ = l.command.Close()
	l.Logger.Info(fmt.Sprintf("%s listeners stopped", l.Name))
}

// Addrs returns the bound data and command addresses, or nil before Start.
func (l *PairListener) Addrs() (data, command net.Addr) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.data == nil {
		return nil, nil
	}

	return l.data.Addr(), l.command.Addr()
}

// AcceptPair waits for a data connection and then a command connection. Both
// waits are unbounded unless ctx is cancelled or the listener is stopped. If
// the command accept fails, the accepted data connection is closed.
//
// Parameters:
//   - ctx: Cancels the wait
//
// Returns:
//   - The accepted pair, or ctx.Err(), ErrNotRunning or the accept error
func (l *PairListener) AcceptPair(ctx context.Context) (Pair, error) {
	l.mu.Lock()
	data, command := l.data, l.command
	l.mu.Unlock()

	if !l.Running.Load() {
		return Pair{}, ErrNotRunning
	}

	dataConn, err := l.accept(ctx, data)
	if err != nil {
		return Pair{}, err
	}
	l.Logger.Debug("accepted data connection", logger.Field{Key: "remote", Value: dataConn.RemoteAddr().String()})

	commandConn, err := l.accept(ctx, command)
	if err != nil {
		_ = dataConn.Close()
		return Pair{}, err
	}
	l.Logger.Debug("accepted command connection", logger.Field{Key: "remote", Value: commandConn.RemoteAddr().String()})

	return Pair{Data: dataConn, Command: commandConn}, nil
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

func (l *PairListener) accept(ctx context.Context, ln net.Listener) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// a previous cancellation may have left a deadline behind
	if d, ok := ln.(deadliner); ok {
		_ = d.SetDeadline(time.Time{})
		stop := context.AfterFunc(ctx, func() { _ = d.SetDeadline(time.Now()) })
		defer stop()
	}

	conn, err := ln.Accept()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !l.Running.Load() {
			return nil, ErrNotRunning
		}

		return nil, err
	}

	return conn, nil
}
