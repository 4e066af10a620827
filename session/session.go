// Package session runs the service loop: accept one client's data and command
// connections, serve its commands while the data path worker streams, tear the
// session down and accept the next client. Sessions are strictly serial.
package session

import (
	"sync/atomic"
	"time"

	"github.com/cyberinferno/rftool/logger"
	"github.com/cyberinferno/rftool/tcpserver"
)

// State of the session manager.
type State int32

const (
	Idle State = iota
	Accepting
	Active
	TearingDown
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Accepting:
		return "accepting"
	case Active:
		return "active"
	case TearingDown:
		return "tearing_down"
	default:
		return "unknown"
	}
}

// EndReason is why a session ended.
type EndReason int

const (
	// Disconnect: the client asked to disconnect and received the sentinel.
	Disconnect EndReason = iota
	// ConnectionLost: the command channel closed, failed or went idle too long.
	ConnectionLost
	// WorkerFailed: the data path could not continue.
	WorkerFailed
	// Shutdown: the process is stopping.
	Shutdown
)

// String returns the reason as used in logs and metric labels.
func (r EndReason) String() string {
	switch r {
	case Disconnect:
		return "disconnect"
	case ConnectionLost:
		return "connection_lost"
	case WorkerFailed:
		return "worker_failed"
	case Shutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Session is the context of one client: its connections, the worker's
// running flag and the receive and transmit buffers. The buffers are owned by
// the Manager and reused by every session.
type Session struct {
	ID      uint32
	Remote  string
	pair    tcpserver.Pair
	running atomic.Bool
	rx      []byte
	tx      []byte
	started time.Time
	log     logger.Logger

	commands int
}

// Running reports whether the data path worker is allowed to run.
func (s *Session) Running() bool {
	return s.running.Load()
}

// Summary describes a finished session.
type Summary struct {
	ID        uint32
	Remote    string
	Reason    EndReason
	Commands  int
	Duration  time.Duration
	DataBytes uint64
	// Err is the data path error when Reason is WorkerFailed.
	Err error
}
