// Package rfclient is a client for the two-channel rftool protocol. It opens
// the data connection and then the command connection, sends command lines
// and reads one response line per command, and hands data channel bytes to a
// registered handler as they arrive.
package rfclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cyberinferno/rftool/status"
)

// ConnectionState represents the state of the client's connection pair.
type ConnectionState int

const (
	Disconnected ConnectionState = iota // Not connected
	Connecting                          // Dialing the data and command channels
	Connected                           // Both channels open
	Closed                              // Client closed; it cannot reconnect
)

// String returns a human-readable name for the connection state.
func (cs ConnectionState) String() string {
	switch cs {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

var (
	ErrNotConnected       = errors.New("not connected")
	ErrClosed             = errors.New("client is closed")
	ErrAlreadyConnected   = errors.New("already connected or connecting")
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// ConnectionStateEvent is emitted when the connection state changes.
type ConnectionStateEvent struct {
	State     ConnectionState // The new connection state
	Address   string          // The command channel address
	Timestamp time.Time       // When the state change occurred
	Error     error           // Non-nil if the change was caused by an error
}

// DataReceivedEvent carries bytes read from the data channel.
type DataReceivedEvent struct {
	Data      []byte    // The received bytes; owned by the handler
	Length    int       // Same as len(Data)
	Timestamp time.Time // When the data was received
}

// ErrorEvent is emitted when a data channel read fails unexpectedly.
type ErrorEvent struct {
	Error     error
	Timestamp time.Time
}

// ConnectionStateHandler is called from its own goroutine on state changes.
type ConnectionStateHandler func(event ConnectionStateEvent)

// DataReceivedHandler is called from the data read goroutine, in order. It
// should return quickly; the next read waits for it.
type DataReceivedHandler func(event DataReceivedEvent)

// ErrorHandler is called from its own goroutine on data channel errors.
type ErrorHandler func(event ErrorEvent)

// Config holds the client settings.
type Config struct {
	// DataAddress is the "host:port" of the data channel.
	DataAddress string
	// CommandAddress is the "host:port" of the command channel.
	CommandAddress string
	// ReadBufferSize is the size of each data channel read.
	ReadBufferSize int
	// WriteTimeout bounds a command write; 0 means no timeout.
	WriteTimeout time.Duration
	// ResponseTimeout bounds the wait for a response line; 0 means no timeout.
	ResponseTimeout time.Duration
	// ConnectionTimeout bounds each dial.
	ConnectionTimeout time.Duration
}

// Default ports of the service.
const (
	DefaultCommandPort = 8081
	DefaultDataPort    = 8082
)

// DefaultConfig returns a Config for the service on host using the default
// ports.
//
// Parameters:
//   - host: Host name or IP address of the board
//
// Returns:
//   - A Config with ReadBufferSize 64 KiB, WriteTimeout 10s,
//     ResponseTimeout 10s and ConnectionTimeout 10s
func DefaultConfig(host string) Config {
	return Config{
		DataAddress:       net.JoinHostPort(host, fmt.Sprint(DefaultDataPort)),
		CommandAddress:    net.JoinHostPort(host, fmt.Sprint(DefaultCommandPort)),
		ReadBufferSize:    64 * 1024,
		WriteTimeout:      10 * time.Second,
		ResponseTimeout:   10 * time.Second,
		ConnectionTimeout: 10 * time.Second,
	}
}

// Client is a connection to one rftool server. It is safe for concurrent use;
// commands are serialized so each caller gets its own response.
type Client struct {
	config Config
	data   net.Conn
	cmd    net.Conn
	lines  *bufio.Reader
	state  ConnectionState

	onConnectionState ConnectionStateHandler
	onDataReceived    DataReceivedHandler
	onError           ErrorHandler

	mu     sync.RWMutex
	sendMu sync.Mutex
	wg     sync.WaitGroup
	closed bool
	// leaving is set while Disconnect waits for the server to close
	leaving bool
}

// New creates a disconnected client.
func New(config Config) *Client {
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = 64 * 1024
	}

	return &Client{config: config, state: Disconnected}
}

// Dial creates a client and connects it.
//
// Parameters:
//   - ctx: Bounds both dials
//   - config: Client settings
//
// Returns:
//   - The connected client, or the dial error
func Dial(ctx context.Context, config Config) (*Client, error) {
	c := New(config)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

// OnConnectionState registers the handler for state changes. Pass nil to
// clear it.
func (c *Client) OnConnectionState(handler ConnectionStateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnectionState = handler
}

// OnDataReceived registers the handler for data channel bytes. Register it
// before Connect to see the first bytes. Pass nil to discard data.
func (c *Client) OnDataReceived(handler DataReceivedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDataReceived = handler
}

// OnError registers the handler for data channel errors. Pass nil to clear it.
func (c *Client) OnError(handler ErrorHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = handler
}

// Connect dials the data channel and then the command channel, the order in
// which the server accepts them, and starts reading the data channel.
//
// Returns:
//   - ErrClosed, ErrAlreadyConnected, or the dial error
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == Connected || c.state == Connecting {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	c.setState(Connecting, nil)

	dialer := net.Dialer{Timeout: c.config.ConnectionTimeout}
	data, err := dialer.DialContext(ctx, "tcp", c.config.DataAddress)
	if err != nil {
		c.setState(Disconnected, err)
		return fmt.Errorf("dial data channel: %w", err)
	}

	cmd, err := dialer.DialContext(ctx, "tcp", c.config.CommandAddress)
	if err != nil {
		_ = data.Close()
		c.setState(Disconnected, err)
		return fmt.Errorf("dial command channel: %w", err)
	}

	c.mu.Lock()
	c.data, c.cmd = data, cmd
	c.leaving = false
	c.lines = bufio.NewReaderSize(cmd, status.MaxLineLength)
	c.mu.Unlock()

	c.setState(Connected, nil)

	c.wg.Add(1)
	go c.readLoop(data)

	return nil
}

// Send writes one command line and returns the response line without its
// terminator. Error responses are returned as text; only transport failures
// are errors.
//
// Parameters:
//   - command: The command line, without a newline
//
// Returns:
//   - The response, or ErrNotConnected or the transport error
func (c *Client) Send(command string) (string, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.RLock()
	conn, lines, state := c.cmd, c.lines, c.state
	c.mu.RUnlock()

	if state != Connected || conn == nil {
		return "", ErrNotConnected
	}

	if len(command) > status.MaxLineLength-1 {
		return "", fmt.Errorf("command longer than %d bytes", status.MaxLineLength-1)
	}

	if c.config.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
			return "", err
		}
	}
	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return "", fmt.Errorf("send command: %w", err)
	}

	deadline := time.Time{}
	if c.config.ResponseTimeout > 0 {
		deadline = time.Now().Add(c.config.ResponseTimeout)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return "", err
	}

	resp, err := lines.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	return strings.TrimRight(resp, "\r\n"), nil
}

// Disconnect ends the session gracefully: it sends Disconnect, expects the
// sentinel and closes both channels. The client may Connect again.
//
// Returns:
//   - nil, ErrUnexpectedResponse if the server did not answer with the
//     sentinel, or the transport error
func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.leaving = true
	c.mu.Unlock()

	resp, err := c.Send("Disconnect")
	closeErr := c.closeConns()
	c.wg.Wait()
	c.setState(Disconnected, err)

	if err != nil {
		return err
	}
	if resp != status.DisconnectSentinel {
		return fmt.Errorf("%w: %q", ErrUnexpectedResponse, resp)
	}

	return closeErr
}

// Close closes both channels without the disconnect handshake and waits for
// the read goroutine. It is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	_ = c.closeConns()
	c.wg.Wait()
	c.setState(Closed, nil)

	return nil
}

// GetState returns the current connection state.
func (c *Client) GetState() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected returns true if the client is in Connected state.
func (c *Client) IsConnected() bool {
	return c.GetState() == Connected
}

func (c *Client) closeConns() error {
	c.mu.Lock()
	data, cmd := c.data, c.cmd
	c.data, c.cmd, c.lines = nil, nil, nil
	c.mu.Unlock()

	var errs []error
	if cmd != nil {
		errs = append(errs, cmd.Close())
	}
	if data != nil {
		errs = append(errs, data.Close())
	}

	return errors.Join(errs...)
}

// readLoop delivers data channel bytes until conn fails or is closed by the
// client.
func (c *Client) readLoop(conn net.Conn) {
	defer c.wg.Done()

	buffer := make([]byte, c.config.ReadBufferSize)
	for {
		n, err := conn.Read(buffer)
		if n > 0 {
			c.emitDataReceived(buffer[:n])
		}

		if err != nil {
			if c.ownsData(conn) {
				c.emitError(err)
				_ = c.closeConns()
				c.setState(Disconnected, err)
			}
			return
		}
	}
}

// ownsData reports whether conn is still the client's open data channel.
func (c *Client) ownsData(conn net.Conn) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data == conn && !c.closed && !c.leaving
}

func (c *Client) setState(state ConnectionState, err error) {
	c.mu.Lock()
	c.state = state
	handler := c.onConnectionState
	c.mu.Unlock()

	if handler != nil {
		event := ConnectionStateEvent{
			State:     state,
			Address:   c.config.CommandAddress,
			Timestamp: time.Now(),
			Error:     err,
		}

		go handler(event)
	}
}

func (c *Client) emitDataReceived(data []byte) {
	c.mu.RLock()
	handler := c.onDataReceived
	c.mu.RUnlock()

	if handler != nil {
		chunk := make([]byte, len(data))
		copy(chunk, data)
		handler(DataReceivedEvent{Data: chunk, Length: len(chunk), Timestamp: time.Now()})
	}
}

func (c *Client) emitError(err error) {
	c.mu.RLock()
	handler := c.onError
	c.mu.RUnlock()

	if handler != nil {
		go handler(ErrorEvent{Error: err, Timestamp: time.Now()})
	}
}
