// Package status defines the per-command result codes of the command channel
// and the fixed error messages reported to clients for them.
package status

const (
	// MaxLineLength is the size of the session receive and transmit buffers.
	// A command line may hold at most MaxLineLength-1 bytes.
	MaxLineLength = 512

	// DisconnectSentinel is the response text that asks the session manager to
	// tear the current session down after it has been sent to the client.
	DisconnectSentinel = "disconnect"
)

// Code is the result of processing one command line.
type Code int

const (
	Success Code = iota
	CommandUndefined
	ArgumentCountError
	ExecutionError
)

var messages = map[Code]string{
	Success:            "",
	CommandUndefined:   "ERROR: command undefined",
	ArgumentCountError: "ERROR: incorrect number of arguments",
	ExecutionError:     "ERROR: command execution failed",
}

const unknownMessage = "ERROR: unknown status"

// String returns the name of the code as used in logs and metric labels.
func (c Code) String() string {
	switch c {
	case Success:
		return "success"
	case CommandUndefined:
		return "command_undefined"
	case ArgumentCountError:
		return "argument_count_error"
	case ExecutionError:
		return "execution_error"
	default:
		return "unknown"
	}
}

// Message returns the fixed human-readable text for code. Success maps to the
// empty string.
//
// Parameters:
//   - code: The status to describe
//
// Returns:
//   - The error message sent to clients for code
func Message(code Code) string {
	if msg, ok := messages[code]; ok {
		return msg
	}

	return unknownMessage
}

// Report writes the message for code into dst and returns the number of bytes
// written. At most len(dst)-1 bytes are written so the caller always has room
// for a line terminator; a zero-length dst receives nothing.
//
// Parameters:
//   - dst: Caller-owned response buffer
//   - code: The status to report
//
// Returns:
//   - The number of message bytes written into dst
func Report(dst []byte, code Code) int {
	if len(dst) == 0 {
		return 0
	}

	return copy(dst[:len(dst)-1], Message(code))
}
