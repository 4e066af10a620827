package status

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessage(t *testing.T) {
	t.Run("success has no message", func(t *testing.T) {
		assert.Empty(t, Message(Success))
	})

	t.Run("error codes have distinct non-empty messages", func(t *testing.T) {
		seen := make(map[string]bool)
		for _, code := range []Code{CommandUndefined, ArgumentCountError, ExecutionError} {
			msg := Message(code)
			assert.NotEmpty(t, msg)
			assert.True(t, strings.HasPrefix(msg, "ERROR: "), msg)
			assert.False(t, seen[msg], "duplicate message %q", msg)
			seen[msg] = true
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		assert.Equal(t, unknownMessage, Message(Code(42)))
	})

	t.Run("messages fit a line", func(t *testing.T) {
		for code := Success; code <= ExecutionError; code++ {
			assert.Less(t, len(Message(code)), MaxLineLength)
		}
	})
}

func TestReport(t *testing.T) {
	t.Run("writes full message into large buffer", func(t *testing.T) {
		buf := make([]byte, MaxLineLength)
		n := Report(buf, CommandUndefined)
		assert.Equal(t, Message(CommandUndefined), string(buf[:n]))
		assert.Equal(t, byte(0), buf[n])
	})

	t.Run("truncates and leaves room for terminator", func(t *testing.T) {
		buf := make([]byte, 8)
		n := Report(buf, ExecutionError)
		assert.Equal(t, 7, n)
		assert.Equal(t, "ERROR: ", string(buf[:n]))
		assert.Equal(t, byte(0), buf[7])
	})

	t.Run("empty buffer", func(t *testing.T) {
		assert.Equal(t, 0, Report(nil, ArgumentCountError))
		assert.Equal(t, 0, Report([]byte{}, ArgumentCountError))
	})

	t.Run("success writes nothing", func(t *testing.T) {
		buf := make([]byte, 16)
		assert.Equal(t, 0, Report(buf, Success))
	})
}

func TestCodeString(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{Success, "success"},
		{CommandUndefined, "command_undefined"},
		{ArgumentCountError, "argument_count_error"},
		{ExecutionError, "execution_error"},
		{Code(-1), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.String())
		})
	}
}
