// Package utils provides helpers for the fixed-size, NUL-padded byte buffers
// the command channel reads into and formats responses from.
package utils

import (
	"bytes"
	"strings"
)

// ReadStringFromBytes interprets the byte slice as a null-terminated string.
// It returns the string up to the first null byte (0x00), or the entire buffer
// if no null byte is present.
//
// Parameters:
//   - buffer: The byte slice to read from (e.g. a session receive buffer)
//
// Returns:
//   - The string content before the first null byte, or the whole buffer as a string
func ReadStringFromBytes(buffer []byte) string {
	nullIndex := bytes.IndexByte(buffer, 0)
	if nullIndex == -1 {
		return string(buffer)
	}

	return string(buffer[:nullIndex])
}

// TrimLineEnding removes any trailing carriage returns and line feeds.
//
// Parameters:
//   - line: A line as read from the wire
//
// Returns:
//   - line without its terminator
func TrimLineEnding(line string) string {
	return strings.TrimRight(line, "\r\n")
}
