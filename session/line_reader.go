package session

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"github.com/cyberinferno/rftool/status"
)

// lineReader reads newline-terminated commands of at most
// status.MaxLineLength-1 bytes. A terminating "\r\n" does not count against
// the bound.
type lineReader struct {
	br *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{br: bufio.NewReaderSize(r, status.MaxLineLength+1)}
}

// readLine copies the next line into dst without its terminator. dst must
// hold MaxLineLength bytes. A line that does not fit is consumed up to its
// newline but not copied, and oversized is set. A final line without a
// newline is treated as lost together with the connection.
func (l *lineReader) readLine(dst []byte) (n int, oversized bool, err error) {
	line, err := l.br.ReadSlice('\n')
	if err == nil {
		line = bytes.TrimSuffix(line[:len(line)-1], []byte{'\r'})
		if len(line) >= status.MaxLineLength || len(line) >= len(dst) {
			return 0, true, nil
		}

		return copy(dst, line), false, nil
	}

	if !errors.Is(err, bufio.ErrBufferFull) {
		return 0, false, err
	}

	for errors.Is(err, bufio.ErrBufferFull) {
		_, err = l.br.ReadSlice('\n')
	}
	if err != nil {
		return 0, true, err
	}

	return 0, true, nil
}
