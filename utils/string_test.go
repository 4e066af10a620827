package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadStringFromBytes(t *testing.T) {
	t.Run("stops at null byte", func(t *testing.T) {
		buf := []byte("GetVersion\x00stale")
		assert.Equal(t, "GetVersion", ReadStringFromBytes(buf))
	})

	t.Run("no null returns full buffer", func(t *testing.T) {
		buf := []byte("hello")
		assert.Equal(t, "hello", ReadStringFromBytes(buf))
	})

	t.Run("zeroed buffer returns empty", func(t *testing.T) {
		assert.Equal(t, "", ReadStringFromBytes(make([]byte, 16)))
	})

	t.Run("empty buffer returns empty", func(t *testing.T) {
		assert.Equal(t, "", ReadStringFromBytes(nil))
		assert.Equal(t, "", ReadStringFromBytes([]byte{}))
	})
}

func TestTrimLineEnding(t *testing.T) {
	tests := map[string]string{
		"GetVersion\r\n": "GetVersion",
		"GetVersion\n":   "GetVersion",
		"GetVersion":     "GetVersion",
		"\r\n":           "",
		"a b \n":         "a b ",
	}

	for in, want := range tests {
		assert.Equal(t, want, TrimLineEnding(in), "input %q", in)
	}
}
