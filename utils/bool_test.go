package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoolToDigit(t *testing.T) {
	t.Run("true returns 1", func(t *testing.T) {
		assert.Equal(t, "1", BoolToDigit(true))
	})

	t.Run("false returns 0", func(t *testing.T) {
		assert.Equal(t, "0", BoolToDigit(false))
	})
}
