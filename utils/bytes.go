package utils

// CopyBounded copies src into dst but never more than len(dst)-1 bytes, so a
// terminator can always follow the copied content.
//
// Parameters:
//   - dst: Destination buffer
//   - src: Bytes to copy
//
// Returns:
//   - The number of bytes copied
func CopyBounded(dst []byte, src []byte) int {
	if len(dst) == 0 {
		return 0
	}

	return copy(dst[:len(dst)-1], src)
}

// AllZero reports whether every byte of b is zero.
//
// Parameters:
//   - b: The buffer to check
//
// Returns:
//   - true if b is empty or contains only zero bytes
func AllZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}

	return true
}
