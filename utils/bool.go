package utils

// BoolToDigit converts a boolean to the "1"/"0" form used in command
// responses.
//
// Parameters:
//   - value: The boolean to convert
//
// Returns:
//   - "1" if value is true, "0" if value is false
func BoolToDigit(value bool) string {
	if value {
		return "1"
	}

	return "0"
}
