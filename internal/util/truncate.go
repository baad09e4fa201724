package util

import "fmt"

// DefaultBodyMaxLen caps how much of a remote response body is carried into
// error text and logs. The full payload is available on disk when raw
// payload archiving is enabled.
const DefaultBodyMaxLen = 1024

// TruncateLog shortens long strings for error text and logging.
func TruncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}

// TruncateBytes is a convenience wrapper for TruncateLog using
// DefaultBodyMaxLen.
func TruncateBytes(b []byte) string {
	return TruncateLog(string(b), DefaultBodyMaxLen)
}
