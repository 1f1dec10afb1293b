// Package utils provides common utility functions.
package utils

// MaskKey masks an API key for safe logging (shows first 6 and last 4 chars).
// Use this to avoid logging sensitive credentials in plain text.
func MaskKey(key string) string {
	if key == "" {
		return "(empty)"
	}
	if len(key) < 14 {
		return "****"
	}
	return key[:6] + "..." + key[len(key)-4:]
}
