package util

// Truncate caps a string at n bytes.
func Truncate(s string, n int) string {
	if n >= 0 && len(s) > n {
		return s[:n]
	}
	return s
}
