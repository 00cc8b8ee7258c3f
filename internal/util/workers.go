package util

import "fmt"

// WorkerID builds the canonical identifier for the nth worker of a kind.
// Producers are named "producer-1", "producer-2", ... and consumers
// "consumer-1", "consumer-2", ... so log lines and errors sort naturally.
func WorkerID(kind string, n int) string {
	return fmt.Sprintf("%s-%d", kind, n)
}

// TruncateString shortens s to at most max bytes, replacing the tail with
// "..." when it was cut. Values of max below 4 return s unchanged.
func TruncateString(s string, max int) string {
	if max < 4 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
