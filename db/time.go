package db

import "time"

// Timestamps are stored as RFC3339 UTC strings in both dialects so that
// lexical comparison in SQL matches chronological order.

// NowUTC formats the current instant for storage.
func NowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// FormatTime formats an instant for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
