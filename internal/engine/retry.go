package engine

import (
	"context"
	"strings"
	"time"
)

// backoffSchedule is the bounded exponential backoff applied to
// StorageTransient failures: 50ms, 200ms, 1s, matching three retry
// attempts before the failure is surfaced as StorageFatal.
var backoffSchedule = []time.Duration{50 * time.Millisecond, 200 * time.Millisecond, 1 * time.Second}

// isTransient classifies a storage error as a transient connectivity or
// lock conflict (SQLite's "database is locked"/"busy" errors) versus a
// fatal schema violation or corrupted row.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "locked") || strings.Contains(msg, "busy") || strings.Contains(msg, "connection")
}

// withRetry runs fn, retrying up to len(backoffSchedule) additional times
// when fn's error is transient, sleeping the configured backoff between
// attempts. A non-transient error returns immediately. Exhausting retries
// returns the last error, which the caller wraps as StorageFatal.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !isTransient(err) || attempt >= len(backoffSchedule) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffSchedule[attempt]):
		}
	}
}
