package core

import "time"

// ThrottleState is the persisted form of the shared request budget.
type ThrottleState struct {
	RequestCount int
	WindowStart  time.Time
	Backoffs     []BackoffEntry
}

// BackoffEntry records a server imposed cool-down for one backoff key.
type BackoffEntry struct {
	Key       string    `json:"key"`
	NotBefore time.Time `json:"not_before"`
}
