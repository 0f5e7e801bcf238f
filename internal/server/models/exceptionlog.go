package models

import "time"

// ExceptionLog is an audit row written by the surrounding boundary on
// unhandled failures. Retention is capped; the oldest rows are evicted first.
type ExceptionLog struct {
	ID         int64
	Timestamp  time.Time
	Message    string
	FileName   string
	LineNumber int
	StatusCode int
}
