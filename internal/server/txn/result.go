// Package txn provides the transactional execution pipeline used by every
// state-changing operation on the server: an ordered chain of validation,
// pre-execution hooks and a commit stage with bounded retries and automatic
// rollback. A chain short-circuits on the first failure, so a failed
// validation can never reach the commit stage and a rolled-back transaction
// can never report success.
package txn

import "errors"

// Result is the outcome of one pipeline run. It is either successful with a
// message or failed with a message and an optional underlying cause, never
// both. Results are transient values and are not persisted.
type Result struct {
	ok      bool
	message string
	cause   error
}

// Successful builds a passing result.
func Successful(message string) *Result {
	return &Result{ok: true, message: message}
}

// Failed builds a failing result with the underlying cause attached for
// diagnostics. cause may be nil when there is nothing beyond the message.
func Failed(message string, cause error) *Result {
	return &Result{message: message, cause: cause}
}

// Successful reports whether the pipeline completed without failure.
func (r *Result) Successful() bool { return r.ok }

// Message returns the human-readable outcome message.
func (r *Result) Message() string { return r.message }

// Err returns the failure cause. For failed results without an explicit
// cause it synthesizes one from the message; for successful results it is nil.
func (r *Result) Err() error {
	if r.ok {
		return nil
	}
	if r.cause != nil {
		return r.cause
	}
	return errors.New(r.message)
}
