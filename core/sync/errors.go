package sync

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ConfigurationError marks an invalid run setup (unknown strategy, duplicate
// primary key, missing required field). The run aborts before any write.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// SourceFetchError wraps a failure to materialize the source snapshot.
// The run aborts with no side effects.
type SourceFetchError struct {
	Table string
	Err   error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("failed to fetch source table %q: %v", e.Table, e.Err)
}

func (e *SourceFetchError) Unwrap() error { return e.Err }

// ChecksumError marks a record whose fields could not be serialized into the
// canonical representation. The record is excluded from the plan with a
// warning; the run proceeds.
type ChecksumError struct {
	PrimaryKey string
	Err        error
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum failed for record %q: %v", e.PrimaryKey, e.Err)
}

func (e *ChecksumError) Unwrap() error { return e.Err }

// WriteError classifies a destination write or delete failure. Transient
// errors (timeouts, deadlocks, connection loss, quota) are retried by the
// executor; permanent errors (validation, auth) abort retry for the batch.
type WriteError struct {
	Transient bool
	Err       error
}

func (e *WriteError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("destination write error (%s): %v", kind, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable WriteError.
func Transient(err error) error { return &WriteError{Transient: true, Err: err} }

// Permanent wraps err as a non-retryable WriteError.
func Permanent(err error) error { return &WriteError{Transient: false, Err: err} }

// IsTransient reports whether a destination error is worth retrying.
// Unclassified errors are treated as permanent.
func IsTransient(err error) bool {
	var we *WriteError
	if errors.As(err, &we) {
		return we.Transient
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// PartialFailureError reports that a run completed but some batches failed
// after exhausting retries. Details live in the ExecutionReport.
type PartialFailureError struct {
	FailedDocs   int
	FailedGroups int
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("run completed with failures: %d documents across %d batches", e.FailedDocs, e.FailedGroups)
}
