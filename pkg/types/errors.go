// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure categories the pipeline reports.
type ErrorKind string

const (
	// KindSourceUnavailable is recoverable and scoped to one source.
	KindSourceUnavailable ErrorKind = "source_unavailable"

	// KindMalformedRecord is recoverable and scoped to one record.
	KindMalformedRecord ErrorKind = "malformed_record"

	// KindNoRelevantData ends a run without a report.
	KindNoRelevantData ErrorKind = "no_relevant_data"

	// KindSummarizerRateLimited trips the summarizer breaker for the
	// remainder of the process.
	KindSummarizerRateLimited ErrorKind = "summarizer_rate_limited"

	// KindConfigurationError is fatal at startup.
	KindConfigurationError ErrorKind = "configuration_error"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrSourceUnavailable     = &Error{Kind: KindSourceUnavailable}
	ErrMalformedRecord       = &Error{Kind: KindMalformedRecord}
	ErrNoRelevantData        = &Error{Kind: KindNoRelevantData}
	ErrSummarizerRateLimited = &Error{Kind: KindSummarizerRateLimited}
	ErrConfiguration         = &Error{Kind: KindConfigurationError}
)

// Error is a categorized pipeline error. Source and Op are optional context.
type Error struct {
	Kind   ErrorKind
	Source SourceID
	Op     string
	Err    error
}

// Error formats the error as "kind: source: op: cause", omitting empty parts.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Source != "" {
		msg += ": " + string(e.Source)
	}
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind, so callers can test against
// the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// SourceUnavailable wraps err as a per-source failure.
func SourceUnavailable(source SourceID, op string, err error) error {
	return &Error{Kind: KindSourceUnavailable, Source: source, Op: op, Err: err}
}

// MalformedRecord reports a record that could not be normalized.
func MalformedRecord(source SourceID, format string, args ...any) error {
	return &Error{Kind: KindMalformedRecord, Source: source, Err: fmt.Errorf(format, args...)}
}

// RateLimited wraps a summarizer error that carried a rate-limit signal.
func RateLimited(op string, err error) error {
	return &Error{Kind: KindSummarizerRateLimited, Op: op, Err: err}
}

// ConfigError reports a missing or invalid setting.
func ConfigError(format string, args ...any) error {
	return &Error{Kind: KindConfigurationError, Err: fmt.Errorf(format, args...)}
}
