package publish

import (
	"fmt"
	"time"
)

// TransientError marks a failure worth retrying (rate limits, server
// errors, network hiccups). RetryAfter carries the server-requested
// wait when one was given, zero otherwise.
type TransientError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient publish failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError marks a failure retrying cannot fix (bad credentials,
// rejected content, malformed request).
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent publish failure: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}
