package overrides

import (
	"errors"
	"fmt"

	"overdesk/internal/schedule"
)

// ErrEntryNotFound reports that the named entry is absent from the container.
var ErrEntryNotFound = errors.New("entry not found in container")

// errEntryMissingFromResponse reports a replace response that omits the entry
// that was just written.
var errEntryMissingFromResponse = errors.New("updated entry missing from vendor response")

// ValidationError carries the full list of business-rule violations for an
// attempted update so the operator can fix everything in one round trip.
type ValidationError struct {
	Result schedule.Result
}

func (e *ValidationError) Error() string {
	if len(e.Result.Errors) == 1 {
		return fmt.Sprintf("validation failed: %s", e.Result.Errors[0].Message)
	}
	return fmt.Sprintf("validation failed with %d errors", len(e.Result.Errors))
}

// UpstreamOp distinguishes which side of the vendor exchange failed.
type UpstreamOp string

const (
	OpRead  UpstreamOp = "read"
	OpWrite UpstreamOp = "write"
)

// UpstreamError wraps a vendor API transport failure or non-2xx response.
type UpstreamError struct {
	Op  UpstreamOp
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("vendor %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
