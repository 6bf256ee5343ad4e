package broadcast

import "errors"

// ValidationError reports a missing required authoring field. It is
// rejected before any write and fully recoverable by correcting the input.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "missing required field: " + e.Field
}

// ErrStaleResolution is returned when an in-flight resolution completes
// after the viewer has tuned to a different channel; the result is
// discarded rather than applied.
var ErrStaleResolution = errors.New("resolution superseded by channel change")
