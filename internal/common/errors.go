// Package common defines shared constants and sentinel errors used across
// the catalog engine. Callers should use errors.Is / errors.As to match
// these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict signals an optimistic-concurrency failure: the row
	// was modified between read and write. Narrow paths may retry; everyone
	// else surfaces it to the caller.
	ErrVersionConflict = errors.New("version conflict")

	// ErrConcurrencyExhausted is returned when a bounded retry loop ran out
	// of attempts without a clean commit.
	ErrConcurrencyExhausted = errors.New("concurrency retries exhausted")

	// Import preconditions.
	ErrInactiveSource      = errors.New("repository or repository source is inactive")
	ErrUnknownArchitecture = errors.New("unknown architecture")

	// ErrIllegalState marks a programming or precondition violation, such as
	// querying a bulk localization resolver for a version outside its
	// pre-loaded set.
	ErrIllegalState = errors.New("illegal state")
)

// BadIconError reports an icon payload that failed format or size
// validation. MediaType and Size identify the offending upload.
type BadIconError struct {
	MediaType string
	Size      int
	Reason    string
}

func (e *BadIconError) Error() string {
	if e.Size > 0 {
		return fmt.Sprintf("bad icon (%s, %dpx): %s", e.MediaType, e.Size, e.Reason)
	}
	return fmt.Sprintf("bad icon (%s): %s", e.MediaType, e.Reason)
}

// BadScreenshotError reports a screenshot payload that failed format or
// dimension validation.
type BadScreenshotError struct {
	MediaType string
	Width     int
	Height    int
	Reason    string
}

func (e *BadScreenshotError) Error() string {
	return fmt.Sprintf("bad screenshot (%s, %dx%d): %s", e.MediaType, e.Width, e.Height, e.Reason)
}
