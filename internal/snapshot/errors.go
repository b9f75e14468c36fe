package snapshot

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("snapshot not found")
	ErrMalformedData = errors.New("malformed snapshot data")
)

// NotFoundError reports a snapshot key without a readable snapshot on disk.
type NotFoundError struct {
	Date   string
	Path   string
	Reason string
}

func (e *NotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("snapshot %s not found: %s", e.Date, e.Reason)
	}
	return fmt.Sprintf("snapshot %s not found: %s", e.Date, e.Path)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// MalformedError reports a combined CSV that does not satisfy the row schema.
// Line is 1-based and counts the header; zero when the problem is file-wide.
type MalformedError struct {
	Path   string
	Line   int
	Column string
	Reason string
}

func (e *MalformedError) Error() string {
	msg := e.Path
	if e.Line > 0 {
		msg += fmt.Sprintf(":%d", e.Line)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}
	return fmt.Sprintf("malformed snapshot data: %s: %s", msg, e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedData }
