package extract

import (
	"errors"
	"fmt"
)

// ErrFatal is wrapped by every error that aborts a run. Soft conditions
// (orphaned checkout references, missing optional fields) never produce an
// error.
var ErrFatal = errors.New("fatal extraction error")

// DuplicateIDError reports two source nodes of one entity type sharing an id.
type DuplicateIDError struct {
	Entity   string
	SourceID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("%s %q already seen", e.Entity, e.SourceID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrFatal }

// UnresolvedReferenceError reports a hard reference that did not resolve.
type UnresolvedReferenceError struct {
	Entity   string
	SourceID string
	Ref      string
	RefID    string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("%s %q points to %s %q with no match", e.Entity, e.SourceID, e.Ref, e.RefID)
}

func (e *UnresolvedReferenceError) Unwrap() error { return ErrFatal }

// MissingFieldError reports a required attribute that was absent.
type MissingFieldError struct {
	Entity   string
	SourceID string
	Field    string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s %q has no %s", e.Entity, e.SourceID, e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrFatal }

// InvalidFieldError reports an attribute that was present but unreadable.
type InvalidFieldError struct {
	Entity   string
	SourceID string
	Field    string
	Err      error
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("%s %q has invalid %s: %v", e.Entity, e.SourceID, e.Field, e.Err)
}

func (e *InvalidFieldError) Unwrap() []error { return []error{ErrFatal, e.Err} }
