package partners

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingField indicates a required field is empty or whitespace only.
	ErrMissingField = errors.New("missing required field")
	// ErrDuplicateTaxID indicates another record already uses the tax id.
	ErrDuplicateTaxID = errors.New("duplicate tax id")
	// ErrTransport indicates a remote call failed.
	ErrTransport = errors.New("transport error")
	// ErrNotFound indicates the target record is absent from the local collection.
	ErrNotFound = errors.New("record not found")
	// ErrNoSelection indicates a save was requested outside create or edit mode.
	ErrNoSelection = errors.New("no record selected")
)

// ValidationError carries the reason a candidate was rejected together with
// the message shown next to the editing surface.
type ValidationError struct {
	Reason  error
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%v: %s", e.Reason, strings.Join(e.Fields, ", "))
	}
	return e.Reason.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// TransportError describes a failed Gateway call. Status is 0 when no
// response was received.
type TransportError struct {
	Op     string
	Kind   Kind
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("partners: %s %s", e.Kind, e.Op)
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is lets errors.Is(err, ErrTransport) match every TransportError.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
