package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies conversion failures.
type ErrorKind string

const (
	KindInvalidFileType   ErrorKind = "invalid_file_type"
	KindTooLarge          ErrorKind = "too_large"
	KindEmptyUpload       ErrorKind = "empty_upload"
	KindUnparsablePDF     ErrorKind = "unparsable_pdf"
	KindEmptyDocument     ErrorKind = "empty_document"
	KindExtractionTimeout ErrorKind = "extraction_timeout"
	KindNotFound          ErrorKind = "not_found"
	KindSynthesisFailure  ErrorKind = "synthesis_failure"
	KindStorageFailure    ErrorKind = "storage_failure"
)

// Error is a conversion error with a kind and an optional cause.
// errors.Is matches any two Errors of the same kind.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidFileType   = &Error{Kind: KindInvalidFileType}
	ErrTooLarge          = &Error{Kind: KindTooLarge}
	ErrEmptyUpload       = &Error{Kind: KindEmptyUpload}
	ErrUnparsablePDF     = &Error{Kind: KindUnparsablePDF}
	ErrEmptyDocument     = &Error{Kind: KindEmptyDocument}
	ErrExtractionTimeout = &Error{Kind: KindExtractionTimeout}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrSynthesisFailure  = &Error{Kind: KindSynthesisFailure}
	ErrStorageFailure    = &Error{Kind: KindStorageFailure}
)

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
