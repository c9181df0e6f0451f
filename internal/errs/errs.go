// Package errs defines the error kinds surfaced by outlookctl.
//
// Backends convert host failures into an *Error at the capability boundary;
// nothing above that boundary inspects raw host errors.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// Operation is the fallback for failures that fit no other kind.
	Operation Kind = iota
	Unavailable
	FolderNotFound
	MessageNotFound
	EventNotFound
	ConfirmationRequired
	Validation
	Draft
	Send
	Attachment
)

var codes = map[Kind]string{
	Operation:            "OPERATION_ERROR",
	Unavailable:          "OUTLOOK_UNAVAILABLE",
	FolderNotFound:       "FOLDER_NOT_FOUND",
	MessageNotFound:      "MESSAGE_NOT_FOUND",
	EventNotFound:        "EVENT_NOT_FOUND",
	ConfirmationRequired: "CONFIRMATION_REQUIRED",
	Validation:           "VALIDATION_ERROR",
	Draft:                "DRAFT_ERROR",
	Send:                 "SEND_ERROR",
	Attachment:           "ATTACHMENT_ERROR",
}

var remediations = map[Kind]string{
	Operation:            "Retry the command; if it keeps failing run 'outlookctl doctor'.",
	Unavailable:          "Ensure the mail client is running and reachable, then run 'outlookctl doctor'.",
	FolderNotFound:       "Check the folder name or path; use 'inbox', 'by-name:<name>' or 'by-path:<a/b>'.",
	MessageNotFound:      "The id may be stale; list or search again to get a fresh entry_id and store_id.",
	EventNotFound:        "The id may be stale; run 'outlookctl calendar list' to get a fresh id.",
	ConfirmationRequired: "Pass --confirm-send YES or --confirm-send-file pointing at a file containing YES.",
	Validation:           "Check the command arguments and try again.",
	Draft:                "The client rejected the draft; check recipients and attachments.",
	Send:                 "The client rejected the send; the draft is still in Drafts.",
	Attachment:           "Check that attachment paths exist and the destination is writable.",
}

// Code returns the stable error_code string for a kind.
func (k Kind) Code() string {
	if c, ok := codes[k]; ok {
		return c
	}
	return codes[Operation]
}

func (k Kind) String() string {
	return k.Code()
}

// Error is a classified failure with a remediation hint.
type Error struct {
	Kind        Kind
	Op          string
	Msg         string
	Remediation string
	Err         error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Code returns the error_code for the failure.
func (e *Error) Code() string { return e.Kind.Code() }

// Hint returns the remediation, falling back to the kind's default.
func (e *Error) Hint() string {
	if e.Remediation != "" {
		return e.Remediation
	}
	return remediations[e.Kind]
}

// New builds an *Error of the given kind.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err as kind. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithHint returns a copy of e carrying a specific remediation.
func (e *Error) WithHint(hint string) *Error {
	c := *e
	c.Remediation = hint
	return &c
}

// KindOf returns the kind of the first *Error in err's chain, or Operation.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Operation
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Remediation returns the hint for err, whatever its shape.
func Remediation(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Hint()
	}
	return remediations[Operation]
}
