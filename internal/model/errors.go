package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so transports can map them to status codes
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindNotAvailable
	KindCapacity
	KindConflict
	KindForbidden
	KindUpstream
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindNotAvailable:
		return "not_available"
	case KindCapacity:
		return "capacity"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Error is a domain error with a kind and a human readable message
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	ErrChatNotFound       = newError(KindNotFound, "chat not found")
	ErrMemberNotFound     = newError(KindNotFound, "membership not found")
	ErrSummaryNotFound    = newError(KindNotFound, "summary not available")
	ErrChatNotAvailable   = newError(KindNotAvailable, "chat not available")
	ErrChatFull           = newError(KindCapacity, "chat is full")
	ErrActiveLimitReached = newError(KindCapacity, "active chat limit reached")
	ErrAlreadyJoined      = newError(KindConflict, "already joined this chat")
	ErrAlreadyRevealed    = newError(KindConflict, "identity already revealed")
	ErrInvalidTransition  = newError(KindConflict, "action not allowed in current membership state")
	ErrChatClosed         = newError(KindConflict, "chat is already closed")
	ErrNotCreator         = newError(KindForbidden, "only the chat creator can do this")
	ErrScoring            = newError(KindUpstream, "scoring failed")
)

// Validationf builds a validation error
func Validationf(format string, args ...any) error {
	return newError(KindValidation, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of the first domain error in err's chain
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
