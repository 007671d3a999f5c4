package lifecycle

import (
	"errors"
	"fmt"
)

// ErrorKind classifies service failures so transport layers can map
// them to a status code without string matching.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindAlreadyExists
	KindConflict
	KindInvalid
	KindUnauthorized
	KindUpstream
)

// Error carries a classification alongside a human readable detail
// message suitable for API responses.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "lifecycle error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func AlreadyExistsf(format string, args ...interface{}) *Error {
	return newError(KindAlreadyExists, format, args...)
}

func Conflictf(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

func Invalidf(format string, args ...interface{}) *Error {
	return newError(KindInvalid, format, args...)
}

func Upstreamf(err error, format string, args ...interface{}) *Error {
	wrapped := newError(KindUpstream, format, args...)
	wrapped.Err = err
	return wrapped
}

// Kind extracts the classification from an error chain, returning
// KindUnknown for plain errors.
func Kind(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindUnknown
}
