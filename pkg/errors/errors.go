package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
func New(format string, a ...interface{}) error {
	if len(a) == 0 {
		return errors.New(format)
	}
	return fmt.Errorf(format, a...)
}

// withContext annotates an error with a short description of what was being
// done when it occurred. The annotations chain, so the final message reads
// like "scan source: walk: open /foo: permission denied".
type withContext struct {
	context string
	err     error
}

// WithContext wraps `err` with `context`. It returns nil if `err` is nil so
// that it can be used directly in return statements.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return withContext{context: context, err: err}
}

func (err withContext) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err withContext) Unwrap() error {
	return err.err
}

// RootCause returns the innermost error wrapped by WithContext.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(withContext)
		if !ok {
			return err
		}
		err = ctxErr.err
	}
}

// Is and As are re-exported so that callers don't need to import both this
// package and the standard library's.
var (
	Is = errors.Is
	As = errors.As
)

// Friendly is implemented by errors whose message is meant to be shown to the
// user. FriendlyError is the general purpose implementation.
type Friendly interface {
	error
	FriendlyMessage() string
}

// FriendlyError is an error whose message is meant to be shown to the user
// as-is, without the context chain.
type FriendlyError struct {
	msg string
}

// NewFriendlyError creates a FriendlyError with a formatted message.
func NewFriendlyError(format string, a ...interface{}) error {
	return FriendlyError{fmt.Sprintf(format, a...)}
}

func (err FriendlyError) Error() string {
	return err.msg
}

// FriendlyMessage returns the message to show the user.
func (err FriendlyError) FriendlyMessage() string {
	return err.msg
}
