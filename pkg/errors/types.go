package errors

import (
	"fmt"
)

// ErrFileChanged is returned when a source file was modified while it was
// being copied, so the copy can't be trusted.
var ErrFileChanged = New("file contents changed during sync")

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// ConfigError is returned when a sync root or option is unusable. Syncing
// can't proceed until it's fixed.
type ConfigError struct {
	Path   string
	Reason string
	Err    error
}

func (err ConfigError) Error() string {
	msg := fmt.Sprintf("invalid configuration for %q: %s", err.Path, err.Reason)
	if err.Err != nil {
		msg += fmt.Sprintf(" (%s)", err.Err)
	}
	return msg
}

func (err ConfigError) Unwrap() error {
	return err.Err
}

// IOError is a read, write or enumeration failure on a specific path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (err IOError) Error() string {
	return fmt.Sprintf("%s %q: %s", err.Op, err.Path, err.Err)
}

func (err IOError) Unwrap() error {
	return err.Err
}

// HashError is a failure to compute the digest of a file. It's a kind of
// IOError.
type HashError struct {
	Path string
	Err  error
}

func (err HashError) Error() string {
	return fmt.Sprintf("hash %q: %s", err.Path, err.Err)
}

func (err HashError) Unwrap() error {
	return err.Err
}

// IsConfigError returns whether `err` or anything it wraps is a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr ConfigError
	return As(err, &cfgErr)
}

// IsIOError returns whether `err` or anything it wraps is an IOError or a
// HashError.
func IsIOError(err error) bool {
	var ioErr IOError
	var hashErr HashError
	return As(err, &ioErr) || As(err, &hashErr)
}
