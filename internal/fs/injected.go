package fs

import (
	"errors"
	iofs "io/fs"
	"syscall"
)

// InjectedError is a fault produced by [Chaos]. It unwraps to the error it
// stands in for, so errors.Is checks against syscall errnos and
// [ErrLockTimeout] behave as they would for a real failure.
type InjectedError struct {
	Err error
}

func (e *InjectedError) Error() string {
	return e.Err.Error()
}

func (e *InjectedError) Unwrap() error {
	return e.Err
}

// IsInjected reports whether err, or an error it wraps, came from [Chaos].
func IsInjected(err error) bool {
	var injected *InjectedError

	return errors.As(err, &injected)
}

func inject(err error) error {
	if IsInjected(err) {
		return err
	}

	return &InjectedError{Err: err}
}

// injectPathError returns the *fs.PathError the OS would give for op on path,
// with errno marked as injected.
func injectPathError(op, path string, errno syscall.Errno) error {
	return &iofs.PathError{Op: op, Path: path, Err: inject(errno)}
}
