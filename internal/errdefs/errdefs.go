// Package errdefs holds the error kinds shared across vmcloop.
//
// Callers wrap one of these sentinels with context and test for it with
// errors.Is.
package errdefs

import "errors"

var (
	// ErrInvalidArgument marks a bad value handed to a constructor or
	// operation, such as a nil recording or a loop period that is too short.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState marks an operation called out of sequence.
	ErrInvalidState = errors.New("invalid state")

	// ErrTransport marks a failed network operation.
	ErrTransport = errors.New("transport failure")

	// ErrDecode marks bytes that could not be parsed.
	ErrDecode = errors.New("decode failure")

	// ErrNotFound marks a stored recording that does not exist.
	ErrNotFound = errors.New("not found")
)

func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }

func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }

func IsTransport(err error) bool { return errors.Is(err, ErrTransport) }

func IsDecode(err error) bool { return errors.Is(err, ErrDecode) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
