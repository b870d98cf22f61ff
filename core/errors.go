package core

import "errors"

var (
	// ErrAbortDispatch is returned by middleware to stop dispatch of the
	// current interaction or event without surfacing an error to the user.
	ErrAbortDispatch = errors.New("dispatch aborted by middleware")

	// ErrCommandNotFound is returned when an interaction names a command the
	// portal has no entry for.
	ErrCommandNotFound = errors.New("command not found")

	// ErrSageTimeout is returned when a command handler exceeds its hard
	// timeout. The handler result, if it ever arrives, is discarded.
	ErrSageTimeout = errors.New("command handler timed out")

	// ErrKeyNotFound is returned by Flashcore adapters when the requested key
	// does not exist.
	ErrKeyNotFound = errors.New("flashcore key not found")
)
