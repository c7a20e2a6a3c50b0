package domain

import "errors"

// Sentinel errors for session and store operations
var (
	// ErrNotConnected indicates the streaming service is not connected
	ErrNotConnected = errors.New("streaming service is not connected")

	// ErrNoConfiguration indicates no project configuration could be obtained
	ErrNoConfiguration = errors.New("no project configuration available")

	// ErrInvalidSelection indicates the selection does not satisfy the
	// per-tag cardinality rules
	ErrInvalidSelection = errors.New("selection does not satisfy tag requirements")

	// ErrControllerClosed indicates the session controller was torn down
	ErrControllerClosed = errors.New("session controller is closed")

	// ErrContentUnavailable indicates a cached content file could not be read
	ErrContentUnavailable = errors.New("cached content file unavailable")

	// ErrNotFound indicates a requested key is absent from the store
	ErrNotFound = errors.New("not found")
)
