package browser

import "errors"

var (
	// ErrDraining is returned by the context pool when it is mid-reset.
	ErrDraining = errors.New("browser: context pool is draining")
	// ErrAcquireTimeout is returned when a context or page can't be
	// acquired within the configured timeout.
	ErrAcquireTimeout = errors.New("browser: acquire timeout")
	// ErrShutdown is returned by any operation attempted after Shutdown.
	ErrShutdown = errors.New("browser: pool is shut down")
	// ErrNotReady is returned by WithPage when the pool hasn't completed Start.
	ErrNotReady = errors.New("browser: pool is not ready")
)
