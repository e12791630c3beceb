package orchestrator

import "errors"

var (
	// ErrNilProvider is returned by New when the required ASR worker is nil.
	ErrNilProvider = errors.New("orchestrator: required dependency is nil")

	// ErrServerClosed is returned by Serve after a graceful Shutdown.
	ErrServerClosed = errors.New("orchestrator: server closed")

	// ErrUnknownUser reports a request that targets a user with no active
	// session. No function in this package returns it.
	ErrUnknownUser = errors.New("orchestrator: unknown user")
)
