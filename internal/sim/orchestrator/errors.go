package orchestrator

import "errors"

var (
	// ErrNoRegistry indicates the orchestrator was built without a registry.
	ErrNoRegistry = errors.New("object registry is required")
	// ErrBodyInFlight indicates a launch was requested while a body is active.
	ErrBodyInFlight = errors.New("a body is already in flight")
	// ErrNoBodyFactory indicates a launch was requested without a body factory.
	ErrNoBodyFactory = errors.New("no body factory configured")
	// ErrStopped indicates the orchestrator is not running.
	ErrStopped = errors.New("orchestrator is stopped")
	// ErrCollaborator wraps a failure or panic inside a collaborator call.
	ErrCollaborator = errors.New("collaborator failure")
)
