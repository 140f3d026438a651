package resolver

import (
	"errors"
	"fmt"
)

// ErrCapabilityMissing means no discovery or no secret store was supplied.
var ErrCapabilityMissing = errors.New("remote capability not available")

// Stages of the remote path, reported in RemoteResolutionError.
const (
	StageCapability = "capability"
	StageDiscovery  = "discovery"
	StageSecret     = "secret"
	StagePayload    = "payload"
)

// RemoteResolutionError is the single failure variant of the remote path.
// Every cause, from a missing capability to an empty instance list, is
// reported through it and handled the same way.
type RemoteResolutionError struct {
	Stage string
	Err   error
}

func (e *RemoteResolutionError) Error() string {
	return fmt.Sprintf("remote resolution failed (%s): %v", e.Stage, e.Err)
}

func (e *RemoteResolutionError) Unwrap() error { return e.Err }

func failAt(stage string, err error) *RemoteResolutionError {
	return &RemoteResolutionError{Stage: stage, Err: err}
}
