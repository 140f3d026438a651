// Package discovery enumerates provisioned database instances and their
// network endpoints.
package discovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

var (
	ErrNoInstances = errors.New("no database instances found")
	ErrNoEndpoint  = errors.New("database instance has no endpoint address")
)

// Instance is one provisioned database as reported by a discovery backend.
type Instance struct {
	Identifier string
	Engine     string
	Status     string
	Address    string
	Port       int32
}

// DatabaseDiscovery lists database instances in the order the backend
// returns them.
type DatabaseDiscovery interface {
	ListInstances(ctx context.Context) ([]Instance, error)
}

// First picks the first instance positionally. There is no tie-break and no
// preference for available instances.
func First(instances []Instance) (Instance, error) {
	if len(instances) == 0 {
		return Instance{}, ErrNoInstances
	}
	inst := instances[0]
	if inst.Address == "" {
		return Instance{}, fmt.Errorf("%w: %s", ErrNoEndpoint, inst.Identifier)
	}
	return inst, nil
}

// BackendError wraps a failed call to a discovery backend.
type BackendError struct {
	Backend string
	Code    string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s: %v", e.Backend, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func newBackendError(backend string, err error) *BackendError {
	be := &BackendError{Backend: backend, Err: err}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		be.Code = apiErr.ErrorCode()
	}
	return be
}
