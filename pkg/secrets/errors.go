package secrets

// Error types for secret lookups. Callers that only need a default on failure
// can ignore the distinction; the types exist for diagnostics.

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

var (
	ErrEmptySecret      = errors.New("secret has no string payload")
	ErrMalformedPayload = errors.New("secret payload is not a JSON object")
)

// NotFoundError indicates the secret does not exist in the backend.
type NotFoundError struct {
	Backend  string
	SecretID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("secret not found in %s: %s", e.Backend, e.SecretID)
}

// BackendError wraps a failed call to a secret backend.
type BackendError struct {
	Backend  string
	SecretID string
	Code     string
	Err      error
}

func (e *BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s): %v", e.Backend, e.SecretID, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Backend, e.SecretID, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func newBackendError(backend, secretID string, err error) *BackendError {
	be := &BackendError{Backend: backend, SecretID: secretID, Err: err}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		be.Code = apiErr.ErrorCode()
	}
	return be
}
