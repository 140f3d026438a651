package secrets

import "context"

// SecretStore fetches secret payloads by identifier.
type SecretStore interface {
	// GetSecretValue returns the string payload stored under secretID.
	GetSecretValue(ctx context.Context, secretID string) (string, error)

	// Close cleans up any active connections to the secret store.
	Close() error
}
