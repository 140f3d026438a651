package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/vault/api"
)

const baoBackend = "OpenBao"

// vaultKVv2 is the subset of the KV v2 API used by BaoProvider.
type vaultKVv2 interface {
	Get(ctx context.Context, secretPath string) (*api.KVSecret, error)
}

// BaoProvider implements the SecretStore interface for OpenBao.
type BaoProvider struct {
	client  *api.Client
	kv      vaultKVv2
	timeout time.Duration
}

// NewBaoProvider initializes a new OpenBao client using environment variables.
// It reads BAO_ADDR and BAO_TOKEN, and BAO_MOUNT for the KV v2 mount
// (default "secret").
func NewBaoProvider() (*BaoProvider, error) {
	config := api.DefaultConfig()

	// Use BAO_ADDR if set, otherwise fallback to VAULT_ADDR logic in SDK
	if addr := os.Getenv("BAO_ADDR"); addr != "" {
		config.Address = addr
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create openbao client: %w", err)
	}

	if token := os.Getenv("BAO_TOKEN"); token != "" {
		client.SetToken(token)
	}

	mount := os.Getenv("BAO_MOUNT")
	if mount == "" {
		mount = "secret"
	}

	return &BaoProvider{client: client, kv: client.KVv2(mount), timeout: 5 * time.Second}, nil
}

// GetSecretValue reads the KV v2 secret at path and returns its data as a
// JSON object, the same payload shape Secrets Manager stores.
func (b *BaoProvider) GetSecretValue(ctx context.Context, path string) (string, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	secret, err := b.kv.Get(ctx, path)
	if err != nil {
		return "", newBackendError(baoBackend, path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", &NotFoundError{Backend: baoBackend, SecretID: path}
	}

	payload, err := json.Marshal(secret.Data)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", baoBackend, path, err)
	}
	return string(payload), nil
}

// Close is a placeholder for cleaning up resources if needed.
func (b *BaoProvider) Close() error {
	return nil
}
