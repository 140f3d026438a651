package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

const secretsManagerBackend = "AWS Secrets Manager"

// secretsManagerClient is the subset of the Secrets Manager API used here.
type secretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerStore implements SecretStore on AWS Secrets Manager.
type SecretsManagerStore struct {
	client secretsManagerClient
}

// NewSecretsManagerStore creates a store for the region carried by cfg.
func NewSecretsManagerStore(cfg aws.Config, optFns ...func(*secretsmanager.Options)) *SecretsManagerStore {
	return &SecretsManagerStore{
		client: secretsmanager.NewFromConfig(cfg, optFns...),
	}
}

// GetSecretValue fetches the current version of secretID, which may be a
// name or a full ARN. Binary-only secrets are reported as ErrEmptySecret.
func (s *SecretsManagerStore) GetSecretValue(ctx context.Context, secretID string) (string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", &NotFoundError{Backend: secretsManagerBackend, SecretID: secretID}
		}
		return "", newBackendError(secretsManagerBackend, secretID, err)
	}

	if out.SecretString == nil {
		return "", fmt.Errorf("%s %s: %w", secretsManagerBackend, secretID, ErrEmptySecret)
	}
	return *out.SecretString, nil
}

// Close is a no-op; the SDK client holds no connections of its own.
func (s *SecretsManagerStore) Close() error {
	return nil
}
