package secrets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	pkgsecrets "github.com/bianchini88/rdmkit/pkg/secrets"
)

// CredentialResolver fills in registry credentials that were not supplied on the
// command line or in the environment, reading them from a secrets provider.
//
// The secret is a JSON map with "username" and "password" keys.
type CredentialResolver struct {
	logger   *zap.Logger
	provider pkgsecrets.Provider
	secretID string
}

// NewCredentialResolver constructs a resolver. A nil provider or an empty
// secretID makes Resolve a no-op.
func NewCredentialResolver(logger *zap.Logger, provider pkgsecrets.Provider, secretID string) *CredentialResolver {
	return &CredentialResolver{
		logger:   logger,
		provider: provider,
		secretID: secretID,
	}
}

// Resolve returns current with any empty field taken from the secret.
// Explicitly supplied values always win over the stored ones.
func (r *CredentialResolver) Resolve(ctx context.Context, current pkgsecrets.Credentials) (pkgsecrets.Credentials, error) {
	if current.Complete() || r.provider == nil || r.secretID == "" {
		return current, nil
	}

	secretMap, err := r.provider.GetSecret(ctx, r.secretID)
	if err != nil {
		r.logger.Warn("aws.secret_fetch_failed",
			zap.String("key", r.secretID),
			zap.Error(err))
		return current, fmt.Errorf("resolve registry credentials: %w", err)
	}

	resolved := current
	if resolved.Username == "" {
		resolved.Username = secretMap["username"]
	}
	if resolved.Password == "" {
		resolved.Password = secretMap["password"]
	}
	if !resolved.Complete() {
		return current, fmt.Errorf("parse secret %q: username and password are required", r.secretID)
	}

	r.logger.Info("aws.credentials_resolved",
		zap.String("key", r.secretID),
		zap.String("user", resolved.Username),
	)
	return resolved, nil
}
