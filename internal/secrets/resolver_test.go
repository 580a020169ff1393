package secrets

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgsecrets "github.com/bianchini88/rdmkit/pkg/secrets"
)

// --- Mock Provider ---

type mockProvider struct {
	secrets map[string]map[string]string
	err     error
	calls   int
}

func (m *mockProvider) GetSecret(_ context.Context, key string) (map[string]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.secrets[key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("secret not found: %s", key)
}

// --- Tests ---

func TestCredentialResolver_CompleteCredentialsSkipProvider(t *testing.T) {
	mock := &mockProvider{}
	r := NewCredentialResolver(zap.NewNop(), mock, "prod/fairsharing")

	in := pkgsecrets.Credentials{Username: "cli-user", Password: "cli-pass"}
	got, err := r.Resolve(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, in, got)
	assert.Equal(t, 0, mock.calls, "provider must not be called when credentials are complete")
}

func TestCredentialResolver_NoSecretConfigured(t *testing.T) {
	mock := &mockProvider{}
	r := NewCredentialResolver(zap.NewNop(), mock, "")

	got, err := r.Resolve(context.Background(), pkgsecrets.Credentials{Username: "only-user"})

	require.NoError(t, err)
	assert.Equal(t, "only-user", got.Username)
	assert.Empty(t, got.Password)
	assert.Equal(t, 0, mock.calls)
}

func TestCredentialResolver_NilProvider(t *testing.T) {
	r := NewCredentialResolver(zap.NewNop(), nil, "prod/fairsharing")

	got, err := r.Resolve(context.Background(), pkgsecrets.Credentials{})

	require.NoError(t, err)
	assert.Equal(t, pkgsecrets.Credentials{}, got)
}

func TestCredentialResolver_FillsMissingFields(t *testing.T) {
	mock := &mockProvider{secrets: map[string]map[string]string{
		"prod/fairsharing": {"username": "stored-user", "password": "stored-pass"},
	}}
	r := NewCredentialResolver(zap.NewNop(), mock, "prod/fairsharing")

	got, err := r.Resolve(context.Background(), pkgsecrets.Credentials{Username: "cli-user"})

	require.NoError(t, err)
	assert.Equal(t, "cli-user", got.Username, "explicit username wins")
	assert.Equal(t, "stored-pass", got.Password)
	assert.Equal(t, 1, mock.calls)
}

func TestCredentialResolver_ProviderError(t *testing.T) {
	mock := &mockProvider{err: errors.New("throttled")}
	r := NewCredentialResolver(zap.NewNop(), mock, "prod/fairsharing")

	_, err := r.Resolve(context.Background(), pkgsecrets.Credentials{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve registry credentials")
	assert.Contains(t, err.Error(), "throttled")
}

func TestCredentialResolver_IncompleteSecret(t *testing.T) {
	mock := &mockProvider{secrets: map[string]map[string]string{
		"prod/fairsharing": {"username": "stored-user"},
	}}
	r := NewCredentialResolver(zap.NewNop(), mock, "prod/fairsharing")

	got, err := r.Resolve(context.Background(), pkgsecrets.Credentials{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "username and password are required")
	assert.Equal(t, pkgsecrets.Credentials{}, got, "partial secret must not leak into the result")
}
