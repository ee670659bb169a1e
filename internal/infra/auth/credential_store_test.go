package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spounge-ai/ffproxy/internal/infra/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCredentialFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileCredentialRegistry_Lookup(t *testing.T) {
	path := writeCredentialFile(t, `
credentials:
  default:
    account_id: "1000000001"
    secret: default-secret
  ind:
    account_id: "1000000002"
    secret: ind-secret
`)
	reg, err := NewFileCredentialRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Count())

	cred, err := reg.Lookup(context.Background(), "IND")
	require.NoError(t, err)
	assert.Equal(t, "IND", cred.Region)
	assert.Equal(t, "1000000002", cred.AccountID)

	cred, err = reg.Lookup(context.Background(), "br")
	require.NoError(t, err)
	assert.Equal(t, "BR", cred.Region)
	assert.Equal(t, "1000000001", cred.AccountID)
}

func TestFileCredentialRegistry_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":          "credentials: {}\n",
		"missing secret": "credentials:\n  PK:\n    account_id: \"1\"\n",
		"missing id":     "credentials:\n  PK:\n    secret: x\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewFileCredentialRegistry(writeCredentialFile(t, content))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := NewFileCredentialRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestStaticCredentialRegistry_NoDefault(t *testing.T) {
	reg := NewStaticCredentialRegistry(nil)
	_, err := reg.Lookup(context.Background(), "PK")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

type mapSecretGetter map[string]string

func (m mapSecretGetter) GetSecret(ctx context.Context, name string) (string, error) {
	v, ok := m[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", secrets.ErrSecretNotFound, name)
	}
	return v, nil
}

func TestSSMCredentialRegistry_Lookup(t *testing.T) {
	store := mapSecretGetter{
		"/ffproxy/credentials/PK":      `{"account_id":"2000000001","secret":"pk"}`,
		"/ffproxy/credentials/default": `{"account_id":"2000000000","secret":"def"}`,
		"/ffproxy/credentials/US":      `not json`,
	}
	reg := NewSSMCredentialRegistry(store, "/ffproxy/credentials/")

	cred, err := reg.Lookup(context.Background(), "pk")
	require.NoError(t, err)
	assert.Equal(t, "PK", cred.Region)
	assert.Equal(t, "2000000001", cred.AccountID)

	cred, err = reg.Lookup(context.Background(), "SG")
	require.NoError(t, err)
	assert.Equal(t, "SG", cred.Region)
	assert.Equal(t, "2000000000", cred.AccountID)

	_, err = reg.Lookup(context.Background(), "US")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSSMCredentialRegistry_NotFound(t *testing.T) {
	reg := NewSSMCredentialRegistry(mapSecretGetter{}, "/ffproxy")
	_, err := reg.Lookup(context.Background(), "PK")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}
