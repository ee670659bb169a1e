package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spounge-ai/ffproxy/internal/domain"
	"github.com/spounge-ai/ffproxy/internal/infra/secrets"
)

// SecretGetter is the read side of a secret store such as SSM Parameter Store.
type SecretGetter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// SSMCredentialRegistry reads credentials stored as JSON parameters named
// <prefix>/<REGION>, falling back to <prefix>/default.
type SSMCredentialRegistry struct {
	store  SecretGetter
	prefix string
}

func NewSSMCredentialRegistry(store SecretGetter, prefix string) *SSMCredentialRegistry {
	return &SSMCredentialRegistry{store: store, prefix: strings.TrimSuffix(prefix, "/")}
}

func (r *SSMCredentialRegistry) Lookup(ctx context.Context, region string) (domain.RegionCredential, error) {
	region = domain.NormalizeRegion(region)

	cred, err := r.load(ctx, region)
	if errors.Is(err, secrets.ErrSecretNotFound) {
		cred, err = r.load(ctx, DefaultCredentialKey)
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return domain.RegionCredential{}, fmt.Errorf("%w: region %s", ErrCredentialNotFound, region)
		}
	}
	if err != nil {
		return domain.RegionCredential{}, err
	}

	cred.Region = region
	return cred, nil
}

func (r *SSMCredentialRegistry) load(ctx context.Context, key string) (domain.RegionCredential, error) {
	raw, err := r.store.GetSecret(ctx, r.prefix+"/"+key)
	if err != nil {
		return domain.RegionCredential{}, err
	}

	var data credentialData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return domain.RegionCredential{}, fmt.Errorf("%w: parameter %s: %v", ErrInvalidConfig, key, err)
	}
	if err := validateCredentialData(key, data); err != nil {
		return domain.RegionCredential{}, fmt.Errorf("%w: parameter %s: %v", ErrInvalidConfig, key, err)
	}

	return domain.RegionCredential{AccountID: data.AccountID, Secret: data.Secret}, nil
}

var _ domain.CredentialRegistry = (*SSMCredentialRegistry)(nil)
