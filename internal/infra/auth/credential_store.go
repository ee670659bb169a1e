package auth

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spounge-ai/ffproxy/internal/domain"
	"gopkg.in/yaml.v3"
)

// DefaultCredentialKey names the entry used by regions without their own credential.
const DefaultCredentialKey = "default"

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrInvalidConfig      = errors.New("invalid credential configuration")
)

// credentialConfig represents the YAML structure for the credential table.
type credentialConfig struct {
	Credentials map[string]credentialData `yaml:"credentials"`
}

type credentialData struct {
	AccountID string `yaml:"account_id" json:"account_id"`
	Secret    string `yaml:"secret"     json:"secret"`
}

// StaticCredentialRegistry is an immutable region → credential table.
type StaticCredentialRegistry struct {
	credentials map[string]domain.RegionCredential
	fallback    *domain.RegionCredential
}

// NewStaticCredentialRegistry builds a registry from already-validated entries.
// An entry keyed DefaultCredentialKey serves regions without their own.
func NewStaticCredentialRegistry(entries map[string]domain.RegionCredential) *StaticCredentialRegistry {
	reg := &StaticCredentialRegistry{credentials: make(map[string]domain.RegionCredential, len(entries))}
	for key, cred := range entries {
		if key == DefaultCredentialKey {
			c := cred
			reg.fallback = &c
			continue
		}
		region := domain.NormalizeRegion(key)
		cred.Region = region
		reg.credentials[region] = cred
	}
	return reg
}

// NewFileCredentialRegistry loads the credential table from a YAML file.
func NewFileCredentialRegistry(filePath string) (*StaticCredentialRegistry, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file %s: %w", filePath, err)
	}

	var config credentialConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential file: %w", err)
	}

	if len(config.Credentials) == 0 {
		return nil, fmt.Errorf("%w: no credentials defined", ErrInvalidConfig)
	}

	entries := make(map[string]domain.RegionCredential, len(config.Credentials))
	for key, data := range config.Credentials {
		if err := validateCredentialData(key, data); err != nil {
			return nil, fmt.Errorf("%w: entry %s: %v", ErrInvalidConfig, key, err)
		}
		entries[key] = domain.RegionCredential{AccountID: data.AccountID, Secret: data.Secret}
	}

	return NewStaticCredentialRegistry(entries), nil
}

// Lookup returns the credential for region, or the default entry.
func (r *StaticCredentialRegistry) Lookup(ctx context.Context, region string) (domain.RegionCredential, error) {
	region = domain.NormalizeRegion(region)
	if cred, ok := r.credentials[region]; ok {
		return cred, nil
	}
	if r.fallback != nil {
		cred := *r.fallback
		cred.Region = region
		return cred, nil
	}
	return domain.RegionCredential{}, fmt.Errorf("%w: region %s", ErrCredentialNotFound, region)
}

// Count returns the number of region-specific entries.
func (r *StaticCredentialRegistry) Count() int {
	return len(r.credentials)
}

func validateCredentialData(key string, data credentialData) error {
	if key == "" {
		return fmt.Errorf("region key cannot be empty")
	}
	if data.AccountID == "" {
		return fmt.Errorf("account_id cannot be empty")
	}
	if data.Secret == "" {
		return fmt.Errorf("secret cannot be empty")
	}
	return nil
}

var _ domain.CredentialRegistry = (*StaticCredentialRegistry)(nil)
