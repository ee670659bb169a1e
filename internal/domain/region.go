package domain

import (
	"context"
	"strings"
)

// NormalizeRegion upper-cases and trims a region code.
func NormalizeRegion(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RegionCredential is the fixed account used to obtain tokens for one region.
// It is never sent to the account service.
type RegionCredential struct {
	Region    string
	AccountID string
	Secret    string
}

// CredentialRegistry resolves the credential used to authenticate a region.
type CredentialRegistry interface {
	Lookup(ctx context.Context, region string) (RegionCredential, error)
}
