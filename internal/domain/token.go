package domain

import (
	"context"
	"time"
)

// TokenRecord is the current bearer token for one region. Records are
// replaced whole on refresh and never mutated in place.
type TokenRecord struct {
	Region       string
	Token        string
	LockedRegion string
	ServerURL    string
	AcquiredAt   time.Time
	ExpiresAt    time.Time
}

// Usable reports whether now is strictly before the expiry instant.
func (r TokenRecord) Usable(now time.Time) bool {
	return r.Token != "" && now.Before(r.ExpiresAt)
}

// BearerHeader returns the value for the Authorization header.
func (r TokenRecord) BearerHeader() string {
	return "Bearer " + r.Token
}

type TokenState string

const (
	TokenAbsent  TokenState = "absent"
	TokenValid   TokenState = "valid"
	TokenExpired TokenState = "expired"
)

// TokenStatus is a read-only view of a region's cache slot.
type TokenStatus struct {
	Region       string     `json:"region"`
	State        TokenState `json:"state"`
	LockedRegion string     `json:"locked_region,omitempty"`
	ServerURL    string     `json:"server_url,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// TokenProvider hands out usable tokens, refreshing when needed.
type TokenProvider interface {
	Get(ctx context.Context, region string) (TokenRecord, error)
	// Stale returns the last committed record regardless of expiry.
	Stale(region string) (TokenRecord, bool)
}

// IssuedToken is what the authentication service hands back. NotAfter is the
// token's own expiry claim when it carries one.
type IssuedToken struct {
	Token        string
	LockedRegion string
	ServerURL    string
	NotAfter     time.Time
}

// TokenIssuer obtains a fresh token from the authentication service.
type TokenIssuer interface {
	Issue(ctx context.Context, cred RegionCredential) (IssuedToken, error)
}

// RefreshOutcome reports one region's result of a refresh cycle.
type RefreshOutcome struct {
	Region    string    `json:"region"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Err       error     `json:"-"`
}
