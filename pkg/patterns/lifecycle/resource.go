package lifecycle

import "context"

// HealthStatus is what a resource reports to the health endpoints.
type HealthStatus struct {
	Ready   bool   `json:"ready"`
	Message string `json:"message,omitempty"`
}

// ManagedResource is a long-running component started and stopped by the
// serve command. Resources start in order and stop in reverse.
type ManagedResource interface {
	// Start must return once the resource is running; repeated calls are no-ops.
	Start(ctx context.Context) error
	// Stop blocks until the resource has released everything or ctx is done.
	Stop(ctx context.Context) error
	Health(ctx context.Context) HealthStatus
}
