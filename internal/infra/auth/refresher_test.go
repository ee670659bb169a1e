package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefresher_WarmStartAndHealth(t *testing.T) {
	issuer := &fakeIssuer{}
	cache := NewTokenCache(testRegistry(), issuer, []string{"PK", "BR"}, time.Hour, discardLogger())
	r := NewRefresher(cache, time.Hour, 0, true, discardLogger())

	assert.False(t, r.Health(context.Background()).Ready)

	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(func() { _ = r.Stop(context.Background()) })

	assert.EqualValues(t, 2, issuer.calls.Load())
	assert.True(t, r.Health(context.Background()).Ready)

	// Idempotent start.
	require.NoError(t, r.Start(context.Background()))
	assert.EqualValues(t, 2, issuer.calls.Load())
}

func TestRefresher_PeriodicCycle(t *testing.T) {
	issuer := &fakeIssuer{}
	cache := NewTokenCache(testRegistry(), issuer, []string{"PK"}, time.Hour, discardLogger())
	r := NewRefresher(cache, 20*time.Millisecond, 0, false, discardLogger())

	require.NoError(t, r.Start(context.Background()))
	assert.Eventually(t, func() bool { return issuer.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, r.Stop(context.Background()))

	n := issuer.calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, n, issuer.calls.Load(), "no cycles after Stop")

	require.NoError(t, r.Stop(context.Background()))
}

func TestRefresher_RunOnceReportsFailures(t *testing.T) {
	issuer := &fakeIssuer{fail: map[string]error{"BR": errors.New("down")}}
	cache := NewTokenCache(testRegistry(), issuer, []string{"PK", "BR"}, time.Hour, discardLogger())
	r := NewRefresher(cache, time.Hour, time.Second, false, discardLogger())

	outcomes := r.RunOnce(context.Background())
	require.Len(t, outcomes, 2)

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			assert.Equal(t, "BR", o.Region)
		}
	}
	assert.Equal(t, 1, failed)
	assert.True(t, r.Health(context.Background()).Ready)
}
