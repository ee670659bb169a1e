package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spounge-ai/ffproxy/internal/domain"
	app_errors "github.com/spounge-ai/ffproxy/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeIssuer struct {
	calls    atomic.Int32
	delay    time.Duration
	fail     map[string]error
	notAfter time.Time
}

func (f *fakeIssuer) Issue(ctx context.Context, cred domain.RegionCredential) (domain.IssuedToken, error) {
	n := f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err, ok := f.fail[cred.Region]; ok {
		return domain.IssuedToken{}, err
	}
	return domain.IssuedToken{
		Token:        cred.Region + "-token-" + strconv.Itoa(int(n)),
		LockedRegion: cred.Region,
		ServerURL:    "https://client." + cred.Region + ".example.com",
		NotAfter:     f.notAfter,
	}, nil
}

func testRegistry() *StaticCredentialRegistry {
	return NewStaticCredentialRegistry(map[string]domain.RegionCredential{
		DefaultCredentialKey: {AccountID: "1111111111", Secret: "default-secret"},
		"PK":                 {AccountID: "2222222222", Secret: "pk-secret"},
	})
}

func TestTokenCache_GetRefreshesLazily(t *testing.T) {
	clock := newFakeClock()
	issuer := &fakeIssuer{}
	cache := NewTokenCache(testRegistry(), issuer, []string{"PK", "BR"}, 7*time.Hour, discardLogger(), WithClock(clock.Now))

	rec, err := cache.Get(context.Background(), "pk")
	require.NoError(t, err)
	assert.Equal(t, "PK", rec.Region)
	assert.Equal(t, clock.Now().Add(7*time.Hour), rec.ExpiresAt)
	assert.EqualValues(t, 1, issuer.calls.Load())

	again, err := cache.Get(context.Background(), "PK")
	require.NoError(t, err)
	assert.Equal(t, rec, again)
	assert.EqualValues(t, 1, issuer.calls.Load(), "a valid record must not trigger a refresh")
}

func TestTokenCache_NeverReturnsExpired(t *testing.T) {
	clock := newFakeClock()
	issuer := &fakeIssuer{}
	cache := NewTokenCache(testRegistry(), issuer, []string{"PK"}, 7*time.Hour, discardLogger(), WithClock(clock.Now))

	first, err := cache.Get(context.Background(), "PK")
	require.NoError(t, err)

	// Expiry is exclusive: at exactly ExpiresAt the record is no longer usable.
	clock.Advance(7 * time.Hour)
	second, err := cache.Get(context.Background(), "PK")
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)
	assert.True(t, clock.Now().Before(second.ExpiresAt))
	assert.EqualValues(t, 2, issuer.calls.Load())
}

func TestTokenCache_FailedRefreshKeepsPriorRecord(t *testing.T) {
	clock := newFakeClock()
	issuer := &fakeIssuer{}
	cache := NewTokenCache(testRegistry(), issuer, []string{"PK"}, 7*time.Hour, discardLogger(), WithClock(clock.Now))

	first, err := cache.Get(context.Background(), "PK")
	require.NoError(t, err)

	issuer.fail = map[string]error{"PK": &app_errors.AuthError{Region: "PK", Status: 500}}
	clock.Advance(8 * time.Hour)

	_, err = cache.Get(context.Background(), "PK")
	require.ErrorIs(t, err, app_errors.ErrAuthUnavailable)

	stale, ok := cache.Stale("PK")
	require.True(t, ok)
	assert.Equal(t, first, stale)
}

func TestTokenCache_IssuerErrorWrappedAsAuthUnavailable(t *testing.T) {
	issuer := &fakeIssuer{fail: map[string]error{"BR": errors.New("connection refused")}}
	cache := NewTokenCache(testRegistry(), issuer, []string{"BR"}, time.Hour, discardLogger())

	_, err := cache.Get(context.Background(), "BR")
	require.ErrorIs(t, err, app_errors.ErrAuthUnavailable)

	var authErr *app_errors.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "BR", authErr.Region)

	_, ok := cache.Stale("BR")
	assert.False(t, ok, "no record may be committed on failure")
}

func TestTokenCache_MissingCredential(t *testing.T) {
	registry := NewStaticCredentialRegistry(map[string]domain.RegionCredential{
		"PK": {AccountID: "2222222222", Secret: "pk-secret"},
	})
	issuer := &fakeIssuer{}
	cache := NewTokenCache(registry, issuer, []string{"PK", "BR"}, time.Hour, discardLogger())

	_, err := cache.Get(context.Background(), "BR")
	require.ErrorIs(t, err, app_errors.ErrAuthUnavailable)
	require.ErrorIs(t, err, ErrCredentialNotFound)
	assert.EqualValues(t, 0, issuer.calls.Load())
}

func TestTokenCache_ConcurrentGetSharesRefresh(t *testing.T) {
	clock := newFakeClock()
	issuer := &fakeIssuer{}
	cache := NewTokenCache(testRegistry(), issuer, []string{"PK"}, time.Hour, discardLogger(), WithClock(clock.Now))

	seeded, err := cache.Get(context.Background(), "PK")
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)
	issuer.delay = 50 * time.Millisecond
	seedCalls := issuer.calls.Load()

	const callers = 16
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := cache.Get(context.Background(), "PK")
			tokens[i], errs[i] = rec.Token, err
		}()
	}
	var outcomes []domain.RefreshOutcome
	wg.Add(1)
	go func() {
		defer wg.Done()
		outcomes = cache.RefreshAll(context.Background())
	}()
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.NotEqual(t, seeded.Token, tokens[i], "an expired record must never be handed out")
	}
	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err)

	// The getters share one refresh; the explicit refreshAll may add at most one more.
	refreshes := issuer.calls.Load() - seedCalls
	assert.GreaterOrEqual(t, refreshes, int32(1))
	assert.LessOrEqual(t, refreshes, int32(2))

	rec, ok := cache.Stale("PK")
	require.True(t, ok)
	assert.True(t, rec.Usable(clock.Now()))
}

func TestTokenCache_HonorNotAfter(t *testing.T) {
	clock := newFakeClock()
	notAfter := clock.Now().Add(time.Hour)
	issuer := &fakeIssuer{notAfter: notAfter}

	plain := NewTokenCache(testRegistry(), issuer, []string{"PK"}, 7*time.Hour, discardLogger(), WithClock(clock.Now))
	rec, err := plain.Get(context.Background(), "PK")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(7*time.Hour), rec.ExpiresAt)

	honoring := NewTokenCache(testRegistry(), issuer, []string{"PK"}, 7*time.Hour, discardLogger(),
		WithClock(clock.Now), WithHonorNotAfter(true))
	rec, err = honoring.Get(context.Background(), "PK")
	require.NoError(t, err)
	assert.Equal(t, notAfter, rec.ExpiresAt)
}

func TestTokenCache_RejectsAlreadyExpiredToken(t *testing.T) {
	clock := newFakeClock()
	issuer := &fakeIssuer{notAfter: clock.Now().Add(-time.Minute)}
	cache := NewTokenCache(testRegistry(), issuer, []string{"PK"}, 7*time.Hour, discardLogger(),
		WithClock(clock.Now), WithHonorNotAfter(true))

	_, err := cache.Get(context.Background(), "PK")
	require.ErrorIs(t, err, app_errors.ErrAuthUnavailable)
	_, ok := cache.Stale("PK")
	assert.False(t, ok)
}

func TestTokenCache_RefreshAll(t *testing.T) {
	clock := newFakeClock()
	issuer := &fakeIssuer{fail: map[string]error{"US": errors.New("boom")}}
	cache := NewTokenCache(testRegistry(), issuer, []string{"PK", "BR", "US"}, 7*time.Hour, discardLogger(), WithClock(clock.Now))

	// BR ends up expired and PK still valid before the cycle runs.
	_, err := cache.Get(context.Background(), "BR")
	require.NoError(t, err)
	clock.Advance(5 * time.Hour)
	_, err = cache.Get(context.Background(), "PK")
	require.NoError(t, err)
	clock.Advance(3 * time.Hour)

	status := cache.Status()
	require.Equal(t, domain.TokenValid, status[0].State)
	require.Equal(t, domain.TokenExpired, status[1].State)

	outcomes := cache.RefreshAll(context.Background())
	require.Len(t, outcomes, 3)

	byRegion := map[string]domain.RefreshOutcome{}
	for _, o := range outcomes {
		byRegion[o.Region] = o
	}
	require.NoError(t, byRegion["PK"].Err)
	require.NoError(t, byRegion["BR"].Err)
	require.ErrorIs(t, byRegion["US"].Err, app_errors.ErrAuthUnavailable)

	want := clock.Now().Add(7 * time.Hour)
	assert.Equal(t, want, byRegion["PK"].ExpiresAt)
	assert.Equal(t, want, byRegion["BR"].ExpiresAt)

	for _, st := range cache.Status() {
		switch st.Region {
		case "US":
			assert.Equal(t, domain.TokenAbsent, st.State)
			assert.Nil(t, st.ExpiresAt)
		default:
			assert.Equal(t, domain.TokenValid, st.State)
			require.NotNil(t, st.ExpiresAt)
			assert.Equal(t, want, *st.ExpiresAt)
		}
	}
}

func TestTokenCache_StatusReportsExpired(t *testing.T) {
	clock := newFakeClock()
	cache := NewTokenCache(testRegistry(), &fakeIssuer{}, []string{"PK", "BR"}, time.Hour, discardLogger(), WithClock(clock.Now))

	_, err := cache.Get(context.Background(), "PK")
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)

	status := cache.Status()
	require.Len(t, status, 2)
	assert.Equal(t, "PK", status[0].Region)
	assert.Equal(t, domain.TokenExpired, status[0].State)
	assert.Equal(t, "BR", status[1].Region)
	assert.Equal(t, domain.TokenAbsent, status[1].State)
}
