package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spounge-ai/ffproxy/internal/domain"
	app_errors "github.com/spounge-ai/ffproxy/internal/errors"
	"github.com/spounge-ai/ffproxy/internal/infra/httpclient"
)

const maxAuthBody = 64 << 10

var ErrMalformedTokenResponse = errors.New("malformed token response")

// tokenResponse is the authentication service's 200 body.
type tokenResponse struct {
	Token      string `json:"token"`
	LockRegion string `json:"lockRegion"`
	ServerURL  string `json:"serverUrl"`
}

// HTTPTokenIssuer obtains region tokens from the authentication service.
type HTTPTokenIssuer struct {
	client  *http.Client
	authURL string
	logger  *slog.Logger
}

func NewHTTPTokenIssuer(client *http.Client, authURL string, logger *slog.Logger) *HTTPTokenIssuer {
	return &HTTPTokenIssuer{client: client, authURL: authURL, logger: logger}
}

// Issue performs one GET against the authentication service. Any non-200
// status or a body missing the token or server URL fails the refresh.
func (i *HTTPTokenIssuer) Issue(ctx context.Context, cred domain.RegionCredential) (domain.IssuedToken, error) {
	endpoint, err := url.Parse(i.authURL)
	if err != nil {
		return domain.IssuedToken{}, &app_errors.AuthError{Region: cred.Region, Err: fmt.Errorf("invalid auth url: %w", err)}
	}
	q := endpoint.Query()
	q.Set("uid", cred.AccountID)
	q.Set("password", cred.Secret)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return domain.IssuedToken{}, &app_errors.AuthError{Region: cred.Region, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		// url.Error would echo the secret in the query string.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return domain.IssuedToken{}, &app_errors.AuthError{Region: cred.Region, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAuthBody))
	if err != nil {
		return domain.IssuedToken{}, &app_errors.AuthError{Region: cred.Region, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return domain.IssuedToken{}, &app_errors.AuthError{
			Region: cred.Region,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status: %q", httpclient.Excerpt(body, 200)),
		}
	}

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.IssuedToken{}, &app_errors.AuthError{Region: cred.Region, Status: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrMalformedTokenResponse, err)}
	}
	if err := payload.validate(); err != nil {
		return domain.IssuedToken{}, &app_errors.AuthError{Region: cred.Region, Status: resp.StatusCode, Err: err}
	}

	issued := domain.IssuedToken{
		Token:        payload.Token,
		LockedRegion: payload.LockRegion,
		ServerURL:    payload.ServerURL,
		NotAfter:     tokenExpiry(payload.Token),
	}

	i.logger.DebugContext(ctx, "token issued",
		"uid", truncate(cred.AccountID, 5),
		"region", cred.Region,
		"locked_region", issued.LockedRegion,
		"token", truncate(issued.Token, 8)+"...",
	)
	return issued, nil
}

func (r tokenResponse) validate() error {
	if r.Token == "" {
		return fmt.Errorf("%w: missing token", ErrMalformedTokenResponse)
	}
	if r.ServerURL == "" {
		return fmt.Errorf("%w: missing serverUrl", ErrMalformedTokenResponse)
	}
	u, err := url.Parse(r.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: serverUrl %q is not an absolute http url", ErrMalformedTokenResponse, r.ServerURL)
	}
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the proxy
// only forwards the token and cannot verify it. Opaque tokens yield zero.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

var _ domain.TokenIssuer = (*HTTPTokenIssuer)(nil)
