package upstream

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spounge-ai/ffproxy/internal/adapters/protocol"
	"github.com/spounge-ai/ffproxy/internal/adapters/security"
	"github.com/spounge-ai/ffproxy/internal/domain"
	app_errors "github.com/spounge-ai/ffproxy/internal/errors"
	"github.com/spounge-ai/ffproxy/internal/infra/httpclient"
)

const (
	maxResponseBody = 4 << 20
	hexDumpLen      = 100
)

// Options carries the request headers and behavior switches of the account call.
type Options struct {
	UserAgent        string
	UnityVersion     string
	ReleaseVersion   string
	DecryptResponses bool
	AllowStale       bool
	BodyExcerpt      int
}

// Client performs one encrypted account query per call. It never retries and
// never changes region; that is the resolver's job.
type Client struct {
	http   *http.Client
	tokens domain.TokenProvider
	codec  *protocol.Codec
	cipher *security.CBCCodec
	opts   Options
	logger *slog.Logger
}

func NewClient(
	httpClient *http.Client,
	tokens domain.TokenProvider,
	codec *protocol.Codec,
	cipher *security.CBCCodec,
	opts Options,
	logger *slog.Logger,
) *Client {
	return &Client{
		http:   httpClient,
		tokens: tokens,
		codec:  codec,
		cipher: cipher,
		opts:   opts,
		logger: logger,
	}
}

// Query encrypts the account request, posts it to the region's server and
// decodes the response.
func (c *Client) Query(ctx context.Context, q domain.QueryRequest) (*domain.AccountRecord, error) {
	region := domain.NormalizeRegion(q.Region)

	payload, err := c.codec.EncodeRequest(q.Identifier, q.Auxiliary)
	if err != nil {
		return nil, err
	}
	body := c.cipher.Encrypt(payload)

	token, err := c.token(ctx, region)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimSuffix(token.ServerURL, "/") + q.Endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &app_errors.UpstreamRejectedError{Region: region, Err: err}
	}
	c.setHeaders(req, token)

	c.logger.DebugContext(ctx, "querying account",
		"uid", truncate(q.Identifier, 5),
		"region", region,
		"endpoint", endpoint,
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &app_errors.UpstreamRejectedError{Region: region, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &app_errors.UpstreamRejectedError{Region: region, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		excerpt := bytes.Clone(httpclient.Excerpt(raw, c.opts.BodyExcerpt))
		c.logger.WarnContext(ctx, "account service rejected request",
			"region", region,
			"status", resp.StatusCode,
			"body", string(excerpt),
		)
		return nil, &app_errors.UpstreamRejectedError{Region: region, Status: resp.StatusCode, Body: excerpt}
	}

	return c.decode(ctx, region, raw)
}

func (c *Client) decode(ctx context.Context, region string, raw []byte) (*domain.AccountRecord, error) {
	data := raw
	if c.opts.DecryptResponses {
		plain, err := c.cipher.Decrypt(raw)
		if err != nil {
			c.logDecodeFailure(ctx, region, raw, err)
			return nil, &app_errors.DecodeError{Region: region, Err: err}
		}
		data = plain
	}

	rec, err := c.codec.DecodeAccount(data)
	if err != nil {
		c.logDecodeFailure(ctx, region, data, err)
		return nil, &app_errors.DecodeError{Region: region, Err: err}
	}
	if rec.BasicInfo() == nil {
		err := errors.New("response carried no account basic info")
		c.logDecodeFailure(ctx, region, data, err)
		return nil, &app_errors.DecodeError{Region: region, Err: err}
	}
	return rec, nil
}

// token prefers a fresh record. When refresh fails and stale use is enabled,
// the last committed record is tried rather than failing the query outright.
func (c *Client) token(ctx context.Context, region string) (domain.TokenRecord, error) {
	rec, err := c.tokens.Get(ctx, region)
	if err == nil {
		return rec, nil
	}
	if !c.opts.AllowStale || !errors.Is(err, app_errors.ErrAuthUnavailable) {
		return domain.TokenRecord{}, err
	}

	stale, ok := c.tokens.Stale(region)
	if !ok || stale.Token == "" {
		return domain.TokenRecord{}, err
	}
	c.logger.WarnContext(ctx, "using stale token after failed refresh",
		"region", region,
		"expired_at", stale.ExpiresAt,
		"error", err,
	)
	return stale, nil
}

func (c *Client) setHeaders(req *http.Request, token domain.TokenRecord) {
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Connection", "Keep-Alive")
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Expect", "100-continue")
	req.Header.Set("Authorization", token.BearerHeader())
	req.Header.Set("X-GA", "v1 1")
	req.Header.Set("ReleaseVersion", c.opts.ReleaseVersion)
	if c.opts.UnityVersion != "" {
		req.Header.Set("X-Unity-Version", c.opts.UnityVersion)
	}
}

func (c *Client) logDecodeFailure(ctx context.Context, region string, data []byte, err error) {
	dump := hex.EncodeToString(data)
	if len(dump) > hexDumpLen {
		dump = dump[:hexDumpLen]
	}
	c.logger.ErrorContext(ctx, "failed to decode account response",
		"region", region,
		"error", err,
		"bytes", len(data),
		"hex", dump,
	)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

var _ domain.AccountQuerier = (*Client)(nil)
