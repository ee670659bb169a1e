package wiring

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spounge-ai/ffproxy/internal/adapters/protocol"
	"github.com/spounge-ai/ffproxy/internal/adapters/security"
	"github.com/spounge-ai/ffproxy/internal/domain"
	app_errors "github.com/spounge-ai/ffproxy/internal/errors"
	infra_auth "github.com/spounge-ai/ffproxy/internal/infra/auth"
	infra_config "github.com/spounge-ai/ffproxy/internal/infra/config"
	"github.com/spounge-ai/ffproxy/internal/infra/httpclient"
	"github.com/spounge-ai/ffproxy/internal/infra/secrets"
	"github.com/spounge-ai/ffproxy/internal/infra/upstream"
	"github.com/spounge-ai/ffproxy/internal/service"
	"github.com/spounge-ai/ffproxy/pkg/cache"
)

// Dependencies is everything the entry points need, built once per process.
type Dependencies struct {
	Config     *infra_config.Config
	Logger     *slog.Logger
	Classifier *app_errors.ErrorClassifier
	Tokens     *infra_auth.TokenCache
	Refresher  *infra_auth.Refresher
	Service    service.AccountService

	responseCache *cache.Cache[service.LookupKey, *domain.Resolution]
}

// NewLogger returns the process logger: text on stderr at the configured level.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ProvideDependencies constructs the object graph from configuration.
func ProvideDependencies(ctx context.Context, cfg *infra_config.Config, logger *slog.Logger) (*Dependencies, error) {
	registry, err := provideCredentialRegistry(ctx, cfg.Credentials)
	if err != nil {
		return nil, err
	}

	cipher, err := provideCipher(cfg.Cipher)
	if err != nil {
		return nil, err
	}

	codec, err := protocol.NewCodec()
	if err != nil {
		return nil, err
	}

	client := httpclient.New(cfg.Upstream.Timeout, cfg.Upstream.InsecureTLS)
	var issuer domain.TokenIssuer = infra_auth.NewHTTPTokenIssuer(client, cfg.Upstream.AuthURL, logger)
	if cfg.Tokens.BreakerFailures > 0 {
		issuer = infra_auth.NewBreakingIssuer(issuer, cfg.Tokens.BreakerFailures, cfg.Tokens.BreakerReset, logger)
	}
	tokens := infra_auth.NewTokenCache(registry, issuer, cfg.Regions.Supported, cfg.Tokens.Validity, logger,
		infra_auth.WithHonorNotAfter(cfg.Tokens.HonorJWTExpiry),
	)
	refresher := infra_auth.NewRefresher(tokens, cfg.Tokens.RefreshInterval, 0, cfg.Tokens.WarmOnStart, logger)

	querier := upstream.NewClient(client, tokens, codec, cipher, upstream.Options{
		UserAgent:        cfg.Upstream.UserAgent,
		UnityVersion:     cfg.Upstream.UnityVersion,
		ReleaseVersion:   cfg.Upstream.ReleaseVersion,
		DecryptResponses: cfg.Upstream.DecryptResponses,
		AllowStale:       cfg.Tokens.AllowStale,
		BodyExcerpt:      cfg.Upstream.BodyExcerpt,
	}, logger)

	resolver := service.NewResolver(querier, service.ResolverConfig{
		DefaultRegion: cfg.Regions.Default,
		Supported:     cfg.Regions.Supported,
		Fallback:      cfg.Regions.Fallback,
		Auxiliary:     cfg.Upstream.AuxiliaryField,
		Endpoint:      cfg.Upstream.Endpoint,
	}, logger)

	deps := &Dependencies{
		Config:     cfg,
		Logger:     logger,
		Classifier: app_errors.NewErrorClassifier(logger),
		Tokens:     tokens,
		Refresher:  refresher,
	}

	// A typed nil must not reach the service as a non-nil interface.
	if cfg.Cache.Enabled {
		deps.responseCache = service.NewResponseCache(cfg.Cache.TTL, cfg.Cache.MaxEntries)
		deps.Service = service.NewAccountService(resolver, tokens, deps.responseCache)
	} else {
		deps.Service = service.NewAccountService(resolver, tokens, nil)
	}

	return deps, nil
}

// Close releases background resources owned by the graph.
func (d *Dependencies) Close() {
	if d.responseCache != nil {
		d.responseCache.Stop()
	}
}

func provideCredentialRegistry(ctx context.Context, cfg infra_config.CredentialsConfig) (domain.CredentialRegistry, error) {
	switch cfg.Source {
	case "ssm":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		return infra_auth.NewSSMCredentialRegistry(secrets.NewParameterStore(awsCfg), cfg.SSMPrefix), nil
	case "file":
		return infra_auth.NewFileCredentialRegistry(cfg.File)
	default:
		return nil, fmt.Errorf("invalid credential source: %s", cfg.Source)
	}
}

func provideCipher(cfg infra_config.CipherConfig) (*security.CBCCodec, error) {
	key, iv, err := cfg.Material()
	if err != nil {
		return nil, err
	}
	return security.NewCBCCodec(key, iv)
}
