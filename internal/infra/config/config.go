package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	customvalidator "github.com/spounge-ai/ffproxy/pkg/validator"
)

const envPrefix = "FFPROXY"

type Config struct {
	Server         ServerConfig      `mapstructure:"server"`
	Log            LogConfig         `mapstructure:"log"`
	Upstream       UpstreamConfig    `mapstructure:"upstream"    validate:"required"`
	Cipher         CipherConfig      `mapstructure:"cipher"      validate:"required"`
	Regions        RegionsConfig     `mapstructure:"regions"     validate:"required"`
	Tokens         TokensConfig      `mapstructure:"tokens"`
	Credentials    CredentialsConfig `mapstructure:"credentials" validate:"required"`
	Cache          CacheConfig       `mapstructure:"cache"`
	ServiceVersion string
	BuildCommit    string
}

type ServerConfig struct {
	Port           int               `mapstructure:"port"             validate:"required,gte=1,lte=65535"`
	Mode           string            `mapstructure:"mode"             validate:"required,oneof=development production"`
	GRPCHealthPort int               `mapstructure:"grpc_health_port" validate:"gte=0,lte=65535"`
	ReadTimeout    time.Duration     `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration     `mapstructure:"write_timeout"`
	CORSOrigin     string            `mapstructure:"cors_origin"`
	RateLimiter    RateLimiterConfig `mapstructure:"rate_limiter"`
}

// RateLimiterConfig holds the per-caller limit applied by the route layer.
type RateLimiterConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Rate    float64 `mapstructure:"rate"  validate:"required_if=Enabled true,omitempty,gt=0"`
	Burst   int     `mapstructure:"burst" validate:"required_if=Enabled true,omitempty,gt=0"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

type UpstreamConfig struct {
	AuthURL          string        `mapstructure:"auth_url"          validate:"required,url"`
	Endpoint         string        `mapstructure:"endpoint"          validate:"required,startswith=/"`
	AuxiliaryField   string        `mapstructure:"auxiliary_field"   validate:"required,numeric"`
	ReleaseVersion   string        `mapstructure:"release_version"   validate:"required"`
	UserAgent        string        `mapstructure:"user_agent"        validate:"required"`
	UnityVersion     string        `mapstructure:"unity_version"`
	Timeout          time.Duration `mapstructure:"timeout"           validate:"gt=0"`
	DecryptResponses bool          `mapstructure:"decrypt_responses"`
	BodyExcerpt      int           `mapstructure:"body_excerpt"      validate:"gte=0"`
	InsecureTLS      bool          `mapstructure:"insecure_tls"`
}

// CipherConfig holds the base64-encoded protocol key and IV.
type CipherConfig struct {
	Key string `mapstructure:"key" validate:"required,aeskey"`
	IV  string `mapstructure:"iv"  validate:"required,aesiv"`
}

// Material decodes the key and IV.
func (c CipherConfig) Material() ([]byte, []byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode cipher key: %w", err)
	}
	iv, err := base64.StdEncoding.DecodeString(c.IV)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode cipher iv: %w", err)
	}
	return key, iv, nil
}

type RegionsConfig struct {
	Default   string   `mapstructure:"default"   validate:"required,region"`
	Supported []string `mapstructure:"supported" validate:"required,min=1,dive,region"`
	Fallback  []string `mapstructure:"fallback"  validate:"dive,region"`
}

type TokensConfig struct {
	Validity        time.Duration `mapstructure:"validity"         validate:"gt=0"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval" validate:"gt=0"`
	AllowStale      bool          `mapstructure:"allow_stale"`
	HonorJWTExpiry  bool          `mapstructure:"honor_jwt_expiry"`
	WarmOnStart     bool          `mapstructure:"warm_on_start"`
	// BreakerFailures consecutive issuance failures open a region's circuit; 0 disables it.
	BreakerFailures int           `mapstructure:"breaker_failures" validate:"gte=0"`
	BreakerReset    time.Duration `mapstructure:"breaker_reset"    validate:"required_with=BreakerFailures"`
}

type CredentialsConfig struct {
	Source    string `mapstructure:"source"     validate:"required,oneof=file ssm"`
	File      string `mapstructure:"file"       validate:"required_if=Source file"`
	SSMPrefix string `mapstructure:"ssm_prefix" validate:"required_if=Source ssm"`
	AWSRegion string `mapstructure:"aws_region" validate:"required_if=Source ssm"`
}

type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	TTL        time.Duration `mapstructure:"ttl"         validate:"required_if=Enabled true"`
	MaxEntries int           `mapstructure:"max_entries" validate:"gte=0"`
}

var (
	defaultSupportedRegions = []string{"PK", "BR", "US", "SAC", "NA", "SG", "RU", "ID", "TW", "VN", "TH", "ME", "IND", "CIS", "BD", "EU"}
	defaultFallbackRegions  = []string{"IND", "BR", "US", "SAC", "NA", "SG", "ID", "VN", "TH", "ME", "RU", "EU", "BD"}
)

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", 5000)
	vip.SetDefault("server.mode", "production")
	vip.SetDefault("server.grpc_health_port", 0)
	vip.SetDefault("server.read_timeout", "15s")
	vip.SetDefault("server.write_timeout", "60s")
	vip.SetDefault("server.cors_origin", "*")
	vip.SetDefault("server.rate_limiter.enabled", false)
	vip.SetDefault("server.rate_limiter.rate", 5)
	vip.SetDefault("server.rate_limiter.burst", 10)

	vip.SetDefault("log.level", "info")

	vip.SetDefault("upstream.auth_url", "https://jwt.tsunstudio.pw/v1/auth/saeed")
	vip.SetDefault("upstream.endpoint", "/GetPlayerPersonalShow")
	vip.SetDefault("upstream.auxiliary_field", "7")
	vip.SetDefault("upstream.release_version", "OB51")
	vip.SetDefault("upstream.user_agent", "Dalvik/2.1.0 (Linux; U; Android 13; CPH2095 Build/RKQ1.211119.001)")
	vip.SetDefault("upstream.unity_version", "2018.4.11f1")
	vip.SetDefault("upstream.timeout", "10s")
	vip.SetDefault("upstream.decrypt_responses", false)
	vip.SetDefault("upstream.body_excerpt", 200)
	vip.SetDefault("upstream.insecure_tls", false)

	vip.SetDefault("cipher.key", "WWcmdGMlREV1aDYlWmNeOA==")
	vip.SetDefault("cipher.iv", "Nm95WkRyMjJFM3ljaGpNJQ==")

	vip.SetDefault("regions.default", "PK")
	vip.SetDefault("regions.supported", defaultSupportedRegions)
	vip.SetDefault("regions.fallback", defaultFallbackRegions)

	vip.SetDefault("tokens.validity", "7h")
	vip.SetDefault("tokens.refresh_interval", "7h")
	vip.SetDefault("tokens.allow_stale", true)
	vip.SetDefault("tokens.honor_jwt_expiry", false)
	vip.SetDefault("tokens.warm_on_start", true)
	vip.SetDefault("tokens.breaker_failures", 3)
	vip.SetDefault("tokens.breaker_reset", "1m")

	vip.SetDefault("credentials.source", "file")
	vip.SetDefault("credentials.file", "configs/credentials.yaml")

	vip.SetDefault("cache.enabled", true)
	vip.SetDefault("cache.ttl", "5m")
	vip.SetDefault("cache.max_entries", 100)
}

func Load(path string) (*Config, error) {
	vip := viper.New()
	if path != "" {
		vip.SetConfigFile(path)
	} else {
		vip.SetConfigName("config")
		vip.AddConfigPath("./configs")
		vip.AddConfigPath(".")
	}

	vip.SetConfigType("yaml")
	vip.SetEnvPrefix(envPrefix)
	vip.AutomaticEnv()
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(vip)

	if err := vip.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// PORT is the conventional override on hosting platforms.
	if raw, ok := os.LookupEnv("PORT"); ok {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", raw, err)
		}
		cfg.Server.Port = port
	}

	cfg.Regions.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.ServiceVersion = getenv(envPrefix+"_SERVICE_VERSION", "unknown")
	cfg.BuildCommit = getenv(envPrefix+"_BUILD_COMMIT", "unknown")

	return &cfg, nil
}

// Validate runs struct validation plus the cross-field region checks.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := customvalidator.RegisterCustomValidators(validate); err != nil {
		return fmt.Errorf("failed to register custom validators: %w", err)
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if !slices.Contains(c.Regions.Supported, c.Regions.Default) {
		return fmt.Errorf("config validation failed: default region %s is not supported", c.Regions.Default)
	}
	for _, r := range c.Regions.Fallback {
		if !slices.Contains(c.Regions.Supported, r) {
			return fmt.Errorf("config validation failed: fallback region %s is not supported", r)
		}
	}
	return nil
}

func (r *RegionsConfig) normalize() {
	r.Default = strings.ToUpper(strings.TrimSpace(r.Default))
	for i := range r.Supported {
		r.Supported[i] = strings.ToUpper(strings.TrimSpace(r.Supported[i]))
	}
	for i := range r.Fallback {
		r.Fallback[i] = strings.ToUpper(strings.TrimSpace(r.Fallback[i]))
	}
}

// getenv returns an environment variable or a default value.
func getenv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
