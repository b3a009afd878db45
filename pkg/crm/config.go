package crm

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/jzx17/crmclient/pkg/auth"
	"github.com/jzx17/crmclient/pkg/retry"
	"github.com/jzx17/crmclient/pkg/types"
	"github.com/jzx17/crmclient/pkg/validate"
	"github.com/spf13/viper"
)

// Config configures a Client. Zero values are replaced by the `default` tags,
// so a zero duration cannot be expressed: use 1ns for "no buffer" or "no
// initial delay".
type Config struct {
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url" default:"https://services.leadconnectorhq.com" validate:"required,url_format"`
	APIVersion string        `mapstructure:"api_version" yaml:"api_version" default:"2021-07-28" validate:"required"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout" default:"30s" validate:"gte=0s"`
	UserAgent  string        `mapstructure:"user_agent" yaml:"user_agent" default:"crmclient-go"`

	// LocationID is used by location-scoped calls that do not pass one
	LocationID string `mapstructure:"location_id" yaml:"location_id"`

	TokenURL string `mapstructure:"token_url" yaml:"token_url" default:"https://services.leadconnectorhq.com/oauth/token" validate:"required,url_format"`

	// ExpiryBuffer is how long before expiry an access token is refreshed;
	// 0 means the 5m default
	ExpiryBuffer time.Duration `mapstructure:"expiry_buffer" yaml:"expiry_buffer" default:"5m" validate:"gte=0s"`

	PipelineCacheTTL time.Duration `mapstructure:"pipeline_cache_ttl" yaml:"pipeline_cache_ttl" default:"1h" validate:"gt=0s"`

	Retry RetryConfig `mapstructure:"retry" yaml:"retry"`
	Auth  AuthConfig  `mapstructure:"auth" yaml:"auth"`
}

// RetryConfig mirrors retry.Policy. Zero MaxRetries, InitialDelay, MaxDelay
// and ExponentialBase mean their defaults; set Disabled to send every request
// once.
type RetryConfig struct {
	Disabled        bool          `mapstructure:"disabled" yaml:"disabled"`
	MaxRetries      int           `mapstructure:"max_retries" yaml:"max_retries" default:"3" validate:"gte=0,lte=10"`
	InitialDelay    time.Duration `mapstructure:"initial_delay" yaml:"initial_delay" default:"1s" validate:"gte=0s"`
	MaxDelay        time.Duration `mapstructure:"max_delay" yaml:"max_delay" default:"10s" validate:"gt=0s"`
	ExponentialBase float64       `mapstructure:"exponential_base" yaml:"exponential_base" default:"2" validate:"gte=1"`
}

// AuthConfig holds either an API key or an OAuth token set
type AuthConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key"`

	AccessToken  string `mapstructure:"access_token" yaml:"access_token"`
	RefreshToken string `mapstructure:"refresh_token" yaml:"refresh_token"`
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri" yaml:"redirect_uri"`

	// ExpiresAtMs is the access token expiry in epoch milliseconds, 0 if unknown
	ExpiresAtMs int64 `mapstructure:"expires_at_ms" yaml:"expires_at_ms" validate:"gte=0"`
}

// configKeys lists every key LoadConfig binds to a CRM_* environment variable
var configKeys = []string{
	"base_url", "api_version", "timeout", "user_agent", "location_id", "token_url",
	"expiry_buffer", "pipeline_cache_ttl",
	"retry.disabled", "retry.max_retries", "retry.initial_delay", "retry.max_delay", "retry.exponential_base",
	"auth.api_key", "auth.access_token", "auth.refresh_token", "auth.client_id",
	"auth.client_secret", "auth.redirect_uri", "auth.expires_at_ms",
}

// LoadConfig reads a YAML file (optional when path is empty) and CRM_*
// environment variables, e.g. CRM_AUTH_API_KEY, then applies defaults and
// validates the result.
func LoadConfig(path string) (Config, error) {
	vip := viper.New()
	vip.SetConfigType("yaml")
	vip.SetEnvPrefix("CRM")
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range configKeys {
		if err := vip.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		vip.SetConfigFile(path)
		if err := vip.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.prepare(); err != nil {
		slog.Error("crm config validation failed", "path", path, "error", err)
		return Config{}, err
	}
	return cfg, nil
}

// prepare applies defaults and validates
func (c *Config) prepare() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("failed to apply default values: %w", err)
	}

	if err := validate.Check(c); err != nil {
		var validationErr *types.ValidationError
		field := ""
		if errors.As(err, &validationErr) && len(validationErr.Violations) > 0 {
			field = validationErr.Violations[0].Path
		}
		return types.NewConfigurationError(field, err)
	}
	return nil
}

// Credential builds the credential described by Auth. An API key wins over
// OAuth tokens.
func (c Config) Credential() (auth.Credential, error) {
	a := c.Auth
	switch {
	case a.APIKey != "":
		return auth.APIKeyCredential{Key: a.APIKey}, nil
	case a.AccessToken != "" || a.RefreshToken != "":
		cred := auth.OAuthCredential{
			AccessToken:  a.AccessToken,
			RefreshToken: a.RefreshToken,
			ClientID:     a.ClientID,
			ClientSecret: a.ClientSecret,
			RedirectURI:  a.RedirectURI,
		}
		if a.ExpiresAtMs > 0 {
			cred.ExpiresAt = time.UnixMilli(a.ExpiresAtMs)
		}
		return cred, nil
	default:
		return nil, types.NewConfigurationError("auth", types.ErrMissingCredential)
	}
}

// RetryPolicy converts Retry into a retry policy using the default condition
func (c Config) RetryPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxRetries = c.Retry.MaxRetries
	p.InitialDelay = c.Retry.InitialDelay
	p.MaxDelay = c.Retry.MaxDelay
	p.ExponentialBase = c.Retry.ExponentialBase
	return p
}
