// internal/config/config.go
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	BaseURL  string `mapstructure:"base_url"`
	HomePath string `mapstructure:"home_path"`
	Database struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"database"`
	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`
	Ban struct {
		Message string `mapstructure:"message"`
		Contact string `mapstructure:"contact"`
	} `mapstructure:"ban"`
	Security struct {
		RequestID struct {
			TrustHeader bool `mapstructure:"trust_header"`
		} `mapstructure:"request_id"`
		Session struct {
			TTL             time.Duration `mapstructure:"ttl"`
			RememberTTL     time.Duration `mapstructure:"remember_ttl"`
			SweeperInterval time.Duration `mapstructure:"sweeper_interval"`
			CookieSecure    bool          `mapstructure:"cookie_secure"`
			SameSite        string        `mapstructure:"same_site"`
		} `mapstructure:"session"`
		Guard struct {
			// BroadcastRevoke revokes every live session of an account
			// the moment a ban is applied, instead of waiting for each
			// session's next guarded request.
			BroadcastRevoke bool `mapstructure:"broadcast_revoke"`
		} `mapstructure:"guard"`
		RateLimit struct {
			Enabled           bool          `mapstructure:"enabled"`
			RequestsPerMinute int           `mapstructure:"rpm"`
			Burst             int           `mapstructure:"burst"`
			TTL               time.Duration `mapstructure:"ttl"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"security"`
	Auth struct {
		OIDCCacheDir        string        `mapstructure:"oidc_cache_dir"`
		OIDCRefreshInterval time.Duration `mapstructure:"oidc_refresh_interval"`
	} `mapstructure:"auth"`
	Google struct {
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
	} `mapstructure:"google"`
	Github struct {
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
	} `mapstructure:"github"`
}

func Load() Config {
	// Sensible logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("home_path", "/")
	// Ban messaging defaults
	viper.SetDefault("ban.message", "Your account has been banned.")
	viper.SetDefault("ban.contact", "")
	// Security defaults
	viper.SetDefault("security.request_id.trust_header", false)
	viper.SetDefault("security.session.ttl", "8h")
	viper.SetDefault("security.session.remember_ttl", "720h")
	viper.SetDefault("security.session.sweeper_interval", "5m")
	viper.SetDefault("security.session.cookie_secure", false)
	viper.SetDefault("security.session.same_site", "lax")
	viper.SetDefault("security.guard.broadcast_revoke", false)
	viper.SetDefault("security.rate_limit.enabled", true)
	viper.SetDefault("security.rate_limit.rpm", 120)
	viper.SetDefault("security.rate_limit.burst", 60)
	viper.SetDefault("security.rate_limit.ttl", "30m")
	viper.SetDefault("auth.oidc_cache_dir", ".oidc-cache")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	_ = viper.ReadInConfig()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// explicit bindings
	_ = viper.BindEnv("base_url", "BASE_URL")
	_ = viper.BindEnv("home_path", "HOME_PATH")
	_ = viper.BindEnv("database.url", "DATABASE_URL")
	_ = viper.BindEnv("logging.level", "LOG_LEVEL")
	_ = viper.BindEnv("logging.format", "LOG_FORMAT")
	_ = viper.BindEnv("ban.message", "BAN_MESSAGE")
	_ = viper.BindEnv("ban.contact", "BAN_CONTACT")
	_ = viper.BindEnv("security.request_id.trust_header", "REQUEST_ID_TRUST_HEADER")
	_ = viper.BindEnv("security.session.ttl", "SESSION_TTL")
	_ = viper.BindEnv("security.session.remember_ttl", "SESSION_REMEMBER_TTL")
	_ = viper.BindEnv("security.session.sweeper_interval", "SESSION_SWEEPER_INTERVAL")
	_ = viper.BindEnv("security.session.cookie_secure", "SESSION_COOKIE_SECURE")
	_ = viper.BindEnv("security.session.same_site", "SESSION_SAME_SITE")
	_ = viper.BindEnv("security.guard.broadcast_revoke", "GUARD_BROADCAST_REVOKE")
	_ = viper.BindEnv("security.rate_limit.enabled", "RATE_LIMIT_ENABLED")
	_ = viper.BindEnv("security.rate_limit.rpm", "RATE_LIMIT_RPM")
	_ = viper.BindEnv("security.rate_limit.burst", "RATE_LIMIT_BURST")
	_ = viper.BindEnv("security.rate_limit.ttl", "RATE_LIMIT_TTL")
	_ = viper.BindEnv("google.client_id", "GOOGLE_CLIENT_ID")
	_ = viper.BindEnv("google.client_secret", "GOOGLE_CLIENT_SECRET")
	_ = viper.BindEnv("github.client_id", "GITHUB_CLIENT_ID")
	_ = viper.BindEnv("github.client_secret", "GITHUB_CLIENT_SECRET")

	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		panic("config error: " + err.Error())
	}
	// Normalize home path: ensure leading '/'
	c.HomePath = "/" + strings.TrimLeft(strings.TrimSpace(c.HomePath), "/")
	if c.BaseURL == "" {
		panic("config error: base_url/BASE_URL required")
	}
	return c
}

// BanMessage renders the operator-facing denial message, appending the
// contact address when one is configured.
func (c Config) BanMessage() string {
	msg := strings.TrimSpace(c.Ban.Message)
	if msg == "" {
		msg = "Your account has been banned."
	}
	if contact := strings.TrimSpace(c.Ban.Contact); contact != "" {
		msg += " If you believe this is a mistake, contact " + contact + "."
	}
	return msg
}
