package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppPort        string `env:"APP_PORT" envDefault:"8080"`
	AppName        string `env:"APP_NAME" envDefault:"Bookmarks"`
	AppDescription string `env:"APP_DESCRIPTION" envDefault:"Save and share your bookmarks"`
	PublicBaseURL  string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	AuthURL        string        `env:"AUTH_URL,required,notEmpty"`
	AuthAnonKey    string        `env:"AUTH_ANON_KEY,required,notEmpty"`
	AuthJWTSecret  string        `env:"AUTH_JWT_SECRET"`
	AuthVerifyJWKS bool          `env:"AUTH_VERIFY_JWKS" envDefault:"false"`
	AuthTimeout    time.Duration `env:"AUTH_TIMEOUT" envDefault:"10s"`
	OAuthProviders []string      `env:"AUTH_OAUTH_PROVIDERS" envDefault:"google" envSeparator:","`

	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	SessionRefreshLeeway time.Duration `env:"SESSION_REFRESH_LEEWAY" envDefault:"60s"`
	CookieSecure         bool          `env:"COOKIE_SECURE" envDefault:"true"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	DatabaseDSN string `env:"DATABASE_DSN,required,notEmpty"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	TracingEnabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"bookmarks"`
}

// Load reads the configuration from the environment. A .env file is picked
// up by the godotenv autoload import in main; real variables take precedence.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	cfg.AuthURL = strings.TrimRight(cfg.AuthURL, "/")

	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	if cfg.SessionRefreshLeeway < 0 {
		return Config{}, fmt.Errorf("SESSION_REFRESH_LEEWAY must not be negative, got %s", cfg.SessionRefreshLeeway)
	}

	return cfg, nil
}

// CallbackURL is where the auth provider sends users back after email
// confirmation or social sign-in.
func (c Config) CallbackURL() string {
	return c.PublicBaseURL + "/auth/callback"
}
