// Package config loads the service configuration.
//
// Values are layered, later layers winning:
//  1. Defaults: defaultConfig() below
//  2. Config file: optional YAML (MOVIEKU_CONFIG, else ./config.yaml if present)
//  3. Environment: MOVIEKU_<SECTION>_<KEY>, e.g. MOVIEKU_AUTH_JWT_SECRET → auth.jwt_secret
//
// The result is validated once; a bad value stops startup instead of
// surfacing on the first request.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/sakif/movieku/internal/apperror"
	"github.com/sakif/movieku/internal/validation"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "MOVIEKU_"
	// PathEnvVar names the config file to load.
	PathEnvVar = "MOVIEKU_CONFIG"
	// DefaultPath is loaded when it exists and PathEnvVar is unset.
	DefaultPath = "config.yaml"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	TMDB     TMDBConfig     `koanf:"tmdb"`
	Admin    AdminConfig    `koanf:"admin"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string `koanf:"cors_origins"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `koanf:"driver" validate:"oneof=sqlite postgres"`
	// DSN is a file path for sqlite, a connection URL for postgres.
	DSN string `koanf:"dsn" validate:"required"`
}

type AuthConfig struct {
	JWTSecret  string        `koanf:"jwt_secret" validate:"required,min=16"`
	TokenTTL   time.Duration `koanf:"token_ttl" validate:"gt=0"`
	BcryptCost int           `koanf:"bcrypt_cost" validate:"gte=4,lte=31"`
	// AuthRateLimit is the number of login/register attempts allowed per
	// client IP per minute.
	AuthRateLimit int `koanf:"rate_limit" validate:"gt=0"`
}

type TMDBConfig struct {
	APIKey          string        `koanf:"api_key"`
	ReadAccessToken string        `koanf:"read_access_token"`
	BaseURL         string        `koanf:"base_url" validate:"required,url"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
}

// AdminConfig bootstraps an administrator at startup. Leave Email empty to
// skip.
type AdminConfig struct {
	Email    string `koanf:"email" validate:"omitempty,email"`
	Name     string `koanf:"name"`
	Password string `koanf:"password" validate:"omitempty,min=6"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second, // TMDB calls can take up to 10s
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"http://localhost:5173"},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "data/movieku.db",
		},
		Auth: AuthConfig{
			TokenTTL:      24 * time.Hour,
			BcryptCost:    12,
			AuthRateLimit: 10,
		},
		TMDB: TMDBConfig{
			BaseURL: "https://api.themoviedb.org/3",
			Timeout: 10 * time.Second,
		},
		Admin: AdminConfig{
			Name: "Administrator",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the default locations.
func Load() (*Config, error) {
	path := os.Getenv(PathEnvVar)
	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit config file; "" skips the file layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	if err := splitListFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// envKey maps MOVIEKU_AUTH_JWT_SECRET to auth.jwt_secret. Only the first
// underscore after the prefix separates section from key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, found := strings.Cut(s, "_")
	if !found {
		return s
	}
	return section + "." + key
}

// listFields arrive from the environment as comma-separated strings.
var listFields = []string{"server.cors_origins"}

func splitListFields(k *koanf.Koanf) error {
	for _, path := range listFields {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := []string{}
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("config: setting %s: %w", path, err)
		}
	}
	return nil
}

// Validate checks field constraints and the rules spanning fields.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	if c.Admin.Email != "" && c.Admin.Password == "" {
		return apperror.ValidationFailed("admin.password", "admin.password is required when admin.email is set")
	}
	return nil
}

// AdminBootstrap reports whether an administrator should be ensured at startup.
func (c *Config) AdminBootstrap() bool {
	return c.Admin.Email != ""
}

// ErrMissingProviderCredentials is returned by ProviderCredentials when
// neither TMDB credential is configured.
var ErrMissingProviderCredentials = errors.New("no tmdb api_key or read_access_token configured")

// ProviderCredentials reports whether TMDB calls can authenticate. The
// server still starts without them; provider-backed endpoints then fail.
func (c *Config) ProviderCredentials() error {
	if c.TMDB.APIKey == "" && c.TMDB.ReadAccessToken == "" {
		return ErrMissingProviderCredentials
	}
	return nil
}
