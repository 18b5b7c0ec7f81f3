package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the keyserver. It is loaded once at
// startup and treated as read-only afterwards.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Admin    AdminConfig
	BuyURL   string
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	Driver          string
	URL             string
	SQLitePath      string
	MigrationsDir   string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

// AdminConfig carries the shared admin credential, either in plain text or
// as a bcrypt hash. Both may be empty, in which case admin operations fail.
type AdminConfig struct {
	Secret     string
	SecretHash string
}

// Configured reports whether any admin credential was supplied.
func (a AdminConfig) Configured() bool {
	return a.Secret != "" || a.SecretHash != ""
}

// String keeps the secret out of logs and fmt output.
func (a AdminConfig) String() string {
	if a.Configured() {
		return "AdminConfig{set}"
	}
	return "AdminConfig{unset}"
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Load reads configuration from environment variables and returns a validated Config.
// A .env file in the working directory is applied first when present; variables
// already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("KEYSERVER_PORT", 8080),
			Env:  envString("KEYSERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(envString("DATABASE_DRIVER", DriverPostgres)),
			URL:             os.Getenv("DATABASE_URL"),
			SQLitePath:      envString("SQLITE_PATH", "keyserver.db"),
			MigrationsDir:   envString("MIGRATIONS_DIR", "migrations"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			CacheTTL: envDuration("CACHE_TTL", 10*time.Minute),
		},
		Admin: AdminConfig{
			Secret:     os.Getenv("ADMIN_KEY"),
			SecretHash: os.Getenv("ADMIN_KEY_BCRYPT"),
		},
		BuyURL: os.Getenv("BUY_URL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER is postgres")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DATABASE_DRIVER is sqlite")
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER must be one of postgres, sqlite; got %q", c.Database.Driver)
	}

	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	if c.BuyURL != "" && !strings.HasPrefix(c.BuyURL, "http://") && !strings.HasPrefix(c.BuyURL, "https://") {
		return fmt.Errorf("BUY_URL must start with http:// or https://, got %q", c.BuyURL)
	}

	if c.Admin.SecretHash != "" && !strings.HasPrefix(c.Admin.SecretHash, "$2") {
		return fmt.Errorf("ADMIN_KEY_BCRYPT must be a bcrypt hash")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
