package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Store drivers.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	// TrustedProxies lists CIDRs whose X-Forwarded-For is believed. Empty
	// means the client IP is the connection's remote address.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	Session SessionConfig
	Store   StoreConfig
	Auth    AuthConfig
	Mongo   MongoConfig
	Redis   RedisConfig
}

type SessionConfig struct {
	Secret string `env:"JWT_SECRET, required"`
	// TTL of zero issues tokens without an exp claim.
	TTL time.Duration `env:"SESSION_TTL, default=0s"`
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER, default=mongo"`
}

type AuthConfig struct {
	AccessLogSize     int           `env:"AUTH_ACCESS_LOG_SIZE,     default=10"`
	AttemptsPerMinute int           `env:"AUTH_ATTEMPTS_PER_MINUTE, default=10"`
	ReplayTTL         time.Duration `env:"AUTH_REPLAY_TTL,          default=24h"`
	BcryptCost        int           `env:"AUTH_BCRYPT_COST,         default=10"`
	AuditWorkers      int           `env:"AUDIT_WORKERS,            default=4"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity_auth"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// IsDevelopment reports whether human-friendly output should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration from an arbitrary lookuper.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if len(c.Session.Secret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.Session.TTL < 0 {
		return errors.New("SESSION_TTL must not be negative")
	}
	if _, err := c.TrustedProxyNets(); err != nil {
		return err
	}
	return nil
}

// TrustedProxyNets parses TrustedProxies.
func (c *Config) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, cidr := range c.TrustedProxies {
		_, n, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}
