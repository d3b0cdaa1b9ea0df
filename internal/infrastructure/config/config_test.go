package config

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSecret = "0123456789abcdef"

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": validSecret,
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, StoreMongo, cfg.Store.Driver)
	assert.Equal(t, time.Duration(0), cfg.Session.TTL)
	assert.Equal(t, 10, cfg.Auth.AccessLogSize)
	assert.Equal(t, 10, cfg.Auth.AttemptsPerMinute)
	assert.Equal(t, 24*time.Hour, cfg.Auth.ReplayTTL)
	assert.Equal(t, 4, cfg.Auth.AuditWorkers)
	assert.Equal(t, "identity_auth", cfg.Mongo.Database)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":           validSecret,
		"ENV":                  "production",
		"STORE_DRIVER":         "memory",
		"SESSION_TTL":          "12h",
		"AUTH_ACCESS_LOG_SIZE": "25",
		"REDIS_DB":             "3",
		"TRUSTED_PROXIES":      "10.0.0.0/8,192.168.1.0/24",
	}))
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 25, cfg.Auth.AccessLogSize)
	assert.Equal(t, 3, cfg.Redis.DB)

	nets, err := cfg.TrustedProxyNets()
	require.NoError(t, err)
	require.Len(t, nets, 2)
	assert.True(t, nets[0].Contains(net.ParseIP("10.1.2.3")))
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"missing secret": {},
		"short secret":   {"JWT_SECRET": "short"},
		"unknown driver": {"JWT_SECRET": validSecret, "STORE_DRIVER": "postgres"},
		"negative ttl":   {"JWT_SECRET": validSecret, "SESSION_TTL": "-1m"},
		"bad number":     {"JWT_SECRET": validSecret, "AUDIT_WORKERS": "many"},
		"bad proxy cidr": {"JWT_SECRET": validSecret, "TRUSTED_PROXIES": "10.0.0.1"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(context.Background(), envconfig.MapLookuper(env))
			assert.Error(t, err)
		})
	}
}
