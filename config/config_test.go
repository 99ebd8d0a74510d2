package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: "9090"
  env: production
  cors_origins:
    - https://tasks.example.com
database:
  driver: mongo
  mongo_uri: mongodb://db:27017
jwt:
  access_secret: access-secret
  refresh_secret: refresh-secret
  access_ttl: 30m
  refresh_ttl: 72h
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o600))
	return dir
}

func TestLoadConfig_FromFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.CookieSecure())
	assert.Equal(t, []string{"https://tasks.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, "mongodb://db:27017", cfg.Database.MongoURI)
	assert.Equal(t, 30*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 72*time.Hour, cfg.JWT.RefreshTTL)

	// untouched sections keep their defaults
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "strict", cfg.Cookie.SameSite)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "env-access")
	t.Setenv("JWT_REFRESH_SECRET", "env-refresh")
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "env-access", cfg.JWT.AccessSecret)
	assert.Equal(t, "env-refresh", cfg.JWT.RefreshSecret)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.False(t, cfg.CookieSecure())
}

func TestLoadConfig_MissingSecrets(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database:  DatabaseConfig{Driver: DriverPostgres},
			JWT:       JWTConfig{AccessSecret: "a", RefreshSecret: "b", AccessTTL: time.Minute, RefreshTTL: time.Hour},
			Cookie:    CookieConfig{SameSite: "lax"},
			Auth:      AuthConfig{BcryptCost: 10},
			RateLimit: RateLimitConfig{Requests: 1, Window: time.Second, Burst: 1},
		}
	}

	assert.NoError(t, valid().Validate())

	secureNone := valid()
	secureNone.Cookie = CookieConfig{SameSite: "none", Secure: true}
	assert.NoError(t, secureNone.Validate())

	prodNone := valid()
	prodNone.Cookie.SameSite = "None"
	prodNone.Server.Env = "production"
	assert.NoError(t, prodNone.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"same secrets", func(c *Config) { c.JWT.RefreshSecret = c.JWT.AccessSecret }},
		{"refresh shorter than access", func(c *Config) { c.JWT.RefreshTTL = time.Second }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }},
		{"bad same site", func(c *Config) { c.Cookie.SameSite = "sometimes" }},
		{"same site none without secure", func(c *Config) { c.Cookie.SameSite = "none" }},
		{"bcrypt cost", func(c *Config) { c.Auth.BcryptCost = 2 }},
		{"storage without bucket", func(c *Config) { c.Storage.Enabled = true }},
		{"zero rate limit", func(c *Config) { c.RateLimit.Burst = 0 }},
		{"bad trusted proxy", func(c *Config) { c.RateLimit.TrustedProxies = []string{"10.0.0.0/33"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestTrustedProxyPrefixes(t *testing.T) {
	prefixes, err := RateLimitConfig{TrustedProxies: []string{"10.0.0.0/8", " 192.0.2.7 ", "", "::ffff:198.51.100.1", "2001:db8::/32"}}.TrustedProxyPrefixes()
	require.NoError(t, err)
	require.Len(t, prefixes, 4)
	assert.Equal(t, "10.0.0.0/8", prefixes[0].String())
	assert.Equal(t, "192.0.2.7/32", prefixes[1].String())
	assert.Equal(t, "198.51.100.1/32", prefixes[2].String())
	assert.Equal(t, "2001:db8::/32", prefixes[3].String())

	_, err = RateLimitConfig{TrustedProxies: []string{"proxy.local"}}.TrustedProxyPrefixes()
	assert.Error(t, err)
}
