package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("MEMBERSHIP_AUTH_JWT_SECRET", testSecret)
	t.Setenv("MEMBERSHIP_SERVER_PORT", "9100")
	t.Setenv("MEMBERSHIP_AUTH_VERIFICATION_TTL", "24h")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.VerificationTTL)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, "SOCRP", cfg.Membership.IDPrefix)
	assert.Equal(t, 5, cfg.Membership.MaxIDAttempts)
	assert.Equal(t, "log", cfg.Email.Driver)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 8081
  public_url: https://api.example.org
auth:
  jwt_secret: ` + testSecret + `
  require_verified: true
membership:
  id_prefix: TEST
share:
  url_base: https://members.example.org/shared/
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "https://api.example.org", cfg.Server.PublicURL)
	assert.True(t, cfg.Auth.RequireVerified)
	assert.Equal(t, "TEST", cfg.Membership.IDPrefix)
	assert.Equal(t, "https://members.example.org/shared/", cfg.Share.URLBase)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:     ServerConfig{Port: 8000, PublicURL: "http://localhost"},
			Database:   DatabaseConfig{Driver: "sqlite", Path: "x.db"},
			Auth:       AuthConfig{JWTSecret: testSecret, AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour, VerificationTTL: time.Hour, BcryptCost: 10},
			Membership: MembershipConfig{IDPrefix: "SOCRP", MaxIDAttempts: 3},
			Email:      EmailConfig{Driver: "log"},
			Notify:     NotifyConfig{Workers: 1, QueueSize: 1},
			Storage:    StorageConfig{Backend: "public"},
			Logging:    LoggingConfig{Level: "info"},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }},
		{"refresh shorter than access", func(c *Config) { c.Auth.RefreshTokenTTL = time.Second }},
		{"bcrypt cost", func(c *Config) { c.Auth.BcryptCost = 2 }},
		{"no prefix", func(c *Config) { c.Membership.IDPrefix = "" }},
		{"smtp without host", func(c *Config) { c.Email = EmailConfig{Driver: "smtp"} }},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = "s3" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
