package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, 12, cfg.ChartMonths)
	assert.Equal(t, "/uploads", cfg.Upload.BaseURL)
	assert.Equal(t, "@hourly", cfg.Jobs.RepairSchedule)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	err := os.WriteFile(path, []byte(`
port = "9090"
db_driver = "sqlite"
db_conn = "file:loans.db"
chart_months = 6

[upload]
dir = "/var/lib/loans/uploads"

[smtp]
host = "smtp.example.com"
`), 0o600)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("TOKEN_TTL", "2h")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port, "env overrides file")
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "file:loans.db", cfg.DBConn)
	assert.Equal(t, 6, cfg.ChartMonths)
	assert.Equal(t, "/var/lib/loans/uploads", cfg.Upload.Dir)
	assert.Equal(t, "/uploads", cfg.Upload.BaseURL, "unset keys keep defaults")
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)

	ttl, err := cfg.TokenLifetime()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, ttl)
}

func TestNewConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown driver", "DB_DRIVER", "mysql"},
		{"bad ttl", "TOKEN_TTL", "forever"},
		{"short key", "ENCRYPTION_KEY", "abcd"},
		{"non-hex key", "ENCRYPTION_KEY", "zz"},
		{"chart months", "CHART_MONTHS", "0"},
		{"non-numeric width", "UPLOAD_MAX_WIDTH", "wide"},
		{"empty secret", "JWT_SECRET", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := NewConfig()
			assert.Error(t, err)
		})
	}
}

func TestEncryptionKeyBytes(t *testing.T) {
	cfg := DefaultConfig()
	key, err := cfg.EncryptionKeyBytes()
	require.NoError(t, err)
	assert.Len(t, key, 32)
}
