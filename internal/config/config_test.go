package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "8181"
  shutdown_timeout: 10s
  rate_limit:
    rps: 2.5
log:
  level: debug
storage:
  driver: sqlite
sqlite:
  path: /tmp/ledger.db
dashboard:
  locale: de
seed:
  demo: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8181", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 2.5, cfg.Server.RateLimit.RPS)
	assert.Equal(t, 20, cfg.Server.RateLimit.Burst)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/ledger.db", cfg.SQLite.Path)
	assert.Equal(t, "de", cfg.Dashboard.Locale)
	assert.False(t, cfg.Seed.Demo)
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "8181"
log:
  format: text
`)
	t.Setenv("RISKLEDGER_SERVER__PORT", "8282")
	t.Setenv("RISKLEDGER_SERVER__RATE_LIMIT__BURST", "5")
	t.Setenv("RISKLEDGER_STORAGE__DRIVER", "postgres")
	t.Setenv("RISKLEDGER_DATABASE__URL", "postgres://ledger:secret@db:5432/ledger")
	t.Setenv("RISKLEDGER_DATABASE__CONNECT_TIMEOUT", "5s")
	t.Setenv("RISKLEDGER_CORS__ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8282", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Server.RateLimit.Burst)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://ledger:secret@db:5432/ledger", cfg.Database.URL)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name:    "unknown driver",
			config:  "storage:\n  driver: mongo\n",
			wantErr: "invalid config",
		},
		{
			name:    "postgres without url",
			config:  "storage:\n  driver: postgres\n",
			wantErr: "database.url is required",
		},
		{
			name:    "bad log level",
			config:  "log:\n  level: loud\n",
			wantErr: "invalid config",
		},
		{
			name:    "negative rate limit",
			config:  "server:\n  rate_limit:\n    rps: -1\n",
			wantErr: "invalid config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.config))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "load config file")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.rate_limit.rps", envKey("RISKLEDGER_SERVER__RATE_LIMIT__RPS"))
	assert.Equal(t, "log.level", envKey("RISKLEDGER_LOG__LEVEL"))
}
