package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
database:
  postgres:
    host: localhost
    database: triage
    user: triage
model:
  base_url: https://api.openai.com
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, minimalConfig)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "email-triage", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "gpt-4o", cfg.Model.Name)
	assert.Equal(t, 0, cfg.Model.Timeout, "model calls default to no deadline")
	assert.Equal(t, 64, cfg.Triage.EventBuffer)
	assert.Equal(t, 30, cfg.Triage.HeartbeatInterval)
	assert.Equal(t, 300, cfg.Triage.ProductCacheTTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing postgres host",
			content: `
database:
  postgres:
    database: triage
    user: triage
model:
  base_url: https://api.openai.com
`,
			wantErr: "database.postgres.host is required",
		},
		{
			name: "missing model base url",
			content: `
database:
  postgres:
    host: localhost
    database: triage
    user: triage
`,
			wantErr: "model.base_url is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			_, err := LoadFromFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("MODEL_API_KEY", "sk-from-env")
	t.Setenv("DB_PASSWORD", "pg-from-env")

	path := writeConfigFile(t, minimalConfig)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.Model.APIKey)
	assert.Equal(t, "pg-from-env", cfg.Database.Postgres.Password)
}

func TestGetDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "db", Port: 5432, Database: "triage",
		User: "app", Password: "secret", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=app password=secret dbname=triage sslmode=disable",
		p.GetDSN())
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, time.Duration(0), GetDuration(0))
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
