package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "hr.db", cfg.HR.DSN)
	assert.Equal(t, "payroll.db", cfg.Payroll.DSN)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, DefaultCORSOrigins(), cfg.Server.CORSOrigins)
	assert.Contains(t, cfg.Server.CORSOrigins, "http://localhost:5173")
	assert.Equal(t, 15*time.Minute, cfg.Monitor.Interval)
	assert.False(t, cfg.Monitor.Enabled)
	assert.True(t, cfg.Fallback.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[server]
port = 9000
cors_origins = ["https://dashboard.example.com"]

[hr]
dsn = "/data/hr.db"

[logging]
level = "debug"
format = "json"

[monitor]
enabled = true
interval = "30s"
auto_sync = true
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := LoadFromFile(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"https://dashboard.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "/data/hr.db", cfg.HR.DSN)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Monitor.Enabled)
	assert.True(t, cfg.Monitor.AutoSync)
	assert.Equal(t, 30*time.Second, cfg.Monitor.Interval)

	// Unset values keep their defaults
	assert.Equal(t, "payroll.db", cfg.Payroll.DSN)
	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[server\nport = "), 0644))
	_, err = LoadFromFile(bad)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.ApplyEnv(envMap(map[string]string{
		"HR_DSN":           "file:hr.db",
		"PAYROLL_DSN":      "file:payroll.db",
		"PORT":             "8081",
		"LOG_LEVEL":        "warn",
		"CORS_ORIGINS":     "http://a.test, http://b.test,",
		"MONITOR_ENABLED":  "true",
		"MONITOR_INTERVAL": "5m",
		"FALLBACK_ENABLED": "false",
	}))
	require.NoError(t, err)

	assert.Equal(t, "file:hr.db", cfg.HR.DSN)
	assert.Equal(t, "file:payroll.db", cfg.Payroll.DSN)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Monitor.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Monitor.Interval)
	assert.False(t, cfg.Fallback.Enabled)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port", map[string]string{"PORT": "eighty"}},
		{"interval", map[string]string{"MONITOR_INTERVAL": "soon"}},
		{"bool", map[string]string{"FALLBACK_ENABLED": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, DefaultConfig().ApplyEnv(envMap(tt.env)))
		})
	}
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("HR_DSN=from-dotenv.db\nPAYROLL_DSN=payroll-dotenv.db\n"), 0644))

	t.Setenv("HR_DSN", "from-env.db")
	t.Setenv("PAYROLL_DSN", "")
	os.Unsetenv("PAYROLL_DSN")

	cfg, err := Load("", envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	t.Cleanup(func() { os.Unsetenv("PAYROLL_DSN") })

	assert.Equal(t, "from-env.db", cfg.HR.DSN)
	assert.Equal(t, "payroll-dotenv.db", cfg.Payroll.DSN)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty hr dsn", func(c *Config) { c.HR.DSN = "" }},
		{"empty payroll dsn", func(c *Config) { c.Payroll.DSN = "" }},
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"monitor interval", func(c *Config) { c.Monitor.Interval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
