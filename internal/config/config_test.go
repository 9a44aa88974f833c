package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{"PORT", "STORE", "DATABASE_URL", "SQLITE_PATH", "LOG_LEVEL", "RESYNC_SCHEDULE", "WORKER_COUNT",
	"FANOUT_QUEUE", "RECENT_ACTIONS_LIMIT", "SHUTDOWN_TIMEOUT", "WS_ORIGIN_PATTERNS", "BOARD_CONFIG"}

// clearEnv убирает переменные окружения на время теста.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		if old, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, old) })
		}
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "@every 30s", cfg.ResyncSchedule)
	assert.Equal(t, 20, cfg.RecentActionsLimit)
	assert.Equal(t, []string{"*"}, cfg.WSOriginPatterns)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port: "9090"
store: sqlite
sqlite_path: /tmp/board.db
worker_count: 5
shutdown_timeout: 15s
resync_schedule: ""
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, "/tmp/board.db", cfg.SQLitePath)
	assert.Equal(t, 5, cfg.WorkerCount)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.ResyncSchedule)
	assert.Equal(t, 256, cfg.FanoutQueue, "unset keys keep defaults")
}

func TestLoad_FileFromEnvAndOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "store: sqlite\nport: \"9090\"\n")
	t.Setenv("BOARD_CONFIG", path)
	t.Setenv("PORT", "7070")
	t.Setenv("STORE", "memory")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("RESYNC_SCHEDULE", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.Empty(t, cfg.ResyncSchedule, "empty env value disables resync")
}

func TestLoad_EnvOverridesEveryTunable(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
store: memory
fanout_queue: 10
recent_actions_limit: 5
shutdown_timeout: 3s
ws_origin_patterns: ["board.example.com"]
`)
	t.Setenv("FANOUT_QUEUE", "512")
	t.Setenv("RECENT_ACTIONS_LIMIT", "50")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("WS_ORIGIN_PATTERNS", "localhost:*, *.example.com,")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.FanoutQueue)
	assert.Equal(t, 50, cfg.RecentActionsLimit)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"localhost:*", "*.example.com"}, cfg.WSOriginPatterns)
}

func TestLoad_FileOriginPatterns(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "store: memory\nws_origin_patterns: [\"board.example.com\"]\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"board.example.com"}, cfg.WSOriginPatterns)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "port: [unterminated"))
	assert.Error(t, err)

	for key, value := range map[string]string{
		"WORKER_COUNT":         "many",
		"FANOUT_QUEUE":         "lots",
		"RECENT_ACTIONS_LIMIT": "twenty",
		"SHUTDOWN_TIMEOUT":     "soon",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"memory", func(c *Config) { c.Store = StoreMemory; c.DatabaseURL = "" }, false},
		{"unknown store", func(c *Config) { c.Store = "mongo" }, true},
		{"postgres without url", func(c *Config) { c.DatabaseURL = "" }, true},
		{"sqlite without path", func(c *Config) { c.Store = StoreSQLite; c.SQLitePath = "" }, true},
		{"zero workers", func(c *Config) { c.WorkerCount = 0 }, true},
		{"zero queue", func(c *Config) { c.FanoutQueue = 0 }, true},
		{"zero recent limit", func(c *Config) { c.RecentActionsLimit = 0 }, true},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }, true},
		{"no origin patterns", func(c *Config) { c.WSOriginPatterns = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
