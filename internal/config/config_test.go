package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipefinder/internal/search"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"http://localhost:8081"}, cfg.Server.AllowOrigins)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "recipes.db", cfg.Database.URL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Search.CanonicalLexicon)
	assert.Equal(t, search.DefaultOptions(), cfg.Search.Options())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipefinder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
database:
  driver: postgres
  url: postgres://localhost/recipes?sslmode=disable
search:
  top_n_db: 500
  alpha: 0.5
log:
  level: debug
  development: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/recipes?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, 500, cfg.Search.TopNDB)
	assert.Equal(t, 0.5, cfg.Search.Alpha)
	assert.Equal(t, search.DefaultMinPairSim, cfg.Search.MinPairSim)
	assert.True(t, cfg.Log.Development)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("RECIPEFINDER_SERVER_PORT", "7070")
	t.Setenv("RECIPEFINDER_SEARCH_SKIP_HUNGARIAN_THRESHOLD", "0.3")
	t.Setenv("DATABASE_URL", "/data/recipes.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 0.3, cfg.Search.SkipHungarianThreshold)
	assert.Equal(t, "/data/recipes.db", cfg.Database.URL)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("RECIPEFINDER_DATABASE_DRIVER", "mysql")

	_, err := Load("")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080, RequestTimeout: time.Second},
			Database: DatabaseConfig{Driver: "sqlite", URL: ":memory:"},
			Search: SearchConfig{
				TopNDB:                 10,
				DedupeThreshold:        95,
				MinPairSim:             0.9,
				Alpha:                  0.75,
				SkipHungarianThreshold: 0.2,
			},
			Log: LogConfig{Level: "info"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"timeout", func(c *Config) { c.Server.RequestTimeout = 0 }},
		{"url", func(c *Config) { c.Database.URL = "" }},
		{"top n", func(c *Config) { c.Search.TopNDB = 0 }},
		{"dedupe threshold", func(c *Config) { c.Search.DedupeThreshold = 101 }},
		{"alpha", func(c *Config) { c.Search.Alpha = 1.5 }},
		{"min pair sim", func(c *Config) { c.Search.MinPairSim = -0.1 }},
		{"log level", func(c *Config) { c.Log.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
