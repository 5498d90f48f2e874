package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"recipefinder/internal/recipe"
	"recipefinder/internal/search"
)

// Config is the application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Search   SearchConfig   `mapstructure:"search"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowOrigins   []string      `mapstructure:"allow_origins"`
}

// DatabaseConfig selects the recipe database.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

// SearchConfig tunes the search pipeline.
type SearchConfig struct {
	TopNDB                 int     `mapstructure:"top_n_db"`
	DedupeThreshold        float64 `mapstructure:"dedupe_threshold"`
	MinPairSim             float64 `mapstructure:"min_pair_sim"`
	Alpha                  float64 `mapstructure:"alpha"`
	SkipHungarianThreshold float64 `mapstructure:"skip_hungarian_threshold"`
	// CanonicalLexicon loads the store's canonical ingredient forms at start
	// up to canonicalize user terms.
	CanonicalLexicon bool `mapstructure:"canonical_lexicon"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Options converts the search settings to pipeline options.
func (s SearchConfig) Options() search.Options {
	return search.Options{
		TopNDB:                 s.TopNDB,
		DedupeThreshold:        s.DedupeThreshold,
		MinPairSim:             s.MinPairSim,
		Alpha:                  s.Alpha,
		SkipHungarianThreshold: s.SkipHungarianThreshold,
	}
}

// Load reads the configuration. Values come, in increasing precedence, from
// defaults, the optional config file (path, or ./config.yaml when path is
// empty), a .env file and RECIPEFINDER_* environment variables. DATABASE_URL
// is honoured for the database URL.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RECIPEFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.url", "RECIPEFINDER_DATABASE_URL", "DATABASE_URL")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("server.allow_origins", []string{"http://localhost:8081"})

	v.SetDefault("database.driver", recipe.DriverSQLite)
	v.SetDefault("database.url", "recipes.db")

	v.SetDefault("search.top_n_db", search.DefaultTopNDB)
	v.SetDefault("search.dedupe_threshold", search.DefaultDedupeThreshold)
	v.SetDefault("search.min_pair_sim", search.DefaultMinPairSim)
	v.SetDefault("search.alpha", search.DefaultAlpha)
	v.SetDefault("search.skip_hungarian_threshold", search.DefaultSkipHungarianThreshold)
	v.SetDefault("search.canonical_lexicon", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request timeout %s", c.Server.RequestTimeout)
	}

	switch c.Database.Driver {
	case recipe.DriverPostgres, recipe.DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}

	s := c.Search
	if s.TopNDB <= 0 {
		return fmt.Errorf("invalid search top_n_db %d", s.TopNDB)
	}
	if s.DedupeThreshold < 0 || s.DedupeThreshold > 100 {
		return fmt.Errorf("search dedupe_threshold must be within [0, 100]")
	}
	for name, val := range map[string]float64{
		"min_pair_sim":             s.MinPairSim,
		"alpha":                    s.Alpha,
		"skip_hungarian_threshold": s.SkipHungarianThreshold,
	} {
		if val < 0 || val > 1 {
			return fmt.Errorf("search %s must be within [0, 1]", name)
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}
