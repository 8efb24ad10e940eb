// Package config loads fuel-etl settings from defaults, config.yaml, .env and
// the process environment.
package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Default source endpoints published by the energy regulator.
const (
	DefaultPlacesURL = "https://publicacionexterna.azurewebsites.net/publicaciones/places"
	DefaultPricesURL = "https://publicacionexterna.azurewebsites.net/publicaciones/prices"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Boundaries BoundariesConfig `yaml:"boundaries" mapstructure:"boundaries"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the destination database.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SourcesConfig names the two remote feeds and where their local copies live.
type SourcesConfig struct {
	PlacesURL  string `yaml:"places_url" mapstructure:"places_url" validate:"required,url"`
	PricesURL  string `yaml:"prices_url" mapstructure:"prices_url" validate:"required,url"`
	DataDir    string `yaml:"data_dir" mapstructure:"data_dir" validate:"required"`
	PlacesFile string `yaml:"places_file" mapstructure:"places_file" validate:"required"`
	PricesFile string `yaml:"prices_file" mapstructure:"prices_file" validate:"required"`
}

// FetchConfig configures the HTTP client used for the feeds.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"gte=1"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec" validate:"gt=0"`
}

// BoundariesConfig selects the polygon layer used for reverse geocoding.
type BoundariesConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider" validate:"oneof=shapefile postgis"`
	Path       string `yaml:"path" mapstructure:"path"`
	StateField string `yaml:"state_field" mapstructure:"state_field"`
	CityField  string `yaml:"city_field" mapstructure:"city_field"`
	Table      string `yaml:"table" mapstructure:"table"`
}

// EnrichConfig bounds the enriched output. Zero disables a filter.
type EnrichConfig struct {
	TopStates int `yaml:"top_states" mapstructure:"top_states" validate:"gte=0"`
	MaxRows   int `yaml:"max_rows" mapstructure:"max_rows" validate:"gte=0"`
}

// MonitoringConfig configures run health checks.
type MonitoringConfig struct {
	WebhookURL             string `yaml:"webhook_url" mapstructure:"webhook_url" validate:"omitempty,url"`
	MaxAgeHours            int    `yaml:"max_age_hours" mapstructure:"max_age_hours" validate:"gte=1"`
	MaxConsecutiveFailures int    `yaml:"max_consecutive_failures" mapstructure:"max_consecutive_failures" validate:"gte=1"`
	LookbackRuns           int    `yaml:"lookback_runs" mapstructure:"lookback_runs" validate:"gte=1"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

var validate = validator.New()

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FUEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("store.database_url", "FUEL_STORE_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, eris.Wrap(err, "config: bind database url")
	}

	// Defaults
	v.SetDefault("sources.places_url", DefaultPlacesURL)
	v.SetDefault("sources.prices_url", DefaultPricesURL)
	v.SetDefault("sources.data_dir", "data")
	v.SetDefault("sources.places_file", "places.xml")
	v.SetDefault("sources.prices_file", "prices.xml")
	v.SetDefault("fetch.timeout_secs", 120)
	v.SetDefault("fetch.user_agent", "fuel-etl/1.0")
	v.SetDefault("fetch.rate_per_sec", 2.0)
	v.SetDefault("boundaries.provider", "shapefile")
	v.SetDefault("boundaries.path", "data/boundaries/municipios.shp")
	v.SetDefault("boundaries.state_field", "NOM_ENT")
	v.SetDefault("boundaries.city_field", "NOM_MUN")
	v.SetDefault("boundaries.table", "geo.municipal_boundaries")
	v.SetDefault("enrich.top_states", 0)
	v.SetDefault("enrich.max_rows", 0)
	v.SetDefault("monitoring.max_age_hours", 26)
	v.SetDefault("monitoring.max_consecutive_failures", 2)
	v.SetDefault("monitoring.lookback_runs", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return eris.Wrap(err, "config: validate")
	}
	switch c.Boundaries.Provider {
	case "shapefile":
		if c.Boundaries.Path == "" || c.Boundaries.StateField == "" || c.Boundaries.CityField == "" {
			return eris.New("config: shapefile boundaries need path, state_field and city_field")
		}
	case "postgis":
		if c.Boundaries.Table == "" {
			return eris.New("config: postgis boundaries need a table")
		}
	}
	return nil
}

// RequireDatabase returns an error when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.Store.DatabaseURL == "" {
		return eris.New("config: no database_url configured (set DATABASE_URL or FUEL_STORE_DATABASE_URL)")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
