// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Enrich   EnrichConfig   `yaml:"enrich" mapstructure:"enrich"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// DatabaseConfig configures the PostGIS connection backing the geometry
// engine.
type DatabaseConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// EnrichConfig configures the enrichment pipeline. Thresholds apply
// identically to both region layers.
type EnrichConfig struct {
	MinLengthM  float64 `yaml:"min_length_m" mapstructure:"min_length_m"`
	MinShare    float64 `yaml:"min_share" mapstructure:"min_share"`
	StorageSRID int     `yaml:"storage_srid" mapstructure:"storage_srid"`
	MeasureSRID int     `yaml:"measure_srid" mapstructure:"measure_srid"`
	Workers     int     `yaml:"workers" mapstructure:"workers"`
}

// Validate checks threshold and CRS sanity.
func (c EnrichConfig) Validate() error {
	if c.MinLengthM < 0 {
		return eris.New("config: enrich.min_length_m must be >= 0")
	}
	if c.MinShare < 0 || c.MinShare > 1 {
		return eris.New("config: enrich.min_share must be in [0, 1]")
	}
	if c.StorageSRID <= 0 || c.MeasureSRID <= 0 {
		return eris.New("config: enrich SRIDs must be positive")
	}
	return nil
}

// FetchConfig configures boundary downloads.
type FetchConfig struct {
	BoundaryURL string  `yaml:"boundary_url" mapstructure:"boundary_url"`
	Retries     int     `yaml:"retries" mapstructure:"retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// OutputConfig configures artifact locations.
type OutputConfig struct {
	DataDir    string `yaml:"data_dir" mapstructure:"data_dir"`
	PublicDir  string `yaml:"public_dir" mapstructure:"public_dir"`
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// ServerConfig configures the local artifact server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ROUTEENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8000)
	v.SetDefault("enrich.min_length_m", 0.0)
	v.SetDefault("enrich.min_share", 0.0)
	v.SetDefault("enrich.storage_srid", 4326)
	v.SetDefault("enrich.measure_srid", 27700)
	v.SetDefault("enrich.workers", 4)
	v.SetDefault("fetch.retries", 3)
	v.SetDefault("fetch.rate_per_sec", 1.0)
	v.SetDefault("output.data_dir", "data")
	v.SetDefault("output.public_dir", "public")
	v.SetDefault("output.sqlite_path", "data/routes.db")

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
	if err := cfg.Enrich.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
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
