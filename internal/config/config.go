package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/place-dedup/internal/dedupe"
	"github.com/sells-group/place-dedup/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig            `yaml:"store" mapstructure:"store"`
	Detection dedupe.DetectionConfig `yaml:"detection" mapstructure:"detection"`
	Review    ReviewConfig           `yaml:"review" mapstructure:"review"`
	Batch     BatchConfig            `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig           `yaml:"server" mapstructure:"server"`
	Log       LogConfig              `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects and configures the place store.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ReviewConfig configures the duplicate review service.
type ReviewConfig struct {
	MaxCandidates  int           `yaml:"max_candidates" mapstructure:"max_candidates"`
	MinClusterSize int           `yaml:"min_cluster_size" mapstructure:"min_cluster_size"`
	MinConfidence  float64       `yaml:"min_confidence" mapstructure:"min_confidence"`
	CacheTTL       time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	CacheSize      int           `yaml:"cache_size" mapstructure:"cache_size"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// BatchConfig configures batch detection.
type BatchConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	// ClusterRPS limits cluster computations per second across all clients.
	ClusterRPS   float64 `yaml:"cluster_rps" mapstructure:"cluster_rps"`
	ClusterBurst int     `yaml:"cluster_burst" mapstructure:"cluster_burst"`
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
	v.SetEnvPrefix("PLACEDEDUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	det := dedupe.DefaultDetectionConfig()
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "places.db")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("store.pool.connect_attempts", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.cluster_rps", 1.0)
	v.SetDefault("server.cluster_burst", 2)
	v.SetDefault("detection.name_threshold", det.NameThreshold)
	v.SetDefault("detection.location_threshold_km", det.LocationThresholdKM)
	v.SetDefault("detection.min_confidence_score", det.MinConfidenceScore)
	v.SetDefault("detection.weights.name", det.Weights.Name)
	v.SetDefault("detection.weights.location", det.Weights.Location)
	v.SetDefault("detection.weights.kind", det.Weights.Kind)
	v.SetDefault("detection.weights.city", det.Weights.City)
	v.SetDefault("detection.weights.country", det.Weights.Country)
	v.SetDefault("review.max_candidates", 1000)
	v.SetDefault("review.min_cluster_size", 2)
	v.SetDefault("review.min_confidence", 0.6)
	v.SetDefault("review.cache_ttl", 5*time.Minute)
	v.SetDefault("review.cache_size", 64)
	v.SetDefault("review.timeout", 5*time.Minute)
	v.SetDefault("batch.workers", 4)

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

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes: "store"
// (any command that opens the store), "engine" (detection and clustering),
// and "serve" (both, plus the HTTP server).
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "store":
		errs = append(errs, c.storeErrors()...)
	case "engine":
		errs = append(errs, c.engineErrors()...)
	case "serve":
		errs = append(errs, c.storeErrors()...)
		errs = append(errs, c.engineErrors()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port must be > 0 and <= 65535 (got %d)", c.Server.Port))
		}
		if c.Server.ClusterRPS < 0 {
			errs = append(errs, "server.cluster_rps must be >= 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) storeErrors() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres (got %q)", c.Store.Driver))
	}
	return errs
}

func (c *Config) engineErrors() []string {
	var errs []string
	if err := c.Detection.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Review.MaxCandidates < 1 {
		errs = append(errs, "review.max_candidates must be >= 1")
	}
	if c.Review.MinClusterSize < 2 {
		errs = append(errs, "review.min_cluster_size must be >= 2")
	}
	if c.Review.MinConfidence < 0 || c.Review.MinConfidence > 1 {
		errs = append(errs, "review.min_confidence must be between 0 and 1")
	}
	if c.Batch.Workers < 1 || c.Batch.Workers > 64 {
		errs = append(errs, "batch.workers must be between 1 and 64")
	}
	return errs
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
