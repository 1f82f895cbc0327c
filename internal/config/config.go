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
	Oracle     OracleConfig       `yaml:"oracle" mapstructure:"oracle"`
	Fetch      FetchConfig        `yaml:"fetch" mapstructure:"fetch"`
	Batch      BatchConfig        `yaml:"batch" mapstructure:"batch"`
	Checkpoint CheckpointConfig   `yaml:"checkpoint" mapstructure:"checkpoint"`
	Store      StoreConfig        `yaml:"store" mapstructure:"store"`
	Reputation map[string]float64 `yaml:"reputation" mapstructure:"reputation"`
	Log        LogConfig          `yaml:"log" mapstructure:"log"`
}

// OracleConfig holds Anthropic API settings.
type OracleConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// FetchConfig configures article content fetching.
type FetchConfig struct {
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxBodyBytes      int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Size       int `yaml:"size" mapstructure:"size"`
	Workers    int `yaml:"workers" mapstructure:"workers"`
	PacingMsec int `yaml:"pacing_msec" mapstructure:"pacing_msec"`
}

// CheckpointConfig configures run resumption.
type CheckpointConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// StoreConfig configures the results database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
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
	v.SetEnvPrefix("VERIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default empty so env-only values bind on Unmarshal.
	v.SetDefault("oracle.key", "")
	v.SetDefault("oracle.model", "claude-haiku-4-5-20251001")
	v.SetDefault("oracle.max_tokens", 1024)
	v.SetDefault("oracle.timeout_secs", 60)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.timeout_secs", 25)
	v.SetDefault("fetch.max_body_bytes", 2<<20)
	v.SetDefault("fetch.requests_per_second", 2.0)
	v.SetDefault("batch.size", 15)
	v.SetDefault("batch.workers", 8)
	v.SetDefault("batch.pacing_msec", 300)
	v.SetDefault("checkpoint.path", "verification_checkpoint.json")
	v.SetDefault("store.path", "verifications.db")
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
