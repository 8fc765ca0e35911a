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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Yolwise   YolwiseConfig   `yaml:"yolwise" mapstructure:"yolwise"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Mapper    MapperConfig    `yaml:"mapper" mapstructure:"mapper"`
	Industry  IndustryConfig  `yaml:"industry" mapstructure:"industry"`
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Serve     ServeConfig     `yaml:"serve" mapstructure:"serve"`
	Sheets    SheetsConfig    `yaml:"sheets" mapstructure:"sheets"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the checkpoint store backend.
type StoreConfig struct {
	Driver      string     `yaml:"driver" mapstructure:"driver"` // sqlite | postgres
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig holds optional Postgres pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings for the fallback
// resolver and the narrative analysis call.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// YolwiseConfig holds remote scoring service settings. An empty
// BaseURL disables the remote path so every row scores locally.
type YolwiseConfig struct {
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string  `yaml:"api_key" mapstructure:"api_key"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
}

// BatchConfig configures the batch orchestrator.
type BatchConfig struct {
	BudgetSecs         int `yaml:"budget_secs" mapstructure:"budget_secs"`
	CheckpointEvery    int `yaml:"checkpoint_every" mapstructure:"checkpoint_every"`
	StateExpiryHours   int `yaml:"state_expiry_hours" mapstructure:"state_expiry_hours"`
	LockTTLSecs        int `yaml:"lock_ttl_secs" mapstructure:"lock_ttl_secs"`
	MaxPayloadBytes    int `yaml:"max_payload_bytes" mapstructure:"max_payload_bytes"`
	CompactKeepResults int `yaml:"compact_keep_results" mapstructure:"compact_keep_results"`
}

// MapperConfig configures the field mapper.
type MapperConfig struct {
	FieldsPath          string `yaml:"fields_path" mapstructure:"fields_path"` // optional YAML override
	MaxFactsPerCategory int    `yaml:"max_facts_per_category" mapstructure:"max_facts_per_category"`
	FallbackValueCap    int    `yaml:"fallback_value_cap" mapstructure:"fallback_value_cap"`
}

// IndustryConfig configures the industry classifier.
type IndustryConfig struct {
	TablePath string `yaml:"table_path" mapstructure:"table_path"` // optional YAML override
}

// AnalysisConfig configures the narrative analysis consumer.
type AnalysisConfig struct {
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size"`
}

// ServeConfig configures the local scoring HTTP server. An empty
// APIKey disables authentication on the scoring endpoints.
type ServeConfig struct {
	Addr   string `yaml:"addr" mapstructure:"addr"`
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// SheetsConfig holds Google Sheets access settings.
type SheetsConfig struct {
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
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
	v.SetEnvPrefix("LEADSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadscore.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("yolwise.base_url", "")
	v.SetDefault("yolwise.rps", 5.0)
	v.SetDefault("batch.budget_secs", 330)
	v.SetDefault("batch.checkpoint_every", 5)
	v.SetDefault("batch.state_expiry_hours", 24)
	v.SetDefault("batch.lock_ttl_secs", 60)
	v.SetDefault("batch.max_payload_bytes", 500*1024)
	v.SetDefault("batch.compact_keep_results", 50)
	v.SetDefault("mapper.max_facts_per_category", 5)
	v.SetDefault("mapper.fallback_value_cap", 120)
	v.SetDefault("analysis.cache_size", 256)
	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("sheets.credentials_file", "credentials.json")

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
