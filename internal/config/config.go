package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nextier/outreach-cli/internal/cost"
	"github.com/nextier/outreach-cli/internal/gate"
	"github.com/nextier/outreach-cli/internal/template"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Tracerfy    TracerfyConfig    `yaml:"tracerfy" mapstructure:"tracerfy"`
	Trestle     TrestleConfig     `yaml:"trestle" mapstructure:"trestle"`
	SignalHouse SignalHouseConfig `yaml:"signalhouse" mapstructure:"signalhouse"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Pricing     cost.Rates        `yaml:"pricing" mapstructure:"pricing"`
	Templates   []template.Group  `yaml:"templates" mapstructure:"templates"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the campaign repository backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite | postgres | memory
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// TracerfyConfig holds skip-trace API settings.
type TracerfyConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	Priority       string `yaml:"priority" mapstructure:"priority"`
	PollIntervalMs int    `yaml:"poll_interval_ms" mapstructure:"poll_interval_ms"`
	PollTimeoutMs  int    `yaml:"poll_timeout_ms" mapstructure:"poll_timeout_ms"`
}

// TrestleConfig holds contact-validation API settings.
type TrestleConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	LitigatorCheck bool   `yaml:"litigator_check" mapstructure:"litigator_check"`
}

// SignalHouseConfig holds SMS provider settings.
type SignalHouseConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SendingNumber string `yaml:"sending_number" mapstructure:"sending_number"`
}

// PipelineConfig is the externally tunable pipeline contract: block size,
// stage skip flags, the five gate parameters, two concurrency limits, and
// the inter-batch delay.
type PipelineConfig struct {
	BlockSize           int         `yaml:"block_size" mapstructure:"block_size"`
	SkipTrace           bool        `yaml:"skip_trace" mapstructure:"skip_trace"`
	SkipValidation      bool        `yaml:"skip_validation" mapstructure:"skip_validation"`
	TracerfyConcurrency int         `yaml:"tracerfy_concurrency" mapstructure:"tracerfy_concurrency"`
	TrestleConcurrency  int         `yaml:"trestle_concurrency" mapstructure:"trestle_concurrency"`
	InterBatchDelayMs   int         `yaml:"inter_batch_delay_ms" mapstructure:"inter_batch_delay_ms"`
	Gate                gate.Config `yaml:"gate" mapstructure:"gate"`
}

// ServerConfig configures the inbound webhook server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "outreach.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("tracerfy.base_url", "https://api.tracerfy.com/v1")
	v.SetDefault("tracerfy.priority", "normal")
	v.SetDefault("tracerfy.poll_interval_ms", 2000)
	v.SetDefault("tracerfy.poll_timeout_ms", 30000)
	v.SetDefault("trestle.base_url", "https://api.trestleiq.com/3.0")
	v.SetDefault("trestle.timeout_secs", 15)
	v.SetDefault("trestle.litigator_check", true)
	v.SetDefault("signalhouse.base_url", "https://api.signalhouse.io/v1")
	v.SetDefault("signalhouse.sending_number", "+18885550100")
	v.SetDefault("pipeline.block_size", 2000)
	v.SetDefault("pipeline.tracerfy_concurrency", 10)
	v.SetDefault("pipeline.trestle_concurrency", 10)
	v.SetDefault("pipeline.inter_batch_delay_ms", 100)
	v.SetDefault("pipeline.gate.min_grade", "C")
	v.SetDefault("pipeline.gate.min_activity_score", 70)
	v.SetDefault("pipeline.gate.require_mobile", true)
	v.SetDefault("pipeline.gate.require_name_match", false)
	v.SetDefault("pipeline.gate.block_litigators", true)
	v.SetDefault("pricing.trace_per_record", 0.02)
	v.SetDefault("pricing.validation_per_call", 0.03)
	v.SetDefault("pricing.sms_per_segment", 0.01)
	v.SetDefault("pricing.charge_on_failure", true)

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
