package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config for the whole application
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	API     APIConfig     `mapstructure:"api"`
	Pricing PricingConfig `mapstructure:"pricing"`
	Risk    RiskConfig    `mapstructure:"risk"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// General application configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// Configuration for the API server
type APIConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxPathPoints caps paths*(steps+1) of a single simulation request
	MaxPathPoints int             `mapstructure:"max_path_points"`
	CORS          CORSConfig      `mapstructure:"cors"`
	RateLimit     RateLimitConfig `mapstructure:"rate_limit"`
}

// Per-client request limits. Zero requests_per_second disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// Defaults applied to pricing requests that leave a field unset
type PricingConfig struct {
	RiskFreeRate float64 `mapstructure:"risk_free_rate"`
	Trials       int     `mapstructure:"trials"`
	Steps        int     `mapstructure:"steps"`
	PathSteps    int     `mapstructure:"path_steps"`
	Workers      int     `mapstructure:"workers"`
	// Seed makes every unseeded request reproducible when set
	Seed *int64 `mapstructure:"seed"`
}

// Configuration for risk calculations
type RiskConfig struct {
	ConfidenceLevel  float64 `mapstructure:"confidence_level"`
	Horizon          int     `mapstructure:"horizon"`
	PeriodsPerYear   float64 `mapstructure:"periods_per_year"`
	RequiredReturn   float64 `mapstructure:"required_return"`
	SimulationRuns   int     `mapstructure:"simulation_runs"`
	HistoricalWindow int     `mapstructure:"historical_window"`
}

// Configuration for Kafka
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	GroupID      string        `mapstructure:"group_id"`
	RequestTopic string        `mapstructure:"request_topic"`
	ResultTopic  string        `mapstructure:"result_topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	Workers      int           `mapstructure:"workers"`
}

// Configuration for metrics
type MetricsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Port     int           `mapstructure:"port"`
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads defaults, then the YAML file at path, then QUANT_* environment
// variables. An empty path means GetConfigPath(); a missing file at the
// default location is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	explicit := path != ""
	if !explicit {
		path = GetConfigPath()
	}

	_, statErr := os.Stat(path)
	if explicit || !errors.Is(statErr, os.ErrNotExist) {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("QUANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// keys without a default are invisible to AutomaticEnv during Unmarshal
	if err := v.BindEnv("pricing.seed"); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate rejects settings no component can run with
func (c *Config) Validate() error {
	switch {
	case c.API.Port <= 0 || c.API.Port > 65535:
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	case c.API.MaxPathPoints <= 0:
		return fmt.Errorf("api.max_path_points must be positive")
	case c.Pricing.Trials <= 0:
		return fmt.Errorf("pricing.trials must be positive")
	case c.Pricing.Steps <= 0:
		return fmt.Errorf("pricing.steps must be positive")
	case c.Pricing.PathSteps <= 0:
		return fmt.Errorf("pricing.path_steps must be positive")
	case c.Pricing.Workers <= 0:
		return fmt.Errorf("pricing.workers must be positive")
	case c.Risk.ConfidenceLevel <= 0 || c.Risk.ConfidenceLevel >= 1:
		return fmt.Errorf("risk.confidence_level must be in (0, 1)")
	case c.Risk.Horizon < 1:
		return fmt.Errorf("risk.horizon must be at least 1")
	case c.Risk.PeriodsPerYear <= 0:
		return fmt.Errorf("risk.periods_per_year must be positive")
	case c.Kafka.Enabled && len(c.Kafka.Brokers) == 0:
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	case c.Metrics.Enabled && c.Metrics.Interval <= 0:
		return fmt.Errorf("metrics.interval must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "quant-options-lab")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "10s")
	v.SetDefault("api.write_timeout", "60s")
	v.SetDefault("api.shutdown_timeout", "30s")
	v.SetDefault("api.rate_limit.requests_per_second", 0)
	v.SetDefault("api.rate_limit.burst", 20)
	v.SetDefault("api.max_path_points", 1_000_000)
	v.SetDefault("api.cors.allowed_origins", []string{"*"})
	v.SetDefault("api.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("api.cors.allowed_headers", []string{"Authorization", "Content-Type"})

	// Pricing defaults
	v.SetDefault("pricing.risk_free_rate", 0.05)
	v.SetDefault("pricing.trials", 100_000)
	v.SetDefault("pricing.steps", 1)
	v.SetDefault("pricing.path_steps", 252)
	v.SetDefault("pricing.workers", 4)

	// Risk defaults
	v.SetDefault("risk.confidence_level", 0.95)
	v.SetDefault("risk.horizon", 1)
	v.SetDefault("risk.periods_per_year", 252)
	v.SetDefault("risk.required_return", 0.0)
	v.SetDefault("risk.simulation_runs", 10000)
	v.SetDefault("risk.historical_window", 0)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.group_id", "pricing-engine")
	v.SetDefault("kafka.request_topic", "pricing.requests")
	v.SetDefault("kafka.result_topic", "pricing.results")
	v.SetDefault("kafka.batch_timeout", "10ms")
	v.SetDefault("kafka.workers", 4)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.interval", "15s")
}

// GetConfigPath returns QUANT_CONFIG_PATH or the conventional location
func GetConfigPath() string {
	configPath := os.Getenv("QUANT_CONFIG_PATH")
	if configPath != "" {
		return configPath
	}

	return "./config/config.yaml"
}
