package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"LoserLab/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORS            bool          `yaml:"cors"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		// Type selects where completed runs go: clickhouse, kafka or memory.
		Type string `yaml:"type"`
		// Prices selects the price store: clickhouse or memory.
		Prices string `yaml:"prices"`
		// PricesFile seeds the price store from a CSV at startup when set.
		PricesFile string `yaml:"prices_file"`
	} `yaml:"backend"`
	Backtest struct {
		TopK        int           `yaml:"top_k"`
		HoldYears   []int         `yaml:"hold_years"`
		Benchmark   string        `yaml:"benchmark"`
		Workers     int           `yaml:"workers"`
		LoadWorkers int           `yaml:"load_workers"`
		RunTimeout  time.Duration `yaml:"run_timeout"`
	} `yaml:"backtest"`
	Scoring struct {
		SuggestMode string  `yaml:"suggest_mode"`
		Threshold   float64 `yaml:"threshold"`
	} `yaml:"scoring"`
	Universe struct {
		File    string   `yaml:"file"`
		Exclude []string `yaml:"exclude"`
	} `yaml:"universe"`
	Metadata struct {
		File string `yaml:"file"`
	} `yaml:"metadata"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		RunTopic     string   `yaml:"run_topic"`
		PicksTopic   string   `yaml:"picks_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled   bool          `yaml:"enabled"`
		Addr      string        `yaml:"addr"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		SeriesTTL time.Duration `yaml:"series_ttl"`
		L1Size    int           `yaml:"l1_size"`
	} `yaml:"redis"`
	RateLimit struct {
		RunsPerMinute int `yaml:"runs_per_minute"`
		Burst         int `yaml:"burst"`
	} `yaml:"ratelimit"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (if present), then config from YAML, then applies
// environment overrides and validates again.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := getenv("PRICES_BACKEND"); v != "" {
		c.Backend.Prices = v
	}
	if v := getenv("PRICES_FILE"); v != "" {
		c.Backend.PricesFile = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitTrim(v, ",")
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("UNIVERSE_FILE"); v != "" {
		c.Universe.File = v
	}
	if v := getenv("METADATA_FILE"); v != "" {
		c.Metadata.File = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := getenv("HOLD_YEARS"); v != "" {
		if years := util.ParseIntList(v); len(years) > 0 {
			c.Backtest.HoldYears = years
		}
	}
	if v := getenv("BACKTEST_WORKERS"); v != "" {
		c.Backtest.Workers = util.ParseIntDefault(v, c.Backtest.Workers)
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Backend.Prices == "" {
		c.Backend.Prices = "memory"
	}
	if c.Backtest.TopK == 0 {
		c.Backtest.TopK = 5
	}
	if len(c.Backtest.HoldYears) == 0 {
		c.Backtest.HoldYears = []int{2, 5}
	}
	if c.Backtest.Benchmark == "" {
		c.Backtest.Benchmark = "SPY"
	}
	if c.Scoring.SuggestMode == "" {
		c.Scoring.SuggestMode = "quartile"
	}
	if c.Scoring.Threshold == 0 {
		c.Scoring.Threshold = 65
	}
	if c.Kafka.RunTopic == "" {
		c.Kafka.RunTopic = "backtest.runs"
	}
	if c.Kafka.PicksTopic == "" {
		c.Kafka.PicksTopic = "backtest.picks"
	}
	if c.Redis.SeriesTTL == 0 {
		c.Redis.SeriesTTL = 24 * time.Hour
	}
	if c.RateLimit.RunsPerMinute == 0 {
		c.RateLimit.RunsPerMinute = 10
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 3
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Backend.Type {
	case "clickhouse", "kafka", "memory":
	case "":
		return fmt.Errorf("backend.type is required")
	default:
		return fmt.Errorf("backend.type must be 'clickhouse', 'kafka' or 'memory', got '%s'", c.Backend.Type)
	}
	switch c.Backend.Prices {
	case "clickhouse", "memory":
	default:
		return fmt.Errorf("backend.prices must be 'clickhouse' or 'memory', got '%s'", c.Backend.Prices)
	}
	if c.NeedsClickHouse() && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required for the clickhouse backend")
	}
	if c.Backend.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty for the kafka backend")
	}
	if c.Universe.File == "" {
		return fmt.Errorf("universe.file is required")
	}
	if c.Backtest.TopK < 1 {
		return fmt.Errorf("backtest.top_k must be positive, got %d", c.Backtest.TopK)
	}
	for _, y := range c.Backtest.HoldYears {
		if y < 1 {
			return fmt.Errorf("backtest.hold_years must be positive, got %d", y)
		}
	}
	switch c.Scoring.SuggestMode {
	case "quartile", "correlation":
	default:
		return fmt.Errorf("scoring.suggest_mode must be 'quartile' or 'correlation', got '%s'", c.Scoring.SuggestMode)
	}
	if c.Scoring.Threshold < 0 || c.Scoring.Threshold > 100 {
		return fmt.Errorf("scoring.threshold must be within [0, 100], got %v", c.Scoring.Threshold)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}

// NeedsClickHouse reports whether any configured component uses ClickHouse.
func (c *Config) NeedsClickHouse() bool {
	return c.Backend.Type == "clickhouse" || c.Backend.Prices == "clickhouse"
}
