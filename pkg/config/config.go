package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Threshold maps a fractional adverse move to a severity. Thresholds
// must be configured ascending by percent.
type Threshold struct {
	Percent  float64 `yaml:"percent"`
	Severity string  `yaml:"severity"`
	Message  string  `yaml:"message"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`

	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Redis struct {
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		PoolSize     int           `yaml:"pool_size" default:"10"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"5"`
		PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s"`
		Prefix       string        `yaml:"prefix" default:"biasguard"`
		Retry        struct {
			MaxAttempts int           `yaml:"max_attempts" default:"3"`
			Backoff     time.Duration `yaml:"backoff" default:"100ms"`
			Factor      float64       `yaml:"factor" default:"2.0"`
		} `yaml:"retry"`
	} `yaml:"redis"`

	// Rules carries the consistency engine knobs. The fast-decision
	// (0DTE) profile is the default: a 3 minute gate in normal
	// conditions, tightened windows when the market is unstable.
	Rules struct {
		TimeGateMinutes struct {
			Normal   int `yaml:"normal" default:"3"`
			Volatile int `yaml:"volatile" default:"5"`
			Choppy   int `yaml:"choppy" default:"5"`
		} `yaml:"time_gate_minutes"`
		OverrideTimeGateAllowed bool        `yaml:"override_time_gate_allowed"`
		MaxChangesPerHour       int         `yaml:"max_changes_per_hour" default:"2"`
		LookbackMinutes         int         `yaml:"lookback_minutes" default:"60"`
		PriceMovementThresholds []Threshold `yaml:"price_movement_thresholds"`
	} `yaml:"rules"`

	Storage struct {
		BiasTTL           time.Duration `yaml:"bias_ttl" default:"24h"`
		DecisionTTL       time.Duration `yaml:"decision_ttl" default:"168h"`
		ChangeTTL         time.Duration `yaml:"change_ttl" default:"72h"`
		PositionTTL       time.Duration `yaml:"position_ttl" default:"24h"`
		SessionTTL        time.Duration `yaml:"session_ttl" default:"168h"`
		HistoryMaxLength  int64         `yaml:"history_max_length" default:"100"`
		PositionMaxLength int64         `yaml:"position_max_length" default:"20"`
		DecisionMaxLength int64         `yaml:"decision_max_length" default:"500"`
	} `yaml:"storage"`

	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"trading.decisions"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Enabled     bool          `yaml:"enabled"`
		Host        string        `yaml:"host"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"biasguard"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"clickhouse"`
}

// DefaultThresholds is the documented adverse-move table: severity of
// the highest band crossed wins.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{Percent: 0.05, Severity: "medium", Message: "5% adverse move - consider reducing position"},
		{Percent: 0.10, Severity: "high", Message: "10% adverse move - bias likely invalid"},
		{Percent: 0.20, Severity: "critical", Message: "20% adverse move - stop loss triggered"},
	}
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if len(c.Rules.PriceMovementThresholds) == 0 {
		c.Rules.PriceMovementThresholds = DefaultThresholds()
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, err := net.SplitHostPort(v)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_ADDR: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_ADDR port: %w", err)
		}
		c.Redis.Host = host
		c.Redis.Port = p
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse PORT: %w", err)
		}
		c.Server.Port = p
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Redis.Host == "" {
		return fmt.Errorf("redis.host is required")
	}
	if c.Rules.MaxChangesPerHour < 1 {
		return fmt.Errorf("rules.max_changes_per_hour must be at least 1")
	}
	if c.Rules.LookbackMinutes < 1 {
		return fmt.Errorf("rules.lookback_minutes must be at least 1")
	}
	for i, t := range c.Rules.PriceMovementThresholds {
		if t.Percent <= 0 || t.Percent >= 1 {
			return fmt.Errorf("rules.price_movement_thresholds[%d].percent must be in (0, 1)", i)
		}
		if i > 0 && t.Percent <= c.Rules.PriceMovementThresholds[i-1].Percent {
			return fmt.Errorf("rules.price_movement_thresholds must be ascending by percent")
		}
		switch t.Severity {
		case "low", "medium", "high", "critical":
		default:
			return fmt.Errorf("rules.price_movement_thresholds[%d].severity is invalid: %q", i, t.Severity)
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
