package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ModelEndpoint describes one candidate model's prediction endpoint.
type ModelEndpoint struct {
	ID      string        `yaml:"id" validate:"required"`
	URL     string        `yaml:"url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" default:"20s"`
}

type Config struct {
	Environment string `yaml:"environment" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type" validate:"required,oneof=kafka clickhouse"`
		BatchSize    int           `yaml:"batch_size" default:"200"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"bench.round_outcomes"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"forecastbench"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"100"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"10000"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"forecastbench"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Resolver struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		APIKey         string        `yaml:"api_key"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"resolver"`
	Models []ModelEndpoint `yaml:"models" validate:"min=1,dive"`
	Round  struct {
		Interval    time.Duration `yaml:"interval" default:"15m"`
		MaxParallel int           `yaml:"max_parallel" default:"8"`
	} `yaml:"round"`
	Benchmark struct {
		Validity struct {
			MinCoverage         float64 `yaml:"min_coverage" default:"0.8" validate:"gt=0,lte=1"`
			MaxFailureRate      float64 `yaml:"max_failure_rate" default:"0.1" validate:"gte=0,lte=1"`
			MaxUniqueP          int     `yaml:"max_unique_p" default:"2" validate:"gte=1"`
			MaxPStdDev          float64 `yaml:"max_p_std_dev" default:"0.02" validate:"gte=0"`
			MaxExtremeWrongRate float64 `yaml:"max_extreme_wrong_rate" default:"0.2" validate:"gte=0,lte=1"`
			ExtremeHigh         float64 `yaml:"extreme_high" default:"0.8" validate:"gt=0.5,lt=1"`
			ExtremeLow          float64 `yaml:"extreme_low" default:"0.2" validate:"gt=0,lt=0.5"`
		} `yaml:"validity"`
		Qualification struct {
			Policy             string  `yaml:"policy" default:"prevalence_margin" validate:"oneof=prevalence_margin top_percent"`
			PrevalenceMargin   float64 `yaml:"prevalence_margin" default:"0.1" validate:"gte=0"`
			RandomEdge         float64 `yaml:"random_edge" default:"0.1" validate:"gte=0,lt=1"`
			TopFraction        float64 `yaml:"top_fraction" default:"0.7" validate:"gt=0,lte=1"`
			MinInformativeBest float64 `yaml:"min_informative_best" default:"0.1" validate:"gte=0"`
		} `yaml:"qualification"`
		Stability struct {
			Window          int     `yaml:"window" default:"6" validate:"gte=2"`
			RegretLimit     float64 `yaml:"regret_limit" default:"1.5" validate:"gt=1"`
			StabilityFactor float64 `yaml:"stability_factor" default:"2.0" validate:"gt=1"`
		} `yaml:"stability"`
		Ensemble struct {
			Alpha     float64 `yaml:"alpha" default:"1.0" validate:"gt=0"`
			MinModels int     `yaml:"min_models" default:"3" validate:"gte=1"`
		} `yaml:"ensemble"`
		Invariants struct {
			MinArenaRounds    int     `yaml:"min_arena_rounds" default:"4" validate:"gte=1"`
			MinMinorityLabels int     `yaml:"min_minority_labels" default:"2" validate:"gte=0"`
			MinPrevalence     float64 `yaml:"min_prevalence" default:"0.05" validate:"gte=0,lt=1"`
			MaxPrevalence     float64 `yaml:"max_prevalence" default:"0.95" validate:"gt=0,lte=1"`
		} `yaml:"invariants"`
	} `yaml:"benchmark"`
	Cache struct {
		TTL   time.Duration `yaml:"ttl" default:"30s"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers" default:"1"`
		RetryLimit int           `yaml:"retry_limit" default:"3"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
		KeyPrefix  string        `yaml:"key_prefix" default:"forecastbench:queue"`
	} `yaml:"queue"`
}

var validate = validator.New()

// Load reads a YAML configuration file, applies defaults, and validates it.
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

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("RESOLVER_API_KEY"); v != "" {
		c.Resolver.APIKey = v
	}
	if v := os.Getenv("RESOLVER_WS_URL"); v != "" {
		c.Resolver.WebSocketURL = v
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Backend.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty with backend.type=kafka")
	}
	seen := make(map[string]struct{}, len(c.Models))
	for _, m := range c.Models {
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("duplicate model id '%s'", m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	if c.Benchmark.Invariants.MinPrevalence >= c.Benchmark.Invariants.MaxPrevalence {
		return fmt.Errorf("benchmark.invariants: min_prevalence must be below max_prevalence")
	}
	return nil
}
