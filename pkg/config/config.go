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

// HourWindow is a [Start,End) window of UTC hours; Start > End wraps midnight.
type HourWindow struct {
	Start int `yaml:"start" validate:"gte=0,lte=23"`
	End   int `yaml:"end" validate:"gte=0,lte=24"`
}

type Config struct {
	Environment string `yaml:"environment" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Redis struct {
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		PoolSize     int           `yaml:"pool_size" default:"10"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"5"`
		PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s"`
		Prefix       string        `yaml:"prefix" default:"signalgate"`
	} `yaml:"redis"`
	ClickHouse struct {
		Host             string        `yaml:"host" validate:"required"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"signalgate"`
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
	Kafka struct {
		Brokers       []string `yaml:"brokers" validate:"required,min=1"`
		EvidenceTopic string   `yaml:"evidence_topic" default:"structural-evidence"`
		EventsTopic   string   `yaml:"events_topic" default:"signal-events"`
		RequiredAcks  int      `yaml:"required_acks" default:"-1"`
		Compression   string   `yaml:"compression" default:"gzip"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"signalgate-evidence"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1024"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Feeds struct {
		Live struct {
			WebSocketURL   string        `yaml:"websocket_url" validate:"required"`
			APIKey         string        `yaml:"api_key"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"3s"`
			PingInterval   time.Duration `yaml:"ping_interval" default:"15s"`
		} `yaml:"live"`
		Alt struct {
			BaseURL string        `yaml:"base_url" validate:"required"`
			APIKey  string        `yaml:"api_key"`
			Timeout time.Duration `yaml:"timeout" default:"10s"`
			// MaxCallsPerSec budgets alternate-feed requests per asset.
			MaxCallsPerSec float64 `yaml:"max_calls_per_sec" default:"2"`
		} `yaml:"alt"`
	} `yaml:"feeds"`
	Engine struct {
		Assets   []string `yaml:"assets" validate:"required,min=1"`
		Strategy string   `yaml:"strategy" default:"structure-v1"`
		// MinReleaseConfidence is the publish threshold as a fraction.
		MinReleaseConfidence float64 `yaml:"min_release_confidence" default:"0.65" validate:"gt=0,lte=1"`
		// CooldownMinutes is the minimum gap since the asset's last signal.
		CooldownMinutes int `yaml:"cooldown_minutes" default:"30" validate:"gt=0"`
		// ExpiryMinutes bounds the entry wait after generation.
		ExpiryMinutes int `yaml:"expiry_minutes" default:"15" validate:"gt=0"`
		Sessions      struct {
			Overlap        HourWindow `yaml:"overlap"`
			Standard       HourWindow `yaml:"standard"`
			Rollover       HourWindow `yaml:"rollover"`
			OverlapWeight  float64    `yaml:"overlap_weight" default:"1.2" validate:"gt=0"`
			StandardWeight float64    `yaml:"standard_weight" default:"1.0" validate:"gt=0"`
			OffWeight      float64    `yaml:"off_weight" default:"0.8" validate:"gt=0"`
			RolloverSpread float64    `yaml:"rollover_spread" default:"0.5" validate:"gt=0,lte=1"`
		} `yaml:"sessions"`
		Levels struct {
			EntryBand    float64 `yaml:"entry_band" default:"0.0005" validate:"gt=0"`
			RiskFraction float64 `yaml:"risk_fraction" default:"0.004" validate:"gt=0"`
			RewardRisk   float64 `yaml:"reward_risk" default:"2.0" validate:"gt=0"`
		} `yaml:"levels"`
		Intervals struct {
			Analyzer   time.Duration `yaml:"analyzer" default:"1m"`
			Watcher    time.Duration `yaml:"watcher" default:"10s"`
			Reconciler time.Duration `yaml:"reconciler" default:"30s"`
		} `yaml:"intervals"`
		// EvidenceTTL bounds how long an unconsumed evidence window stays fresh.
		EvidenceTTL time.Duration `yaml:"evidence_ttl" default:"3m"`
	} `yaml:"engine"`
}

// Load reads, defaults, parses and validates a YAML configuration file.
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

	if v := os.Getenv("ASSETS"); v != "" {
		c.Engine.Assets = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("LIVE_FEED_API_KEY"); v != "" {
		c.Feeds.Live.APIKey = v
	}
	if v := os.Getenv("ALT_FEED_API_KEY"); v != "" {
		c.Feeds.Alt.APIKey = v
	}

	return c, nil
}

// Validate checks the configuration with struct tags plus the cross-field
// rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Engine.Intervals.Watcher >= c.Engine.Intervals.Analyzer {
		return fmt.Errorf("engine.intervals.watcher must be shorter than analyzer")
	}
	for _, a := range c.Engine.Assets {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("engine.assets contains an empty symbol")
		}
	}
	return nil
}
