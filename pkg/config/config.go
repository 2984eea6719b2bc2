package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Binance struct {
		SpotURL        string        `yaml:"spot_url"`
		FuturesURL     string        `yaml:"futures_url"`
		WebSocketURL   string        `yaml:"websocket_url"`
		HTTPTimeout    time.Duration `yaml:"http_timeout"`
		CandleLimit    int           `yaml:"candle_limit"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"binance"`
	Scan struct {
		Workers       int `yaml:"workers"`
		RetryAttempts int `yaml:"retry_attempts"`
		RetryBackoff  struct {
			Min time.Duration `yaml:"min"`
			Max time.Duration `yaml:"max"`
		} `yaml:"retry_backoff"`
	} `yaml:"scan"`
	Universe struct {
		CacheTTL        time.Duration `yaml:"cache_ttl"`
		HeadlineSymbols []string      `yaml:"headline_symbols"`
	} `yaml:"universe"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
	} `yaml:"kafka"`
	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		Output     string `yaml:"output"`
		BufferSize int    `yaml:"buffer_size"`
	} `yaml:"log"`
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

	c.applyDefaults()
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

	if v := os.Getenv("BINANCE_SPOT_URL"); v != "" {
		c.Binance.SpotURL = v
	}
	if v := os.Getenv("BINANCE_FUTURES_URL"); v != "" {
		c.Binance.FuturesURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Binance.SpotURL == "" {
		c.Binance.SpotURL = "https://api.binance.com"
	}
	if c.Binance.FuturesURL == "" {
		c.Binance.FuturesURL = "https://fapi.binance.com"
	}
	if c.Binance.WebSocketURL == "" {
		c.Binance.WebSocketURL = "wss://stream.binance.com:9443"
	}
	if c.Binance.HTTPTimeout == 0 {
		c.Binance.HTTPTimeout = 15 * time.Second
	}
	if c.Binance.CandleLimit == 0 {
		c.Binance.CandleLimit = 500
	}
	if c.Binance.ReconnectDelay == 0 {
		c.Binance.ReconnectDelay = 5 * time.Second
	}
	if c.Binance.PingInterval == 0 {
		c.Binance.PingInterval = 30 * time.Second
	}
	if c.Scan.Workers == 0 {
		c.Scan.Workers = 15
	}
	if c.Scan.RetryAttempts == 0 {
		c.Scan.RetryAttempts = 3
	}
	if c.Scan.RetryBackoff.Min == 0 {
		c.Scan.RetryBackoff.Min = 500 * time.Millisecond
	}
	if c.Scan.RetryBackoff.Max == 0 {
		c.Scan.RetryBackoff.Max = 5 * time.Second
	}
	if c.Universe.CacheTTL == 0 {
		c.Universe.CacheTTL = 5 * time.Minute
	}
	if len(c.Universe.HeadlineSymbols) == 0 {
		c.Universe.HeadlineSymbols = []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Log.BufferSize == 0 {
		c.Log.BufferSize = 1000
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Scan.Workers <= 0 {
		return fmt.Errorf("scan.workers must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	if c.Kafka.Enabled && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic required when kafka is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr required when redis is enabled")
	}
	return nil
}
