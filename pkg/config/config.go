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

// InstrumentConfig describes one scanned instrument.
type InstrumentConfig struct {
	Symbol    string `yaml:"symbol" validate:"required"`
	AssetType string `yaml:"asset_type" default:"CRYPTO" validate:"oneof=CRYPTO GOLD"`
	Interval  string `yaml:"interval" default:"15m"`
}

type Config struct {
	Environment string `yaml:"environment" default:"dev"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"sigflow"`
	} `yaml:"redis"`
	Postgres struct {
		DSN string `yaml:"dsn" validate:"required"`
	} `yaml:"postgres"`
	ClickHouse struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"9000"`
		Database string `yaml:"database" default:"sigflow"`
		User     string `yaml:"user" default:"default"`
		Password string `yaml:"password"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled bool     `yaml:"enabled"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic" default:"sigflow.signals"`
	} `yaml:"kafka"`
	Telegram struct {
		Token     string `yaml:"token"`
		GroupID   int64  `yaml:"group_id"`
		ChannelID int64  `yaml:"channel_id"`
	} `yaml:"telegram"`
	Queue struct {
		Workers    int           `yaml:"workers" default:"4"`
		RetryLimit int           `yaml:"retry_limit" default:"3"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
	} `yaml:"queue"`
	MarketData struct {
		TickerTTL      time.Duration `yaml:"ticker_ttl" default:"120s"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"10s"`
		BinanceBaseURL string        `yaml:"binance_base_url" default:"https://api.binance.com"`
		GoldBaseURL    string        `yaml:"gold_base_url"`
		StreamURL      string        `yaml:"stream_url" default:"wss://stream.binance.com:9443/ws"`
		StreamSymbols  []string      `yaml:"stream_symbols"`
		Providers      []string      `yaml:"providers"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
	} `yaml:"marketdata"`
	Scanner struct {
		Enabled     bool               `yaml:"enabled" default:"true"`
		Interval    time.Duration      `yaml:"interval" default:"60s"`
		CandleLimit int                `yaml:"candle_limit" default:"200"`
		Instruments []InstrumentConfig `yaml:"instruments" validate:"dive"`
	} `yaml:"scanner"`
	Strategies struct {
		RSIPeriod        int     `yaml:"rsi_period" default:"14"`
		RSIBuyThreshold  float64 `yaml:"rsi_buy_threshold" default:"30"`
		RSISellThreshold float64 `yaml:"rsi_sell_threshold" default:"70"`
		EMAFast          int     `yaml:"ema_fast" default:"9"`
		EMASlow          int     `yaml:"ema_slow" default:"21"`
		BreakoutLookback int     `yaml:"breakout_lookback" default:"20"`
		MACDFast         int     `yaml:"macd_fast" default:"12"`
		MACDSlow         int     `yaml:"macd_slow" default:"26"`
		MACDSignal       int     `yaml:"macd_signal" default:"9"`
	} `yaml:"strategies"`
	Dedupe struct {
		TTL      time.Duration `yaml:"ttl" default:"2h"`
		Cooldown time.Duration `yaml:"cooldown" default:"5m"`
	} `yaml:"dedupe"`
	Digest struct {
		Enabled   bool   `yaml:"enabled" default:"true"`
		At        string `yaml:"at" default:"21:00"`
		ToGroup   bool   `yaml:"to_group" default:"true"`
		ToChannel bool   `yaml:"to_channel"`
	} `yaml:"digest"`
	Alerts struct {
		Enabled     bool          `yaml:"enabled" default:"true"`
		Interval    time.Duration `yaml:"interval" default:"30s"`
		GoldSymbols string        `yaml:"gold_symbols" default:"XAUUSDT,XAUTUSDT,PAXGUSDT"`
	} `yaml:"alerts"`
}

// Load reads a YAML configuration file, fills defaults and validates it.
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

// LoadWithEnv loads config from YAML and overrides secrets with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("GOLD_SYMBOLS"); v != "" {
		c.Alerts.GoldSymbols = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if _, err := time.Parse("15:04", c.Digest.At); err != nil {
		return fmt.Errorf("digest.at must be HH:MM, got %q", c.Digest.At)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if len(c.MarketData.Providers) == 0 {
		c.MarketData.Providers = []string{"binance"}
	}
	return nil
}

// GoldAllowlist returns the configured gold instrument allowlist, normalized.
func (c *Config) GoldAllowlist() []string {
	parts := strings.Split(c.Alerts.GoldSymbols, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.ToUpper(strings.TrimSpace(p))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
