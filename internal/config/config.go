package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log     LoggingConfig `yaml:"log"`
	REST    RESTConfig    `yaml:"rest"`
	Feed    FeedConfig    `yaml:"feed"`
	State   StateConfig   `yaml:"state"`
	Journal JournalConfig `yaml:"journal"`
	Metrics MetricsConfig `yaml:"metrics"`
	Trading TradingConfig `yaml:"trading"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type RESTConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type FeedConfig struct {
	URL            string        `yaml:"url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	Symbols        []string      `yaml:"symbols"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type JournalConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DSN          string `yaml:"dsn"`
	Schema       string `yaml:"schema"`
	QueueSize    int    `yaml:"queue_size"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type TradingConfig struct {
	RetryWait  time.Duration `yaml:"retry_wait"`
	CloseWait  time.Duration `yaml:"close_wait"`
	CloseTries int           `yaml:"close_tries"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.REST.BaseURL == "" {
		cfg.REST.BaseURL = "https://api.phemex.com"
	}
	if cfg.REST.Timeout <= 0 {
		cfg.REST.Timeout = 10 * time.Second
	}
	if cfg.Feed.URL == "" {
		cfg.Feed.URL = "wss://ws.phemex.com"
	}
	if cfg.Feed.ReconnectDelay <= 0 {
		cfg.Feed.ReconnectDelay = 5 * time.Second
	}
	if cfg.Feed.PingInterval <= 0 {
		cfg.Feed.PingInterval = 15 * time.Second
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/state.db"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
	if cfg.Trading.RetryWait <= 0 {
		cfg.Trading.RetryWait = 2 * time.Second
	}
	if cfg.Trading.CloseWait <= 0 {
		cfg.Trading.CloseWait = 2 * time.Second
	}
	if cfg.Trading.CloseTries <= 0 {
		cfg.Trading.CloseTries = 1
	}
}

func validate(cfg *Config) error {
	if cfg.REST.BaseURL == "" {
		return errors.New("rest.base_url is required")
	}
	if cfg.Journal.Enabled && cfg.Journal.DSN == "" {
		return errors.New("journal.dsn is required when journal is enabled")
	}
	if cfg.Trading.CloseTries < 1 {
		return errors.New("trading.close_tries must be >= 1")
	}
	return nil
}
