package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Naver struct {
		BaseURL      string `yaml:"base_url"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
	} `yaml:"naver"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		Driver string `yaml:"driver"` // sqlite, postgres or none
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	Server struct {
		Addr         string        `yaml:"addr"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`
	Cache struct {
		SearchTTL time.Duration `yaml:"search_ttl"`
		RecipeTTL time.Duration `yaml:"recipe_ttl"`
	} `yaml:"cache"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
		ReportCron  string `yaml:"report_cron"`
	} `yaml:"schedule"`
	Analysis struct {
		StaleAfter     time.Duration `yaml:"stale_after"`
		SmallUnitRatio float64       `yaml:"small_unit_ratio"`
		Workers        int           `yaml:"workers"`
	} `yaml:"analysis"`
	StandardWeightsFile string `yaml:"standard_weights_file"`
	LogLevel            string `yaml:"log_level"`
	Proxy               string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("NAVER_CLIENT_ID"); v != "" {
		cfg.Naver.ClientID = v
	}
	if v := os.Getenv("NAVER_CLIENT_SECRET"); v != "" {
		cfg.Naver.ClientSecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CRON_REFRESH"); v != "" {
		cfg.Schedule.RefreshCron = v
	}
	if v := os.Getenv("CRON_REPORT"); v != "" {
		cfg.Schedule.ReportCron = v
	}
	if v := os.Getenv("STANDARD_WEIGHTS_FILE"); v != "" {
		cfg.StandardWeightsFile = v
	}

	// Defaults
	if cfg.Naver.BaseURL == "" {
		cfg.Naver.BaseURL = "https://openapi.naver.com"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "data/price_sentinel.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Cache.SearchTTL == 0 {
		cfg.Cache.SearchTTL = 10 * time.Minute
	}
	if cfg.Cache.RecipeTTL == 0 {
		cfg.Cache.RecipeTTL = time.Hour
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 0 6 * * *"
	}
	if cfg.Schedule.ReportCron == "" {
		cfg.Schedule.ReportCron = "0 0 9 * * 1"
	}
	if cfg.Analysis.StaleAfter == 0 {
		cfg.Analysis.StaleAfter = 24 * time.Hour
	}
	if cfg.Analysis.SmallUnitRatio == 0 {
		cfg.Analysis.SmallUnitRatio = 0.3
	}
	if cfg.Analysis.Workers == 0 {
		cfg.Analysis.Workers = 4
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// PersistenceEnabled reports whether purchases are stored.
func (c *Config) PersistenceEnabled() bool {
	return c.Database.Driver != "none"
}

// TelegramEnabled reports whether a bot token and chat are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres", "none":
	default:
		return fmt.Errorf("database.driver must be sqlite, postgres or none, got %q", c.Database.Driver)
	}
	if c.PersistenceEnabled() && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for driver %s", c.Database.Driver)
	}
	if (c.Naver.ClientID == "") != (c.Naver.ClientSecret == "") {
		return fmt.Errorf("naver.client_id and naver.client_secret must be set together")
	}
	if c.Analysis.SmallUnitRatio <= 0 || c.Analysis.SmallUnitRatio >= 1 {
		return fmt.Errorf("analysis.small_unit_ratio must be between 0 and 1")
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be positive")
	}
	if c.Analysis.StaleAfter < 0 || c.Cache.SearchTTL < 0 || c.Cache.RecipeTTL < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"schedule.refresh_cron": c.Schedule.RefreshCron,
		"schedule.report_cron":  c.Schedule.ReportCron,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("log_level %q is not recognised", c.LogLevel)
	}
	return nil
}
