// Load envs from .env
// Load YAML config
// Override with env vars and the OS keychain
// Provide default values, then validate

package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// KeyringService is the OS keychain service passwords are stored under.
const KeyringService = "job-acquisition"

const DefaultPath = "configs/config.yaml"

type Config struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
	DatabaseURL    string `yaml:"database_url"`
	LogLevel       string `yaml:"log_level"`

	Browser BrowserConfig `yaml:"browser"`
	Search  SearchConfig  `yaml:"search"`
	Paths   PathsConfig   `yaml:"paths"`
	Redis   RedisConfig   `yaml:"redis"`
	Server  ServerConfig  `yaml:"server"`

	Platforms map[string]PlatformConfig `yaml:"platforms" validate:"dive,keys,oneof=linkedin naukri indeed,endkeys"`
}

type BrowserConfig struct {
	Headless bool `yaml:"headless"`
	// ProfilesDir holds one persistent Chromium profile per platform.
	ProfilesDir string `yaml:"profiles_dir" validate:"required"`
}

type SearchConfig struct {
	MaxResults   int           `yaml:"max_results" validate:"min=1"`
	MaxPages     int           `yaml:"max_pages" validate:"min=1"`
	MaxScrolls   int           `yaml:"max_scrolls" validate:"min=1"`
	PageInterval time.Duration `yaml:"page_interval"`
	ScrollPause  time.Duration `yaml:"scroll_pause"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
	NextWait     time.Duration `yaml:"next_wait"`
}

type PathsConfig struct {
	CookiesDir      string `yaml:"cookies_dir" validate:"required"`
	PreferencesFile string `yaml:"preferences_file" validate:"required"`
	OutputCSV       string `yaml:"output_csv"`
	OutputJSON      string `yaml:"output_json"`
	CacheDir        string `yaml:"cache_dir"`
	DebugDir        string `yaml:"debug_dir"`
	// CacheTTL is how long a sent content hash stays suppressed across runs.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type RedisConfig struct {
	Addr         string `yaml:"addr"`
	DB           int    `yaml:"db"`
	StreamPrefix string `yaml:"stream_prefix"`
	MaxLen       int64  `yaml:"max_len" validate:"min=0"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

type PlatformConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Location string `yaml:"location"`
	Recency  string `yaml:"recency" validate:"omitempty,oneof=past_24h past_week past_month any"`
	// BaseURL swaps the regional site, Indeed only.
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	// Titles seeds the preference store; titles already present keep their stored flag.
	Titles map[string]bool `yaml:"titles"`
}

// Load reads path (DefaultPath, or CONFIG_PATH, when empty). A missing file is not an
// error: defaults and environment alone can drive a run.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.applyKeyring()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		c.TelegramToken = token
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		c.TelegramChatID = id
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	for name, p := range c.Platforms {
		prefix := strings.ToUpper(name)
		if v := os.Getenv(prefix + "_EMAIL"); v != "" {
			p.Email = v
		}
		if v := os.Getenv(prefix + "_PASSWORD"); v != "" {
			p.Password = v
		}
		c.Platforms[name] = p
	}
	return nil
}

func (c *Config) applyDefaults() {
	s := &c.Search
	if s.MaxResults == 0 {
		s.MaxResults = 100
	}
	if s.MaxPages == 0 {
		s.MaxPages = 5
	}
	if s.MaxScrolls == 0 {
		s.MaxScrolls = 30
	}
	if s.PageInterval == 0 {
		s.PageInterval = 3 * time.Second
	}
	if s.ScrollPause == 0 {
		s.ScrollPause = 1500 * time.Millisecond
	}
	if s.SettleDelay == 0 {
		s.SettleDelay = 3 * time.Second
	}
	if s.NextWait == 0 {
		s.NextWait = 5 * time.Second
	}

	if c.Paths.CookiesDir == "" {
		c.Paths.CookiesDir = "state/cookies"
	}
	if c.Paths.PreferencesFile == "" {
		c.Paths.PreferencesFile = "state/titles.json"
	}
	if c.Paths.OutputCSV == "" {
		c.Paths.OutputCSV = "job_results.csv"
	}
	if c.Paths.CacheDir == "" {
		c.Paths.CacheDir = "state/cache"
	}
	if c.Paths.DebugDir == "" {
		c.Paths.DebugDir = "logs/screenshots"
	}
	if c.Paths.CacheTTL == 0 {
		c.Paths.CacheTTL = 7 * 24 * time.Hour
	}
	if c.Browser.ProfilesDir == "" {
		c.Browser.ProfilesDir = "state/profiles"
	}
	if c.Redis.StreamPrefix == "" {
		c.Redis.StreamPrefix = "listings"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	for name, p := range c.Platforms {
		if p.Recency == "" {
			p.Recency = "past_week"
		}
		c.Platforms[name] = p
	}
}

// applyKeyring fills passwords missing from file and environment. A keychain miss is
// not an error: the session can still be reused from cookies.
func (c *Config) applyKeyring() {
	for name, p := range c.Platforms {
		if p.Password != "" || p.Email == "" {
			continue
		}
		if pw, err := keyring.Get(KeyringService, account(name, p.Email)); err == nil {
			p.Password = pw
			c.Platforms[name] = p
		}
	}
}

// Enabled lists the names of enabled platforms.
func (c *Config) Enabled() []string {
	var out []string
	for name, p := range c.Platforms {
		if p.Enabled {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

func account(platform, email string) string {
	return platform + ":" + email
}

// StorePassword saves a platform password in the OS keychain.
func StorePassword(platform, email, password string) error {
	if err := keyring.Set(KeyringService, account(platform, email), password); err != nil {
		return fmt.Errorf("store %s password: %w", platform, err)
	}
	return nil
}

func DeletePassword(platform, email string) error {
	err := keyring.Delete(KeyringService, account(platform, email))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete %s password: %w", platform, err)
	}
	return nil
}
