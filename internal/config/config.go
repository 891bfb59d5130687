// Package config loads taskloop settings from defaults, an optional YAML
// file, a .env file and TASKLOOP_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix = "TASKLOOP"

	BackendFile  = "file"
	BackendRedis = "redis"
)

type Config struct {
	AppEnv       string       `mapstructure:"app_env" yaml:"app_env"`
	LogLevel     string       `mapstructure:"log_level" yaml:"log_level"`
	ShareBaseURL string       `mapstructure:"share_base_url" yaml:"share_base_url"`
	API          APIConfig    `mapstructure:"api" yaml:"api"`
	Sync         SyncConfig   `mapstructure:"sync" yaml:"sync"`
	Store        StoreConfig  `mapstructure:"store" yaml:"store"`
	Redis        RedisConfig  `mapstructure:"redis" yaml:"redis"`
	Bridge       BridgeConfig `mapstructure:"bridge" yaml:"bridge"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type SyncConfig struct {
	PollInterval        time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	CreateCheckInterval time.Duration `mapstructure:"create_check_interval" yaml:"create_check_interval"`
}

// StoreConfig selects where the token and the post-login redirect live.
type StoreConfig struct {
	Backend   string `mapstructure:"backend" yaml:"backend"`
	Path      string `mapstructure:"path" yaml:"path"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
	DeviceID  string `mapstructure:"device_id" yaml:"device_id"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

type BridgeConfig struct {
	Port          string        `mapstructure:"port" yaml:"port"`
	AllowedOrigin string        `mapstructure:"allowed_origin" yaml:"allowed_origin"`
	BoardCacheTTL time.Duration `mapstructure:"board_cache_ttl" yaml:"board_cache_ttl"`

	// Rate limiting of mutating bridge requests, applied with the redis backend.
	RateLimitMax    int           `mapstructure:"rate_limit_max" yaml:"rate_limit_max"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window" yaml:"rate_limit_window"`
}

// HomeDir is the per-user taskloop directory.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskloop"
	}
	return filepath.Join(home, ".taskloop")
}

// DefaultPath is the config file read when no path is given.
func DefaultPath() string {
	return filepath.Join(HomeDir(), "config.yaml")
}

func Default() *Config {
	return &Config{
		AppEnv:       "development",
		LogLevel:     "info",
		ShareBaseURL: "https://tasklooop.vercel.app",
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 15 * time.Second,
		},
		Sync: SyncConfig{
			PollInterval:        5 * time.Second,
			CreateCheckInterval: time.Second,
		},
		Store: StoreConfig{
			Backend:   BackendFile,
			Path:      filepath.Join(HomeDir(), "device.yaml"),
			KeyPrefix: "tl:",
			DeviceID:  "default",
		},
		Redis: RedisConfig{Addr: "127.0.0.1:6379"},
		Bridge: BridgeConfig{
			Port:            "8080",
			AllowedOrigin:   "http://localhost:3000",
			BoardCacheTTL:   10 * time.Minute,
			RateLimitMax:    120,
			RateLimitWindow: time.Minute,
		},
	}
}

// Load reads the configuration. A missing file at path is not an error; an
// empty path means DefaultPath.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		logrus.Warnf("Invalid log level '%s', using default 'info'", c.LogLevel)
		c.LogLevel = "info"
	}
	if c.API.BaseURL == "" {
		return errors.New("config: api.base_url must be set")
	}
	switch c.Store.Backend {
	case BackendFile:
		if c.Store.Path == "" {
			return errors.New("config: store.path must be set for the file backend")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("config: redis.addr must be set for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.Sync.PollInterval <= 0 {
		return errors.New("config: sync.poll_interval must be positive")
	}
	return nil
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// WriteDefault writes the default configuration to path unless a file is
// already there.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config %s already exists", path)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("app_env", d.AppEnv)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("share_base_url", d.ShareBaseURL)
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("sync.poll_interval", d.Sync.PollInterval)
	v.SetDefault("sync.create_check_interval", d.Sync.CreateCheckInterval)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.key_prefix", d.Store.KeyPrefix)
	v.SetDefault("store.device_id", d.Store.DeviceID)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("bridge.port", d.Bridge.Port)
	v.SetDefault("bridge.allowed_origin", d.Bridge.AllowedOrigin)
	v.SetDefault("bridge.board_cache_ttl", d.Bridge.BoardCacheTTL)
	v.SetDefault("bridge.rate_limit_max", d.Bridge.RateLimitMax)
	v.SetDefault("bridge.rate_limit_window", d.Bridge.RateLimitWindow)
}
