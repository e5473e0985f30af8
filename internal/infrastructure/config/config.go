package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server" toml:"server"`
	Logging   LogConfig       `json:"logging" yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit" toml:"rate_limit"`
	Sandbox   SandboxConfig   `json:"sandbox" yaml:"sandbox" toml:"sandbox"`
	Rewrite   RewriteConfig   `json:"rewrite" yaml:"rewrite" toml:"rewrite"`
	Engine    EngineConfig    `json:"engine" yaml:"engine" toml:"engine"`
	Fetch     FetchConfig     `json:"fetch" yaml:"fetch" toml:"fetch"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"SCRAMJET_PORT" default:"8000" json:"port" yaml:"port" toml:"port"`
	Host string `envconfig:"SCRAMJET_HOST" default:"0.0.0.0" json:"host" yaml:"host" toml:"host"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"SCRAMJET_LOG_LEVEL" default:"info" json:"level" yaml:"level" toml:"level"`
	Development bool   `envconfig:"SCRAMJET_LOG_DEV" default:"false" json:"development" yaml:"development" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration for the API surface.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"SCRAMJET_RATE_LIMIT_RPS" default:"100" json:"requests_per_second" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int  `envconfig:"SCRAMJET_RATE_LIMIT_BURST" default:"200" json:"burst" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"SCRAMJET_RATE_LIMIT_ENABLED" default:"true" json:"enabled" yaml:"enabled" toml:"enabled"`
}

// SandboxConfig holds window sandbox configuration.
type SandboxConfig struct {
	BlockPopups bool `envconfig:"SCRAMJET_BLOCK_POPUPS" default:"false" json:"block_popups" yaml:"block_popups" toml:"block_popups"`
}

// RewriteConfig holds URL rewriting configuration. SealKey is a hex-encoded
// 32-byte key and only required when Codec is "sealed".
type RewriteConfig struct {
	Prefix  string   `envconfig:"SCRAMJET_REWRITE_PREFIX" default:"/scramjet/" json:"prefix" yaml:"prefix" toml:"prefix"`
	Codec   string   `envconfig:"SCRAMJET_REWRITE_CODEC" default:"base64" json:"codec" yaml:"codec" toml:"codec"`
	SealKey string   `envconfig:"SCRAMJET_REWRITE_SEAL_KEY" json:"seal_key" yaml:"seal_key" toml:"seal_key"`
	Bypass  []string `envconfig:"SCRAMJET_BYPASS" json:"bypass" yaml:"bypass" toml:"bypass"`
}

// EngineConfig holds script engine configuration.
type EngineConfig struct {
	PoolSize  int `envconfig:"SCRAMJET_ENGINE_POOL" default:"4" json:"pool_size" yaml:"pool_size" toml:"pool_size"`
	TimeoutMS int `envconfig:"SCRAMJET_ENGINE_TIMEOUT_MS" default:"5000" json:"timeout_ms" yaml:"timeout_ms" toml:"timeout_ms"`
}

// FetchConfig holds upstream fetch configuration.
type FetchConfig struct {
	TimeoutMS         int    `envconfig:"SCRAMJET_FETCH_TIMEOUT_MS" default:"10000" json:"timeout_ms" yaml:"timeout_ms" toml:"timeout_ms"`
	MaxBodyBytes      int64  `envconfig:"SCRAMJET_FETCH_MAX_BODY" default:"10485760" json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	Retries           int    `envconfig:"SCRAMJET_FETCH_RETRIES" default:"2" json:"retries" yaml:"retries" toml:"retries"`
	RequestsPerSecond int    `envconfig:"SCRAMJET_FETCH_RPS" default:"20" json:"requests_per_second" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int    `envconfig:"SCRAMJET_FETCH_BURST" default:"40" json:"burst" yaml:"burst" toml:"burst"`
	UserAgent         string `envconfig:"SCRAMJET_FETCH_USER_AGENT" default:"scramjet/1.0" json:"user_agent" yaml:"user_agent" toml:"user_agent"`
}

// Timeout returns the script watchdog budget.
func (e EngineConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutMS) * time.Millisecond
}

// Timeout returns the per-request upstream budget.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutMS) * time.Millisecond
}

// DecodeSealKey decodes the hex-encoded sealing key.
func (r RewriteConfig) DecodeSealKey() ([]byte, error) {
	key, err := hex.DecodeString(r.SealKey)
	if err != nil {
		return nil, fmt.Errorf("seal key is not hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("seal key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Validate checks cross-field constraints that tags cannot express.
func (c *Config) Validate() error {
	switch c.Rewrite.Codec {
	case "plain", "base64", "percent":
	case "sealed":
		if _, err := c.Rewrite.DecodeSealKey(); err != nil {
			return fmt.Errorf("rewrite: %w", err)
		}
	default:
		return fmt.Errorf("unknown rewrite codec %q", c.Rewrite.Codec)
	}
	if c.Engine.PoolSize < 1 {
		return fmt.Errorf("engine pool size must be positive, got %d", c.Engine.PoolSize)
	}
	if c.Fetch.MaxBodyBytes < 1 {
		return fmt.Errorf("fetch body cap must be positive, got %d", c.Fetch.MaxBodyBytes)
	}
	return nil
}

// Load loads configuration from environment variables. Tags spell out the
// full SCRAMJET_* names: a process prefix would be compounded with the
// nested struct path, and bare fallbacks like PORT would leak in.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile loads configuration from a file, selected by extension. File
// values are applied over defaults; the environment is not consulted, so a
// file is a complete, reproducible description of a deployment.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".json":
		err = sonic.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Sandbox: SandboxConfig{
			BlockPopups: false,
		},
		Rewrite: RewriteConfig{
			Prefix: "/scramjet/",
			Codec:  "base64",
		},
		Engine: EngineConfig{
			PoolSize:  4,
			TimeoutMS: 5000,
		},
		Fetch: FetchConfig{
			TimeoutMS:         10000,
			MaxBodyBytes:      10 << 20,
			Retries:           2,
			RequestsPerSecond: 20,
			Burst:             40,
			UserAgent:         "scramjet/1.0",
		},
	}
}
