package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the parsed service configuration (config.yaml).
type Config struct {
	Addr       string         `yaml:"addr"`
	LogLevel   string         `yaml:"log_level,omitempty"`
	PolicyPath string         `yaml:"policy_path,omitempty"`
	CORS       CORSConfig     `yaml:"cors,omitempty"`
	Cache      CacheConfig    `yaml:"cache,omitempty"`
	Registry   RegistryConfig `yaml:"registry"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
	DefaultOrigin  string   `yaml:"default_origin,omitempty"`
}

type CacheConfig struct {
	TTLSec float64 `yaml:"ttl_sec"` // default: 60.0
}

// RegistryConfig locates the registry. The GitHub repository is the system
// of record; LocalPath switches the read side to a local checkout for
// development.
type RegistryConfig struct {
	Owner      string `yaml:"owner"`
	Repo       string `yaml:"repo"`
	BaseBranch string `yaml:"base_branch"` // default: main
	IndexPath  string `yaml:"index_path"`  // default: registry.json
	APIBase    string `yaml:"api_base"`    // default: https://api.github.com
	TokenEnv   string `yaml:"token_env"`   // default: GITHUB_TOKEN
	LocalPath  string `yaml:"local_path,omitempty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Addr:     ":8080",
		LogLevel: "info",
		Cache: CacheConfig{
			TTLSec: 60.0,
		},
		Registry: RegistryConfig{
			BaseBranch: "main",
			IndexPath:  "registry.json",
			APIBase:    "https://api.github.com",
			TokenEnv:   "GITHUB_TOKEN",
		},
	}
}

// Load loads and parses a config.yaml file.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	// Apply defaults for missing values
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Cache.TTLSec == 0 {
		cfg.Cache.TTLSec = 60.0
	}
	if cfg.Registry.BaseBranch == "" {
		cfg.Registry.BaseBranch = "main"
	}
	if cfg.Registry.IndexPath == "" {
		cfg.Registry.IndexPath = "registry.json"
	}
	if cfg.Registry.APIBase == "" {
		cfg.Registry.APIBase = "https://api.github.com"
	}
	if cfg.Registry.TokenEnv == "" {
		cfg.Registry.TokenEnv = "GITHUB_TOKEN"
	}

	if cfg.Registry.LocalPath == "" {
		if cfg.Registry.Owner == "" || cfg.Registry.Repo == "" {
			return cfg, fmt.Errorf("registry: must specify 'owner' and 'repo' (or 'local_path' for development)")
		}
	}

	return cfg, nil
}

// Token resolves the hosting-API token from the configured environment
// variable.
func (c RegistryConfig) Token() string {
	return os.Getenv(c.TokenEnv)
}
