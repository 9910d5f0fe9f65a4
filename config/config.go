// Package config provides configuration management for the GigaChat client and CLI.
//
// Values are resolved in this order, later sources winning:
// built-in defaults, the YAML file (with ${VAR} and ${VAR:-default}
// placeholders expanded), then environment variables. A .env file in the
// working directory is loaded into the environment first without
// overriding variables that are already set.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"gigachat/internal/auth"
	"gigachat/internal/llmclient"
	"gigachat/pkg/core"
)

// DefaultConfigFile is read when Load is called with an empty path and the file exists.
const DefaultConfigFile = "config.yaml"

// Config holds the application configuration
type Config struct {
	GigaChat GigaChatConfig `yaml:"gigachat"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// GigaChatConfig holds the service endpoints and account settings
type GigaChatConfig struct {
	// Credentials is the base64 authorization key
	Credentials string `yaml:"credentials"`
	Scope       string `yaml:"scope"`
	AuthURL     string `yaml:"auth_url"`
	BaseURL     string `yaml:"base_url"`
	// CABundle is the path to a PEM file trusted in addition to the system roots
	CABundle       string `yaml:"ca_bundle"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
}

// HTTPConfig holds transport timeouts in seconds
type HTTPConfig struct {
	Timeout               int `yaml:"timeout"`
	ResponseHeaderTimeout int `yaml:"response_header_timeout"`
}

// LogConfig selects the log output
type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// MetricsConfig controls the Prometheus endpoint exposed by the CLI
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Endpoint string `yaml:"endpoint"`
}

// Load reads configuration from the given YAML file (optional) and the environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := buildDefaultConfig()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildDefaultConfig() *Config {
	return &Config{
		GigaChat: GigaChatConfig{
			Scope:          string(core.DefaultScope),
			AuthURL:        auth.DefaultURL,
			BaseURL:        llmclient.DefaultBaseURL,
			Model:          string(core.DefaultChatModel),
			EmbeddingModel: string(core.DefaultEmbeddingModel),
		},
		HTTP: HTTPConfig{
			Timeout:               600,
			ResponseHeaderTimeout: 600,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Address:  ":9090",
			Endpoint: "/metrics",
		},
	}
}

func loadFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	expandFields(cfg)
	return nil
}

func expandFields(cfg *Config) {
	for _, s := range []*string{
		&cfg.GigaChat.Credentials,
		&cfg.GigaChat.Scope,
		&cfg.GigaChat.AuthURL,
		&cfg.GigaChat.BaseURL,
		&cfg.GigaChat.CABundle,
		&cfg.GigaChat.Model,
		&cfg.GigaChat.EmbeddingModel,
		&cfg.Log.Format,
		&cfg.Log.Level,
		&cfg.Metrics.Address,
		&cfg.Metrics.Endpoint,
	} {
		*s = expandString(*s)
	}
}

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default}. A variable that is unset
// or empty takes the default when one is given; without a default the
// placeholder is left untouched.
func expandString(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		parts := placeholder.FindStringSubmatch(m)
		name, hasDefault, def := parts[1], parts[2] != "", parts[3]
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		return m
	})
}

func applyEnvOverrides(cfg *Config) error {
	strVars := map[string]*string{
		"GIGACHAT_CREDENTIALS":     &cfg.GigaChat.Credentials,
		"GIGACHAT_SCOPE":           &cfg.GigaChat.Scope,
		"GIGACHAT_AUTH_URL":        &cfg.GigaChat.AuthURL,
		"GIGACHAT_BASE_URL":        &cfg.GigaChat.BaseURL,
		"GIGACHAT_CA_BUNDLE":       &cfg.GigaChat.CABundle,
		"GIGACHAT_MODEL":           &cfg.GigaChat.Model,
		"GIGACHAT_EMBEDDING_MODEL": &cfg.GigaChat.EmbeddingModel,
		"LOG_FORMAT":               &cfg.Log.Format,
		"LOG_LEVEL":                &cfg.Log.Level,
		"METRICS_ADDR":             &cfg.Metrics.Address,
		"METRICS_ENDPOINT":         &cfg.Metrics.Endpoint,
	}
	for key, dst := range strVars {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	intVars := map[string]*int{
		"HTTP_TIMEOUT":                 &cfg.HTTP.Timeout,
		"HTTP_RESPONSE_HEADER_TIMEOUT": &cfg.HTTP.ResponseHeaderTimeout,
	}
	for key, dst := range intVars {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
	}

	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(strings.ToLower(v))
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED %q: %w", v, err)
		}
		cfg.Metrics.Enabled = b
	}
	return nil
}

// Validate checks values that cannot be fixed by defaults.
// Credentials are not required here so commands that never authenticate still run.
func (c *Config) Validate() error {
	var errs []error
	if _, err := core.ParseScope(c.GigaChat.Scope); err != nil {
		errs = append(errs, err)
	}
	if c.GigaChat.AuthURL == "" {
		errs = append(errs, errors.New("gigachat.auth_url must not be empty"))
	}
	if c.GigaChat.BaseURL == "" {
		errs = append(errs, errors.New("gigachat.base_url must not be empty"))
	}
	if c.HTTP.Timeout < 0 || c.HTTP.ResponseHeaderTimeout < 0 {
		errs = append(errs, errors.New("http timeouts must not be negative"))
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		errs = append(errs, errors.New("metrics.address is required when metrics are enabled"))
	}
	return errors.Join(errs...)
}

// RootCAs reads the configured CA bundle, or returns nil when none is set.
func (c *Config) RootCAs() ([]byte, error) {
	if c.GigaChat.CABundle == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(c.GigaChat.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca bundle: %w", err)
	}
	return pem, nil
}
