package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	// Cluster
	Server    string `yaml:"server"`
	Token     string `yaml:"token"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	VerifySSL bool   `yaml:"verifySSL"`

	// Command channel
	OcPath string `yaml:"oc"`

	// Logging
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	// Caching and waiting
	CacheTTL       time.Duration `yaml:"cacheTTL"`
	PollInterval   time.Duration `yaml:"pollInterval"`
	DefaultTimeout time.Duration `yaml:"defaultTimeout"`

	// Journal
	HistorySize int    `yaml:"historySize"`
	HistoryFile string `yaml:"historyFile"`

	// Paths
	ConfigDir  string `yaml:"-"`
	ConfigFile string `yaml:"-"`
}

// NewConfig creates a new configuration with defaults, then applies the
// config file and the environment. An empty file means ~/.shift/config.yaml,
// which may be absent; an explicit file must exist.
func NewConfig(file string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return Load(filepath.Join(homeDir, ".shift"), file, os.LookupEnv)
}

// Load builds a configuration rooted at configDir. Sources apply in order:
// defaults, the config file, then the environment.
func Load(configDir, file string, lookup func(string) (string, bool)) (*Config, error) {
	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, err
	}

	cfg := Default(configDir)
	if file != "" {
		cfg.ConfigFile = file
	}

	if err := cfg.LoadFile(cfg.ConfigFile); err != nil {
		if file != "" || !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the built-in defaults rooted at configDir
func Default(configDir string) *Config {
	return &Config{
		VerifySSL:      true,
		OcPath:         "oc",
		LogLevel:       "info",
		LogFormat:      "text",
		CacheTTL:       0,
		PollInterval:   5 * time.Second,
		DefaultTimeout: 60 * time.Second,
		HistorySize:    1000,
		HistoryFile:    filepath.Join(configDir, "history.json"),
		ConfigDir:      configDir,
		ConfigFile:     filepath.Join(configDir, "config.yaml"),
	}
}

// LoadFile overlays values from a YAML file
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return nil
}

// ApplyEnv overlays SHIFT_* environment variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"SHIFT_SERVER":     &c.Server,
		"SHIFT_TOKEN":      &c.Token,
		"SHIFT_USERNAME":   &c.Username,
		"SHIFT_PASSWORD":   &c.Password,
		"SHIFT_OC":         &c.OcPath,
		"SHIFT_LOG_LEVEL":  &c.LogLevel,
		"SHIFT_LOG_FORMAT": &c.LogFormat,
	}
	for name, field := range strs {
		if v, ok := lookup(name); ok {
			*field = v
		}
	}

	if v, ok := lookup("SHIFT_INSECURE"); ok {
		insecure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SHIFT_INSECURE %q: %w", v, err)
		}
		c.VerifySSL = !insecure
	}

	return nil
}

// Save writes the configuration file. Credentials are never persisted.
func (c *Config) Save() error {
	out := *c
	out.Token = ""
	out.Password = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return err
	}

	return os.WriteFile(c.ConfigFile, data, 0600)
}
