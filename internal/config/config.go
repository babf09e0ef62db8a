// Package config holds the settings shared by the HTTP server and the CLI.
//
// Values are layered: Default(), then an optional YAML file, then environment
// variables (PORT plus the IMAGEFETCH_ prefix).
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines configuration for the image fetcher.
type Config struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	UploadDir         string        `yaml:"upload_dir"`
	DownloadDir       string        `yaml:"download_dir"`
	AllowedExtensions []string      `yaml:"allowed_extensions"`
	MaxUploadSize     int64         `yaml:"max_upload_size"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	Fetch             FetchConfig   `yaml:"fetch"`
	History           HistoryConfig `yaml:"history"`
}

// FetchConfig configures the outbound image requests.
type FetchConfig struct {
	// Timeout per image request. Zero means no timeout.
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// HistoryConfig selects the optional batch history database.
// An empty Driver disables it.
type HistoryConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Default returns a Config with the values the service ships with.
func Default() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              10000,
		UploadDir:         "./uploads",
		DownloadDir:       "./downloads",
		AllowedExtensions: []string{"xls", "xlsx"},
		MaxUploadSize:     32 << 20, // 32MB
		ShutdownTimeout:   10 * time.Second,
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	Host              string          `yaml:"host"`
	Port              int             `yaml:"port"`
	UploadDir         string          `yaml:"upload_dir"`
	DownloadDir       string          `yaml:"download_dir"`
	AllowedExtensions []string        `yaml:"allowed_extensions"`
	MaxUploadSize     int64           `yaml:"max_upload_size"`
	ShutdownTimeout   string          `yaml:"shutdown_timeout"`
	Fetch             yamlFetchConfig `yaml:"fetch"`
	History           HistoryConfig   `yaml:"history"`
}

type yamlFetchConfig struct {
	Timeout   string `yaml:"timeout"`
	UserAgent string `yaml:"user_agent"`
}

// LoadFromFile loads configuration from a YAML file on top of Default().
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.Host != "" {
		cfg.Host = yc.Host
	}
	if yc.Port != 0 {
		cfg.Port = yc.Port
	}
	if yc.UploadDir != "" {
		cfg.UploadDir = yc.UploadDir
	}
	if yc.DownloadDir != "" {
		cfg.DownloadDir = yc.DownloadDir
	}
	if len(yc.AllowedExtensions) > 0 {
		cfg.AllowedExtensions = yc.AllowedExtensions
	}
	if yc.MaxUploadSize != 0 {
		cfg.MaxUploadSize = yc.MaxUploadSize
	}
	if yc.ShutdownTimeout != "" {
		d, err := time.ParseDuration(yc.ShutdownTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse shutdown_timeout: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	if yc.Fetch.Timeout != "" {
		d, err := time.ParseDuration(yc.Fetch.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse fetch.timeout: %w", err)
		}
		cfg.Fetch.Timeout = d
	}
	cfg.Fetch.UserAgent = yc.Fetch.UserAgent
	cfg.History = yc.History

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// PORT is read unprefixed; everything else uses the IMAGEFETCH_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse PORT: %w", err)
		}
		c.Port = n
	}
	if v := os.Getenv("IMAGEFETCH_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("IMAGEFETCH_UPLOAD_DIR"); v != "" {
		c.UploadDir = v
	}
	if v := os.Getenv("IMAGEFETCH_DOWNLOAD_DIR"); v != "" {
		c.DownloadDir = v
	}
	if v := os.Getenv("IMAGEFETCH_ALLOWED_EXTENSIONS"); v != "" {
		c.AllowedExtensions = strings.Split(v, ",")
	}
	if v := os.Getenv("IMAGEFETCH_MAX_UPLOAD_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse IMAGEFETCH_MAX_UPLOAD_SIZE: %w", err)
		}
		c.MaxUploadSize = n
	}
	if v := os.Getenv("IMAGEFETCH_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse IMAGEFETCH_SHUTDOWN_TIMEOUT: %w", err)
		}
		c.ShutdownTimeout = d
	}
	if v := os.Getenv("IMAGEFETCH_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse IMAGEFETCH_FETCH_TIMEOUT: %w", err)
		}
		c.Fetch.Timeout = d
	}
	if v := os.Getenv("IMAGEFETCH_USER_AGENT"); v != "" {
		c.Fetch.UserAgent = v
	}
	if v := os.Getenv("IMAGEFETCH_HISTORY_DRIVER"); v != "" {
		c.History.Driver = v
	}
	if v := os.Getenv("IMAGEFETCH_HISTORY_DSN"); v != "" {
		c.History.DSN = v
	}

	return nil
}

// Validate validates the configuration and normalizes the extension list.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.UploadDir == "" {
		return errors.New("config: upload_dir is required")
	}
	if c.DownloadDir == "" {
		return errors.New("config: download_dir is required")
	}
	if c.MaxUploadSize <= 0 {
		return errors.New("config: max_upload_size must be positive")
	}
	if c.Fetch.Timeout < 0 {
		return errors.New("config: fetch.timeout must not be negative")
	}

	exts := make([]string, 0, len(c.AllowedExtensions))
	for _, ext := range c.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			exts = append(exts, ext)
		}
	}
	if len(exts) == 0 {
		return errors.New("config: allowed_extensions must not be empty")
	}
	c.AllowedExtensions = exts

	switch c.History.Driver {
	case "":
	case "sqlite3", "mysql":
		if c.History.DSN == "" {
			return fmt.Errorf("config: history.dsn is required for driver %s", c.History.Driver)
		}
	default:
		return fmt.Errorf("config: unsupported history.driver %q", c.History.Driver)
	}
	return nil
}

// Addr returns the listen address, host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Load builds a Config from defaults, an optional file and the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
