// Package config loads client configuration from an optional YAML file, a
// .env file and RAGSTREAM_* environment variables, in that order of
// precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "RAGSTREAM_"

// DefaultFile is read when present; a missing default file is not an error.
const DefaultFile = "ragstream.yaml"

// Config is the top-level client configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Stream  StreamConfig  `yaml:"stream"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig points at the document service HTTP endpoints.
type APIConfig struct {
	BaseURL        string        `yaml:"baseUrl"`
	UploadPath     string        `yaml:"uploadPath"`
	StatusPath     string        `yaml:"statusPath"`
	SearchPath     string        `yaml:"searchPath"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	StatusCacheTTL time.Duration `yaml:"statusCacheTTL"`
}

// StreamConfig controls the query stream connection.
type StreamConfig struct {
	URL              string        `yaml:"url"`
	HandshakeTimeout time.Duration `yaml:"handshakeTimeout"`
	WriteTimeout     time.Duration `yaml:"writeTimeout"`
}

// StorageConfig controls where local state lives.
type StorageConfig struct {
	DataDir string `yaml:"dataDir"`
}

// LoggingConfig controls the rotated log file.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
}

// DBPath is the sqlite database holding upload attempts.
func (c Config) DBPath() string {
	return filepath.Join(c.Storage.DataDir, "ragstream.db")
}

// LogPath resolves the log file relative to the data dir.
func (c Config) LogPath() string {
	if filepath.IsAbs(c.Logging.File) {
		return c.Logging.File
	}
	return filepath.Join(c.Storage.DataDir, c.Logging.File)
}

// Endpoint joins an API path onto the base URL.
func (c APIConfig) Endpoint(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Load reads the YAML file at path (skipped when empty, or when it is the
// missing DefaultFile), then .env, then environment overrides, and
// validates the result.
func Load(path string) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case path == DefaultFile && errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8000",
			UploadPath:     "/upload",
			StatusPath:     "/vector_status",
			SearchPath:     "/vector_search",
			RequestTimeout: 2 * time.Minute,
			StatusCacheTTL: 5 * time.Second,
		},
		Stream: StreamConfig{
			URL:              "ws://localhost:8000/ws/stream",
			HandshakeTimeout: 10 * time.Second,
			WriteTimeout:     10 * time.Second,
		},
		Storage: StorageConfig{DataDir: ".ragstream"},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "ragstream.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(envPrefix + "API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv(envPrefix + "STREAM_URL"); v != "" {
		cfg.Stream.URL = v
	}
	if v := os.Getenv(envPrefix + "DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(envPrefix + "REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sREQUEST_TIMEOUT: %w", envPrefix, err)
		}
		cfg.API.RequestTimeout = d
	}
	return nil
}

// Validate rejects configurations the clients cannot work with.
func (c Config) Validate() error {
	base, err := url.Parse(c.API.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return fmt.Errorf("api base url must be an absolute http(s) url, got %q", c.API.BaseURL)
	}
	stream, err := url.Parse(c.Stream.URL)
	if err != nil || (stream.Scheme != "ws" && stream.Scheme != "wss") || stream.Host == "" {
		return fmt.Errorf("stream url must be an absolute ws(s) url, got %q", c.Stream.URL)
	}
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		return fmt.Errorf("data dir is required")
	}
	if c.API.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	return nil
}
