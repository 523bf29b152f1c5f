package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds host settings shared by the chcp binaries.
type Config struct {
	// ConfigURL is the URL of the remote application config (chcp.json).
	ConfigURL string `yaml:"config_url"`
	// ContentRoot is the local directory that holds release folders and state.
	ContentRoot string `yaml:"content_root"`
	// NativeVersion is the host build number checked against
	// the minimum native version advertised by a release.
	NativeVersion int `yaml:"native_version"`
	// Timeout is the duration for a single HTTP request.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default filename for host settings.
	DefaultConfigFilename = "chcp-settings.yaml"

	// DefaultTimeout is the default duration for a single HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errConfigURLRequired is returned when the remote config URL is missing.
	errConfigURLRequired = errors.New("config URL must be provided")
	// errContentRootRequired is returned when the content root is missing.
	errContentRootRequired = errors.New("content root must be provided")
	// errNativeVersionNegative is returned when the native version is below zero.
	errNativeVersionNegative = errors.New("native version must not be negative")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting.
func Validate(settings *Config) error {
	if settings.ConfigURL == "" {
		return errConfigURLRequired
	}

	if _, err := url.ParseRequestURI(settings.ConfigURL); err != nil {
		return fmt.Errorf("invalid config URL: %w", err)
	}

	if settings.ContentRoot == "" {
		return errContentRootRequired
	}

	if settings.NativeVersion < 0 {
		return errNativeVersionNegative
	}

	// Set default timeout if not specified
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	return nil
}
