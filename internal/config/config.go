package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

const (
	configDirName = "geonames-rdf"
	defaultConfig = ".config"
)

var configFiles = []string{
	"config.yaml",
	"config.yml",
	"config.toml",
}

var ErrUnsupportedFile = errors.New("config: unsupported file type")

// Config represents the structure of the configuration file used by the application.
type Config struct {
	BaseIRI     string `yaml:"base_iri" toml:"base_iri" default:"http://sws.geonames.org/"`
	Output      string `yaml:"output" toml:"output" default:"nquads"`
	MaxLineSize int    `yaml:"max_line_size" toml:"max_line_size" default:"67108864"`
	LogLevel    string `yaml:"log_level" toml:"log_level" default:"warn"`
	Render      Render `yaml:"render" toml:"render"`
}

// Render holds the settings of the decode summary.
type Render struct {
	Format string `yaml:"format" toml:"format" default:"markdown"`
}

// configResult is a struct used to return the configuration and any error that occurs during loading.
type configResult struct {
	config *Config
	err    error
}

// NewDefaultConfig returns a configuration holding only default values.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config: bad default tags: %v", err))
	}
	return cfg
}

// Validate reports settings no command could run with.
func (c *Config) Validate() error {
	switch c.Output {
	case "nquads", "jsonl":
	default:
		return fmt.Errorf("config: unknown output %q (want nquads or jsonl)", c.Output)
	}
	switch c.Render.Format {
	case "markdown", "plain":
	default:
		return fmt.Errorf("config: unknown render format %q (want markdown or plain)", c.Render.Format)
	}
	if c.MaxLineSize <= 0 {
		return fmt.Errorf("config: max_line_size must be positive, got %d", c.MaxLineSize)
	}
	return nil
}

// getConfigPath retrieves the path to the configuration directory based on the XDG_CONFIG_HOME environment variable.
func getConfigPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" && runtime.GOOS == "windows" {
		configHome = os.Getenv("LOCALAPPDATA")
	}
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configHome = filepath.Join(home, defaultConfig)
	}

	return filepath.Join(configHome, configDirName), nil
}

// LoadFile reads the configuration at path. The format follows the file
// extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := NewDefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// LoadConfig loads the configuration from the user's config directory, with a timeout.
func LoadConfig(ctx context.Context) (*Config, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result := make(chan configResult, 1)

	go func() {
		cfg, err := loadConfigFiles(ctx)
		result <- configResult{config: cfg, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-result:
		return r.config, r.err
	}
}

// loadConfigFiles returns the first config file found in the config directory.
func loadConfigFiles(ctx context.Context) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error before loading config: %w", err)
	}

	configDir, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	// Return default config early if directory doesn't exist
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return NewDefaultConfig(), nil
	}

	for _, filename := range configFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cfg, err := LoadFile(filepath.Join(configDir, filename))
		if err == nil {
			return cfg, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config from %s: %w", filename, err)
		}
	}

	return NewDefaultConfig(), nil
}
