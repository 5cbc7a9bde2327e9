// Package config loads the application configuration from defaults, an
// optional YAML file, and FINPARTNER_-prefixed environment variables,
// in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Assistant AssistantConfig `mapstructure:"assistant" yaml:"assistant"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

type ServerConfig struct {
	Host       string `mapstructure:"host" yaml:"host"`
	Port       int    `mapstructure:"port" yaml:"port"`
	EnableCORS bool   `mapstructure:"enable_cors" yaml:"enable_cors"`
	Debug      bool   `mapstructure:"debug" yaml:"debug"`
}

type AssistantConfig struct {
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url"`
	Model          string  `mapstructure:"model" yaml:"model"`
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

type StorageConfig struct {
	LocalDir       string `mapstructure:"local_dir" yaml:"local_dir"`
	LocalCapacity  int    `mapstructure:"local_capacity_bytes" yaml:"local_capacity_bytes"`
	RemoteURL      string `mapstructure:"remote_url" yaml:"remote_url"`
	RemoteAPIKey   string `mapstructure:"remote_api_key" yaml:"remote_api_key"`
	RemoteTimeoutS int    `mapstructure:"remote_timeout_seconds" yaml:"remote_timeout_seconds"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:       "localhost",
			Port:       8080,
			EnableCORS: true,
		},
		Assistant: AssistantConfig{
			Model:          "gemini-2.0-flash-exp",
			Temperature:    0.4,
			TimeoutSeconds: 120,
		},
		Storage: StorageConfig{
			LocalDir:       "~/.finpartner",
			RemoteTimeoutS: 15,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads configuration. path may be empty, in which case only the
// default search locations are consulted; a missing config file is not
// an error.
func Load(path string) (Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.enable_cors", defaults.Server.EnableCORS)
	v.SetDefault("server.debug", defaults.Server.Debug)
	v.SetDefault("assistant.model", defaults.Assistant.Model)
	v.SetDefault("assistant.temperature", defaults.Assistant.Temperature)
	v.SetDefault("assistant.timeout_seconds", defaults.Assistant.TimeoutSeconds)
	v.SetDefault("storage.local_dir", defaults.Storage.LocalDir)
	v.SetDefault("storage.local_capacity_bytes", defaults.Storage.LocalCapacity)
	v.SetDefault("storage.remote_timeout_seconds", defaults.Storage.RemoteTimeoutS)
	v.SetDefault("logging.level", defaults.Logging.Level)

	v.SetEnvPrefix("FINPARTNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("finpartner")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".finpartner"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// AssistantTimeout converts the configured seconds to a duration.
func (c AssistantConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RemoteTimeout converts the configured seconds to a duration.
func (c StorageConfig) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteTimeoutS) * time.Second
}

// WriteDefault writes the built-in configuration as a YAML file,
// refusing to overwrite an existing one.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
