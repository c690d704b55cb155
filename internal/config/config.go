package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// DOCKENV_IMAGE_BASE overrides image.base.
const EnvPrefix = "DOCKENV"

// Config represents the application configuration
type Config struct {
	Docker DockerConfig `mapstructure:"docker"`
	Image  ImageConfig  `mapstructure:"image"`
	Pip    PipConfig    `mapstructure:"pip"`
	Run    RunConfig    `mapstructure:"run"`
	Log    LogConfig    `mapstructure:"log"`
}

// DockerConfig selects how dockenv reaches the Engine.
type DockerConfig struct {
	// Host overrides DOCKER_HOST and socket auto-detection.
	Host string `mapstructure:"host"`

	// Binary is the docker CLI used for interactive runs.
	Binary string `mapstructure:"binary"`
}

// ImageConfig holds defaults for newly built environments.
type ImageConfig struct {
	Base string `mapstructure:"base"`
	User string `mapstructure:"user"`
}

// PipConfig holds pip install policy.
type PipConfig struct {
	OnlyBinary bool `mapstructure:"only_binary"`
}

// RunConfig holds defaults for script runs.
type RunConfig struct {
	// Network is passed to `docker run --network`; empty uses Docker's
	// default bridge.
	Network string `mapstructure:"network"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// setDefaults registers every key so environment overrides apply even
// without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("docker.host", "")
	v.SetDefault("docker.binary", "docker")
	v.SetDefault("image.base", "python:3")
	v.SetDefault("image.user", "dockenv")
	v.SetDefault("pip.only_binary", true)
	v.SetDefault("run.network", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults alone always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load loads and validates the configuration. path selects an explicit
// config file; when empty the default search locations are used and a
// missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readConfig(v, path); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &cfg, nil
}

// configExts are the file extensions tried, in order, for config.* in
// each search directory.
var configExts = []string{"yaml", "yml", "json", "jsonc", "toml"}

// readConfig reads the explicit file at path, or the first config.* found
// in the default locations when path is empty.
func readConfig(v *viper.Viper, path string) error {
	if path == "" {
		path = findConfig(searchPaths())
		if path == "" {
			return nil
		}
	}

	if strings.EqualFold(filepath.Ext(path), ".jsonc") {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
		v.SetConfigType("json")
		if err := v.ReadConfig(bytes.NewReader(jsonc.ToJSON(data))); err != nil {
			return fmt.Errorf("error parsing config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// findConfig returns the first existing config.<ext> in dirs, or "".
func findConfig(dirs []string) string {
	for _, dir := range dirs {
		for _, ext := range configExts {
			candidate := filepath.Join(dir, "config."+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
	}
	return ""
}

// searchPaths returns the directories searched for config.* files.
func searchPaths() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "dockenv"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "dockenv"))
	}
	return dirs
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if strings.TrimSpace(c.Image.Base) == "" {
		return fmt.Errorf("image.base must not be empty")
	}

	if c.Image.User == "" || c.Image.User == "root" {
		return fmt.Errorf("image.user must name a non-root user, got: %q", c.Image.User)
	}

	if c.Docker.Binary == "" {
		return fmt.Errorf("docker.binary must not be empty")
	}

	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log.format: %s, must be 'console' or 'json'", c.Log.Format)
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %s", c.Log.Level)
	}

	return nil
}
