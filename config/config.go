// Package config loads notebook settings from notebook.yaml, environment
// variables (NOTEBOOK_*) and defaults, in order of decreasing priority:
// env, file, defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix = "NOTEBOOK"
	appName   = "notebook"
)

type Config struct {
	Notebook  NotebookConfig `yaml:"notebook" mapstructure:"notebook"`
	PageSize  int            `yaml:"page_size" mapstructure:"page_size"`
	Search    SearchConfig   `yaml:"search" mapstructure:"search"`
	SyncWrite bool           `yaml:"sync_write" mapstructure:"sync_write"`
	Log       LogConfig      `yaml:"log" mapstructure:"log"`
}

type NotebookConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	Dir  string `yaml:"dir" mapstructure:"dir"`
}

type SearchConfig struct {
	// match patterns as literal text instead of regular expressions
	Literal bool `yaml:"literal" mapstructure:"literal"`
}

type LogConfig struct {
	// defaults to ${notebook.dir}/logs
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", appName)
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

func DefaultConfig() *Config {
	return &Config{
		Notebook: NotebookConfig{
			Name: "Notebook",
			Dir:  defaultDataDir(),
		},
		PageSize:  5,
		SyncWrite: true,
	}
}

func setDefaults(v *viper.Viper, c *Config) {
	// every key needs a default for env variables to be picked up by Unmarshal
	v.SetDefault("notebook.name", c.Notebook.Name)
	v.SetDefault("notebook.dir", c.Notebook.Dir)
	v.SetDefault("page_size", c.PageSize)
	v.SetDefault("search.literal", c.Search.Literal)
	v.SetDefault("sync_write", c.SyncWrite)
	v.SetDefault("log.dir", c.Log.Dir)
	v.SetDefault("log.verbose", c.Log.Verbose)
}

// Load reads configuration. If path is empty, notebook.yaml is looked up
// in the current directory and in the user's config directory and it's
// fine if it doesn't exist. An explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(appName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(configDir())
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Notebook.Dir = expandHome(cfg.Notebook.Dir)
	cfg.Log.Dir = expandHome(cfg.Log.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// LogDir returns log.dir or, if not set, ${notebook.dir}/logs
func (c *Config) LogDir() string {
	if c.Log.Dir != "" {
		return c.Log.Dir
	}
	return filepath.Join(c.Notebook.Dir, "logs")
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Notebook.Name == "" {
		return fmt.Errorf("config: notebook.name is required")
	}
	if c.Notebook.Dir == "" {
		return fmt.Errorf("config: notebook.dir is required")
	}
	if c.PageSize < 1 {
		return fmt.Errorf("config: page_size must be at least 1, got %d", c.PageSize)
	}
	return nil
}
