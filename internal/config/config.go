package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/idstring/internal/core/observability/log"
	"github.com/zeusync/idstring/pkg/idstring"
)

// Config drives the idstring command.
type Config struct {
	LogLevel    string              `json:"log_level" yaml:"log_level"`
	Manifests   []string            `json:"manifests,omitempty" yaml:"manifests,omitempty"`
	BuiltinTags bool                `json:"builtin_tags" yaml:"builtin_tags"`
	StorePath   string              `json:"store_path" yaml:"store_path"`
	LoadLimit   int                 `json:"load_limit,omitempty" yaml:"load_limit,omitempty"`
	View        idstring.ViewFilter `json:"view" yaml:"view"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:    "info",
		BuiltinTags: true,
		StorePath:   "idstring.db",
		LoadLimit:   4,
	}
}

// Load reads a YAML file over the defaults. An empty path returns Default.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LoadLimit < 0 {
		errs = append(errs, fmt.Errorf("load_limit must not be negative, got %d", c.LoadLimit))
	}
	if !c.BuiltinTags && len(c.Manifests) == 0 {
		errs = append(errs, errors.New("no declarations: enable builtin_tags or list manifests"))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, info when invalid.
func (c *Config) Level() log.Level {
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.LevelInfo
	}
	return l
}
