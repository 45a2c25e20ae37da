// Package config loads the snipkit.yaml configuration consumed by the CLI
// and the live bridge. It configures the registry and frontends only;
// snippet definitions themselves are code, never configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/snipkit/snipkit/pkg/registry"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "snipkit.yaml"

// Config represents the snipkit.yaml configuration
type Config struct {
	// Filetypes restricts which built-in snippet sets load. Empty means
	// all of them.
	Filetypes []string `yaml:"filetypes,omitempty"`

	// Priorities overrides per-trigger priorities: filetype -> trigger ->
	// priority.
	Priorities map[string]map[string]int `yaml:"priorities,omitempty"`

	// Play configures the interactive playground.
	Play *PlayConfig `yaml:"play,omitempty"`

	// Serve configures the live bridge server.
	Serve *ServeConfig `yaml:"serve,omitempty"`
}

// PlayConfig contains playground configuration
type PlayConfig struct {
	// Filetype preselected when the playground starts.
	Filetype string `yaml:"filetype,omitempty"`

	// LinePrefix simulates the indentation of the expansion site.
	LinePrefix string `yaml:"linePrefix,omitempty"`
}

// ServeConfig contains live bridge configuration
type ServeConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Play:  &PlayConfig{Filetype: "markdown"},
		Serve: &ServeConfig{Addr: "127.0.0.1:7345"},
	}
}

// Load reads snipkit.yaml from dir, falling back to defaults when the file
// does not exist.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile reads a configuration file. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cfg.Play == nil {
		cfg.Play = Default().Play
	}
	if cfg.Serve == nil {
		cfg.Serve = Default().Serve
	}
	return cfg, nil
}

// FiletypeEnabled reports whether a built-in snippet set should load.
func (c *Config) FiletypeEnabled(ft string) bool {
	if len(c.Filetypes) == 0 {
		return true
	}
	for _, enabled := range c.Filetypes {
		if enabled == ft {
			return true
		}
	}
	return false
}

// Apply pushes priority overrides into a registry.
func (c *Config) Apply(r *registry.Registry) {
	for ft, triggers := range c.Priorities {
		for trig, prio := range triggers {
			r.SetPriority(ft, trig, prio)
		}
	}
}
