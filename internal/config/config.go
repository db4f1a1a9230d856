// Package config loads the optional prose.config.yaml project file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the project config filename, looked up next to the
// compiled sources.
const ConfigFile = "prose.config.yaml"

// Config holds project-level compiler defaults. The zero value is a
// valid configuration: no default target, comments stripped.
type Config struct {
	DefaultTarget    string `yaml:"default_target,omitempty" json:"default_target,omitempty"`
	PreserveComments bool   `yaml:"preserve_comments,omitempty" json:"preserve_comments,omitempty"`
}

// Load reads prose.config.yaml from dir. A missing file is not an
// error; it yields the zero configuration.
func Load(dir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse parses config data from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &c, nil
}

// Write writes the config to dir, creating it if needed.
func Write(c *Config, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ConfigFile), data, 0644)
}
