package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RunConfigFile is the optional YAML run configuration. Flags override it.
type RunConfigFile struct {
	Version  int    `json:"version" yaml:"version"`
	UserID   string `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Policy   string `json:"policy,omitempty" yaml:"policy,omitempty"`
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

func LoadRunConfigFile(path string) (*RunConfigFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg RunConfigFile
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Version != 0 && cfg.Version != 1 {
		return nil, fmt.Errorf("%s: unsupported config version %d", path, cfg.Version)
	}
	return &cfg, nil
}
