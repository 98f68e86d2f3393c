// Package config aggregates every subsystem's configuration into one
// YAML-sourced document, mirroring the fabric's ApplyDefaults/Validate
// cascading pattern.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/plexsphere/splicefabric/internal/admin"
	"github.com/plexsphere/splicefabric/internal/housekeeping"
	"github.com/plexsphere/splicefabric/internal/ingress"
	"github.com/plexsphere/splicefabric/internal/pool"
	"github.com/plexsphere/splicefabric/internal/splice"
	"github.com/plexsphere/splicefabric/internal/whitelist"
)

const (
	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultDataDir is where the device-details snapshot is read/written.
	DefaultDataDir = "/var/lib/splicefabric"
)

// FabricConfig is the top-level configuration for the splice fabric
// backend. It aggregates all subsystem configurations and is populated
// from a YAML configuration file via ParseConfig.
type FabricConfig struct {
	// LogLevel is the log level: "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// DataDir holds the device-details snapshot written/read across restarts.
	// Splice state itself is never persisted here; see the store package.
	DataDir string `yaml:"data_dir"`

	Ingress       ingress.Config       `yaml:"ingress"`
	Pool          pool.Config          `yaml:"pool"`
	Splice        splice.Config        `yaml:"splice"`
	Whitelist     whitelist.Config     `yaml:"whitelist"`
	Admin         admin.Config         `yaml:"admin"`
	Housekeeping  housekeeping.Config  `yaml:"housekeeping"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *FabricConfig) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	c.Ingress.ApplyDefaults()
	c.Pool.ApplyDefaults()
	c.Splice.ApplyDefaults()
	c.Whitelist.ApplyDefaults()
	c.Admin.ApplyDefaults()
	c.Housekeeping.ApplyDefaults()
}

// Validate checks that required fields are set and values are acceptable.
func (c *FabricConfig) Validate() error {
	if err := c.Ingress.Validate(); err != nil {
		return err
	}
	if err := c.Pool.Validate(); err != nil {
		return err
	}
	if err := c.Splice.Validate(); err != nil {
		return err
	}
	if err := c.Whitelist.Validate(); err != nil {
		return err
	}
	if err := c.Admin.Validate(); err != nil {
		return err
	}
	if err := c.Housekeeping.Validate(); err != nil {
		return err
	}
	return nil
}

// ParseConfig reads a YAML configuration file and returns a FabricConfig.
// It applies defaults and validates the configuration.
func ParseConfig(path string) (*FabricConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg FabricConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
