// Package config provides configuration management for the schema registry
// node.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents a node's full configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Node          NodeConfig          `yaml:"node"`
	Compatibility CompatibilityConfig `yaml:"compatibility"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout"`
	WriteTimeout int    `yaml:"write_timeout"`
}

// NodeConfig represents this node's identity and replication role within
// the cluster (spec §4.5).
type NodeConfig struct {
	// Role is "primary" or "replica".
	Role string `yaml:"role"`
	// LogPath is the path to this node's command log file.
	LogPath string `yaml:"log_path"`
	// PrimaryEndpoint is the HTTP base URL of the current primary. Used by
	// a replica to forward writes, and ignored when Role is "primary".
	PrimaryEndpoint string `yaml:"primary_endpoint"`
}

// CompatibilityConfig represents the default compatibility policy applied
// to subjects without an explicit per-subject override.
type CompatibilityConfig struct {
	DefaultLevel string `yaml:"default_level"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8081,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Node: NodeConfig{
			Role:    "primary",
			LogPath: "data/schema-registry.log",
		},
		Compatibility: CompatibilityConfig{
			DefaultLevel: "NONE",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file and environment variables.
// Environment variables override file configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		// #nosec G304 -- path is from command-line argument, user-controlled input is expected
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SCHEMA_REGISTRY_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SCHEMA_REGISTRY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("SCHEMA_REGISTRY_COMPATIBILITY_LEVEL"); v != "" {
		c.Compatibility.DefaultLevel = v
	}
	if v := os.Getenv("SCHEMA_REGISTRY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SCHEMA_REGISTRY_NODE_ROLE"); v != "" {
		c.Node.Role = v
	}
	if v := os.Getenv("SCHEMA_REGISTRY_LOG_PATH"); v != "" {
		c.Node.LogPath = v
	}
	if v := os.Getenv("SCHEMA_REGISTRY_PRIMARY_ENDPOINT"); v != "" {
		c.Node.PrimaryEndpoint = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	role := strings.ToLower(c.Node.Role)
	if role != "primary" && role != "replica" {
		return fmt.Errorf("invalid node role: %s", c.Node.Role)
	}
	if role == "replica" && c.Node.PrimaryEndpoint == "" {
		return fmt.Errorf("primary_endpoint is required when role is replica")
	}
	if c.Node.LogPath == "" {
		return fmt.Errorf("log_path is required")
	}

	validCompatibility := map[string]bool{
		"NONE":     true,
		"BACKWARD": true,
		"FORWARD":  true,
		"FULL":     true,
	}
	level := strings.ToUpper(c.Compatibility.DefaultLevel)
	if !validCompatibility[level] {
		return fmt.Errorf("invalid compatibility level: %s", c.Compatibility.DefaultLevel)
	}

	return nil
}

// Address returns the server address string.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
