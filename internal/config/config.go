// Package config provides configuration management for grouped-view operations
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config represents the global configuration for grizzly operations
type Config struct {
	// ParallelThreshold is the minimum number of groups before reductions
	// fan out over the worker pool.
	ParallelThreshold int `json:"parallel_threshold" yaml:"parallel_threshold"`
	// WorkerPoolSize is the number of worker goroutines (0 = auto-detect).
	WorkerPoolSize int `json:"worker_pool_size" yaml:"worker_pool_size"`
	// VerboseLogging enables structured trace logging of dispatch decisions.
	VerboseLogging bool `json:"verbose_logging" yaml:"verbose_logging"`
}

// Global configuration instance
var (
	globalConfig Config
	configMutex  sync.RWMutex
)

// Default configuration values
const (
	DefaultParallelThreshold = 100
)

func init() {
	globalConfig = NewConfig()
}

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		ParallelThreshold: DefaultParallelThreshold,
		WorkerPoolSize:    0, // Auto-detect
		VerboseLogging:    false,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.ParallelThreshold <= 0 {
		return fmt.Errorf("ParallelThreshold must be positive, got %d", c.ParallelThreshold)
	}
	if c.WorkerPoolSize < 0 {
		return fmt.Errorf("WorkerPoolSize must be non-negative, got %d", c.WorkerPoolSize)
	}
	return nil
}

// GetGlobalConfig returns a copy of the current global configuration
func GetGlobalConfig() Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetGlobalConfig replaces the global configuration after validation
func SetGlobalConfig(c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = c
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (Config, error) {
	c := NewConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parsing config file: %w", err)
	}

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// LoadFromEnv applies GRIZZLY_* environment variable overrides to a config
func LoadFromEnv(c Config) Config {
	if v, ok := os.LookupEnv("GRIZZLY_PARALLEL_THRESHOLD"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.ParallelThreshold = n
		}
	}
	if v, ok := os.LookupEnv("GRIZZLY_WORKER_POOL_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.WorkerPoolSize = n
		}
	}
	if v, ok := os.LookupEnv("GRIZZLY_VERBOSE_LOGGING"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.VerboseLogging = b
		}
	}
	return c
}
