package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config holds all replay service configuration
type Config struct {
	// Listeners
	GRPCAddr string `mapstructure:"grpc_addr"`
	HTTPAddr string `mapstructure:"http_addr"`

	// Buffer
	Capacity    int     `mapstructure:"capacity"`
	Prioritized bool    `mapstructure:"prioritized"`
	Alpha       float64 `mapstructure:"alpha"`
	Beta        float64 `mapstructure:"beta"`
	Seed        int64   `mapstructure:"seed"` // 0 seeds from the clock

	MaxSampleSize int `mapstructure:"max_sample_size"`

	// Checkpoints
	CheckpointPath     string        `mapstructure:"checkpoint_path"` // empty disables checkpoints
	CheckpointInterval time.Duration `mapstructure:"checkpoint_interval"`
	CheckpointKeep     int           `mapstructure:"checkpoint_keep"`
	Restore            bool          `mapstructure:"restore"`

	// Events
	NATSURL     string `mapstructure:"nats_url"` // empty disables publishing
	NATSSubject string `mapstructure:"nats_subject"`

	// Push client
	ReplayAddr    string        `mapstructure:"replay_addr"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	LogLevel        string        `mapstructure:"log_level"`
}

// DefaultMaxSampleSize bounds the batch a single Sample call may request.
const DefaultMaxSampleSize = 65536

// Default returns a config with sensible defaults
func Default() *Config {
	return &Config{
		GRPCAddr:           ":8080",
		HTTPAddr:           ":9090",
		Capacity:           100000,
		Prioritized:        true,
		Alpha:              0.6,
		Beta:               0.4,
		MaxSampleSize:      DefaultMaxSampleSize,
		CheckpointInterval: 10 * time.Minute,
		CheckpointKeep:     5,
		NATSSubject:        "replay",
		ReplayAddr:         "localhost:8080",
		BatchSize:          32,
		FlushInterval:      5 * time.Second,
		ShutdownTimeout:    30 * time.Second,
		LogLevel:           "info",
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.GRPCAddr == "" {
		return fmt.Errorf("grpc_addr is required")
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive")
	}
	if c.Prioritized {
		if c.Alpha < 0 {
			return fmt.Errorf("alpha must be non-negative")
		}
		if c.Beta < 0 {
			return fmt.Errorf("beta must be non-negative")
		}
	}
	if c.MaxSampleSize <= 0 {
		return fmt.Errorf("max_sample_size must be positive")
	}
	if c.CheckpointPath != "" && c.CheckpointInterval < 0 {
		return fmt.Errorf("checkpoint_interval must not be negative")
	}
	if c.Restore && c.CheckpointPath == "" {
		return fmt.Errorf("restore requires checkpoint_path")
	}
	if c.NATSURL != "" && c.NATSSubject == "" {
		return fmt.Errorf("nats_subject is required when nats_url is set")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return nil
}

// ValidateClient checks the settings used by the push command
func (c *Config) ValidateClient() error {
	if c.ReplayAddr == "" {
		return fmt.Errorf("replay_addr is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("flush_interval must be positive")
	}
	return nil
}
