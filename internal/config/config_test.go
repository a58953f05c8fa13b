package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.NoError(t, cfg.ValidateClient())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"missing grpc addr", func(c *Config) { c.GRPCAddr = "" }},
		{"zero capacity", func(c *Config) { c.Capacity = 0 }},
		{"negative alpha", func(c *Config) { c.Alpha = -0.1 }},
		{"negative beta", func(c *Config) { c.Beta = -1 }},
		{"zero max sample size", func(c *Config) { c.MaxSampleSize = 0 }},
		{"restore without path", func(c *Config) { c.Restore = true }},
		{"nats without subject", func(c *Config) { c.NATSURL = "nats://localhost:4222"; c.NATSSubject = "" }},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_UniformIgnoresExponents(t *testing.T) {
	cfg := Default()
	cfg.Prioritized = false
	cfg.Alpha = -1
	assert.NoError(t, cfg.Validate())
}

func TestValidateClient(t *testing.T) {
	cfg := Default()
	cfg.BatchSize = 0
	assert.Error(t, cfg.ValidateClient())

	cfg = Default()
	cfg.ReplayAddr = ""
	assert.Error(t, cfg.ValidateClient())
}
