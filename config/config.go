// Package config loads NanoBroker channel settings from a TOML file,
// then lets environment variables (optionally read from a .env file)
// override individual fields for containerized deployment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/nanobroker/nanobroker/broker"
)

// Config is the on-disk shape of a channel's settings. ChannelName and
// Capacity have no Settings equivalent — they are arguments to
// NewProducer, not part of broker.Settings — so they live here
// alongside the fields that do map onto it.
type Config struct {
	ChannelName     string `toml:"channel_name"`
	Capacity        int    `toml:"capacity"`
	OverflowPolicy  string `toml:"overflow_policy"`
	ProducerTimeout string `toml:"producer_timeout"`
	SpinIterations  int    `toml:"spin_iterations"`
	YieldIterations int    `toml:"yield_iterations"`
}

// Load parses a TOML file at path, then applies any NANOBROKER_*
// environment variables on top, optionally seeded from a .env file in
// the current working directory.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := toml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&c)

	return &c, nil
}

// applyEnvOverrides loads a .env file if present (ignored when
// missing) then overlays any of the recognized NANOBROKER_* variables
// on top of c.
func applyEnvOverrides(c *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("NANOBROKER_CHANNEL_NAME"); v != "" {
		c.ChannelName = v
	}

	if v := os.Getenv("NANOBROKER_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Capacity = n
		}
	}

	if v := os.Getenv("NANOBROKER_OVERFLOW_POLICY"); v != "" {
		c.OverflowPolicy = v
	}

	if v := os.Getenv("NANOBROKER_PRODUCER_TIMEOUT"); v != "" {
		c.ProducerTimeout = v
	}

	if v := os.Getenv("NANOBROKER_SPIN_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SpinIterations = n
		}
	}

	if v := os.Getenv("NANOBROKER_YIELD_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.YieldIterations = n
		}
	}
}

// Settings converts c into a broker.Settings, filling in
// broker.DefaultSettings for any field c leaves at its zero value.
func (c *Config) Settings() (broker.Settings, error) {
	s := broker.DefaultSettings()

	switch c.OverflowPolicy {
	case "", "block":
		s.OverflowPolicy = broker.Block
	case "overwrite_old":
		s.OverflowPolicy = broker.OverwriteOld
	default:
		return s, fmt.Errorf("config: unknown overflow_policy %q", c.OverflowPolicy)
	}

	if c.ProducerTimeout != "" {
		d, err := time.ParseDuration(c.ProducerTimeout)
		if err != nil {
			return s, fmt.Errorf("config: invalid producer_timeout %q: %w", c.ProducerTimeout, err)
		}
		s.ProducerTimeout = d
	}

	if c.SpinIterations > 0 {
		s.SpinIterations = c.SpinIterations
	}

	if c.YieldIterations > 0 {
		s.YieldIterations = c.YieldIterations
	}

	return s, nil
}
