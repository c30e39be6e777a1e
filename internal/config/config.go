// Copyright 2026 The cfgc Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package config loads the optional cfgc settings file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/afero"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds settings that rarely change between invocations.  Command
// line flags take precedence.
type Config struct {
	// Schema is the C++ header declaring the config layout.
	Schema string `yaml:"schema" default:"setup_data.h"`
	Device Device `yaml:"device"`
	Log    Log    `yaml:"log"`
}

// Device describes how to reach a device named plain MSTD.
type Device struct {
	Host    string        `yaml:"host" default:"192.168.4.1"`
	Port    int           `yaml:"port" default:"69"`
	Timeout time.Duration `yaml:"timeout" default:"5s"`
	Retries int           `yaml:"retries" default:"10"`
}

type Log struct {
	Level string `yaml:"level" default:"info"`
}

// ZapLevel parses the configured level name.
func (l Log) ZapLevel() (zapcore.Level, error) {
	return zapcore.ParseLevel(l.Level)
}

// Default returns the settings used when no file is given.
func Default() *Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(fmt.Sprintf("defaults.Set: %v", err))
	}
	return &cfg
}

// Load reads a YAML settings file; keys it omits keep their defaults.
// An empty path returns the defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("afero.ReadFile: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Schema == "" {
		return errors.New("schema is required")
	}
	if c.Device.Host == "" {
		return errors.New("device.host is required")
	}
	if c.Device.Port <= 0 || c.Device.Port > 65535 {
		return fmt.Errorf("device.port %d out of range", c.Device.Port)
	}
	if c.Device.Timeout <= 0 {
		return fmt.Errorf("device.timeout must be positive, got %s", c.Device.Timeout)
	}
	if c.Device.Retries < 0 {
		return fmt.Errorf("device.retries must not be negative, got %d", c.Device.Retries)
	}
	if _, err := c.Log.ZapLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
