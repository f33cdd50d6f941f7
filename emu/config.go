package emu

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Config holds the run settings of the emulator.
type Config struct {
	// MaxInstructions bounds the number of executed instructions.
	// 0 means no limit.
	MaxInstructions uint64 `json:"max_instructions"`

	// Trace logs every executed instruction.
	Trace bool `json:"trace"`

	// LogLevel is the logrus level used when Trace is off.
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() *Config {
	return &Config{
		MaxInstructions: 0,
		Trace:           false,
		LogLevel:        "warn",
	}
}

// LoadConfig loads a config from a JSON file. Fields the file omits keep
// their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read emulator config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse emulator config: %w", err)
	}

	return config, nil
}

// SaveConfig saves the config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize emulator config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write emulator config file: %w", err)
	}

	return nil
}

// Validate checks that the config values are usable.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Level returns the logging level the config asks for.
func (c *Config) Level() logrus.Level {
	if c.Trace {
		return logrus.DebugLevel
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.WarnLevel
	}
	return level
}

// Options turns the config into emulator options.
func (c *Config) Options() []EmulatorOption {
	return []EmulatorOption{
		WithMaxInstructions(c.MaxInstructions),
	}
}
