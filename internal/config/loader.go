package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ldapintegrator/pkg/logging"
)

const (
	userConfigDir  = ".config/ldap-integrator"
	configFileName = "config.yaml"
)

// GetDefaultConfigPathOrPanic returns the user-level configuration
// directory.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads configuration from the specified directory. The directory
// should contain config.yaml; missing files fall back to defaults, so a
// fresh install runs without any configuration.
func LoadConfig(configPath string) (OperatorConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return OperatorConfig{}, err
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return OperatorConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}

	applyFallbacks(&config)

	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// Validate checks the loaded configuration for values the operator cannot
// run with.
func (c *OperatorConfig) Validate() error {
	switch c.Mode {
	case ModeAuto, ModeKubernetes, ModeFilesystem:
	default:
		return fmt.Errorf("invalid mode %q: must be auto, kubernetes, or filesystem", c.Mode)
	}

	if c.Reconciler.WorkerCount < 1 {
		return fmt.Errorf("invalid workerCount %d: must be at least 1", c.Reconciler.WorkerCount)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid logLevel %q: must be debug, info, warn, or error", c.LogLevel)
	}

	return nil
}

// applyFallbacks restores defaults for fields an explicit config zeroed out.
// Unmarshalling on top of the defaults covers absent fields but not empty
// ones.
func applyFallbacks(config *OperatorConfig) {
	defaults := GetDefaultConfig()

	if config.Namespace == "" {
		config.Namespace = defaults.Namespace
	}
	if config.Mode == "" {
		config.Mode = defaults.Mode
	}
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.Reconciler.WorkerCount == 0 {
		config.Reconciler.WorkerCount = defaults.Reconciler.WorkerCount
	}
	if config.Reconciler.DebounceInterval == 0 {
		config.Reconciler.DebounceInterval = defaults.Reconciler.DebounceInterval
	}
	if config.Reconciler.RetryBaseDelay == 0 {
		config.Reconciler.RetryBaseDelay = defaults.Reconciler.RetryBaseDelay
	}
	if config.Reconciler.RetryMaxDelay == 0 {
		config.Reconciler.RetryMaxDelay = defaults.Reconciler.RetryMaxDelay
	}
	if config.Reconciler.MaxRetries == 0 {
		config.Reconciler.MaxRetries = defaults.Reconciler.MaxRetries
	}
	if config.Reconciler.SecretCacheTTL == 0 {
		config.Reconciler.SecretCacheTTL = defaults.Reconciler.SecretCacheTTL
	}
}
