// Package config has the configuration file for the app
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. It is loaded once at
// startup and passed explicitly into every component constructor.
type Config struct {
	OutFolder    string        // root of the generated output tree
	HTTPTimeout  time.Duration // timeout for dataset downloads
	Port         string
	Address      string
	Env          string
	LogLevel     string
	LogDir       string
	RefreshTimes string // daily refresh times, e.g. "06:00;18:00"
}

// Load loads and validates configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		OutFolder:    getEnvWithDefault("OUT_FOLDER", "data"),
		HTTPTimeout:  time.Duration(getIntEnvWithDefault("HTTP_TIMEOUT_SECONDS", 300)) * time.Second,
		Port:         getEnvWithDefault("PORT", "8000"),
		Address:      getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:          getEnvWithDefault("ENV", "dev"),
		LogLevel:     getEnvWithDefault("LOG_LEVEL", "info"),
		LogDir:       getEnvWithDefault("LOG_DIR", "logs"),
		RefreshTimes: getEnvWithDefault("REFRESH_TIMES", "06:00;18:00"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.OutFolder == "" {
		return fmt.Errorf("OUT_FOLDER cannot be empty")
	}
	if cfg.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive, got: %s", cfg.HTTPTimeout)
	}
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}
	if err := validateChoice("ENV", cfg.Env, []string{"dev", "staging", "prod", "test"}); err != nil {
		return err
	}
	if err := validateChoice("LOG_LEVEL", cfg.LogLevel, []string{"debug", "info", "warn", "error"}); err != nil {
		return err
	}
	if err := validateRefreshTimes(cfg.RefreshTimes); err != nil {
		return fmt.Errorf("invalid REFRESH_TIMES: %w", err)
	}
	return nil
}

func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}
	if portNum < 1024 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1024 and 65535")
	}
	return nil
}

func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}
	if address == "localhost" {
		return nil
	}
	if ip := net.ParseIP(address); ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}
	return nil
}

func validateChoice(name, value string, valid []string) error {
	value = strings.ToLower(value)
	for _, v := range valid {
		if value == v {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of: %v, got: %s", name, valid, value)
}

func validateRefreshTimes(times string) error {
	if times == "" {
		return fmt.Errorf("cannot be empty")
	}
	for _, t := range strings.Split(times, ";") {
		if _, err := time.Parse("15:04", t); err != nil {
			return fmt.Errorf("%q is not a valid HH:MM time", t)
		}
	}
	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
