package config

import (
	"fmt"
	"time"
)

// DomainConfig holds all configurable editing rules and constraints
type DomainConfig struct {
	// Locale handling
	DefaultLocales []string
	MaxLocales     int

	// Element handling
	DefaultElementName string
	MaxElementNameLen  int

	// Temporary files
	TempFilePrefix string

	// Buffer constraints
	MaxBufferLength int

	// Time constraints
	SessionTimeout time.Duration
	LockDuration   time.Duration

	// Feature flags
	SanitizeHTML           bool
	PublishAfterSaveAction bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		DefaultLocales: []string{"en"},
		MaxLocales:     50,

		DefaultElementName: "body",
		MaxElementNameLen:  128,

		TempFilePrefix: "~",

		MaxBufferLength: 500000,

		SessionTimeout: 8 * time.Hour,
		LockDuration:   8 * time.Hour,

		SanitizeHTML:           true,
		PublishAfterSaveAction: true,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	config.MaxBufferLength = 200000
	config.SessionTimeout = 4 * time.Hour

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	config.SessionTimeout = 30 * time.Minute
	config.LockDuration = time.Hour

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if len(c.DefaultLocales) == 0 {
		return fmt.Errorf("at least one default locale is required")
	}
	if c.DefaultElementName == "" {
		return fmt.Errorf("default element name is required")
	}
	if c.TempFilePrefix == "" {
		return fmt.Errorf("temp file prefix is required")
	}
	if c.MaxBufferLength <= 0 {
		return fmt.Errorf("max buffer length must be positive")
	}
	return nil
}
