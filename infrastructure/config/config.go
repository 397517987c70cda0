package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Storage
	StorageBackend string

	// AWS configuration
	AWSRegion        string
	DynamoDBTable    string
	EventBusName     string
	MetricsNamespace string

	// EventOutbox stores events in the table and forwards them to
	// EventBridge in the background instead of publishing inline
	EventOutbox bool

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// Application form database
	FormDBDriver string
	FormDBDSN    string

	// Mail
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string
	MailFrom          string
	FormNotifyAddress string
	MailWorkers       int
	MailQueueSize     int

	// Editor configuration
	EditorConfigDir string
	SchemaDir       string
	DefaultLocales  []string
	SessionMaxIdle  time.Duration
	// SessionSweep closes idle sessions from within the API server; zero
	// leaves it to the scheduled cleanup function
	SessionSweep    time.Duration

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Public form protection, requests per minute and client
	FormRateLimit int

	// Feature flags
	EnableMetrics bool
	EnableTracing bool
	EnableCORS    bool
	CORSOrigins   []string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		StorageBackend: getEnv("STORAGE_BACKEND", StorageMemory),

		AWSRegion:        getEnv("AWS_REGION", "eu-central-1"),
		DynamoDBTable:    getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "cms-editor")),
		EventBusName:     getEnv("EVENT_BUS_NAME", "cms-editor-events"),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "CMSEditor"),
		EventOutbox:      getEnvBool("EVENT_OUTBOX", false),

		// Lambda configuration
		IsLambda:           getEnvBool("IS_LAMBDA", os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		FormDBDriver: getEnv("FORM_DB_DRIVER", "sqlite"),
		FormDBDSN:    getEnv("FORM_DB_DSN", "file:forms.db?_foreign_keys=on"),

		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getEnvInt("SMTP_PORT", 587),
		SMTPUser:          getEnv("SMTP_USER", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		MailFrom:          getEnv("MAIL_FROM", "noreply@localhost"),
		FormNotifyAddress: getEnv("FORM_NOTIFY_ADDRESS", ""),
		MailWorkers:       getEnvInt("MAIL_WORKERS", 4),
		MailQueueSize:     getEnvInt("MAIL_QUEUE_SIZE", 64),

		EditorConfigDir: getEnv("EDITOR_CONFIG_DIR", ""),
		SchemaDir:       getEnv("SCHEMA_DIR", ""),
		DefaultLocales:  getEnvList("DEFAULT_LOCALES", []string{"en"}),
		SessionMaxIdle:  getEnvDuration("SESSION_MAX_IDLE", 8*time.Hour),
		SessionSweep:    getEnvDuration("SESSION_SWEEP_INTERVAL", 0),

		// Authentication
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "cms-editor"),

		FormRateLimit: getEnvInt("FORM_RATE_LIMIT", 5),

		// Logging and features
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", false),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
		CORSOrigins:   getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageMemory, StorageDynamoDB:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageMemory, StorageDynamoDB, c.StorageBackend)
	}
	switch c.FormDBDriver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("FORM_DB_DRIVER must be sqlite, postgres or mysql, got %q", c.FormDBDriver)
	}
	if len(c.DefaultLocales) == 0 {
		return fmt.Errorf("DEFAULT_LOCALES must name at least one locale")
	}

	if c.Environment == "production" {
		if c.JWTSecret == "" && !c.IsLambda {
			return fmt.Errorf("JWT_SECRET is required in production outside Lambda")
		}
		if c.StorageBackend != StorageDynamoDB {
			return fmt.Errorf("STORAGE_BACKEND must be %s in production", StorageDynamoDB)
		}
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required")
		}
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required")
		}
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required in production")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration parses values like "30m"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
