package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.StorageBackend)
	assert.Equal(t, []string{"en"}, cfg.DefaultLocales)
	assert.Equal(t, 4, cfg.MailWorkers)
	assert.Equal(t, 8*time.Hour, cfg.SessionMaxIdle)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "dynamodb")
	t.Setenv("DEFAULT_LOCALES", "de, en ,,fr")
	t.Setenv("MAIL_WORKERS", "2")
	t.Setenv("SESSION_MAX_IDLE", "45m")
	t.Setenv("FORM_DB_DRIVER", "postgres")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, StorageDynamoDB, cfg.StorageBackend)
	assert.Equal(t, []string{"de", "en", "fr"}, cfg.DefaultLocales)
	assert.Equal(t, 2, cfg.MailWorkers)
	assert.Equal(t, 45*time.Minute, cfg.SessionMaxIdle)
	assert.Equal(t, "postgres", cfg.FormDBDriver)
}

func TestLoadConfig_LambdaAndOutbox(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "cms-editor")
	t.Setenv("EVENT_OUTBOX", "true")
	t.Setenv("CORS_ORIGINS", "https://cms.example.org, https://admin.example.org")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.True(t, cfg.IsLambda)
	assert.True(t, cfg.EventOutbox)
	assert.Equal(t, []string{"https://cms.example.org", "https://admin.example.org"}, cfg.CORSOrigins)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Environment:    "production",
			StorageBackend: StorageDynamoDB,
			FormDBDriver:   "mysql",
			DefaultLocales: []string{"de"},
			JWTSecret:      "secret",
			DynamoDBTable:  "cms",
			EventBusName:   "events",
			SMTPHost:       "smtp.example.com",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid production", mutate: func(c *Config) {}},
		{name: "unknown backend", mutate: func(c *Config) { c.StorageBackend = "s3" }, wantErr: "STORAGE_BACKEND"},
		{name: "unknown driver", mutate: func(c *Config) { c.FormDBDriver = "oracle" }, wantErr: "FORM_DB_DRIVER"},
		{name: "no locales", mutate: func(c *Config) { c.DefaultLocales = nil }, wantErr: "DEFAULT_LOCALES"},
		{name: "memory in production", mutate: func(c *Config) { c.StorageBackend = StorageMemory }, wantErr: "production"},
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "lambda without secret", mutate: func(c *Config) { c.JWTSecret = ""; c.IsLambda = true }},
		{name: "missing smtp", mutate: func(c *Config) { c.SMTPHost = "" }, wantErr: "SMTP_HOST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
