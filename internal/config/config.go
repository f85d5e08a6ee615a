package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	// Local store
	DatabaseType string // sqlite (default), postgres, mysql
	DatabasePath string
	DatabaseURL  string

	MigrationsPath string

	// Identity
	AuthTokenSecret string

	// Invite protocol
	InviteTTL       time.Duration
	InviteURIScheme string

	// Encrypted document blob storage (S3)
	AWSRegion     string
	BlobBucket    string
	BlobURLExpiry time.Duration

	// Invite-link email delivery (optional)
	SESFromEmail string
	SESFromName  string

	// Local cache of decrypted document blobs
	FileCachePath string

	Debug bool
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		DatabaseType:    getEnv("DB_TYPE", "sqlite"),
		DatabasePath:    getEnv("DB_PATH", "./hearth.db"),
		DatabaseURL:     getEnv("DB_URL", ""),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),
		AuthTokenSecret: getEnv("AUTH_TOKEN_SECRET", ""),
		InviteTTL:       getEnvDuration("INVITE_TTL", 24*time.Hour),
		InviteURIScheme: getEnv("INVITE_URI_SCHEME", "hearth"),
		AWSRegion:       getEnv("AWS_REGION", "eu-west-1"),
		BlobBucket:      getEnv("BLOB_BUCKET", ""),
		BlobURLExpiry:   getEnvDuration("BLOB_URL_EXPIRY", 15*time.Minute),
		SESFromEmail:    getEnv("SES_FROM_EMAIL", ""),
		SESFromName:     getEnv("SES_FROM_NAME", "Hearth"),
		FileCachePath:   getEnv("FILE_CACHE_PATH", "./cache"),
		Debug:           getEnvBool("DEBUG", false),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration reads a duration environment variable or returns a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBool reads a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
