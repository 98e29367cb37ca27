package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application configuration, loaded once at startup.
type Config struct {
	HTTPAddr string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// AdminUserID is the identity-provider id of the privileged caller
	// allowed to create and close auctions.
	AdminUserID string

	// MaxTxAttempts bounds the transparent retry loop around bid/close
	// transactions when the store reports a transient conflict.
	MaxTxAttempts int

	BlobStoreURL   string
	BlobStoreToken string
}

// Load reads the configuration from environment variables, loading a .env
// file first if one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":9000"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "astalive"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		AdminUserID:    getEnv("ADMIN_USER_ID", ""),
		MaxTxAttempts:  getEnvInt("MAX_TX_ATTEMPTS", 3),
		BlobStoreURL:   getEnv("BLOB_STORE_URL", ""),
		BlobStoreToken: getEnv("BLOB_STORE_TOKEN", ""),
	}
}

// PostgresDSN builds the connection string for pgx and golang-migrate.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
