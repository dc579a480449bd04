// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ServerConfig holds all server-related settings
type ServerConfig struct {
	Port           int
	Host           string
	MetricsEnabled bool
}

// DatabaseConfig holds MongoDB connection settings
type DatabaseConfig struct {
	URI  string
	Name string
}

// OpenAIConfig holds settings for the chat-completion collaborator
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// MinIOConfig holds settings for the image-storage collaborator
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Config holds the complete application configuration
type Config struct {
	Server         *ServerConfig
	Database       *DatabaseConfig
	OpenAI         *OpenAIConfig
	MinIO          *MinIOConfig
	JWTSecret      string
	RedisAddr      string
	AllowedOrigins []string
	Debug          bool
}

// DefaultConfig provides default server settings
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Port:           8080,
		Host:           "0.0.0.0",
		MetricsEnabled: true,
	}
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	// Silent failure if no .env exists, which is fine in deployed environments
	_ = godotenv.Load()

	serverConfig := DefaultConfig()

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			serverConfig.Port = port
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		serverConfig.Host = host
	}

	if metricsEnabled := os.Getenv("METRICS_ENABLED"); metricsEnabled != "" {
		serverConfig.MetricsEnabled = metricsEnabled == "true"
	}

	dbConfig := &DatabaseConfig{
		URI:  getEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		Name: getEnvOrDefault("MONGODB_DATABASE", "peerbridge"),
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	openAIConfig := &OpenAIConfig{
		APIKey: os.Getenv("OPENAI_API_KEY"),
		Model:  getEnvOrDefault("OPENAI_MODEL", "gpt-4o"),
	}

	minioConfig := &MinIOConfig{
		Endpoint:  getEnvOrDefault("MINIO_ENDPOINT", "localhost:9000"),
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		Bucket:    getEnvOrDefault("MINIO_BUCKET", "peerbridge-images"),
		UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
	}

	config := &Config{
		Server:         serverConfig,
		Database:       dbConfig,
		OpenAI:         openAIConfig,
		MinIO:          minioConfig,
		JWTSecret:      jwtSecret,
		RedisAddr:      getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		AllowedOrigins: []string{"*"}, // Default to allow all origins
		Debug:          false,
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		config.Debug = true
	}

	return config, nil
}

// Helper function to get environment variable with default fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
