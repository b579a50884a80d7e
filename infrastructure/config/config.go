package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string
	IndexName     string // GSI1 - reverse link and list queries
	EventBusName  string

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// Remote runtime
	RuntimeBaseURL        string
	RuntimeAPIKey         string
	RuntimeTimeout        time.Duration
	RuntimeCacheTTL       time.Duration
	RuntimeRateLimit      int
	RuntimeRateWindow     time.Duration
	RuntimeMaxWaiting     int
	RuntimeRetryAttempts  int
	RuntimeRetryBaseDelay time.Duration
	RuntimeRetryMaxDelay  time.Duration

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Feature flags
	EnableMetrics  bool
	EnableCORS     bool
	EnableSyncLock bool

	// Metrics
	MetricsNamespace string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "pathway-engine")),
		IndexName:     getEnv("INDEX_NAME", "GSI1"),
		EventBusName:  getEnv("EVENT_BUS_NAME", "pathway-engine-events"),

		// Lambda configuration
		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		// Remote runtime
		RuntimeBaseURL:        getEnv("RUNTIME_BASE_URL", "https://api.bland.ai/v1"),
		RuntimeAPIKey:         getEnv("RUNTIME_API_KEY", ""),
		RuntimeTimeout:        getEnvDuration("RUNTIME_TIMEOUT", 30*time.Second),
		RuntimeCacheTTL:       getEnvDuration("RUNTIME_CACHE_TTL", 30*time.Second),
		RuntimeRateLimit:      getEnvInt("RUNTIME_RATE_LIMIT", 10),
		RuntimeRateWindow:     getEnvDuration("RUNTIME_RATE_WINDOW", time.Second),
		RuntimeMaxWaiting:     getEnvInt("RUNTIME_MAX_WAITING", 100),
		RuntimeRetryAttempts:  getEnvInt("RUNTIME_RETRY_ATTEMPTS", 4),
		RuntimeRetryBaseDelay: getEnvDuration("RUNTIME_RETRY_BASE_DELAY", 250*time.Millisecond),
		RuntimeRetryMaxDelay:  getEnvDuration("RUNTIME_RETRY_MAX_DELAY", 5*time.Second),

		// Authentication
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "pathway-engine"),

		// Logging and features
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		EnableMetrics:    getEnvBool("ENABLE_METRICS", false),
		EnableCORS:       getEnvBool("ENABLE_CORS", true),
		EnableSyncLock:   getEnvBool("ENABLE_SYNC_LOCK", false),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "PathwayEngine"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.RuntimeAPIKey == "" {
			return fmt.Errorf("RUNTIME_API_KEY is required in production")
		}
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required")
		}
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required")
		}
	}
	if c.RuntimeRateLimit < 1 {
		return fmt.Errorf("RUNTIME_RATE_LIMIT must be at least 1")
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

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
