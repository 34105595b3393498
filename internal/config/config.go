package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Config holds all configuration for the application
type Config struct {
	// Mock generation backend
	LatencyMin          time.Duration
	LatencyMax          time.Duration
	OverloadProbability float64

	// Retry policy
	MaxAttempts int
	BaseDelay   time.Duration
	JitterBound time.Duration

	// Image preparation
	MaxUploadBytes int64
	MaxImageEdge   int
	JPEGQuality    int

	// History
	HistoryLimit int
	HistoryKey   string

	// Worker
	WorkerInterval time.Duration

	DB DBConfig
}

// Load loads the configuration from environment variables, reading a
// .env file first when one is present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{
		HistoryKey: os.Getenv("HISTORY_KEY"),
	}
	if config.HistoryKey == "" {
		config.HistoryKey = "restyle.history"
	}

	// Load and parse numeric values
	if minMs, err := strconv.Atoi(os.Getenv("MOCK_LATENCY_MIN_MS")); err == nil {
		config.LatencyMin = time.Duration(minMs) * time.Millisecond
	} else {
		config.LatencyMin = 800 * time.Millisecond // default value
	}

	if maxMs, err := strconv.Atoi(os.Getenv("MOCK_LATENCY_MAX_MS")); err == nil {
		config.LatencyMax = time.Duration(maxMs) * time.Millisecond
	} else {
		config.LatencyMax = 1600 * time.Millisecond // default value
	}

	if p, err := strconv.ParseFloat(os.Getenv("OVERLOAD_PROBABILITY"), 64); err == nil {
		config.OverloadProbability = p
	} else {
		config.OverloadProbability = 0.2 // default value
	}

	if attempts, err := strconv.Atoi(os.Getenv("RETRY_MAX_ATTEMPTS")); err == nil {
		config.MaxAttempts = attempts
	} else {
		config.MaxAttempts = 3 // default value
	}

	if baseMs, err := strconv.Atoi(os.Getenv("RETRY_BASE_DELAY_MS")); err == nil {
		config.BaseDelay = time.Duration(baseMs) * time.Millisecond
	} else {
		config.BaseDelay = 500 * time.Millisecond // default value
	}

	if jitterMs, err := strconv.Atoi(os.Getenv("RETRY_JITTER_MS")); err == nil {
		config.JitterBound = time.Duration(jitterMs) * time.Millisecond
	} else {
		config.JitterBound = 100 * time.Millisecond // default value
	}

	if maxBytes, err := strconv.ParseInt(os.Getenv("MAX_UPLOAD_BYTES"), 10, 64); err == nil {
		config.MaxUploadBytes = maxBytes
	} else {
		config.MaxUploadBytes = 10 << 20 // 10 MiB default
	}

	if edge, err := strconv.Atoi(os.Getenv("MAX_IMAGE_EDGE")); err == nil {
		config.MaxImageEdge = edge
	} else {
		config.MaxImageEdge = 1920 // default value
	}

	if quality, err := strconv.Atoi(os.Getenv("JPEG_QUALITY")); err == nil {
		config.JPEGQuality = quality
	} else {
		config.JPEGQuality = 85 // default value
	}

	if limit, err := strconv.Atoi(os.Getenv("HISTORY_LIMIT")); err == nil {
		config.HistoryLimit = limit
	} else {
		config.HistoryLimit = 5 // default value
	}

	if interval, err := strconv.Atoi(os.Getenv("WORKER_INTERVAL")); err == nil {
		config.WorkerInterval = time.Duration(interval) * time.Second
	} else {
		config.WorkerInterval = 5 * time.Second // default value
	}

	// Load database configuration
	dbConfig := DBConfig{
		Host:     os.Getenv("DB_HOST"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Database: os.Getenv("DB_NAME"),
		SSLMode:  os.Getenv("DB_SSL_MODE"),
	}

	// Parse database port
	if port, err := strconv.Atoi(os.Getenv("DB_PORT")); err == nil {
		dbConfig.Port = port
	} else {
		dbConfig.Port = 5432 // default PostgreSQL port
	}

	// Parse connection pool settings
	if maxOpenConns, err := strconv.Atoi(os.Getenv("DB_MAX_OPEN_CONNS")); err == nil {
		dbConfig.MaxOpenConns = maxOpenConns
	} else {
		dbConfig.MaxOpenConns = 25 // default value
	}

	if maxIdleConns, err := strconv.Atoi(os.Getenv("DB_MAX_IDLE_CONNS")); err == nil {
		dbConfig.MaxIdleConns = maxIdleConns
	} else {
		dbConfig.MaxIdleConns = 25 // default value
	}

	if connMaxLifetime, err := strconv.Atoi(os.Getenv("DB_CONN_MAX_LIFETIME")); err == nil {
		dbConfig.ConnMaxLifetime = time.Duration(connMaxLifetime) * time.Second
	} else {
		dbConfig.ConnMaxLifetime = 5 * time.Minute // default value
	}

	config.DB = dbConfig

	// Validate tunables
	if config.LatencyMax < config.LatencyMin {
		return nil, fmt.Errorf("MOCK_LATENCY_MAX_MS must be >= MOCK_LATENCY_MIN_MS")
	}
	if config.OverloadProbability < 0 || config.OverloadProbability > 1 {
		return nil, fmt.Errorf("OVERLOAD_PROBABILITY must be between 0 and 1")
	}
	if config.MaxAttempts < 1 {
		return nil, fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}

	// Validate database configuration
	if config.DB.Host == "" {
		return nil, fmt.Errorf("DB_HOST is required")
	}
	if config.DB.User == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	if config.DB.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if config.DB.Database == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}
