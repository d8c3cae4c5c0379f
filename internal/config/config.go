// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir    string // Base directory for databases (always absolute)
	ResultsDir string // Where scan JSON and plots are written (always absolute)
	LogLevel   string
	Port       int
	DevMode    bool

	ScanWorkers         int           // Concurrent geometry points per scan (1 = sequential)
	ExactMaxQubits      int           // Upper bound for dense diagonalization
	HamiltonianCacheTTL time.Duration // How long mapped operators stay cached

	Backup *BackupConfig
}

// BackupConfig describes the S3-compatible bucket that receives result archives.
type BackupConfig struct {
	Enabled         bool
	Bucket          string
	Endpoint        string // Empty means AWS S3
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Schedule        string // cron expression with seconds field
	RetentionDays   int    // 0 keeps every archive
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := ensureDir(getEnv("PESCAN_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}

	resultsDir, err := ensureDir(getEnv("RESULTS_DIR", filepath.Join(dataDir, "results")))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare results directory: %w", err)
	}

	cfg := &Config{
		DataDir:             dataDir,
		ResultsDir:          resultsDir,
		Port:                getEnvAsInt("GO_PORT", 8001),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		ScanWorkers:         getEnvAsInt("SCAN_WORKERS", 1),
		ExactMaxQubits:      getEnvAsInt("EXACT_MAX_QUBITS", 14),
		HamiltonianCacheTTL: getEnvAsDuration("HAMILTONIAN_CACHE_TTL", 7*24*time.Hour),
		Backup:              loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid GO_PORT %d", c.Port)
	}
	if c.ScanWorkers < 1 {
		return fmt.Errorf("SCAN_WORKERS must be at least 1, got %d", c.ScanWorkers)
	}
	if c.ExactMaxQubits < 1 || c.ExactMaxQubits > 20 {
		return fmt.Errorf("EXACT_MAX_QUBITS must be between 1 and 20, got %d", c.ExactMaxQubits)
	}
	if c.Backup != nil && c.Backup.Enabled {
		if c.Backup.Bucket == "" {
			return fmt.Errorf("BACKUP_BUCKET is required when BACKUP_ENABLED is set")
		}
		if c.Backup.AccessKeyID == "" || c.Backup.SecretAccessKey == "" {
			return fmt.Errorf("backup credentials are required when BACKUP_ENABLED is set")
		}
	}
	return nil
}

// DatabasePath returns the path of the SQLite file holding scan runs and the operator cache.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "pescan.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func ensureDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return "", err
	}
	return abs, nil
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
		Bucket:          getEnv("BACKUP_BUCKET", ""),
		Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
		Region:          getEnv("BACKUP_REGION", "auto"),
		AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		Schedule:        getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"), // daily at 03:00
		RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
	}
}
