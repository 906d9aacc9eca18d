package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the kiosk agent
type Config struct {
	// Server configuration (local HTTP surface for the touchscreen UI)
	Server ServerConfig

	// Backend API configuration
	API APIConfig

	// Kiosk flow configuration
	Kiosk KioskConfig

	// Scanner configuration
	Scanner ScannerConfig

	// Security configuration
	Security SecurityConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds the local HTTP surface configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// APIConfig holds the remote visitor-management backend configuration
type APIConfig struct {
	BaseURL          string
	Timeout          time.Duration
	TerminalID       int
	TerminalEmail    string
	TerminalPassword string
	OrganizationCode string
}

// KioskConfig holds flow-level tunables
type KioskConfig struct {
	// CountdownSeconds is the confirmation screen auto-reset countdown
	CountdownSeconds int
}

// ScannerConfig holds scan pipeline tunables and camera devices
type ScannerConfig struct {
	// DebounceWindow is the minimum time between two accepted scans
	DebounceWindow time.Duration

	// SimulatedScanDelay is how long the mock face/fingerprint capture runs
	SimulatedScanDelay time.Duration

	// Devices maps camera labels to MJPEG stream URLs, e.g.
	// "back=http://127.0.0.1:8081/stream,front=http://127.0.0.1:8082/stream"
	Devices map[string]string
}

// SecurityConfig holds the admin guard configuration
type SecurityConfig struct {
	// AdminPINHash is the bcrypt hash of the maintenance PIN
	AdminPINHash string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load reads configuration from environment variables, loading a .env file
// first when one is present.
func Load() (*Config, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8090"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		API: APIConfig{
			BaseURL:          getEnv("VMS_API_URL", "http://checkin.vistacks.com/api"),
			Timeout:          time.Duration(getEnvAsInt("VMS_API_TIMEOUT_SECONDS", 30)) * time.Second,
			TerminalID:       getEnvAsInt("TERMINAL_ID", 0),
			TerminalEmail:    getEnv("TERMINAL_EMAIL", ""),
			TerminalPassword: getEnv("TERMINAL_PASSWORD", ""),
			OrganizationCode: getEnv("ORGANIZATION_CODE", ""),
		},
		Kiosk: KioskConfig{
			CountdownSeconds: getEnvAsInt("CONFIRMATION_COUNTDOWN_SECONDS", 15),
		},
		Scanner: ScannerConfig{
			DebounceWindow:     time.Duration(getEnvAsInt("SCAN_DEBOUNCE_MS", 2000)) * time.Millisecond,
			SimulatedScanDelay: time.Duration(getEnvAsInt("SIMULATED_SCAN_DELAY_MS", 3000)) * time.Millisecond,
			Devices:            getEnvAsMap("SCANNER_DEVICES"),
		},
		Security: SecurityConfig{
			AdminPINHash: getEnv("ADMIN_PIN_HASH", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "X-Admin-Pin"}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("VMS_API_URL is required")
	}

	if c.API.TerminalID == 0 {
		return fmt.Errorf("TERMINAL_ID is required")
	}

	if c.API.TerminalEmail == "" {
		return fmt.Errorf("TERMINAL_EMAIL is required")
	}

	if c.API.TerminalPassword == "" {
		return fmt.Errorf("TERMINAL_PASSWORD is required")
	}

	if c.Kiosk.CountdownSeconds <= 0 {
		return fmt.Errorf("CONFIRMATION_COUNTDOWN_SECONDS must be positive")
	}

	if c.Scanner.DebounceWindow <= 0 {
		return fmt.Errorf("SCAN_DEBOUNCE_MS must be positive")
	}

	// The admin guard is only mandatory outside development
	if c.Server.Environment == "production" && c.Security.AdminPINHash == "" {
		return fmt.Errorf("ADMIN_PIN_HASH is required in production mode")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// getEnvAsMap parses "label=value,label2=value2" pairs.
func getEnvAsMap(key string) map[string]string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	result := make(map[string]string)
	for _, pair := range strings.Split(valueStr, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			log.Printf("Skipping malformed entry in %s: %q", key, pair)
			continue
		}
		result[parts[0]] = parts[1]
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
