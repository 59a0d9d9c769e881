// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App        AppConfig
	Logger     LoggerConfig
	Data       DataConfig
	Server     ServerConfig
	Auth       AuthConfig
	Duplicate  DuplicateConfig
	Moderation ModerationConfig
	Recommend  RecommendConfig
	Submission SubmissionConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds on-disk storage locations.
type DataConfig struct {
	BasePath string // Root for everything below (default: ~/Enterra/data)
}

// DatabasePath is the sqlite database file.
func (d DataConfig) DatabasePath() string { return filepath.Join(d.BasePath, "enterra.db") }

// CachePath is the badger recommendation cache directory.
func (d DataConfig) CachePath() string { return filepath.Join(d.BasePath, "cache") }

// SearchPath is the bleve index directory.
func (d DataConfig) SearchPath() string { return filepath.Join(d.BasePath, "search") }

// UploadsPath is the media upload directory.
func (d DataConfig) UploadsPath() string { return filepath.Join(d.BasePath, "uploads") }

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           string        // Server port (default: 8080)
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins    []string      // Allowed origins (default: *)
	RequestsPerMin int           // Per-IP request limit (default: 300, 0 disables)
	MaxUploadBytes int64         // Largest accepted media upload (default: 64 MiB)
	Metrics        bool          // Serve /metrics (default: true)
}

// AuthConfig holds token verification configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key shared with the identity service (32 bytes).
	TokenKey []byte
	// Lifetime of tokens minted by the dev issuer.
	TokenDuration time.Duration
}

// DuplicateConfig holds the duplicate detector thresholds.
type DuplicateConfig struct {
	SimilarThreshold float64 // Similar-posts listing (default: 0.70)
	CheckThreshold   float64 // Best-match check, also the danger line (default: 0.85)
	WarnThreshold    float64 // Submission warning (default: 0.75)
}

// ModerationConfig holds moderation inputs.
type ModerationConfig struct {
	BannedWordsFile string // One word per line; seeds the list when none is stored
	CategoryMapFile string // YAML tag-to-category mapping; embedded default when empty
}

// RecommendConfig holds recommendation settings.
type RecommendConfig struct {
	DefaultLimit int           // default: 20
	CacheTTL     time.Duration // default: 2m, 0 disables caching
	CacheBackend string        // badger, redis or none (default: badger)
	RedisAddr    string        // Used when CacheBackend is redis
}

// SubmissionConfig limits how fast one user can submit content.
type SubmissionConfig struct {
	PerMinute int // Posts and comments per user per minute (default: 10)
	Burst     int // default: 5
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for database, cache, index and uploads")

	// Server flags
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := flag.String("cors-origins", "", "Comma-separated allowed origins (default: *)")

	// Auth flags
	tokenKey := flag.String("token-key", "", "Hex-encoded 32-byte PASETO key")

	// Moderation flags
	bannedWordsFile := flag.String("banned-words-file", "", "Seed file for the banned word list")
	categoryMapFile := flag.String("category-map-file", "", "YAML tag-to-category mapping")

	// Recommendation flags
	cacheBackend := flag.String("cache-backend", "", "Recommendation cache: badger, redis or none")
	redisAddr := flag.String("redis-addr", "", "Redis address for the redis cache backend")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	// Parse flags but don't exit on error - we want to handle it gracefully.
	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},

		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins:    splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
			RequestsPerMin: getIntConfigValue("", "REQUESTS_PER_MINUTE", 300),
			MaxUploadBytes: int64(getIntConfigValue("", "MAX_UPLOAD_MB", 64)) << 20,
			Metrics:        getBoolConfigValue("", "METRICS_ENABLED", true),
		},

		Duplicate: DuplicateConfig{
			SimilarThreshold: getFloatConfigValue("", "DUPLICATE_SIMILAR_THRESHOLD", 0.70),
			CheckThreshold:   getFloatConfigValue("", "DUPLICATE_CHECK_THRESHOLD", 0.85),
			WarnThreshold:    getFloatConfigValue("", "DUPLICATE_WARN_THRESHOLD", 0.75),
		},

		Moderation: ModerationConfig{
			BannedWordsFile: getConfigValue(*bannedWordsFile, "BANNED_WORDS_FILE", ""),
			CategoryMapFile: getConfigValue(*categoryMapFile, "CATEGORY_MAP_FILE", ""),
		},

		Recommend: RecommendConfig{
			DefaultLimit: getIntConfigValue("", "RECOMMEND_DEFAULT_LIMIT", 20),
			CacheBackend: strings.ToLower(getConfigValue(*cacheBackend, "RECOMMEND_CACHE_BACKEND", "badger")),
			RedisAddr:    getConfigValue(*redisAddr, "REDIS_ADDR", "localhost:6379"),
		},

		Submission: SubmissionConfig{
			PerMinute: getIntConfigValue("", "SUBMISSIONS_PER_MINUTE", 10),
			Burst:     getIntConfigValue("", "SUBMISSIONS_BURST", 5),
		},
	}

	// Parse server timeouts.
	var err error
	if cfg.Server.ReadTimeout, err = getDurationConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = getDurationConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.Recommend.CacheTTL, err = getDurationConfigValue("", "RECOMMEND_CACHE_TTL", "2m"); err != nil {
		return nil, err
	}
	if cfg.Auth.TokenDuration, err = getDurationConfigValue("", "TOKEN_DURATION", "24h"); err != nil {
		return nil, err
	}

	// Decode the token key.
	if keyHex := getConfigValue(*tokenKey, "TOKEN_KEY", ""); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid token key: %w", err)
		}
		cfg.Auth.TokenKey = key
	}

	// Expand and validate data path.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	thresholds := map[string]float64{
		"DUPLICATE_SIMILAR_THRESHOLD": c.Duplicate.SimilarThreshold,
		"DUPLICATE_CHECK_THRESHOLD":   c.Duplicate.CheckThreshold,
		"DUPLICATE_WARN_THRESHOLD":    c.Duplicate.WarnThreshold,
	}
	for name, v := range thresholds {
		if v < 0 || v > 1 {
			return fmt.Errorf("invalid %s: %v (must be between 0 and 1)", name, v)
		}
	}

	switch c.Recommend.CacheBackend {
	case "badger", "redis", "none":
	default:
		return fmt.Errorf("invalid cache backend: %s (must be badger, redis, or none)", c.Recommend.CacheBackend)
	}

	if c.Auth.TokenKey != nil && len(c.Auth.TokenKey) != 32 {
		return fmt.Errorf("token key must be 32 bytes, got %d", len(c.Auth.TokenKey))
	}

	// A missing token key is allowed outside production; main generates one.
	if c.Auth.TokenKey == nil && c.App.Environment == "production" {
		return errors.New("TOKEN_KEY is required in production")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Enterra", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

// getDurationConfigValue parses a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return d, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
