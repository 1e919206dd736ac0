// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultOutput is the catalog written when no output is configured.
const DefaultOutput = "intake2.yaml"

// StorageConfig holds credentials and limits for remote object stores.
// Every field is optional; unset credentials mean anonymous access.
type StorageConfig struct {
	S3KeyID    string
	S3Secret   string
	S3Endpoint string // host or URL of an S3-compatible endpoint
	S3Region   string

	GCSKeyFile string // service account JSON key file

	AzureAccountName string
	AzureAccountKey  string

	RemoteRPS   float64       // sustained HTTP requests per second
	RemoteBurst int           // HTTP burst capacity
	HTTPTimeout time.Duration // per-request timeout of the HTTP client
}

// HasS3Credentials returns true when both S3 key fields are set.
func (s *StorageConfig) HasS3Credentials() bool {
	return s.S3KeyID != "" && s.S3Secret != ""
}

// HasAzureKey returns true when shared-key Azure credentials are set.
func (s *StorageConfig) HasAzureKey() bool {
	return s.AzureAccountName != "" && s.AzureAccountKey != ""
}

// Config holds the configuration of a conversion run.
type Config struct {
	Output    string // output catalog path (default intake2.yaml)
	Chunks    string // chunking strategy recorded on array entries (default "auto")
	LogLevel  string // log level: debug, info, warn, error (default "info")
	LogFormat string // "text" (default) or "json"

	Storage StorageConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	return ParseLevel(c.LogLevel)
}

// ParseLevel maps a level name to an slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidateLevel reports an error for level names ParseLevel does not know.
func ValidateLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("unknown log level %q: use debug, info, warn or error", level)
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Output:    os.Getenv("FORGE_OUTPUT"),
		Chunks:    os.Getenv("FORGE_CHUNKS"),
		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: strings.ToLower(os.Getenv("LOG_FORMAT")),
		Storage: StorageConfig{
			S3KeyID:          os.Getenv("S3_KEY_ID"),
			S3Secret:         os.Getenv("S3_SECRET"),
			S3Endpoint:       os.Getenv("S3_ENDPOINT"),
			S3Region:         os.Getenv("S3_REGION"),
			GCSKeyFile:       os.Getenv("GCS_KEY_FILE"),
			AzureAccountName: os.Getenv("AZURE_STORAGE_ACCOUNT"),
			AzureAccountKey:  os.Getenv("AZURE_STORAGE_KEY"),
		},
	}

	if v := os.Getenv("REMOTE_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid REMOTE_RPS %q: must be a positive number", v)
		}
		cfg.Storage.RemoteRPS = f
	}
	if v := os.Getenv("REMOTE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid REMOTE_BURST %q: must be a positive integer", v)
		}
		cfg.Storage.RemoteBurst = n
	}
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
		}
		cfg.Storage.HTTPTimeout = d
	}

	// Defaults
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}
	if cfg.Chunks == "" {
		cfg.Chunks = "auto"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown LOG_FORMAT %q, using text", cfg.LogFormat))
		cfg.LogFormat = "text"
	}
	if cfg.Storage.RemoteRPS == 0 {
		cfg.Storage.RemoteRPS = 10
	}
	if cfg.Storage.RemoteBurst == 0 {
		cfg.Storage.RemoteBurst = 20
	}
	if cfg.Storage.HTTPTimeout == 0 {
		cfg.Storage.HTTPTimeout = 30 * time.Second
	}
	if cfg.Storage.S3Region == "" {
		cfg.Storage.S3Region = "us-east-1"
	}
	if (cfg.Storage.S3KeyID == "") != (cfg.Storage.S3Secret == "") {
		cfg.Warnings = append(cfg.Warnings, "only one of S3_KEY_ID and S3_SECRET is set; S3 access will be anonymous")
	}
	if cfg.Storage.AzureAccountKey != "" && cfg.Storage.AzureAccountName == "" {
		cfg.Warnings = append(cfg.Warnings, "AZURE_STORAGE_KEY is set without AZURE_STORAGE_ACCOUNT; it is ignored")
	}

	return cfg, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = stripQuotes(value)
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
