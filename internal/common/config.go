package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Extraction ExtractionConfig `toml:"extraction"`
	Session    SessionConfig    `toml:"session"`
	Rasterizer RasterizerConfig `toml:"rasterizer"`
	Storage    StorageConfig    `toml:"storage"`
	Database   DatabaseConfig   `toml:"database"`
	Costing    CostingConfig    `toml:"costing"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr      string `toml:"grpc_addr"`
	PublicBaseURL string `toml:"public_base_url"`
	LogLevel      string `toml:"log_level"`
}

// ExtractionConfig holds provider and retry settings
type ExtractionConfig struct {
	Provider         string        `toml:"provider"` // gemini | openai
	Model            string        `toml:"model"`
	CredentialPrefix string        `toml:"credential_prefix"`
	Timeout          time.Duration `toml:"timeout"`
	MaxRetries       int           `toml:"max_retries"`
	BaseWait         time.Duration `toml:"base_wait"`
	GCPProject       string        `toml:"gcp_project"`
	GCPRegion        string        `toml:"gcp_region"`
	OpenAIBaseURL    string        `toml:"openai_base_url"`
	Temperature      float32       `toml:"temperature"`
}

// SessionConfig holds batch limits and working directories
type SessionConfig struct {
	MaxConcurrent int    `toml:"max_concurrent"`
	MaxFiles      int    `toml:"max_files"`
	MaxFileBytes  int64  `toml:"max_file_bytes"`
	UploadDir     string `toml:"upload_dir"`
	OutputDir     string `toml:"output_dir"`
	SchemaFile    string `toml:"schema_file"`
}

// RasterizerConfig holds pdftoppm settings
type RasterizerConfig struct {
	Pdftoppm string `toml:"pdftoppm"`
	DPI      int    `toml:"dpi"`
	MaxPages int    `toml:"max_pages"`
}

// StorageConfig selects where finished reports are published
type StorageConfig struct {
	Backend    string        `toml:"backend"` // local | gcs | s3
	Bucket     string        `toml:"bucket"`
	Prefix     string        `toml:"prefix"`
	Region     string        `toml:"region"`
	Endpoint   string        `toml:"endpoint"`
	PresignTTL time.Duration `toml:"presign_ttl"`
}

// DatabaseConfig holds the usage store connection; empty URL disables persistence
type DatabaseConfig struct {
	URL             string        `toml:"url"`
	MaxConns        int32         `toml:"max_conns"`
	MinConns        int32         `toml:"min_conns"`
	MaxConnLifetime time.Duration `toml:"max_conn_lifetime"`
	DialTimeout     time.Duration `toml:"dial_timeout"`
}

// CostingConfig points at the litellm-format price list
type CostingConfig struct {
	PriceFile string `toml:"price_file"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCAddr: ":8080",
			LogLevel: "info",
		},
		Extraction: ExtractionConfig{
			Provider:         "gemini",
			Model:            "gemini-2.0-flash",
			CredentialPrefix: "GEMINI_API_KEY",
			Timeout:          120 * time.Second,
			MaxRetries:       5,
			BaseWait:         2 * time.Second,
			GCPRegion:        "us-central1",
			OpenAIBaseURL:    "https://api.openai.com/v1",
		},
		Session: SessionConfig{
			MaxConcurrent: 3,
			MaxFiles:      10,
			MaxFileBytes:  10 * 1024 * 1024,
			UploadDir:     "uploads",
			OutputDir:     "outputs",
			SchemaFile:    "registry/vendor_schemas.json",
		},
		Rasterizer: RasterizerConfig{
			Pdftoppm: "pdftoppm",
			DPI:      200,
		},
		Storage: StorageConfig{
			Backend:    "local",
			PresignTTL: 24 * time.Hour,
		},
		Database: DatabaseConfig{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Costing: CostingConfig{
			PriceFile: "costing/model_prices.json",
		},
	}
}

// LoadConfig resolves defaults, then CONFIG_FILE (TOML), then environment variables.
// A .env file in the working directory is loaded first without overriding the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "decode "+path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(c *Config) {
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.PublicBaseURL = getEnv("PUBLIC_BASE_URL", c.Server.PublicBaseURL)
	c.Server.LogLevel = getEnv("LOG_LEVEL", c.Server.LogLevel)

	c.Extraction.Provider = getEnv("EXTRACTION_PROVIDER", c.Extraction.Provider)
	c.Extraction.Model = getEnv("GEMINI_MODEL", c.Extraction.Model)
	c.Extraction.Model = getEnv("Gemini_Engine", c.Extraction.Model)
	c.Extraction.CredentialPrefix = getEnv("CREDENTIAL_PREFIX", c.Extraction.CredentialPrefix)
	c.Extraction.Timeout = getEnvAsSeconds("TIMEOUT_SECONDS", c.Extraction.Timeout)
	c.Extraction.MaxRetries = getEnvAsInt("EXTRACTION_MAX_RETRIES", c.Extraction.MaxRetries)
	c.Extraction.BaseWait = getEnvAsDuration("EXTRACTION_BASE_WAIT", c.Extraction.BaseWait)
	c.Extraction.GCPProject = getEnv("GOOGLE_CLOUD_PROJECT", c.Extraction.GCPProject)
	c.Extraction.GCPRegion = getEnv("GOOGLE_CLOUD_REGION", c.Extraction.GCPRegion)
	c.Extraction.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.Extraction.OpenAIBaseURL)
	c.Extraction.Temperature = getEnvAsFloat32("EXTRACTION_TEMPERATURE", c.Extraction.Temperature)

	c.Session.MaxConcurrent = getEnvAsInt("MAX_CONCURRENT_TASKS", c.Session.MaxConcurrent)
	c.Session.MaxFiles = getEnvAsInt("MAX_FILES_ALLOWED", c.Session.MaxFiles)
	c.Session.MaxFileBytes = int64(getEnvAsInt("MAX_FILE_SIZE_MB", int(c.Session.MaxFileBytes>>20))) << 20
	c.Session.UploadDir = getEnv("UPLOAD_DIR", c.Session.UploadDir)
	c.Session.OutputDir = getEnv("OUTPUT_DIR", c.Session.OutputDir)
	c.Session.SchemaFile = getEnv("SCHEMA_FILE", c.Session.SchemaFile)

	c.Rasterizer.Pdftoppm = getEnv("PDFTOPPM", c.Rasterizer.Pdftoppm)
	c.Rasterizer.DPI = getEnvAsInt("RASTER_DPI", c.Rasterizer.DPI)
	c.Rasterizer.MaxPages = getEnvAsInt("RASTER_MAX_PAGES", c.Rasterizer.MaxPages)

	c.Storage.Backend = getEnv("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.Bucket = getEnv("STORAGE_BUCKET", c.Storage.Bucket)
	c.Storage.Prefix = getEnv("STORAGE_PREFIX", c.Storage.Prefix)
	c.Storage.Region = getEnv("AWS_REGION", c.Storage.Region)
	c.Storage.Endpoint = getEnv("STORAGE_ENDPOINT", c.Storage.Endpoint)
	c.Storage.PresignTTL = getEnvAsDuration("STORAGE_PRESIGN_TTL", c.Storage.PresignTTL)

	c.Database.URL = getEnv("DB_URL", c.Database.URL)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)

	c.Costing.PriceFile = getEnv("PRICE_FILE", c.Costing.PriceFile)
}

// Helper functions for environment variable parsing
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsSeconds accepts a bare number of seconds ("120") or a Go duration ("2m").
func getEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Extraction.Provider {
	case "gemini", "openai":
	default:
		return NewAppError("CONFIG_ERROR", "EXTRACTION_PROVIDER must be gemini or openai", ErrInvalidInput)
	}
	if c.Extraction.Model == "" {
		return NewAppError("CONFIG_ERROR", "Gemini_Engine is required", ErrInvalidInput)
	}
	if c.Extraction.Provider == "gemini" && c.Extraction.GCPProject == "" {
		return NewAppError("CONFIG_ERROR", "GOOGLE_CLOUD_PROJECT is required for the gemini provider", ErrInvalidInput)
	}
	if c.Session.MaxConcurrent <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_CONCURRENT_TASKS must be positive", ErrInvalidInput)
	}
	switch c.Storage.Backend {
	case "local":
	case "gcs", "s3":
		if c.Storage.Bucket == "" {
			return NewAppError("CONFIG_ERROR", "STORAGE_BUCKET is required for "+c.Storage.Backend, ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "unknown STORAGE_BACKEND "+c.Storage.Backend, ErrInvalidInput)
	}
	return nil
}

// LogLevel maps Server.LogLevel onto a slog level (info when unrecognised).
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Server.LogLevel) {
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
