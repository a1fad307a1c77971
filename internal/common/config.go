package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/sheet-extractor/constants"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Auth     AuthConfig    `yaml:"auth"`
	Session  SessionConfig `yaml:"session"`
	LLM      LLMConfig     `yaml:"llm"`
	Storage  StorageConfig `yaml:"storage"`
	Features FeatureConfig `yaml:"features"`
	Tags     []string      `yaml:"tags"`
	Log      LogConfig     `yaml:"log"`
}

// ServerConfig holds HTTP-related configuration
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// AuthConfig holds the single shared operator credential
type AuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	Secret     string `yaml:"secret"`
	CookieName string `yaml:"cookie_name"`
	Secure     bool   `yaml:"secure"`
}

// LLMConfig holds vision-model configuration
type LLMConfig struct {
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// StorageConfig holds filesystem and ledger locations
type StorageConfig struct {
	ImagesDir     string `yaml:"images_dir"`
	SheetsDir     string `yaml:"sheets_dir"`
	LedgerDriver  string `yaml:"ledger_driver"`
	LedgerPath    string `yaml:"ledger_path"`
	LedgerDSN     string `yaml:"ledger_dsn"`
	MaterialsPath string `yaml:"materials_path"`
}

// FeatureConfig toggles the two submission-flow variants
type FeatureConfig struct {
	Materials    bool `yaml:"materials"`
	PersistImage bool `yaml:"persist_image"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

const (
	LedgerDriverJSON     = "json"
	LedgerDriverSQLite   = "sqlite"
	LedgerDriverPostgres = "postgres"
)

// Defaults returns the configuration used when neither a file nor env sets a value.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8501",
			MaxUploadBytes: 20 << 20,
		},
		Session: SessionConfig{
			CookieName: "sheetx_session",
		},
		LLM: LLMConfig{
			Model:     "gpt-4o",
			MaxTokens: 1500,
		},
		Storage: StorageConfig{
			ImagesDir:     "imagens",
			SheetsDir:     "planilhas",
			LedgerDriver:  LedgerDriverJSON,
			LedgerPath:    "metadados.json",
			MaterialsPath: "materias_primas.txt",
		},
		Tags: append([]string(nil), constants.DefaultTags...),
		Log:  LogConfig{Level: "info"},
	}
}

// LoadConfig loads configuration from an optional YAML file (SHEETX_CONFIG),
// then environment variables (including a .env file when present).
func LoadConfig() (*Config, error) {
	// .env is optional; production usually sets the environment directly.
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("SHEETX_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "read config file", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("parse config file %s", path), err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("ADDR", c.Server.Addr)
	c.Server.MaxUploadBytes = int64(getEnvAsInt("MAX_UPLOAD_BYTES", int(c.Server.MaxUploadBytes)))

	c.Auth.Username = getEnv("APP_USERNAME", c.Auth.Username)
	c.Auth.Password = getEnv("APP_PASSWORD", c.Auth.Password)

	c.Session.Secret = getEnv("SESSION_SECRET", c.Session.Secret)
	c.Session.CookieName = getEnv("SESSION_COOKIE", c.Session.CookieName)
	c.Session.Secure = getEnvAsBool("SESSION_SECURE", c.Session.Secure)

	c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.MaxTokens = getEnvAsInt("OPENAI_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.Temperature = getEnvAsFloat32("OPENAI_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", c.LLM.Timeout)

	c.Storage.ImagesDir = getEnv("IMAGES_DIR", c.Storage.ImagesDir)
	c.Storage.SheetsDir = getEnv("SHEETS_DIR", c.Storage.SheetsDir)
	c.Storage.LedgerDriver = strings.ToLower(getEnv("LEDGER_DRIVER", c.Storage.LedgerDriver))
	c.Storage.LedgerPath = getEnv("LEDGER_PATH", c.Storage.LedgerPath)
	c.Storage.LedgerDSN = getEnv("LEDGER_DSN", c.Storage.LedgerDSN)
	c.Storage.MaterialsPath = getEnv("MATERIALS_PATH", c.Storage.MaterialsPath)

	c.Features.Materials = getEnvAsBool("FEATURE_MATERIALS", c.Features.Materials)
	c.Features.PersistImage = getEnvAsBool("FEATURE_PERSIST_IMAGE", c.Features.PersistImage)

	c.Tags = getEnvAsList("TAGS", c.Tags)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Auth.Username == "" || c.Auth.Password == "" {
		return NewAppError("CONFIG_ERROR", "APP_USERNAME and APP_PASSWORD are required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "ADDR is required", ErrInvalidInput)
	}
	switch c.Storage.LedgerDriver {
	case LedgerDriverJSON, LedgerDriverSQLite:
	case LedgerDriverPostgres:
		if c.Storage.LedgerDSN == "" {
			return NewAppError("CONFIG_ERROR", "LEDGER_DSN is required for the postgres ledger", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown LEDGER_DRIVER %q", c.Storage.LedgerDriver), ErrInvalidInput)
	}
	if len(c.Tags) == 0 {
		return NewAppError("CONFIG_ERROR", "at least one tag is required", ErrInvalidInput)
	}
	return nil
}
