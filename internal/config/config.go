package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values
const (
	DefaultMaxBodySize int64 = 10 * 1024 * 1024 // 10MB
	DefaultConfigPath        = "config.yaml"
)

// Config holds the configuration for the code review service
type Config struct {
	Log struct {
		Level    string `yaml:"level"`  // DEBUG, INFO, WARN, ERROR
		Format   string `yaml:"format"` // text, json
		Output   string `yaml:"output"` // stdout, stderr, /path/to/file
		Rotation struct {
			MaxSize    int  `yaml:"max_size"`    // Megabytes
			MaxBackups int  `yaml:"max_backups"` // Number of old files to keep
			MaxAge     int  `yaml:"max_age"`     // Days to keep
			Compress   bool `yaml:"compress"`
		} `yaml:"rotation"`
	} `yaml:"log"`

	Server struct {
		Port             int           `yaml:"port"`
		ConcurrencyLimit int           `yaml:"concurrency_limit"` // Max concurrent review jobs
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxBodySize      int64         `yaml:"max_body_size"`
		WebhookSecret    string        `yaml:"-"` // From Env
	} `yaml:"server"`

	GitHub struct {
		Token   string        `yaml:"-"` // From Env
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"github"`

	LLM struct {
		Provider        string        `yaml:"provider"` // gemini, deepseek
		GeminiModel     string        `yaml:"gemini_model"`
		DeepSeekModel   string        `yaml:"deepseek_model"`
		GeminiAPIKey    string        `yaml:"-"` // From Env
		DeepSeekAPIKey  string        `yaml:"-"` // From Env
		Endpoint        string        `yaml:"endpoint"` // DeepSeek-compatible endpoint override
		Timeout         time.Duration `yaml:"timeout"`
		MaxRetries      int           `yaml:"max_retries"`
		RetryBackoff    time.Duration `yaml:"retry_backoff"`
		MaxOutputTokens int           `yaml:"max_output_tokens"`
		Production      bool          `yaml:"production"` // Redact provider bodies wholesale
	} `yaml:"llm"`

	Review ReviewConfig `yaml:"review"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Storage StorageConfig `yaml:"storage"`
}

// ReviewConfig holds tunables for the review pipeline
type ReviewConfig struct {
	MaxDiffSize         int           `yaml:"max_diff_size"`         // Byte threshold at which filtering kicks in (default: 100000)
	LargeDiffMultiplier float64       `yaml:"large_diff_multiplier"` // Hard skip above MaxDiffSize*multiplier (default: 1.5)
	ChunkSize           int           `yaml:"chunk_size"`            // Greedy chunk byte budget (default: 50000)
	AllowedExtensions   []string      `yaml:"allowed_extensions"`    // Override of the default extension set
	AllowedRepositories []string      `yaml:"allowed_repositories"`  // owner/name allow-list; empty allows all
	JobDeadline         time.Duration `yaml:"job_deadline"`          // Per-review wall-clock budget (default: 60s)
	FetchTimeout        time.Duration `yaml:"fetch_timeout"`         // Diff fetch timeout (default: 15s)
	PostTimeout         time.Duration `yaml:"post_timeout"`          // Per comment/status post (default: 10s)
	DedupWindow         time.Duration `yaml:"dedup_window"`          // Recent-summary window (default: 1h)
	StatusOnFindings    string        `yaml:"status_on_findings"`    // failure (default) or success
}

// RateLimitConfig holds the per-repository admission budget
type RateLimitConfig struct {
	MaxPerWindow int           `yaml:"max_per_window"` // Reviews per repo per window (default: 10)
	Window       time.Duration `yaml:"window"`         // Window length (default: 1h)
	MaxKeys      int           `yaml:"max_keys"`       // Bounded table size (default: 10000)
}

// StorageConfig holds configuration for optional review history persistence
type StorageConfig struct {
	Driver  string        `yaml:"driver"`  // sqlite; empty disables history
	DSN     string        `yaml:"dsn"`     // Connection string
	Timeout time.Duration `yaml:"timeout"` // Timeout for storage operations (default: 5s)
}

// GetLogLevel returns the slog.Level based on Log.Level string
func (c *Config) GetLogLevel() slog.Level {
	switch strings.ToUpper(c.Log.Level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadConfig loads configuration from YAML file and supplements with environment variables
func LoadConfig() *Config {
	cfg := &Config{}

	// Set defaults before loading
	cfg.Log.Level = "INFO"
	cfg.Log.Format = "text"
	cfg.Log.Output = "stdout"
	cfg.Server.Port = 3000
	cfg.Server.ConcurrencyLimit = 64
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.MaxBodySize = DefaultMaxBodySize
	cfg.GitHub.Timeout = 30 * time.Second
	cfg.LLM.Provider = ProviderGemini
	cfg.LLM.GeminiModel = "gemini-2.0-flash"
	cfg.LLM.DeepSeekModel = "deepseek-chat"
	cfg.LLM.Endpoint = "https://api.deepseek.com"
	cfg.LLM.Timeout = 60 * time.Second
	cfg.LLM.MaxRetries = 3
	cfg.LLM.RetryBackoff = 1 * time.Second
	cfg.LLM.MaxOutputTokens = 2048

	// Review defaults
	cfg.Review.MaxDiffSize = 100000
	cfg.Review.LargeDiffMultiplier = 1.5
	cfg.Review.ChunkSize = 50000
	cfg.Review.JobDeadline = 60 * time.Second
	cfg.Review.FetchTimeout = 15 * time.Second
	cfg.Review.PostTimeout = 10 * time.Second
	cfg.Review.DedupWindow = 1 * time.Hour
	cfg.Review.StatusOnFindings = "failure"

	// Rate limit defaults
	cfg.RateLimit.MaxPerWindow = 10
	cfg.RateLimit.Window = 1 * time.Hour
	cfg.RateLimit.MaxKeys = 10000

	// Log Rotation defaults
	cfg.Log.Rotation.MaxSize = 100
	cfg.Log.Rotation.MaxBackups = 10
	cfg.Log.Rotation.MaxAge = 7
	cfg.Log.Rotation.Compress = true

	// Storage defaults
	cfg.Storage.Timeout = 5 * time.Second

	// Try to load from YAML
	configPath := getEnv("CONFIG_PATH", DefaultConfigPath)
	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			slog.Error("unmarshal config failed", "error", err, "path", configPath)
			os.Exit(1)
		}
		slog.Info("config loaded", "path", configPath)
	} else {
		if !os.IsNotExist(err) {
			slog.Error("read config failed", "error", err, "path", configPath)
			os.Exit(1)
		}
		slog.Info("config not found, using defaults", "path", configPath)
	}

	// Always supplement/override with environment variables for secrets and critical items
	cfg.GitHub.Token = getEnv("GITHUB_TOKEN", cfg.GitHub.Token)
	cfg.Server.WebhookSecret = getEnv("WEBHOOK_SECRET", cfg.Server.WebhookSecret)
	cfg.LLM.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.LLM.GeminiAPIKey)
	cfg.LLM.DeepSeekAPIKey = getEnv("DEEPSEEK_API_KEY", cfg.LLM.DeepSeekAPIKey)

	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(provider))
	}
	if envPort := getEnvInt("PORT", 0); envPort != 0 {
		cfg.Server.Port = envPort
	}
	if envLogLevel := os.Getenv("LOG_LEVEL"); envLogLevel != "" {
		cfg.Log.Level = envLogLevel
	}
	if envLogFormat := os.Getenv("LOG_FORMAT"); envLogFormat != "" {
		cfg.Log.Format = envLogFormat
	}
	if envLogOutput := os.Getenv("LOG_OUTPUT"); envLogOutput != "" {
		cfg.Log.Output = envLogOutput
	}
	if maxDiff := getEnvInt("MAX_DIFF_SIZE", 0); maxDiff != 0 {
		cfg.Review.MaxDiffSize = maxDiff
	}
	if repos := os.Getenv("ALLOWED_REPOSITORIES"); repos != "" {
		cfg.Review.AllowedRepositories = splitCSV(repos)
	}
	if exts := os.Getenv("ALLOWED_FILE_EXTENSIONS"); exts != "" {
		cfg.Review.AllowedExtensions = splitCSV(exts)
	}
	if os.Getenv("NODE_ENV") == "production" || os.Getenv("APP_ENV") == "production" {
		cfg.LLM.Production = true
	}

	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if c.GitHub.Token == "" {
		errs = append(errs, "GITHUB_TOKEN is required")
	}

	if c.Server.WebhookSecret == "" {
		errs = append(errs, "WEBHOOK_SECRET is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid server port: %d", c.Server.Port))
	}

	switch c.LLM.Provider {
	case ProviderGemini, ProviderDeepSeek:
	default:
		errs = append(errs, fmt.Sprintf("unknown AI_PROVIDER: %s", c.LLM.Provider))
	}

	// At least one provider key must exist; failover covers the other
	if c.LLM.GeminiAPIKey == "" && c.LLM.DeepSeekAPIKey == "" {
		errs = append(errs, "at least one of GEMINI_API_KEY or DEEPSEEK_API_KEY is required")
	}

	if c.Review.MaxDiffSize <= 0 {
		errs = append(errs, fmt.Sprintf("invalid max diff size: %d", c.Review.MaxDiffSize))
	}

	if c.Review.LargeDiffMultiplier < 1 {
		errs = append(errs, fmt.Sprintf("invalid large diff multiplier: %f", c.Review.LargeDiffMultiplier))
	}

	switch c.Review.StatusOnFindings {
	case "failure", "success":
	default:
		errs = append(errs, fmt.Sprintf("invalid status_on_findings: %s", c.Review.StatusOnFindings))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

// AllowedExtensionSet returns the effective extension filter, lowercased.
func (c *Config) AllowedExtensionSet() []string {
	exts := c.Review.AllowedExtensions
	if len(exts) == 0 {
		exts = DefaultAllowedExtensions
	}
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

// Helper functions for reading environment variables

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
