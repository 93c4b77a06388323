package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Store      StoreConfig
	JWT        JWTConfig
	S3         S3Config
	Log        LogConfig
	CORS       CORSConfig
	Queue      QueueConfig
	Email      EmailConfig
	Extraction ExtractionConfig
	LLM        LLMConfig
	Pipeline   PipelineConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// StoreConfig selects the document store backend. "postgres" is the durable
// production store; "memory" runs everything in-process for local
// development and tests.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

// JWTConfig holds JWT signing and expiry settings.
type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	AccessTokenExpiry  time.Duration `mapstructure:"access_expiry"`
	RefreshTokenExpiry time.Duration `mapstructure:"refresh_expiry"`
	Issuer             string        `mapstructure:"issuer"`
}

// S3Config holds object storage settings for uploaded reports.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// QueueConfig holds pipeline requeue worker settings.
type QueueConfig struct {
	PollIntervalSecs int `mapstructure:"poll_interval_secs"`
	Concurrency      int `mapstructure:"concurrency"`
	StaleAfterSecs   int `mapstructure:"stale_after_secs"`
}

// EmailConfig holds run-notification delivery settings. The "noop" provider
// disables outbound mail.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
	FrontendURL string `mapstructure:"frontend_url"`
}

// ExtractionConfig holds text-extraction provider settings. Provider is one
// of "mistral", "pdftext", "tesseract"; FallbackProviders are tried in order
// when the primary fails with a transport error.
type ExtractionConfig struct {
	Provider          string   `mapstructure:"provider"`
	FallbackProviders []string `mapstructure:"fallback_providers"`
	TimeoutSecs       int      `mapstructure:"timeout_secs"`
	MistralAPIKey     string   `mapstructure:"mistral_api_key"`
	MistralBaseURL    string   `mapstructure:"mistral_base_url"`
	MistralModel      string   `mapstructure:"mistral_model"`
	TesseractLangs    []string `mapstructure:"tesseract_langs"`
}

// LLMConfig holds chat-completion provider settings for the extraction and
// insight agents. Provider is one of "chutes", "ollama".
type LLMConfig struct {
	Provider      string `mapstructure:"provider"`
	TimeoutSecs   int    `mapstructure:"timeout_secs"`
	ChutesAPIKey  string `mapstructure:"chutes_api_key"`
	ChutesBaseURL string `mapstructure:"chutes_base_url"`
	ChutesModel   string `mapstructure:"chutes_model"`
	OllamaBaseURL string `mapstructure:"ollama_base_url"`
	OllamaModel   string `mapstructure:"ollama_model"`
}

// PipelineConfig holds orchestrator policy settings.
type PipelineConfig struct {
	WarningMargin   float64       `mapstructure:"warning_margin"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"`
	DeleteAttempts  int           `mapstructure:"delete_attempts"`
	DeleteBaseDelay time.Duration `mapstructure:"delete_base_delay"`
}

// Load reads configuration from environment variables with the LABSIGHT_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LABSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "labsight")
	v.SetDefault("db.password", "labsight_secret")
	v.SetDefault("db.name", "labsight_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Store defaults
	v.SetDefault("store.driver", "postgres")

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.access_expiry", "15m")
	v.SetDefault("jwt.refresh_expiry", "168h")
	v.SetDefault("jwt.issuer", "labsight")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "labsight-reports")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 10)
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173,http://127.0.0.1:5173")

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 10)
	v.SetDefault("queue.concurrency", 3)
	v.SetDefault("queue.stale_after_secs", 120)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "noreply@labsight.app")
	v.SetDefault("email.from_name", "Labsight")
	v.SetDefault("email.frontend_url", "http://localhost:3000")

	// Extraction defaults
	v.SetDefault("extraction.provider", "mistral")
	v.SetDefault("extraction.fallback_providers", "")
	v.SetDefault("extraction.timeout_secs", 120)
	v.SetDefault("extraction.mistral_api_key", "")
	v.SetDefault("extraction.mistral_base_url", "https://api.mistral.ai")
	v.SetDefault("extraction.mistral_model", "mistral-ocr-latest")
	v.SetDefault("extraction.tesseract_langs", "eng")

	// LLM defaults
	v.SetDefault("llm.provider", "chutes")
	v.SetDefault("llm.timeout_secs", 120)
	v.SetDefault("llm.chutes_api_key", "")
	v.SetDefault("llm.chutes_base_url", "https://llm.chutes.ai")
	v.SetDefault("llm.chutes_model", "chutesai/Mistral-Small-3.2-24B-Instruct-2506")
	v.SetDefault("llm.ollama_base_url", "http://localhost:11434")
	v.SetDefault("llm.ollama_model", "llama3.1")

	// Pipeline defaults
	v.SetDefault("pipeline.warning_margin", 0.20)
	v.SetDefault("pipeline.run_timeout", "5m")
	v.SetDefault("pipeline.delete_attempts", 3)
	v.SetDefault("pipeline.delete_base_delay", "1s")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":          "LABSIGHT_SERVER_PORT",
		"server.read_timeout":  "LABSIGHT_SERVER_READ_TIMEOUT",
		"server.write_timeout": "LABSIGHT_SERVER_WRITE_TIMEOUT",
		"server.environment":   "LABSIGHT_SERVER_ENVIRONMENT",
		"db.host":              "LABSIGHT_DB_HOST",
		"db.port":              "LABSIGHT_DB_PORT",
		"db.user":              "LABSIGHT_DB_USER",
		"db.password":          "LABSIGHT_DB_PASSWORD",
		"db.name":              "LABSIGHT_DB_NAME",
		"db.sslmode":           "LABSIGHT_DB_SSLMODE",
		"db.max_open":          "LABSIGHT_DB_MAX_OPEN",
		"db.max_idle":          "LABSIGHT_DB_MAX_IDLE",
		"store.driver":         "LABSIGHT_STORE_DRIVER",
		"jwt.secret":           "LABSIGHT_JWT_SECRET",
		"jwt.access_expiry":    "LABSIGHT_JWT_ACCESS_EXPIRY",
		"jwt.refresh_expiry":   "LABSIGHT_JWT_REFRESH_EXPIRY",
		"jwt.issuer":           "LABSIGHT_JWT_ISSUER",
		"s3.region":            "LABSIGHT_S3_REGION",
		"s3.bucket":            "LABSIGHT_S3_BUCKET",
		"s3.endpoint":          "LABSIGHT_S3_ENDPOINT",
		"s3.access_key":        "LABSIGHT_S3_ACCESS_KEY",
		"s3.secret_key":        "LABSIGHT_S3_SECRET_KEY",
		"s3.max_file_size_mb":  "LABSIGHT_S3_MAX_FILE_SIZE_MB",
		"s3.presign_expiry":    "LABSIGHT_S3_PRESIGN_EXPIRY",
		"log.level":            "LABSIGHT_LOG_LEVEL",
		"log.format":           "LABSIGHT_LOG_FORMAT",
		"cors.allowed_origins":          "LABSIGHT_CORS_ALLOWED_ORIGINS",
		"queue.poll_interval_secs":      "LABSIGHT_QUEUE_POLL_INTERVAL_SECS",
		"queue.concurrency":             "LABSIGHT_QUEUE_CONCURRENCY",
		"queue.stale_after_secs":        "LABSIGHT_QUEUE_STALE_AFTER_SECS",
		"email.provider":                "LABSIGHT_EMAIL_PROVIDER",
		"email.region":                  "LABSIGHT_EMAIL_REGION",
		"email.from_address":            "LABSIGHT_EMAIL_FROM_ADDRESS",
		"email.from_name":               "LABSIGHT_EMAIL_FROM_NAME",
		"email.frontend_url":            "LABSIGHT_EMAIL_FRONTEND_URL",
		"extraction.provider":           "LABSIGHT_EXTRACTION_PROVIDER",
		"extraction.fallback_providers": "LABSIGHT_EXTRACTION_FALLBACK_PROVIDERS",
		"extraction.timeout_secs":       "LABSIGHT_EXTRACTION_TIMEOUT_SECS",
		"extraction.mistral_api_key":    "LABSIGHT_EXTRACTION_MISTRAL_API_KEY",
		"extraction.mistral_base_url":   "LABSIGHT_EXTRACTION_MISTRAL_BASE_URL",
		"extraction.mistral_model":      "LABSIGHT_EXTRACTION_MISTRAL_MODEL",
		"extraction.tesseract_langs":    "LABSIGHT_EXTRACTION_TESSERACT_LANGS",
		"llm.provider":                  "LABSIGHT_LLM_PROVIDER",
		"llm.timeout_secs":              "LABSIGHT_LLM_TIMEOUT_SECS",
		"llm.chutes_api_key":            "LABSIGHT_LLM_CHUTES_API_KEY",
		"llm.chutes_base_url":           "LABSIGHT_LLM_CHUTES_BASE_URL",
		"llm.chutes_model":              "LABSIGHT_LLM_CHUTES_MODEL",
		"llm.ollama_base_url":           "LABSIGHT_LLM_OLLAMA_BASE_URL",
		"llm.ollama_model":              "LABSIGHT_LLM_OLLAMA_MODEL",
		"pipeline.warning_margin":       "LABSIGHT_PIPELINE_WARNING_MARGIN",
		"pipeline.run_timeout":          "LABSIGHT_PIPELINE_RUN_TIMEOUT",
		"pipeline.delete_attempts":      "LABSIGHT_PIPELINE_DELETE_ATTEMPTS",
		"pipeline.delete_base_delay":    "LABSIGHT_PIPELINE_DELETE_BASE_DELAY",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if LABSIGHT_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("LABSIGHT_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Store = StoreConfig{
		Driver: v.GetString("store.driver"),
	}
	cfg.JWT = JWTConfig{
		Secret:             v.GetString("jwt.secret"),
		AccessTokenExpiry:  v.GetDuration("jwt.access_expiry"),
		RefreshTokenExpiry: v.GetDuration("jwt.refresh_expiry"),
		Issuer:             v.GetString("jwt.issuer"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}
	cfg.Queue = QueueConfig{
		PollIntervalSecs: v.GetInt("queue.poll_interval_secs"),
		Concurrency:      v.GetInt("queue.concurrency"),
		StaleAfterSecs:   v.GetInt("queue.stale_after_secs"),
	}
	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		FromName:    v.GetString("email.from_name"),
		FrontendURL: v.GetString("email.frontend_url"),
	}
	cfg.Extraction = ExtractionConfig{
		Provider:          v.GetString("extraction.provider"),
		FallbackProviders: splitList(v.GetString("extraction.fallback_providers")),
		TimeoutSecs:       v.GetInt("extraction.timeout_secs"),
		MistralAPIKey:     v.GetString("extraction.mistral_api_key"),
		MistralBaseURL:    v.GetString("extraction.mistral_base_url"),
		MistralModel:      v.GetString("extraction.mistral_model"),
		TesseractLangs:    splitList(v.GetString("extraction.tesseract_langs")),
	}
	cfg.LLM = LLMConfig{
		Provider:      v.GetString("llm.provider"),
		TimeoutSecs:   v.GetInt("llm.timeout_secs"),
		ChutesAPIKey:  v.GetString("llm.chutes_api_key"),
		ChutesBaseURL: v.GetString("llm.chutes_base_url"),
		ChutesModel:   v.GetString("llm.chutes_model"),
		OllamaBaseURL: v.GetString("llm.ollama_base_url"),
		OllamaModel:   v.GetString("llm.ollama_model"),
	}
	cfg.Pipeline = PipelineConfig{
		WarningMargin:   v.GetFloat64("pipeline.warning_margin"),
		RunTimeout:      v.GetDuration("pipeline.run_timeout"),
		DeleteAttempts:  v.GetInt("pipeline.delete_attempts"),
		DeleteBaseDelay: v.GetDuration("pipeline.delete_base_delay"),
	}

	return cfg, nil
}

// splitList parses a comma-separated string into trimmed non-empty entries.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
