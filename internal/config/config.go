package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"rolplay-assistant-be/internal/pkg/logger"
)

type Config struct {
	App     AppConfig
	Dataset DatasetConfig
	Ai      AIConfig
	Context ContextConfig
	Search  SearchConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LLMLogFilePath     string
	CorsAllowedOrigins string
	DebugMode          bool
	NatsURL            string
	RedisURL           string
	JWTSecret          string
	OtelEnabled        bool
	OtelEndpoint       string
}

func (a AppConfig) IsProduction() bool { return a.Environment == "production" }

type DatasetConfig struct {
	Source     string // "excel" or "postgres"
	FilePath   string
	Sheet      string
	Connection string
}

type AIConfig struct {
	LLMProvider       string // "openai" or "ollama"
	LLMModel          string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	Timeout           time.Duration
	OllamaBaseURL     string
	IntentMaxAttempts int
	IntentBackoff     time.Duration
	IntentMaxBackoff  time.Duration
	RenderTemperature float64
}

type ContextConfig struct {
	Store string        // "memory" or "redis"
	TTL   time.Duration // zero never expires
}

type SearchConfig struct {
	TopK int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "5000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LLMLogFilePath:     getEnv("LLM_LOG_FILE_PATH", "logs/llm.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			DebugMode:          getEnvAsBool("DEBUG_MODE", false),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Dataset: DatasetConfig{
			Source:     getEnv("DATASET_SOURCE", "excel"),
			FilePath:   getEnv("FACT_FILE_PATH", "data/raw/Fact_RolPlay_Sim.xlsx"),
			Sheet:      getEnv("DATASET_SHEET", ""),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "openai"),
			LLMModel:          getEnv("LLM_MODEL", "gpt-4"),
			OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Timeout:           time.Duration(getEnvAsInt("OPENAI_TIMEOUT", 30)) * time.Second,
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			IntentMaxAttempts: getEnvAsInt("INTENT_MAX_ATTEMPTS", 3),
			IntentBackoff:     time.Duration(getEnvAsInt("INTENT_BACKOFF_MS", 100)) * time.Millisecond,
			IntentMaxBackoff:  time.Duration(getEnvAsInt("INTENT_MAX_BACKOFF_MS", 2000)) * time.Millisecond,
			RenderTemperature: getEnvAsFloat("RENDER_TEMPERATURE", 0.3),
		},
		Context: ContextConfig{
			Store: getEnv("CONTEXT_STORE", "memory"),
			TTL:   time.Duration(getEnvAsInt("CONTEXT_TTL_MINUTES", 0)) * time.Minute,
		},
		Search: SearchConfig{
			TopK: getEnvAsInt("SEARCH_TOP_K", 5),
		},
	}
}

// LogSummary writes the effective configuration with secrets hidden.
func (c *Config) LogSummary(l logger.ILogger) {
	l.Info("CONFIG", "effective configuration", map[string]interface{}{
		"openai_api_key":  hidden(c.Ai.OpenAIAPIKey),
		"jwt_secret":      hidden(c.App.JWTSecret),
		"debug_mode":      c.App.DebugMode,
		"environment":     c.App.Environment,
		"llm_provider":    c.Ai.LLMProvider,
		"llm_model":       c.Ai.LLMModel,
		"llm_timeout":     c.Ai.Timeout.String(),
		"intent_attempts": c.Ai.IntentMaxAttempts,
		"dataset_source":  c.Dataset.Source,
		"fact_file_path":  c.Dataset.FilePath,
		"context_store":   c.Context.Store,
		"context_ttl":     c.Context.TTL.String(),
		"search_top_k":    c.Search.TopK,
	})
}

func hidden(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return "***HIDDEN***"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	switch strings.ToLower(getEnv(key, "")) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}
