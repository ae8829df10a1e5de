package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DatabaseDSN        string
	SecretKey          string
	AIProvider         string
	OpenAIAPIKey       string
	OpenAIModel        string
	GeminiAPIKey       string
	LLMTimeout         time.Duration
	TickInterval       time.Duration
	ConcurrencyLimit   int
	IngestionWindow    time.Duration
	RelevanceThreshold int
	RetentionDays      int
	SchedulerEnabled   bool
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseDSN:        getEnv("DATABASE_DSN", "host=localhost user=maildigest password=maildigest dbname=maildigest port=5432 sslmode=disable"),
		SecretKey:          getEnv("SECRET_KEY", ""),
		AIProvider:         getEnv("AI_PROVIDER", "openai"),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		LLMTimeout:         getDuration("LLM_TIMEOUT", 8*time.Second),
		TickInterval:       getDuration("SCHEDULER_TICK_INTERVAL", 60*time.Second),
		ConcurrencyLimit:   getInt("SCHEDULER_CONCURRENCY", 3),
		IngestionWindow:    getDuration("INGESTION_WINDOW", 24*time.Hour),
		RelevanceThreshold: getInt("RELEVANCE_THRESHOLD", 6),
		RetentionDays:      getInt("MESSAGE_RETENTION_DAYS", 90),
		SchedulerEnabled:   getEnv("SCHEDULER_ENABLED", "true") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
