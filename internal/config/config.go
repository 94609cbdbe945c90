package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort         string
	LogLevel         string
	RAGBaseURL       string
	RAGTimeoutSecs   int
	StorageBackend   string
	StoragePath      string
	GeminiAPIKey     string
	AuthSecret       string
	AuthPasswordHash string
	AskTopK          int
	AskHistoryDepth  int
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		RAGBaseURL:       getEnv("RAG_BASE_URL", "http://localhost:5000"),
		RAGTimeoutSecs:   getEnvAsInt("RAG_TIMEOUT_SECONDS", 90),
		StorageBackend:   getEnv("STORAGE_BACKEND", "sqlite"),
		StoragePath:      getEnv("STORAGE_PATH", "studydesk.db"),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		AuthSecret:       getEnv("AUTH_SECRET", ""),
		AuthPasswordHash: getEnv("AUTH_PASSWORD_HASH", ""),
		AskTopK:          getEnvAsInt("ASK_TOP_K", 6),
		AskHistoryDepth:  getEnvAsInt("ASK_HISTORY_DEPTH", 5),
	}

	if AppConfig.RAGBaseURL == "" {
		log.Fatal("RAG_BASE_URL environment variable is required")
	}

	if AppConfig.AuthSecret == "" {
		log.Println("AUTH_SECRET not set, API authentication is disabled")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
