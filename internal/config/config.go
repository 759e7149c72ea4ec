package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Chat     ChatConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
}

type ChatConfig struct {
	GeminiModel           string
	MaxSessionsPerUser    int
	MaxMessagesPerSession int
	ContextWindowSize     int
	ExpiryDays            int
	SweepInterval         time.Duration
	SweepThrottle         time.Duration
	ExchangeTopic         string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GEMINI_API_KEY", ""),
		},
		Chat: ChatConfig{
			GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			MaxSessionsPerUser:    getEnvAsInt("CHAT_MAX_SESSIONS_PER_USER", 10),
			MaxMessagesPerSession: getEnvAsInt("CHAT_MAX_MESSAGES_PER_SESSION", 20),
			ContextWindowSize:     getEnvAsInt("CHAT_CONTEXT_WINDOW_SIZE", 10),
			ExpiryDays:            getEnvAsInt("CHAT_EXPIRY_DAYS", 7),
			SweepInterval:         getEnvAsDuration("CHAT_SWEEP_INTERVAL", time.Hour),
			SweepThrottle:         getEnvAsDuration("CHAT_SWEEP_THROTTLE", 10*time.Minute),
			ExchangeTopic:         getEnv("CHAT_EXCHANGE_TOPIC_NAME", "CHAT_EXCHANGE_RECORDED"),
		},
	}
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
