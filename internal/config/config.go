package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	LLM     LLMConfig
	Chat    ChatConfig
	Storage StorageConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

type LLMConfig struct {
	Backend         string // "openai", "lmstudio", "ollama", "custom"
	Endpoint        string // base URL for lmstudio/ollama/custom
	Model           string
	APIKey          string
	CustomHeaders   map[string]string
	EnableStreaming bool
}

type ChatConfig struct {
	MaxHistory       int // stored messages kept per session, newest win
	SystemPrompt     string
	EnableAutoNaming bool
	NamingPrompt     string
}

type StorageConfig struct {
	SessionsDir string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8080"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		LLM: LLMConfig{
			Backend:         getEnv("LLM_BACKEND", "lmstudio"),
			Endpoint:        getEnv("LLM_ENDPOINT", "http://localhost:1234/v1"),
			Model:           getEnv("LLM_MODEL", "gpt-3.5-turbo"),
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			CustomHeaders:   getEnvAsMap("CUSTOM_HEADERS"),
			EnableStreaming: getEnvAsBool("ENABLE_STREAMING", true),
		},
		Chat: ChatConfig{
			MaxHistory:       getEnvAsInt("MAX_HISTORY", 100),
			SystemPrompt:     getEnv("SYSTEM_PROMPT", ""),
			EnableAutoNaming: getEnvAsBool("ENABLE_AUTO_NAMING", true),
			NamingPrompt:     getEnv("NAMING_PROMPT", ""),
		},
		Storage: StorageConfig{
			SessionsDir: getEnv("SESSIONS_DIR", "chat_sessions"),
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

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsMap parses a JSON object env var, e.g. {"X-Api-Key":"secret"}.
func getEnvAsMap(key string) map[string]string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return map[string]string{}
	}
	result := map[string]string{}
	if err := json.Unmarshal([]byte(strValue), &result); err != nil {
		log.Printf("[WARN] Failed to parse %s as JSON object: %v", key, err)
		return map[string]string{}
	}
	return result
}
