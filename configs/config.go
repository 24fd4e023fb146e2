// config.go - Configuration loaded from environment variables

package configs

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	// Model backend configuration
	AI_PROVIDER         string // "openai" (any OpenAI-compatible server) or "gemini"
	MODEL_NAME          string
	FALLBACK_MODEL_NAME string
	MODEL_DEVICE        string

	// Primary and secondary load configurations
	PRIMARY_DTYPE      string
	PRIMARY_ATTENTION  string
	FALLBACK_DTYPE     string
	FALLBACK_ATTENTION string

	// Backend credentials
	OPENAI_BASE_URL string
	OPENAI_API_KEY  string
	GEMINI_API_KEY  string

	// Generation settings
	MAX_NEW_TOKENS      int
	TEMPERATURE         float64
	MAX_IMAGE_DIMENSION int
	ANALYZE_TIMEOUT     time.Duration

	// Server Configuration
	PORT            string
	UPLOAD_DIR      string
	ALLOWED_ORIGINS string
	KEEP_UPLOADS    bool // keep uploaded images on disk after the analysis

	// Report persistence (both optional)
	MONGO_URI        string
	MONGO_DB_NAME    string
	DATABASE_URL     string
	REPORT_CACHE_TTL time.Duration

	// Admission control for analysis requests
	RATE_LIMIT_TOKENS int
	RATE_LIMIT_REFILL time.Duration

	// Dataset builder
	DATASET_ROOT   string
	DATASET_OUTPUT string
	NOISE_SIGMA    float64
	NOISE_SEED     int64
)

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AI_PROVIDER = strings.ToLower(getEnv("AI_PROVIDER", "openai"))
	MODEL_NAME = getEnv("MODEL_NAME", "Qwen/Qwen2-VL-2B-Instruct")
	// remote backends only see the model name, so this is what distinguishes the secondary load
	FALLBACK_MODEL_NAME = getEnv("FALLBACK_MODEL_NAME", MODEL_NAME)
	MODEL_DEVICE = getEnv("MODEL_DEVICE", "cuda")

	PRIMARY_DTYPE = getEnv("PRIMARY_DTYPE", "bfloat16")
	PRIMARY_ATTENTION = getEnv("PRIMARY_ATTENTION", "flash_attention_2")
	FALLBACK_DTYPE = getEnv("FALLBACK_DTYPE", "float16")
	FALLBACK_ATTENTION = getEnv("FALLBACK_ATTENTION", "sdpa")

	OPENAI_BASE_URL = getEnv("OPENAI_BASE_URL", "http://localhost:8000/v1")
	OPENAI_API_KEY = getEnv("OPENAI_API_KEY", "EMPTY")
	GEMINI_API_KEY = getEnv("GEMINI_API_KEY", "")

	MAX_NEW_TOKENS = getEnvInt("MAX_NEW_TOKENS", 256)
	TEMPERATURE = getEnvFloat("TEMPERATURE", 0)
	MAX_IMAGE_DIMENSION = getEnvInt("MAX_IMAGE_DIMENSION", 1280)
	ANALYZE_TIMEOUT = getEnvDuration("ANALYZE_TIMEOUT", 2*time.Minute)

	PORT = getEnv("PORT", "8080")
	UPLOAD_DIR = getEnv("UPLOAD_DIR", "uploads")
	ALLOWED_ORIGINS = getEnv("ALLOWED_ORIGINS", "*")
	KEEP_UPLOADS = getEnvBool("KEEP_UPLOADS", true)

	MONGO_URI = getEnv("MONGO_URI", "")
	MONGO_DB_NAME = getEnv("MONGO_DB_NAME", "degradation")
	DATABASE_URL = getEnv("DATABASE_URL", "")
	REPORT_CACHE_TTL = getEnvDuration("REPORT_CACHE_TTL", 5*time.Minute)

	RATE_LIMIT_TOKENS = getEnvInt("RATE_LIMIT_TOKENS", 4)
	RATE_LIMIT_REFILL = getEnvDuration("RATE_LIMIT_REFILL", time.Second)

	DATASET_ROOT = getEnv("DATASET_ROOT", "dataset")
	DATASET_OUTPUT = getEnv("DATASET_OUTPUT", "train_data_augmented.json")
	NOISE_SIGMA = getEnvFloat("NOISE_SIGMA", 25)
	NOISE_SEED = int64(getEnvInt("NOISE_SEED", 0))

	log.Println("✓ Configuration loaded successfully")
}

// RequireProviderCredentials stops the process when the selected backend cannot authenticate.
func RequireProviderCredentials() {
	switch AI_PROVIDER {
	case "gemini":
		if GEMINI_API_KEY == "" {
			log.Fatal("GEMINI_API_KEY environment variable is required when AI_PROVIDER=gemini")
		}
	case "openai":
		if OPENAI_BASE_URL == "" {
			log.Fatal("OPENAI_BASE_URL environment variable is required when AI_PROVIDER=openai")
		}
	default:
		log.Fatalf("unsupported AI_PROVIDER: %s (supported: openai, gemini)", AI_PROVIDER)
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("90s") or plain seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
