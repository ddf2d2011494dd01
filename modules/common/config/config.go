package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Prompt modes for the cover pipeline
const (
	PromptModeRaw       = "raw"
	PromptModeMinimal   = "minimal"
	PromptModeAugmented = "augmented"
)

// Config - all environment settings for the cover pipeline
type Config struct {
	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase (job records + asset audit rows)
	SupabaseURL        string
	SupabaseServiceKey string

	// Gemini API (nanobanana provider)
	GeminiAPIKey string
	GeminiModel  string

	// Runware API (flux-schnell provider)
	RunwareAPIKey string
	RunwareAPIURL string

	// OpenAI API (dalle provider)
	OpenAIAPIKey     string
	OpenAIImageModel string

	// Server
	Port string

	// Media store
	MediaRoot      string
	MinImageWidth  int
	MinImageHeight int
	MinImageBytes  int
	MaxSourceAge   int // days; 0 disables the age check

	// Cover pipeline flags
	PromptMode             string // raw | minimal | augmented
	DefaultProvider        string // provider used when nothing is forced
	ForceProvider          string // global override, wins over auto selection
	DisableCountryDetector bool
	DisableEntityDetector  bool
	StrictContextRequired  bool // when true the ladder has no neutral/generic rungs
	DefaultStyle           string
	DefaultLocale          string
	DefaultNegativePrompt  string

	// Concurrency / throttling
	BatchConcurrency int
	ProviderRPS      float64
	ProviderTimeout  int // seconds per provider call
}

var globalConfig *Config

// LoadConfig - load environment variables (with .env support)
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	globalConfig = &Config{
		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   getEnvBool("REDIS_USE_TLS", false),

		// Supabase
		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),

		// Providers
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		RunwareAPIKey:    getEnv("RUNWARE_API_KEY", ""),
		RunwareAPIURL:    getEnv("RUNWARE_API_URL", "https://api.runware.ai/v1"),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIImageModel: getEnv("OPENAI_IMAGE_MODEL", "gpt-image-1"),

		// Server
		Port: getEnv("PORT", "8080"),

		// Media store
		MediaRoot:      getEnv("MEDIA_ROOT", "./media"),
		MinImageWidth:  getEnvInt("MIN_IMAGE_WIDTH", 400),
		MinImageHeight: getEnvInt("MIN_IMAGE_HEIGHT", 300),
		MinImageBytes:  getEnvInt("MIN_IMAGE_BYTES", 10*1024),
		MaxSourceAge:   getEnvInt("MAX_SOURCE_AGE_DAYS", 30),

		// Pipeline flags
		PromptMode:             getEnv("COVER_PROMPT_MODE", PromptModeAugmented),
		DefaultProvider:        getEnv("COVER_DEFAULT_PROVIDER", "nanobanana"),
		ForceProvider:          getEnv("COVER_FORCE_PROVIDER", ""),
		DisableCountryDetector: getEnvBool("COVER_DISABLE_COUNTRY_DETECTOR", false),
		DisableEntityDetector:  getEnvBool("COVER_DISABLE_ENTITY_DETECTOR", false),
		StrictContextRequired:  getEnvBool("COVER_STRICT_CONTEXT", false),
		DefaultStyle:           getEnv("COVER_DEFAULT_STYLE", "professional editorial news photography, natural lighting, realistic"),
		DefaultLocale:          getEnv("COVER_DEFAULT_LOCALE", "es"),
		DefaultNegativePrompt:  getEnv("COVER_DEFAULT_NEGATIVE_PROMPT", "text, words, letters, logos, watermarks"),

		// Concurrency
		BatchConcurrency: getEnvInt("BATCH_CONCURRENCY", 2),
		ProviderRPS:      getEnvFloat("PROVIDER_RPS", 1.0),
		ProviderTimeout:  getEnvInt("PROVIDER_TIMEOUT_SECONDS", 120),
	}

	if err := globalConfig.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Redis: %s:%s (TLS: %v)", globalConfig.RedisHost, globalConfig.RedisPort, globalConfig.RedisUseTLS)
	log.Printf("   Media root: %s", globalConfig.MediaRoot)
	log.Printf("   Prompt mode: %s, default provider: %s", globalConfig.PromptMode, globalConfig.DefaultProvider)

	return globalConfig, nil
}

// GetConfig - return the loaded configuration
func GetConfig() *Config {
	if globalConfig == nil {
		log.Fatal("❌ Config not loaded. Call LoadConfig() first.")
	}
	return globalConfig
}

// SetConfigForTest - replace the singleton in tests
func SetConfigForTest(cfg *Config) {
	globalConfig = cfg
}

// validate - structural checks only. Missing provider credentials are not
// fatal: the pipeline stays usable with zero configuration and adapters
// surface a typed configuration error on first use.
func (c *Config) validate() error {
	switch c.PromptMode {
	case PromptModeRaw, PromptModeMinimal, PromptModeAugmented:
	default:
		return fmt.Errorf("COVER_PROMPT_MODE must be raw, minimal or augmented (got %q)", c.PromptMode)
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("BATCH_CONCURRENCY must be >= 1")
	}
	if c.MediaRoot == "" {
		return fmt.Errorf("MEDIA_ROOT is required")
	}
	return nil
}

// getEnv - env var with default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetRedisAddr - redis connection string
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
