package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DeepSeekAPIKey string
	DeepSeekModel  string
	DeepSeekAPIURL string
	LLMTimeout     time.Duration

	UseLLM              bool
	FetchDescriptions   bool
	Deduplicate         bool
	LLMFilter           bool
	ConfidenceThreshold float64
	UseSiteAPI          bool

	ElementWait       time.Duration
	PageSettle        time.Duration
	Headless          bool
	ChromeBin         string
	ChromeRemoteURL   string
	BrowserRetries    int
	BrowserRetryDelay time.Duration
	RateLimitMs       int
	ScreenshotDir     string

	DefaultQuery    string
	DefaultLocation string
	LocationsFile   string

	LogLevel   string
	ListenAddr string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DeepSeekAPIKey: getEnv("DEEPSEEK_API_KEY", ""),
		DeepSeekModel:  getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
		DeepSeekAPIURL: getEnv("DEEPSEEK_API_URL", "https://api.deepseek.com/v1/chat/completions"),
		LLMTimeout:     getEnvDuration("LLM_TIMEOUT", 60*time.Second),

		UseLLM:              getEnvBool("USE_LLM", false),
		FetchDescriptions:   getEnvBool("FETCH_DESCRIPTIONS", true),
		Deduplicate:         getEnvBool("DEDUPLICATE", true),
		LLMFilter:           getEnvBool("LLM_FILTER", false),
		ConfidenceThreshold: getEnvFloat("LLM_CONFIDENCE_THRESHOLD", 0.7),
		UseSiteAPI:          getEnvBool("CENTRAL_SUL_USE_API", true),

		ElementWait:       getEnvDuration("SELENIUM_WAIT_TIME", 10*time.Second),
		PageSettle:        time.Duration(getEnvInt("PAGE_SETTLE_MS", 3000)) * time.Millisecond,
		Headless:          getEnvBool("HEADLESS_BROWSER", true),
		ChromeBin:         getEnv("CHROME_BIN", ""),
		ChromeRemoteURL:   getEnv("CHROME_REMOTE_URL", ""),
		BrowserRetries:    getEnvInt("BROWSER_MAX_RETRIES", 3),
		BrowserRetryDelay: getEnvDuration("BROWSER_RETRY_DELAY", 2*time.Second),
		RateLimitMs:       getEnvInt("RATE_LIMIT_MS", 1000),
		ScreenshotDir:     getEnv("SCREENSHOT_DIR", ""),

		DefaultQuery:    getEnv("DEFAULT_QUERY", "itapiruba"),
		DefaultLocation: getEnv("DEFAULT_LOCATION", "Santa Catarina, Brasil"),
		LocationsFile:   getEnv("LOCATIONS_FILE", ""),

		LogLevel:   getEnv("LOG_LEVEL", "INFO"),
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
	}
}

// LLMConfigured reports whether an API credential is present.
func (c *Config) LLMConfigured() bool {
	return c.DeepSeekAPIKey != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		return strings.EqualFold(strings.TrimSpace(val), "true")
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		// bare numbers are seconds, matching the old SELENIUM_WAIT_TIME convention
		if n, err := strconv.Atoi(val); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}
