package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LLMEndpoint describes one OpenAI-compatible chat completion endpoint.
type LLMEndpoint struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
}

// Enabled reports whether the endpoint has enough settings to be called.
func (e LLMEndpoint) Enabled() bool {
	return e.APIKey != "" && e.Model != ""
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	StoreDriver   string
	SQLitePath    string
	CSVOutputPath string

	LLMEnabled     bool
	LLMPrimary     LLMEndpoint
	LLMFallback    LLMEndpoint
	LLMRateLimitMs int
	LLMTimeout     time.Duration
	MaxRetries     int

	MaxConcurrency int
	BatchSize      int

	CacheBackend    string
	CachePath       string
	CacheFlushEvery int
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisCacheKey   string

	CheckpointPath string

	DedupScope          string
	DedupScoreThreshold float64
	BOBPerUSD           float64
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "inmuebles"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "inmuebles123"),
		PostgresDB:       getEnv("POSTGRES_DB", "inmuebles_scz"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		SQLitePath:    getEnv("SQLITE_PATH", "./output/inmuebles.db"),
		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/propiedades_canonicas.csv"),

		LLMEnabled: getEnvBool("LLM_ENABLED", true),
		LLMPrimary: LLMEndpoint{
			Name:    getEnv("LLM_PRIMARY_NAME", "zai"),
			BaseURL: getEnv("LLM_PRIMARY_BASE_URL", "https://api.z.ai/api/paas/v4"),
			APIKey:  getEnv("LLM_PRIMARY_API_KEY", ""),
			Model:   getEnv("LLM_PRIMARY_MODEL", "glm-4.5-air"),
		},
		LLMFallback: LLMEndpoint{
			Name:    getEnv("LLM_FALLBACK_NAME", "openrouter"),
			BaseURL: getEnv("LLM_FALLBACK_BASE_URL", "https://openrouter.ai/api/v1"),
			APIKey:  getEnv("LLM_FALLBACK_API_KEY", ""),
			Model:   getEnv("LLM_FALLBACK_MODEL", "openai/gpt-4o-mini"),
		},
		LLMRateLimitMs: getEnvInt("LLM_RATE_LIMIT_MS", 1000),
		LLMTimeout:     getEnvDuration("LLM_TIMEOUT", 45*time.Second),
		MaxRetries:     getEnvInt("MAX_RETRIES", 2),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		BatchSize:      getEnvInt("BATCH_SIZE", 50),

		CacheBackend:    strings.ToLower(getEnv("CACHE_BACKEND", "file")),
		CachePath:       getEnv("CACHE_PATH", "./output/llm_cache.json"),
		CacheFlushEvery: getEnvInt("CACHE_FLUSH_EVERY", 25),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		RedisCacheKey:   getEnv("REDIS_CACHE_KEY", "inmuebles:llm_cache"),

		CheckpointPath: getEnv("CHECKPOINT_PATH", "./output/checkpoint.json"),

		DedupScope:          strings.ToLower(getEnv("DEDUP_SCOPE", "all")),
		DedupScoreThreshold: getEnvFloat("DEDUP_SCORE_THRESHOLD", 0.75),
		BOBPerUSD:           getEnvFloat("BOB_PER_USD", 6.96),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// LLMRateInterval returns the minimum delay between two provider requests.
func (c *Config) LLMRateInterval() time.Duration {
	return time.Duration(c.LLMRateLimitMs) * time.Millisecond
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
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

// getEnvDuration accepts Go durations ("30s") or plain seconds ("30").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
