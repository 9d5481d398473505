package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	Env          string
	AppSecret    string
	DatabaseURL  string
	Port         string
	OllamaHost   string
	OllamaModel  string
	EmbeddingDim int
	QueryTimeout time.Duration
	TrendingTTL  time.Duration
	RecCacheTTL  time.Duration
	RecCacheSize int
}

// Load 加载配置
func Load() *Config {
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "streamrec")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	appSecret := getEnv("APP_SECRET", "your-secret-key-change-in-production")
	if getEnv("APP_ENV", "development") == "production" && appSecret == "your-secret-key-change-in-production" {
		fmt.Println("【严重警告】生产环境正在使用默认密钥！请立即设置 APP_SECRET 环境变量。")
	}

	embeddingDim, _ := strconv.Atoi(getEnv("EMBEDDING_DIM", "768"))
	queryTimeout, _ := strconv.Atoi(getEnv("DB_TIMEOUT_SECONDS", "5"))
	trendingTTL, _ := strconv.Atoi(getEnv("TRENDING_TTL_SECONDS", "60"))
	recCacheTTL, _ := strconv.Atoi(getEnv("REC_CACHE_TTL_SECONDS", "300"))
	recCacheSize, _ := strconv.Atoi(getEnv("REC_CACHE_SIZE", "1000"))

	return &Config{
		Env:          getEnv("APP_ENV", "development"),
		AppSecret:    appSecret,
		DatabaseURL:  dbURL,
		Port:         getEnv("PORT", "5008"),
		OllamaHost:   getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:  getEnv("OLLAMA_MODEL", "all-minilm"),
		EmbeddingDim: embeddingDim,
		QueryTimeout: time.Duration(queryTimeout) * time.Second,
		TrendingTTL:  time.Duration(trendingTTL) * time.Second,
		RecCacheTTL:  time.Duration(recCacheTTL) * time.Second,
		RecCacheSize: recCacheSize,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
