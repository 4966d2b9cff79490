package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	Env         string
	AppSecret   string
	DatabaseURL string
	JWTExpiry   time.Duration
	Port        string
	SiteName    string
	SiteUrl     string

	// 外部服务
	TMDBAPIKey   string
	GroqAPIKey   string
	GroqModel    string
	GeminiAPIKey string
	GeminiModel  string
	OllamaHost   string
	OllamaModel  string

	// 向量维度，初始化时确定一次，之后不可变
	EmbeddingDim int

	// RAG 调优参数（阈值为经验值，允许环境变量覆盖）
	RAGYearsBack    int     // 检索增强只覆盖近 N 年
	RAGYearsAhead   int     // 以及未来 N 年（未上映作品）
	ExactTopK       int     // 精确命中后的相似检索条数
	SemanticTopK    int     // 语义检索条数
	EnrichmentRatio float64 // 合并时判定数据增强的倍数阈值
}

// Load 加载配置
func Load() *Config {
	expiryHours, _ := strconv.Atoi(getEnv("JWT_EXPIRY_HOURS", "72"))

	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "frameiq")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	appSecret := getEnv("APP_SECRET", getEnv("JWT_SECRET", "your-secret-key-change-in-production"))

	if getEnv("APP_ENV", "development") == "production" && appSecret == "your-secret-key-change-in-production" {
		fmt.Println("【严重警告】生产环境正在使用默认密钥！请立即设置 APP_SECRET 环境变量。")
	}

	return &Config{
		Env:         getEnv("APP_ENV", "development"),
		AppSecret:   appSecret,
		DatabaseURL: dbURL,
		JWTExpiry:   time.Duration(expiryHours) * time.Hour,
		Port:        getEnv("PORT", "5005"),
		SiteName:    getEnv("SITE_NAME", "FrameIQ"),
		SiteUrl:     getEnv("SITE_URL", "http://localhost:5005"),

		TMDBAPIKey:   getEnv("TMDB_API_KEY", ""),
		GroqAPIKey:   getEnv("GROQ_API_KEY", ""),
		GroqModel:    getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OllamaHost:   getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:  getEnv("OLLAMA_MODEL", "nomic-embed-text"),

		EmbeddingDim: getEnvInt("EMBEDDING_DIM", 768),

		RAGYearsBack:    getEnvInt("RAG_YEARS_BACK", 3),
		RAGYearsAhead:   getEnvInt("RAG_YEARS_AHEAD", 2),
		ExactTopK:       getEnvInt("RAG_EXACT_TOP_K", 6),
		SemanticTopK:    getEnvInt("RAG_SEMANTIC_TOP_K", 5),
		EnrichmentRatio: getEnvFloat("MERGE_ENRICHMENT_RATIO", 1.5),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
