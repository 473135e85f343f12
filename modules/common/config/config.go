package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 분석/생성 백엔드 이름
const (
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
	BackendNone   = "none"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Server
	Port    string
	Version string

	// Redis (비어 있으면 인메모리 캐시 사용)
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase (템플릿 저장소, 선택)
	SupabaseURL        string
	SupabaseServiceKey string
	TemplatesTable     string

	// Gemini API
	GeminiAPIKey        string
	GeminiAPIKeys       []string // 분석 호출용 키 로테이션
	GeminiAnalysisModel string
	GeminiImageModel    string

	// OpenAI (분석 백엔드 대체)
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// YouTube Data API
	YouTubeAPIKey      string
	TranscriptLanguage string

	// 백엔드 선택
	AnalysisBackend string
	ImageBackend    string

	// Generation
	DefaultNumImages    int
	MaxNumImages        int
	AspectRatio         string
	SynthesisFanout     bool
	SynthesisRatePerMin int

	// Timeouts
	AnalysisTimeout  time.Duration
	SynthesisTimeout time.Duration
	MetadataCacheTTL time.Duration

	// Output
	OutputFormat string
	WebPQuality  float32
}

var globalConfig *Config

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	cfg := FromEnv()

	// 값 검증
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg

	log.Println("✅ Configuration loaded successfully")
	if cfg.RedisEnabled() {
		log.Printf("   Redis: %s (TLS: %v)", cfg.GetRedisAddr(), cfg.RedisUseTLS)
	} else {
		log.Printf("   Redis: disabled (in-memory cache)")
	}
	log.Printf("   Analysis: %s, Image: %s (%s)", cfg.AnalysisBackend, cfg.ImageBackend, cfg.GeminiImageModel)
	log.Printf("   Variations: default %d, max %d, ratio %s, fanout %v",
		cfg.DefaultNumImages, cfg.MaxNumImages, cfg.AspectRatio, cfg.SynthesisFanout)
	if !cfg.ImageBackendConfigured() {
		log.Printf("🛑 No image backend configured - generation requests will fail with CONFIGURATION_ERROR")
	}

	return cfg, nil
}

// FromEnv - .env 로드 없이 현재 환경변수로 Config 구성
func FromEnv() *Config {
	geminiKey := getEnv("GEMINI_API_KEY", "")
	keys := splitList(getEnv("GEMINI_API_KEYS", ""))
	if len(keys) == 0 && geminiKey != "" {
		keys = []string{geminiKey}
	}

	return &Config{
		Port:    getEnv("PORT", "8080"),
		Version: getEnv("APP_VERSION", "1.0.0"),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   getEnvBool("REDIS_USE_TLS", false),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		TemplatesTable:     getEnv("TEMPLATES_TABLE", "thumbnail_templates"),

		GeminiAPIKey:        geminiKey,
		GeminiAPIKeys:       keys,
		GeminiAnalysisModel: getEnv("GEMINI_ANALYSIS_MODEL", "gemini-2.5-flash"),
		GeminiImageModel:    getEnv("GEMINI_IMAGE_MODEL", "gemini-3-pro-image-preview"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o"),

		YouTubeAPIKey:      getEnv("YOUTUBE_API_KEY", ""),
		TranscriptLanguage: getEnv("TRANSCRIPT_LANGUAGE", "en"),

		AnalysisBackend: strings.ToLower(getEnv("ANALYSIS_BACKEND", BackendGemini)),
		ImageBackend:    strings.ToLower(getEnv("IMAGE_BACKEND", BackendGemini)),

		DefaultNumImages:    getEnvInt("DEFAULT_NUM_IMAGES", 4),
		MaxNumImages:        getEnvInt("MAX_NUM_IMAGES", 4),
		AspectRatio:         getEnv("ASPECT_RATIO", "16:9"),
		SynthesisFanout:     getEnvBool("SYNTHESIS_FANOUT", false),
		SynthesisRatePerMin: getEnvInt("SYNTHESIS_RATE_PER_MIN", 30),

		AnalysisTimeout:  getEnvDuration("ANALYSIS_TIMEOUT", 45*time.Second),
		SynthesisTimeout: getEnvDuration("SYNTHESIS_TIMEOUT", 120*time.Second),
		MetadataCacheTTL: getEnvDuration("METADATA_CACHE_TTL", time.Hour),

		OutputFormat: strings.ToLower(getEnv("OUTPUT_FORMAT", "png")),
		WebPQuality:  float32(getEnvInt("WEBP_QUALITY", 90)),
	}
}

// GetConfig - 로드된 설정 가져오기
func GetConfig() *Config {
	if globalConfig == nil {
		log.Fatal("❌ Config not loaded. Call LoadConfig() first.")
	}
	return globalConfig
}

// validate - 설정값 범위 검증
// API 키 누락은 요청 시점의 CONFIGURATION_ERROR로 처리하므로 여기서 막지 않음
func (c *Config) validate() error {
	if c.MaxNumImages < 1 || c.MaxNumImages > 8 {
		return fmt.Errorf("MAX_NUM_IMAGES must be between 1 and 8, got %d", c.MaxNumImages)
	}
	if c.DefaultNumImages < 1 || c.DefaultNumImages > c.MaxNumImages {
		return fmt.Errorf("DEFAULT_NUM_IMAGES must be between 1 and %d, got %d", c.MaxNumImages, c.DefaultNumImages)
	}
	switch c.AnalysisBackend {
	case BackendGemini, BackendOpenAI:
	default:
		return fmt.Errorf("ANALYSIS_BACKEND must be gemini or openai, got %q", c.AnalysisBackend)
	}
	switch c.ImageBackend {
	case BackendGemini, BackendNone, "":
	default:
		return fmt.Errorf("IMAGE_BACKEND must be gemini or none, got %q", c.ImageBackend)
	}
	switch c.OutputFormat {
	case "png", "webp":
	default:
		return fmt.Errorf("OUTPUT_FORMAT must be png or webp, got %q", c.OutputFormat)
	}
	if c.SynthesisRatePerMin < 1 {
		return fmt.Errorf("SYNTHESIS_RATE_PER_MIN must be positive")
	}
	return nil
}

// RedisEnabled - Redis 사용 여부
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// SupabaseEnabled - Supabase 템플릿 저장소 사용 여부
func (c *Config) SupabaseEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceKey != ""
}

// ImageBackendConfigured - 이미지 생성 백엔드가 연결 가능한지
func (c *Config) ImageBackendConfigured() bool {
	return c.ImageBackend == BackendGemini && c.GeminiAPIKey != ""
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
		log.Printf("⚠️  Invalid %s=%q, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return parsed
		}
		log.Printf("⚠️  Invalid %s=%q, using default %v", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return parsed
		}
		log.Printf("⚠️  Invalid %s=%q, using default %s", key, value, defaultValue)
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
