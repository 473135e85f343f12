package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"thumbforge-server/modules/common/cache"
	"thumbforge-server/modules/common/config"
	"thumbforge-server/modules/common/database"
	"thumbforge-server/modules/common/gemini"
	"thumbforge-server/modules/common/response"
	"thumbforge-server/modules/content"
	"thumbforge-server/modules/generate"
	"thumbforge-server/modules/overlay"
	"thumbforge-server/modules/progress"
	"thumbforge-server/modules/reference"
	"thumbforge-server/modules/synthesis"
	"thumbforge-server/modules/template"
)

// CORS 헤더 추가
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// 헬스 체크 엔드포인트
func healthCheck(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"version": version,
		})
	}
}

// newAnalyzer - ANALYSIS_BACKEND에 따라 비전 분석기 선택 (키 없으면 nil)
func newAnalyzer(cfg *config.Config, pool *gemini.Pool) reference.VisionAnalyzer {
	switch cfg.AnalysisBackend {
	case config.BackendOpenAI:
		if cfg.OpenAIAPIKey == "" {
			log.Printf("🛑 ANALYSIS_BACKEND=openai but OPENAI_API_KEY is empty")
			return nil
		}
		return reference.NewOpenAIAnalyzer(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	default:
		if pool == nil {
			log.Printf("🛑 ANALYSIS_BACKEND=gemini but no Gemini API key is set")
			return nil
		}
		return reference.NewGeminiAnalyzer(pool, cfg.GeminiAnalysisModel)
	}
}

// newContentResolver - YouTube 메타데이터(캐시) + 자막
func newContentResolver(ctx context.Context, cfg *config.Config) *content.Resolver {
	var metadata content.MetadataFetcher
	if cfg.YouTubeAPIKey != "" {
		yt, err := content.NewYouTubeFetcher(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			log.Printf("⚠️  YouTube client unavailable: %v", err)
		} else {
			metadata = content.NewCachedFetcher(yt, cache.New(cfg, "meta:"), cfg.MetadataCacheTTL)
		}
	} else {
		log.Printf("⚠️  YOUTUBE_API_KEY not set - /generate/from-url will fail with CONFIGURATION_ERROR")
	}
	return content.NewResolver(metadata, content.NewTimedTextFetcher("", cfg.TranscriptLanguage))
}

// newTemplateService - Supabase 템플릿이 있으면 내장 템플릿과 병합
func newTemplateService(cfg *config.Config) *template.Service {
	var source template.Source
	if cfg.SupabaseEnabled() {
		db, err := database.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.TemplatesTable)
		if err != nil {
			log.Printf("⚠️  Supabase unavailable, using built-in templates only: %v", err)
		} else {
			source = db
		}
	}
	return template.NewService(source, 0)
}

func main() {
	// 환경변수 로드
	if _, err := config.LoadConfig(); err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	cfg := config.GetConfig()
	ctx := context.Background()

	var pool *gemini.Pool
	if len(cfg.GeminiAPIKeys) > 0 {
		p, err := gemini.NewPool(ctx, cfg.GeminiAPIKeys)
		if err != nil {
			log.Printf("⚠️  Gemini client unavailable: %v", err)
		} else {
			pool = p
		}
	}

	analyzer := newAnalyzer(cfg, pool)

	var backend synthesis.Backend
	if cfg.ImageBackendConfigured() && pool != nil {
		backend = synthesis.NewGeminiBackend(pool, cfg.GeminiImageModel)
	}
	invoker := synthesis.NewInvoker(backend, synthesis.Options{
		Fanout:        cfg.SynthesisFanout,
		Timeout:       cfg.SynthesisTimeout,
		RatePerMinute: cfg.SynthesisRatePerMin,
		AspectRatio:   cfg.AspectRatio,
		MaxVariations: cfg.MaxNumImages,
	})

	resolver := newContentResolver(ctx, cfg)
	templates := newTemplateService(cfg)
	compositor := overlay.NewCompositor(cfg.OutputFormat, cfg.WebPQuality)

	hub := progress.NewHub()
	hub.StartCleanupRoutine(ctx)

	orchestrator := generate.NewOrchestrator(generate.Dependencies{
		Resolver:      resolver,
		Style:         reference.NewStyleExtractor(analyzer, cfg.AnalysisTimeout),
		Faces:         reference.NewFaceClassifier(analyzer, cfg.AnalysisTimeout),
		Synth:         invoker,
		Overlay:       compositor,
		Templates:     templates,
		Progress:      hub,
		MaxVariations: cfg.MaxNumImages,
		OutputFormat:  cfg.OutputFormat,
		WebPQuality:   cfg.WebPQuality,
	})

	// 라우터 설정
	r := mux.NewRouter()

	// CORS 미들웨어 적용
	r.Use(enableCORS)

	// 라우트 설정
	r.HandleFunc("/", healthCheck(cfg.Version)).Methods("GET")
	r.HandleFunc("/health", healthCheck(cfg.Version)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	generate.NewHandler(orchestrator, cfg.DefaultNumImages).RegisterRoutes(r)
	template.NewHandler(templates).RegisterRoutes(r)
	content.NewHandler(resolver).RegisterRoutes(r)
	overlay.NewHandler(compositor).RegisterRoutes(r)
	hub.RegisterRoutes(r)

	port := cfg.Port
	log.Printf("🚀 Thumbforge Server starting on port %s", port)
	log.Printf("🎨 Generate: POST /generate/from-url, /generate/from-prompt")
	log.Printf("📡 Progress: ws://localhost:%s/ws/progress?request=<id>", port)
	log.Printf("❤️  Health check: http://localhost:%s/health", port)
	log.Printf("📊 Metrics: http://localhost:%s/metrics", port)

	// 서버 시작
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
