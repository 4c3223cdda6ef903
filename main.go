package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"illustration-variation-server/modules/common/config"
	"illustration-variation-server/modules/common/gemini"
	"illustration-variation-server/modules/common/logger"
	"illustration-variation-server/modules/common/metrics"
	"illustration-variation-server/modules/variation"
	"illustration-variation-server/modules/web"
	"illustration-variation-server/modules/workspace"
)

// CORS 헤더 추가
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// 헬스 체크 엔드포인트
func healthCheck(manager *workspace.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":           "healthy",
			"service":          "illustration-variation",
			"uptime":           manager.Uptime().String(),
			"activeWorkspaces": manager.Count(),
		})
	}
}

// newRouter - 모든 라우트와 미들웨어 구성
// CORS는 라우트 매칭 전에 적용해야 OPTIONS preflight가 405가 되지 않음
func newRouter(l zerolog.Logger, model string, manager *workspace.Manager, gen workspace.Generator, m *metrics.Collector) (http.Handler, error) {
	page, err := web.NewHandler(model)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()

	// 요청 로깅 미들웨어 적용
	r.Use(logger.Middleware(l))

	r.HandleFunc("/health", healthCheck(manager)).Methods("GET")
	r.Handle("/metrics", m.Handler()).Methods("GET")

	workspace.NewHandler(manager, gen, m).RegisterRoutes(r)
	page.RegisterRoutes(r)

	return enableCORS(r), nil
}

func main() {
	// config 로딩 전에도 로그가 보이도록 기본 로거 설치
	logger.New("production")

	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Msgf("❌ Failed to load config: %v", err)
	}
	l := logger.New(cfg.AppEnv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector := metrics.NewCollector()

	// Gemini 클라이언트 초기화
	client, err := gemini.NewClient(ctx, gemini.Options{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	})
	if err != nil {
		log.Fatal().Msgf("❌ Failed to create Gemini client: %v", err)
	}
	service := variation.NewService(client, collector)

	// 정리 루틴 시작
	manager := workspace.NewManager(cfg.WorkspaceIdleTimeout, collector)
	manager.StartCleanupRoutine(ctx)

	r, err := newRouter(l, cfg.GeminiModel, manager, service, collector)
	if err != nil {
		log.Fatal().Msgf("❌ Failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Msgf("🚀 Illustration Variation Server starting on port %s", cfg.Port)
	log.Info().Msgf("🖼️  Web UI: http://localhost:%s/", cfg.Port)
	log.Info().Msgf("📡 WebSocket endpoint: ws://localhost:%s/ws", cfg.Port)
	log.Info().Msgf("❤️  Health check: http://localhost:%s/health", cfg.Port)
	log.Info().Msgf("📊 Metrics: http://localhost:%s/metrics", cfg.Port)
	log.Info().Msgf("🧹 Admin cleanup: http://localhost:%s/admin/cleanup", cfg.Port)

	// 서버 시작
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Msgf("Server failed to start: %v", err)
	}
}
