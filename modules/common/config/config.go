package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"illustration-variation-server/modules/common/apperr"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Gemini API
	GeminiAPIKey string
	GeminiModel  string

	// Server
	Port   string
	AppEnv string

	// Workspace
	WorkspaceIdleTimeout time.Duration
}

const (
	DefaultGeminiModel          = "gemini-2.5-flash-image-preview"
	DefaultWorkspaceIdleTimeout = 2 * time.Hour
)

// LoadConfig - 환경변수 로드 (.env 파일이 있으면 먼저 읽음)
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("⚠️  .env file not found, using environment variables")
	}

	// WORKSPACE_IDLE_TIMEOUT 파싱
	idleTimeout := DefaultWorkspaceIdleTimeout
	if raw := os.Getenv("WORKSPACE_IDLE_TIMEOUT"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			return nil, apperr.Wrap(apperr.CodeConfig,
				fmt.Sprintf("WORKSPACE_IDLE_TIMEOUT must be a positive duration, got %q", raw), err)
		}
		idleTimeout = parsed
	}

	cfg := &Config{
		// GEMINI_API_KEY 우선, 없으면 API_KEY
		GeminiAPIKey: getEnv("GEMINI_API_KEY", os.Getenv("API_KEY")),
		GeminiModel:  getEnv("GEMINI_MODEL", DefaultGeminiModel),

		Port:   getEnv("PORT", "8080"),
		AppEnv: getEnv("APP_ENV", "production"),

		WorkspaceIdleTimeout: idleTimeout,
	}

	// 필수 환경변수 검증
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Info().Msg("✅ Configuration loaded successfully")
	log.Info().Msgf("   Gemini: %s", cfg.GeminiModel)
	log.Info().Msgf("   Port: %s (env: %s)", cfg.Port, cfg.AppEnv)
	log.Info().Msgf("   Workspace idle timeout: %s", cfg.WorkspaceIdleTimeout)

	return cfg, nil
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	if c.GeminiAPIKey == "" {
		return apperr.New(apperr.CodeConfig, "GEMINI_API_KEY (or API_KEY) environment variable not set")
	}
	if c.GeminiModel == "" {
		return apperr.New(apperr.CodeConfig, "GEMINI_MODEL must not be empty")
	}
	return nil
}

// getEnv - 환경변수 가져오기 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Addr - 서버 listen 주소
func (c *Config) Addr() string {
	return ":" + c.Port
}
