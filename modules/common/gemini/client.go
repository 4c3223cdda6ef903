package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"illustration-variation-server/modules/common/apperr"
)

// Editor edits one image with one prompt and returns the edited image as base64.
type Editor interface {
	EditImage(ctx context.Context, base64Image, mimeType, prompt string) (string, error)
}

// Options - Gemini 클라이언트 설정
type Options struct {
	APIKey string
	Model  string

	// 테스트용: 기본 엔드포인트 대신 사용할 주소
	BaseURL    string
	HTTPClient *http.Client
}

// Client - Gemini 이미지 편집 클라이언트
type Client struct {
	genaiClient *genai.Client
	model       string
}

var _ Editor = (*Client)(nil)

// NewClient - API 키는 시작 시 한 번만 주입됨
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, apperr.New(apperr.CodeConfig, "Gemini API key is required")
	}
	if opts.Model == "" {
		return nil, apperr.New(apperr.CodeConfig, "Gemini model is required")
	}

	cc := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	genaiClient, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Genai client: %w", err)
	}

	log.Info().Msgf("✅ [Gemini] Client initialized (model: %s)", opts.Model)
	return &Client{
		genaiClient: genaiClient,
		model:       opts.Model,
	}, nil
}

// EditImage sends the image followed by the prompt and asks for IMAGE and TEXT
// modalities back. See ExtractImage for how the response is interpreted.
func (c *Client) EditImage(ctx context.Context, base64Image, mimeType, prompt string) (string, error) {
	imageData, err := base64.StdEncoding.DecodeString(base64Image)
	if err != nil {
		return "", generationFailed(fmt.Errorf("failed to decode base64 image: %w", err))
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(imageData, mimeType),
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	log.Debug().Msgf("📤 [Gemini] Sending edit request (model: %s, mime: %s, image: %d bytes, prompt: %s)",
		c.model, mimeType, len(imageData), truncateString(prompt, 50))

	result, err := c.genaiClient.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	})
	if err != nil {
		return "", generationFailed(err)
	}

	return ExtractImage(result)
}

// generationFailed - 전송 단계 실패를 로깅 후 GenerationFailed로 감쌈
func generationFailed(cause error) error {
	log.Error().Err(cause).Msg("❌ [Gemini] Error calling Gemini API")
	return apperr.Wrap(apperr.CodeGenerationFailed,
		fmt.Sprintf("Failed to generate image variation. %v", cause), cause)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
