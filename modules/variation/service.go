package variation

import (
	"bytes"
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"illustration-variation-server/modules/common/apperr"
	"illustration-variation-server/modules/common/gemini"
	"illustration-variation-server/modules/common/metrics"
	"illustration-variation-server/modules/common/utils"
)

// Service - 이미지 변형 오케스트레이터
type Service struct {
	editor  gemini.Editor
	metrics *metrics.Collector
}

// NewService - metrics는 nil 허용
func NewService(editor gemini.Editor, m *metrics.Collector) *Service {
	return &Service{
		editor:  editor,
		metrics: m,
	}
}

// Generate validates, encodes the image once and issues one edit call per
// non-blank prompt concurrently. Results come back in prompt order. The run is
// all-or-nothing: the first failure is returned and every success is dropped.
// There is no timeout, cancellation of siblings, or retry.
func (s *Service) Generate(ctx context.Context, blob *ImageBlob, prompts PromptList) ([]GenerationResult, error) {
	nonBlank, err := Validate(blob, prompts)
	if err != nil {
		return nil, err
	}

	encoded, err := utils.EncodeImage(bytes.NewReader(blob.Data), blob.MimeType)
	if err != nil {
		return nil, err
	}

	log.Info().Msgf("🎨 [Variation] Generating %d variation(s) for %s (%s, %d bytes)",
		len(nonBlank), blob.Name, blob.MimeType, blob.Size())

	results := make([]GenerationResult, len(nonBlank))

	// errgroup.WithContext를 쓰지 않음: 실패해도 나머지 요청은 끝까지 기다림
	var g errgroup.Group
	for i, prompt := range nonBlank {
		g.Go(func() error {
			start := time.Now()
			payload, err := s.editor.EditImage(ctx, encoded.Data, encoded.MimeType, prompt)
			s.recordEdit(err, time.Since(start))
			if err != nil {
				log.Warn().Msgf("⚠️  [Variation] Prompt #%d failed: %v", i+1, err)
				return err
			}

			results[i] = GenerationResult{
				Prompt:   prompt,
				ImageURL: PNGDataURLPrefix + payload,
			}
			log.Debug().Msgf("✅ [Variation] Prompt #%d done in %s", i+1, time.Since(start))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.recordRun(StatusFailed)
		return nil, err
	}

	s.recordRun(StatusSucceeded)
	log.Info().Msgf("✅ [Variation] All %d variation(s) generated", len(results))
	return results, nil
}

func (s *Service) recordEdit(err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}

	outcome := "success"
	switch apperr.CodeOf(err) {
	case "":
		if err != nil {
			outcome = "failed"
		}
	case apperr.CodeUpstreamRefusal:
		outcome = "refusal"
	case apperr.CodeUpstreamEmptyResponse:
		outcome = "empty"
	default:
		outcome = "failed"
	}
	s.metrics.RecordEditRequest(outcome, elapsed)
}

func (s *Service) recordRun(status RunStatus) {
	if s.metrics != nil {
		s.metrics.RecordRun(string(status))
	}
}
