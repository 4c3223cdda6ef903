package gemini

import (
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"illustration-variation-server/modules/common/apperr"
)

const emptyResponseMessage = "The API did not return an image. The request may have been blocked."

// ExtractImage picks the result out of the first candidate's parts:
//  1. the first part with inline image data is returned as base64, other parts ignored
//  2. else the first text part becomes an UpstreamRefusal carrying that text
//  3. else UpstreamEmptyResponse
func ExtractImage(result *genai.GenerateContentResponse) (string, error) {
	parts := firstCandidateParts(result)

	for _, part := range parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			log.Debug().Msgf("✅ [Gemini] Received image: %d bytes (%s)", len(part.InlineData.Data), part.InlineData.MIMEType)
			return base64.StdEncoding.EncodeToString(part.InlineData.Data), nil
		}
	}

	for _, part := range parts {
		if part != nil && part.Text != "" {
			log.Warn().Msgf("⚠️  [Gemini] Text returned instead of an image: %s", truncateString(part.Text, 80))
			return "", apperr.New(apperr.CodeUpstreamRefusal,
				fmt.Sprintf("API returned text instead of an image: %s", part.Text))
		}
	}

	log.Warn().Msg("⚠️  [Gemini] Response carried neither image nor text")
	return "", apperr.New(apperr.CodeUpstreamEmptyResponse, emptyResponseMessage)
}

func firstCandidateParts(result *genai.GenerateContentResponse) []*genai.Part {
	if result == nil || len(result.Candidates) == 0 {
		return nil
	}
	candidate := result.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return nil
	}
	return candidate.Content.Parts
}
