package variation

import (
	"fmt"

	"illustration-variation-server/modules/common/apperr"
	"illustration-variation-server/modules/common/utils"
)

const (
	MsgMissingImage   = "Please upload an image first."
	MsgMissingPrompts = "Please provide at least one generation prompt."
	MsgImageTooLarge  = "Image size cannot exceed 4MB."
)

// ErrImageTooLarge - 업로드 한도 초과 (HTTP 413으로 매핑)
var ErrImageTooLarge = apperr.New(apperr.CodeValidation, MsgImageTooLarge)

// Validate checks a run's inputs without touching the network and returns the
// prompts that will actually be executed.
func Validate(blob *ImageBlob, prompts PromptList) ([]string, error) {
	if blob == nil {
		return nil, apperr.New(apperr.CodeValidation, MsgMissingImage)
	}

	nonBlank := prompts.NonBlank()
	if len(nonBlank) == 0 {
		return nil, apperr.New(apperr.CodeValidation, MsgMissingPrompts)
	}
	return nonBlank, nil
}

// ValidateUpload - 업로드 경계 검증 (MIME 화이트리스트, 4MB 한도)
func ValidateUpload(mimeType string, size int64) error {
	if size > MaxUploadBytes {
		return ErrImageTooLarge
	}
	if !utils.IsSupportedMimeType(mimeType) {
		return apperr.New(apperr.CodeValidation,
			fmt.Sprintf("Unsupported image type %q. Upload a PNG, JPG, or WEBP file.", mimeType))
	}
	return nil
}
