package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG 디코더 등록
	_ "image/png"  // PNG 디코더 등록
	"io"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/rs/zerolog/log"

	"illustration-variation-server/modules/common/apperr"
)

const (
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeWEBP = "image/webp"
)

// EncodedImage - base64 payload + 원본 MIME 타입
type EncodedImage struct {
	Data     string
	MimeType string
}

// IsSupportedMimeType - 업로드 허용 MIME 타입 (PNG, JPEG, WEBP)
func IsSupportedMimeType(mimeType string) bool {
	switch mimeType {
	case MimePNG, MimeJPEG, MimeWEBP:
		return true
	}
	return false
}

// EncodeImage reads r exactly once and returns its base64 form. The MIME type is
// carried through as declared by the uploader, never sniffed from the bytes.
func EncodeImage(r io.Reader, mimeType string) (*EncodedImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeIO, fmt.Sprintf("failed to read image: %v", err), err)
	}

	return &EncodedImage{
		Data:     ConvertImageToBase64(data),
		MimeType: mimeType,
	}, nil
}

// ConvertImageToBase64 - 이미지 바이너리를 base64로 변환
func ConvertImageToBase64(imageData []byte) string {
	base64Str := base64.StdEncoding.EncodeToString(imageData)
	log.Debug().Msgf("🔄 Image converted to base64: %d chars (preview: %s...)",
		len(base64Str),
		base64Str[:min(50, len(base64Str))])
	return base64Str
}

// ProbeImage - 업로드 미리보기용 이미지 크기 조회
func ProbeImage(data []byte, mimeType string) (width, height int, err error) {
	if mimeType == MimeWEBP {
		img, err := webp.Decode(bytes.NewReader(data), &decoder.Options{})
		if err != nil {
			return 0, 0, fmt.Errorf("failed to decode WebP: %w", err)
		}
		bounds := img.Bounds()
		return bounds.Dx(), bounds.Dy(), nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image config: %w", err)
	}
	log.Debug().Msgf("🔍 Probed %s image: %dx%d", format, cfg.Width, cfg.Height)
	return cfg.Width, cfg.Height, nil
}
