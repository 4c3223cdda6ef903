package apperr

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageIsHumanReadable(t *testing.T) {
	err := New(CodeValidation, "Please upload an image first.")
	assert.Equal(t, "Please upload an image first.", err.Error())
	assert.Equal(t, CodeValidation, err.Code)
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(CodeIO, "failed to read image", io.ErrUnexpectedEOF)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, CodeIO, CodeOf(err))
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("boom"), want: ""},
		{name: "direct", err: New(CodeUpstreamRefusal, "no"), want: CodeUpstreamRefusal},
		{name: "wrapped by fmt", err: fmt.Errorf("run: %w", New(CodeGenerationFailed, "x")), want: CodeGenerationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestIs(t *testing.T) {
	assert.False(t, Is(nil, CodeConfig))
	assert.True(t, Is(New(CodeConfig, "missing"), CodeConfig))
	assert.False(t, Is(New(CodeConfig, "missing"), CodeValidation))
}
