package variation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"illustration-variation-server/modules/common/apperr"
)

func TestPromptListOperations(t *testing.T) {
	list := PromptList{DefaultPrompt}

	list = list.Add()
	assert.Equal(t, PromptList{DefaultPrompt, ""}, list)

	list, err := list.Set(1, "Change outfit to a red dress")
	require.NoError(t, err)
	assert.Equal(t, PromptList{DefaultPrompt, "Change outfit to a red dress"}, list)

	list, err = list.Remove(0)
	require.NoError(t, err)
	assert.Equal(t, PromptList{"Change outfit to a red dress"}, list)

	_, err = list.Remove(1)
	assert.Error(t, err)
	_, err = list.Set(-1, "x")
	assert.Error(t, err)
}

func TestPromptListOperationsDoNotAlias(t *testing.T) {
	original := PromptList{"a", "b", "c"}

	edited, err := original.Set(0, "z")
	require.NoError(t, err)
	removed, err := original.Remove(1)
	require.NoError(t, err)

	assert.Equal(t, PromptList{"a", "b", "c"}, original)
	assert.Equal(t, PromptList{"z", "b", "c"}, edited)
	assert.Equal(t, PromptList{"a", "c"}, removed)
}

func TestNonBlank(t *testing.T) {
	assert.Equal(t, []string{"valid"}, PromptList{"", "  ", "valid"}.NonBlank())
	assert.Empty(t, PromptList{}.NonBlank())
	assert.Equal(t, []string{" x "}, PromptList{"\n", " x "}.NonBlank())
}

func TestRunOutcomeTransitions(t *testing.T) {
	pending := NewPendingOutcome()
	assert.True(t, pending.IsPending())
	assert.NotEmpty(t, pending.ID)
	assert.Empty(t, pending.Results)
	assert.Nil(t, pending.FinishedAt)

	results := []GenerationResult{{Prompt: "p", ImageURL: PNGDataURLPrefix + "abc"}}
	done := pending.Succeed(results)
	assert.Equal(t, StatusSucceeded, done.Status)
	assert.Equal(t, pending.ID, done.ID)
	assert.Equal(t, results, done.Results)
	require.NotNil(t, done.FinishedAt)

	// 원래 pending 값은 그대로
	assert.True(t, pending.IsPending())

	failed := pending.Fail(errors.New("boom"))
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "boom", failed.Error)
	assert.Empty(t, failed.Results)
	assert.False(t, failed.IsPending())

	var none *RunOutcome
	assert.False(t, none.IsPending())
}

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name     string
		mime     string
		size     int64
		wantErr  bool
		tooLarge bool
	}{
		{name: "exactly 4 MiB", mime: "image/png", size: MaxUploadBytes},
		{name: "4 MiB + 1", mime: "image/png", size: MaxUploadBytes + 1, wantErr: true, tooLarge: true},
		{name: "small jpeg", mime: "image/jpeg", size: 2 * 1024 * 1024},
		{name: "webp", mime: "image/webp", size: 10},
		{name: "gif rejected", mime: "image/gif", size: 10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.mime, tt.size)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.CodeValidation))
			if tt.tooLarge {
				assert.ErrorIs(t, err, ErrImageTooLarge)
				assert.Equal(t, MsgImageTooLarge, err.Error())
			}
		})
	}
}
