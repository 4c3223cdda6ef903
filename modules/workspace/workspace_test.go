package workspace

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"illustration-variation-server/modules/common/apperr"
	"illustration-variation-server/modules/variation"
)

// fakeGenerator - release 채널이 닫힐 때까지 대기 가능
type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
	err     error
}

func (g *fakeGenerator) Generate(ctx context.Context, blob *variation.ImageBlob, prompts variation.PromptList) ([]variation.GenerationResult, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.release != nil {
		<-g.release
	}
	if g.err != nil {
		return nil, g.err
	}

	var results []variation.GenerationResult
	for _, p := range prompts.NonBlank() {
		results = append(results, variation.GenerationResult{Prompt: p, ImageURL: variation.PNGDataURLPrefix + "b64"})
	}
	return results, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNewWorkspaceDefaults(t *testing.T) {
	ws := newWorkspace("ws-1")
	assert.Equal(t, "ws-1", ws.ID())
	assert.Equal(t, variation.PromptList{variation.DefaultPrompt}, ws.Prompts())
	assert.Nil(t, ws.Image())
	assert.Nil(t, ws.Outcome())
}

func TestSetImage(t *testing.T) {
	ws := newWorkspace("ws-1")

	info, err := ws.SetImage("cat.png", "image/png", testPNG(t, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, 3, info.Width)
	assert.Equal(t, 2, info.Height)
	require.NotNil(t, ws.Image())
	assert.Equal(t, "cat.png", ws.Image().Name)

	// 크기 조회 실패는 업로드를 막지 않음
	info, err = ws.SetImage("odd.jpg", "image/jpeg", []byte("not really a jpeg"))
	require.NoError(t, err)
	assert.Zero(t, info.Width)
	assert.Equal(t, "odd.jpg", ws.Image().Name)
}

func TestSetImageRejectsInvalidUploads(t *testing.T) {
	ws := newWorkspace("ws-1")

	_, err := ws.SetImage("big.png", "image/png", make([]byte, variation.MaxUploadBytes+1))
	require.Error(t, err)
	assert.ErrorIs(t, err, variation.ErrImageTooLarge)

	_, err = ws.SetImage("anim.gif", "image/gif", []byte("GIF89a"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	assert.Nil(t, ws.Image())
}

func TestWorkspacePromptEditing(t *testing.T) {
	ws := newWorkspace("ws-1")

	prompts := ws.AddPrompt()
	assert.Equal(t, variation.PromptList{variation.DefaultPrompt, ""}, prompts)

	prompts, err := ws.SetPrompt(1, "Change outfit to a red dress")
	require.NoError(t, err)
	assert.Equal(t, "Change outfit to a red dress", prompts[1])

	prompts, err = ws.RemovePrompt(0)
	require.NoError(t, err)
	assert.Equal(t, variation.PromptList{"Change outfit to a red dress"}, prompts)

	_, err = ws.SetPrompt(5, "x")
	assert.Error(t, err)
	_, err = ws.RemovePrompt(5)
	assert.Error(t, err)

	assert.Equal(t, variation.PromptList{"a", "b"}, ws.ReplacePrompts([]string{"a", "b"}))
}

func TestRunSucceeds(t *testing.T) {
	ws := newWorkspace("ws-1")
	_, err := ws.SetImage("cat.png", "image/png", testPNG(t, 1, 1))
	require.NoError(t, err)
	ws.ReplacePrompts([]string{"red background", ""})

	outcome, err := ws.Run(context.Background(), &fakeGenerator{})
	require.NoError(t, err)
	assert.Equal(t, variation.StatusSucceeded, outcome.Status)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "red background", outcome.Results[0].Prompt)
	assert.Equal(t, outcome, ws.Outcome())
}

func TestRunValidationLeavesOutcomeUntouched(t *testing.T) {
	ws := newWorkspace("ws-1")
	gen := &fakeGenerator{}

	// 이미지 없음
	_, err := ws.Run(context.Background(), gen)
	require.Error(t, err)
	assert.Equal(t, variation.MsgMissingImage, err.Error())
	assert.Nil(t, ws.Outcome())

	_, err = ws.SetImage("cat.png", "image/png", testPNG(t, 1, 1))
	require.NoError(t, err)
	first, err := ws.Run(context.Background(), gen)
	require.NoError(t, err)

	// 프롬프트가 모두 비어 있으면 이전 결과 유지
	ws.ReplacePrompts([]string{"", "  "})
	_, err = ws.Run(context.Background(), gen)
	require.Error(t, err)
	assert.Equal(t, variation.MsgMissingPrompts, err.Error())
	assert.Equal(t, first, ws.Outcome())
	assert.Equal(t, 1, gen.callCount())
}

func TestRunClearsPreviousResultsBeforeUpstream(t *testing.T) {
	ws := newWorkspace("ws-1")
	_, err := ws.SetImage("cat.png", "image/png", testPNG(t, 1, 1))
	require.NoError(t, err)

	_, err = ws.Run(context.Background(), &fakeGenerator{})
	require.NoError(t, err)
	require.NotEmpty(t, ws.Outcome().Results)

	gen := &fakeGenerator{started: make(chan struct{}, 1), release: make(chan struct{})}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ws.Run(context.Background(), gen)
	}()

	<-gen.started
	pending := ws.Outcome()
	assert.True(t, pending.IsPending())
	assert.Empty(t, pending.Results)
	assert.Empty(t, pending.Error)

	close(gen.release)
	<-done
	assert.Equal(t, variation.StatusSucceeded, ws.Outcome().Status)
}

func TestRunFailureReplacesResults(t *testing.T) {
	ws := newWorkspace("ws-1")
	_, err := ws.SetImage("cat.png", "image/png", testPNG(t, 1, 1))
	require.NoError(t, err)
	_, err = ws.Run(context.Background(), &fakeGenerator{})
	require.NoError(t, err)

	upstream := apperr.New(apperr.CodeUpstreamEmptyResponse, "The API did not return an image. The request may have been blocked.")
	outcome, err := ws.Run(context.Background(), &fakeGenerator{err: upstream})
	require.Error(t, err)
	assert.True(t, errors.Is(err, upstream))
	assert.Equal(t, variation.StatusFailed, outcome.Status)
	assert.Empty(t, outcome.Results)
	assert.Equal(t, upstream.Error(), outcome.Error)
	assert.Equal(t, outcome, ws.Outcome())
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	ws := newWorkspace("ws-1")
	_, err := ws.SetImage("cat.png", "image/png", testPNG(t, 1, 1))
	require.NoError(t, err)

	gen := &fakeGenerator{started: make(chan struct{}, 1), release: make(chan struct{})}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ws.Run(context.Background(), gen)
	}()
	<-gen.started

	_, err = ws.Run(context.Background(), &fakeGenerator{})
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(gen.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}
	assert.Equal(t, 1, gen.callCount())
}

func TestInfoSnapshot(t *testing.T) {
	ws := newWorkspace("ws-1")
	_, err := ws.SetImage("cat.png", "image/png", testPNG(t, 4, 4))
	require.NoError(t, err)

	info := ws.Info()
	assert.Equal(t, "ws-1", info.SessionID)
	require.NotNil(t, info.Image)
	assert.Equal(t, 4, info.Image.Width)
	assert.Equal(t, variation.PromptList{variation.DefaultPrompt}, info.Prompts)
	assert.Zero(t, info.ClientCount)
	assert.Equal(t, 0, ws.clientCount())
}
