package variation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxUploadBytes - Gemini inline data 전송 한도 때문에 4MB 제한
	MaxUploadBytes = 4 * 1024 * 1024

	// DefaultPrompt - 새 workspace의 첫 프롬프트
	DefaultPrompt = "Make the character a futuristic space explorer"

	// PNGDataURLPrefix - 결과 이미지는 실제 인코딩과 무관하게 PNG로 표시
	PNGDataURLPrefix = "data:image/png;base64,"
)

// ImageBlob - 업로드된 원본 이미지 (생성 후 변경 없음)
type ImageBlob struct {
	Name     string
	MimeType string
	Data     []byte
}

func (b *ImageBlob) Size() int {
	return len(b.Data)
}

// PromptList - 입력 순서가 결과 순서를 결정
type PromptList []string

// NonBlank returns the entries that are not blank after trimming, in order and
// unmodified (the untrimmed text is what gets sent upstream).
func (p PromptList) NonBlank() []string {
	out := make([]string, 0, len(p))
	for _, prompt := range p {
		if strings.TrimSpace(prompt) != "" {
			out = append(out, prompt)
		}
	}
	return out
}

// Add appends an empty entry.
func (p PromptList) Add() PromptList {
	return append(p.clone(), "")
}

// Set replaces the entry at index.
func (p PromptList) Set(index int, value string) (PromptList, error) {
	if err := p.checkIndex(index); err != nil {
		return nil, err
	}
	out := p.clone()
	out[index] = value
	return out, nil
}

// Remove drops the entry at index.
func (p PromptList) Remove(index int) (PromptList, error) {
	if err := p.checkIndex(index); err != nil {
		return nil, err
	}
	out := make(PromptList, 0, len(p)-1)
	out = append(out, p[:index]...)
	return append(out, p[index+1:]...), nil
}

func (p PromptList) checkIndex(index int) error {
	if index < 0 || index >= len(p) {
		return fmt.Errorf("prompt index %d out of range [0, %d)", index, len(p))
	}
	return nil
}

func (p PromptList) clone() PromptList {
	out := make(PromptList, len(p))
	copy(out, p)
	return out
}

// GenerationResult - 프롬프트 하나에 대한 생성 결과
type GenerationResult struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"imageUrl"`
}

// RunStatus - pending | succeeded | failed
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// RunOutcome is replaced wholesale on every transition; never mutate one in place.
type RunOutcome struct {
	ID         string             `json:"id"`
	Status     RunStatus          `json:"status"`
	Results    []GenerationResult `json:"results"`
	Error      string             `json:"error,omitempty"`
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt *time.Time         `json:"finishedAt,omitempty"`
}

// NewPendingOutcome starts a run with an empty result list.
func NewPendingOutcome() *RunOutcome {
	return &RunOutcome{
		ID:        uuid.New().String(),
		Status:    StatusPending,
		Results:   []GenerationResult{},
		StartedAt: time.Now(),
	}
}

// Succeed returns the terminal outcome for a fully successful run.
func (o *RunOutcome) Succeed(results []GenerationResult) *RunOutcome {
	now := time.Now()
	return &RunOutcome{
		ID:         o.ID,
		Status:     StatusSucceeded,
		Results:    results,
		StartedAt:  o.StartedAt,
		FinishedAt: &now,
	}
}

// Fail returns the terminal outcome for a failed run; no partial results survive.
func (o *RunOutcome) Fail(err error) *RunOutcome {
	now := time.Now()
	return &RunOutcome{
		ID:         o.ID,
		Status:     StatusFailed,
		Results:    []GenerationResult{},
		Error:      err.Error(),
		StartedAt:  o.StartedAt,
		FinishedAt: &now,
	}
}

func (o *RunOutcome) IsPending() bool {
	return o != nil && o.Status == StatusPending
}
