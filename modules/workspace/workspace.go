package workspace

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"illustration-variation-server/modules/common/utils"
	"illustration-variation-server/modules/variation"
)

// ErrRunInProgress - 같은 workspace에서 이미 생성 중
var ErrRunInProgress = errors.New("A generation is already in progress.")

// Generator runs one batch of edits for a workspace.
type Generator interface {
	Generate(ctx context.Context, blob *variation.ImageBlob, prompts variation.PromptList) ([]variation.GenerationResult, error)
}

// UploadInfo - 업로드 결과 (미리보기 정보)
type UploadInfo struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int    `json:"size"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// Info - workspace 조회용 스냅샷
type Info struct {
	SessionID    string                `json:"sessionId"`
	Image        *UploadInfo           `json:"image,omitempty"`
	Prompts      variation.PromptList  `json:"prompts"`
	Outcome      *variation.RunOutcome `json:"outcome,omitempty"`
	ClientCount  int                   `json:"clientCount"`
	CreatedAt    time.Time             `json:"createdAt"`
	LastActivity time.Time             `json:"lastActivity"`
	Age          string                `json:"age"`
	Inactive     string                `json:"inactive"`
}

// Workspace - 브라우저 세션 하나의 상태 (업로드, 프롬프트, 현재 RunOutcome)
type Workspace struct {
	id string

	mu           sync.RWMutex
	image        *variation.ImageBlob
	upload       *UploadInfo
	prompts      variation.PromptList
	outcome      *variation.RunOutcome
	clients      map[string]*Client
	createdAt    time.Time
	lastActivity time.Time
}

func newWorkspace(id string) *Workspace {
	now := time.Now()
	return &Workspace{
		id:           id,
		prompts:      variation.PromptList{variation.DefaultPrompt},
		clients:      make(map[string]*Client),
		createdAt:    now,
		lastActivity: now,
	}
}

func (w *Workspace) ID() string {
	return w.id
}

// touch must be called with mu held.
func (w *Workspace) touch() {
	w.lastActivity = time.Now()
}

// SetImage validates and stores a new upload, replacing the previous one.
func (w *Workspace) SetImage(name, mimeType string, data []byte) (*UploadInfo, error) {
	if err := variation.ValidateUpload(mimeType, int64(len(data))); err != nil {
		return nil, err
	}

	info := &UploadInfo{Name: name, MimeType: mimeType, Size: len(data)}
	width, height, err := utils.ProbeImage(data, mimeType)
	if err != nil {
		// 크기 조회 실패는 업로드를 막지 않음
		log.Warn().Msgf("⚠️  [Workspace %s] Could not probe %s: %v", w.id, name, err)
	} else {
		info.Width, info.Height = width, height
	}

	w.mu.Lock()
	w.image = &variation.ImageBlob{Name: name, MimeType: mimeType, Data: data}
	w.upload = info
	w.touch()
	w.mu.Unlock()

	log.Info().Msgf("📷 [Workspace %s] Image uploaded: %s (%s, %d bytes, %dx%d)",
		w.id, name, mimeType, len(data), info.Width, info.Height)
	return info, nil
}

func (w *Workspace) Image() *variation.ImageBlob {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.image
}

func (w *Workspace) Prompts() variation.PromptList {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.prompts
}

// AddPrompt appends an empty prompt.
func (w *Workspace) AddPrompt() variation.PromptList {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prompts = w.prompts.Add()
	w.touch()
	return w.prompts
}

func (w *Workspace) SetPrompt(index int, value string) (variation.PromptList, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	updated, err := w.prompts.Set(index, value)
	if err != nil {
		return nil, err
	}
	w.prompts = updated
	w.touch()
	return updated, nil
}

func (w *Workspace) RemovePrompt(index int) (variation.PromptList, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	updated, err := w.prompts.Remove(index)
	if err != nil {
		return nil, err
	}
	w.prompts = updated
	w.touch()
	return updated, nil
}

func (w *Workspace) ReplacePrompts(prompts []string) variation.PromptList {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prompts = append(variation.PromptList{}, prompts...)
	w.touch()
	return w.prompts
}

// Outcome returns the current RunOutcome, nil before the first run.
func (w *Workspace) Outcome() *variation.RunOutcome {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.outcome
}

// Run executes one generation. Validation failures leave the current outcome
// untouched. Otherwise the outcome goes to pending right away, clearing the
// previous results before any upstream call, and is replaced by the terminal
// outcome when the batch finishes. Both transitions are pushed to clients.
func (w *Workspace) Run(ctx context.Context, gen Generator) (*variation.RunOutcome, error) {
	w.mu.Lock()
	blob, prompts := w.image, w.prompts
	if _, err := variation.Validate(blob, prompts); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if w.outcome.IsPending() {
		w.mu.Unlock()
		return nil, ErrRunInProgress
	}
	pending := variation.NewPendingOutcome()
	w.outcome = pending
	w.touch()
	w.mu.Unlock()

	log.Info().Msgf("🚀 [Workspace %s] Run %s started", w.id, pending.ID)
	w.broadcastOutcome(pending)

	results, runErr := gen.Generate(ctx, blob, prompts)

	var final *variation.RunOutcome
	if runErr != nil {
		final = pending.Fail(runErr)
		log.Error().Msgf("❌ [Workspace %s] Run %s failed: %v", w.id, pending.ID, runErr)
	} else {
		final = pending.Succeed(results)
		log.Info().Msgf("✅ [Workspace %s] Run %s succeeded with %d result(s)", w.id, pending.ID, len(results))
	}

	w.mu.Lock()
	w.outcome = final
	w.touch()
	w.mu.Unlock()

	w.broadcastOutcome(final)
	return final, runErr
}

// Info returns a point-in-time snapshot.
func (w *Workspace) Info() Info {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return Info{
		SessionID:    w.id,
		Image:        w.upload,
		Prompts:      w.prompts,
		Outcome:      w.outcome,
		ClientCount:  len(w.clients),
		CreatedAt:    w.createdAt,
		LastActivity: w.lastActivity,
		Age:          time.Since(w.createdAt).String(),
		Inactive:     time.Since(w.lastActivity).String(),
	}
}
