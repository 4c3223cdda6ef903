package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"illustration-variation-server/modules/common/apperr"
	"illustration-variation-server/modules/common/metrics"
	"illustration-variation-server/modules/variation"
)

// 멀티파트 헤더 등을 위한 여유분
const uploadOverheadBytes = 1 << 20

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// CORS와 동일하게 모든 origin 허용
		return true
	},
}

type Handler struct {
	manager   *Manager
	generator Generator
	metrics   *metrics.Collector
}

func NewHandler(manager *Manager, generator Generator, m *metrics.Collector) *Handler {
	return &Handler{
		manager:   manager,
		generator: generator,
		metrics:   m,
	}
}

// RegisterRoutes - 라우터에 workspace 엔드포인트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/sessions", h.CreateSession).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}", h.GetSession).Methods("GET")
	r.HandleFunc("/api/sessions/{sessionId}/image", h.UploadImage).Methods("PUT", "POST")
	r.HandleFunc("/api/sessions/{sessionId}/prompts", h.ReplacePrompts).Methods("PUT")
	r.HandleFunc("/api/sessions/{sessionId}/prompts", h.AddPrompt).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/prompts/{index}", h.SetPrompt).Methods("PATCH")
	r.HandleFunc("/api/sessions/{sessionId}/prompts/{index}", h.RemovePrompt).Methods("DELETE")
	r.HandleFunc("/api/sessions/{sessionId}/generate", h.Generate).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/outcome", h.GetOutcome).Methods("GET")
	r.HandleFunc("/ws", h.HandleWebSocket)
	r.HandleFunc("/admin/cleanup", h.ForceCleanup).Methods("POST")
	log.Info().Msg("✅ Workspace routes registered: /api/sessions/..., /ws, /admin/cleanup")
}

// CreateSession - POST /api/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ws := h.manager.Create()
	writeJSON(w, http.StatusCreated, ws.Info())
}

// GetSession - GET /api/sessions/{sessionId}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ws.Info())
}

// UploadImage - 멀티파트 "image" 필드 업로드
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.lookup(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, variation.MaxUploadBytes+uploadOverheadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, variation.MsgImageTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid upload: expected multipart form with an \"image\" file")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing \"image\" file in upload")
		return
	}
	defer file.Close()

	// 브라우저가 선언한 MIME 타입 사용 (바이트로 추측하지 않음)
	mimeType := header.Header.Get("Content-Type")
	if err := variation.ValidateUpload(mimeType, header.Size); err != nil {
		writeAppError(w, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeAppError(w, apperr.Wrap(apperr.CodeIO, fmt.Sprintf("failed to read upload: %v", err), err))
		return
	}

	info, err := ws.SetImage(header.Filename, mimeType, data)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordUpload(info.Size)
	}

	writeJSON(w, http.StatusOK, info)
}

type promptsRequest struct {
	Prompts []string `json:"prompts"`
}

type promptRequest struct {
	Value string `json:"value"`
}

type promptsResponse struct {
	Prompts variation.PromptList `json:"prompts"`
}

// ReplacePrompts - PUT /api/sessions/{sessionId}/prompts
func (h *Handler) ReplacePrompts(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req promptsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	writeJSON(w, http.StatusOK, promptsResponse{Prompts: ws.ReplacePrompts(req.Prompts)})
}

// AddPrompt - POST /api/sessions/{sessionId}/prompts (빈 프롬프트 추가)
func (h *Handler) AddPrompt(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, promptsResponse{Prompts: ws.AddPrompt()})
}

// SetPrompt - PATCH /api/sessions/{sessionId}/prompts/{index}
func (h *Handler) SetPrompt(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.lookup(w, r)
	if !ok {
		return
	}
	index, ok := promptIndex(w, r)
	if !ok {
		return
	}

	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	prompts, err := ws.SetPrompt(index, req.Value)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, promptsResponse{Prompts: prompts})
}

// RemovePrompt - DELETE /api/sessions/{sessionId}/prompts/{index}
func (h *Handler) RemovePrompt(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.lookup(w, r)
	if !ok {
		return
	}
	index, ok := promptIndex(w, r)
	if !ok {
		return
	}

	prompts, err := ws.RemovePrompt(index)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, promptsResponse{Prompts: prompts})
}

// Generate - POST /api/sessions/{sessionId}/generate
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.lookup(w, r)
	if !ok {
		return
	}

	// 클라이언트 연결이 끊겨도 실행은 끝까지 진행 (취소 없음)
	outcome, err := ws.Run(context.WithoutCancel(r.Context()), h.generator)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, outcome)
	case errors.Is(err, ErrRunInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case outcome == nil:
		// 검증 실패: 실행 시작 안 됨
		writeAppError(w, err)
	default:
		writeJSON(w, http.StatusBadGateway, outcome)
	}
}

// GetOutcome - GET /api/sessions/{sessionId}/outcome
func (h *Handler) GetOutcome(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.lookup(w, r)
	if !ok {
		return
	}
	outcome := ws.Outcome()
	if outcome == nil {
		writeError(w, http.StatusNotFound, "No generation has run yet")
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// HandleWebSocket - GET /ws?session={sessionId}
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	ws, ok := h.manager.Get(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Msgf("WebSocket upgrade failed: %v", err)
		return
	}

	client := newClient(uuid.New().String(), conn)
	ws.addClient(client)
	if h.metrics != nil {
		h.metrics.WebsocketConnected()
	}

	go client.writePump()
	go client.readPump(ws)
}

// ForceCleanup - POST /admin/cleanup (관리자용)
func (h *Handler) ForceCleanup(w http.ResponseWriter, r *http.Request) {
	idle := h.manager.CleanupIdle()
	expired := h.manager.CleanupExpired()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "Cleanup completed",
		"idle":    idle,
		"expired": expired,
		"active":  h.manager.Count(),
	})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*Workspace, bool) {
	sessionID := mux.Vars(r)["sessionId"]
	ws, ok := h.manager.Get(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return ws, true
}

func promptIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Prompt index must be an integer")
		return 0, false
	}
	return index, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Msgf("❌ Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError - apperr 코드 → HTTP 상태
func writeAppError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, variation.ErrImageTooLarge):
		status = http.StatusRequestEntityTooLarge
	case apperr.Is(err, apperr.CodeValidation):
		status = http.StatusBadRequest
	case apperr.Is(err, apperr.CodeUpstreamRefusal),
		apperr.Is(err, apperr.CodeUpstreamEmptyResponse),
		apperr.Is(err, apperr.CodeGenerationFailed):
		status = http.StatusBadGateway
	}
	writeError(w, status, err.Error())
}
