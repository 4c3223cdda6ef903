package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"illustration-variation-server/modules/variation"
)

//go:embed templates/index.html
var templateFS embed.FS

// PageData - index.html 템플릿 데이터
type PageData struct {
	Title       string
	Model       string
	MaxUploadMB int
	Accept      string
}

type Handler struct {
	tmpl *template.Template
	data PageData
}

// NewHandler parses the embedded page once. model is shown in the footer only.
func NewHandler(model string) (*Handler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}

	return &Handler{
		tmpl: tmpl,
		data: PageData{
			Title:       "Illustration Variation Generator",
			Model:       model,
			MaxUploadMB: variation.MaxUploadBytes / (1024 * 1024),
			Accept:      "image/png,image/jpeg,image/webp",
		},
	}, nil
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.Index).Methods("GET")
}

// Index - GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	// 렌더링 실패 시 반쯤 쓰인 응답을 보내지 않도록 버퍼 사용
	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, h.data); err != nil {
		log.Error().Msgf("❌ [Web] Failed to render page: %v", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
