package main

import (
	"embed"
	"html/template"
	"net/http"
	"strings"
	"sync"

	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"github.com/BaSui01/vidlens/pipeline"
)

//go:embed templates/index.html
var templateFS embed.FS

// defaultPrompt pre-fills the question box.
const defaultPrompt = `- Describe the appearance of the main person in the video.
- Summarize your overall impression in one sentence.
- Describe the most memorable scene in one sentence.`

// pageData drives the single-page template.
type pageData struct {
	URL      string
	Prompt   string
	Answer   string
	Error    string
	EmbedID  string
	Model    string
	Attempts int
}

// webHandler serves the form page and runs the pipeline for submissions.
type webHandler struct {
	pipeline *pipeline.Pipeline
	tmpl     *template.Template
	logger   *zap.Logger

	// One pipeline run at a time: concurrent submissions would collide on
	// the shared download directory.
	busy sync.Mutex
}

func newWebHandler(p *pipeline.Pipeline, logger *zap.Logger) (*webHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	return &webHandler{
		pipeline: p,
		tmpl:     tmpl,
		logger:   logger.With(zap.String("component", "web")),
	}, nil
}

// Index renders the submission form.
func (h *webHandler) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	h.render(w, pageData{Prompt: defaultPrompt})
}

// Analyze runs the full pipeline for one submission and renders the
// answer (or a single-line error) on the same page.
func (h *webHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	url := strings.TrimSpace(r.PostFormValue("url"))
	prompt := strings.TrimSpace(r.PostFormValue("prompt"))
	if url == "" || prompt == "" {
		h.render(w, pageData{
			URL:    url,
			Prompt: orDefault(prompt),
			Error:  "both a video URL and a question are required",
		})
		return
	}

	if !h.busy.TryLock() {
		w.WriteHeader(http.StatusConflict)
		h.render(w, pageData{
			URL:    url,
			Prompt: prompt,
			Error:  "another analysis is already in progress, please retry shortly",
		})
		return
	}
	defer h.busy.Unlock()

	result, err := h.pipeline.Run(r.Context(), pipeline.MediaRequest{SourceURL: url}, prompt)
	if err != nil {
		h.logger.Error("analysis failed", zap.String("url", url), zap.Error(err))
		h.render(w, pageData{
			URL:    url,
			Prompt: prompt,
			Error:  err.Error(),
		})
		return
	}

	embedID, _ := youtube.ExtractVideoID(url)
	h.render(w, pageData{
		URL:      url,
		Prompt:   prompt,
		Answer:   result.Answer,
		EmbedID:  embedID,
		Model:    result.Model,
		Attempts: result.Attempts,
	})
}

// Health reports liveness.
func (h *webHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *webHandler) render(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, data); err != nil {
		h.logger.Error("template render failed", zap.Error(err))
	}
}

func orDefault(prompt string) string {
	if prompt == "" {
		return defaultPrompt
	}
	return prompt
}
