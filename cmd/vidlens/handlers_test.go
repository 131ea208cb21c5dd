package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/vidlens/pipeline"
	"github.com/BaSui01/vidlens/testutil/mocks"
)

func newTestHandler(t *testing.T, fetcher *mocks.Fetcher, backend *mocks.Backend) *webHandler {
	t.Helper()
	p := pipeline.New(fetcher, backend, pipeline.Options{
		ActivationTimeout: 50 * time.Millisecond,
		PollInterval:      time.Millisecond,
		MaxAttempts:       2,
		RetryDelay:        time.Millisecond,
		CallTimeout:       time.Minute,
	}, nil, zap.NewNop())

	h, err := newWebHandler(p, zap.NewNop())
	require.NoError(t, err)
	return h
}

func analyzeRequest(videoURL, prompt string) *http.Request {
	form := url.Values{}
	form.Set("url", videoURL)
	form.Set("prompt", prompt)
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestIndex_RendersForm(t *testing.T) {
	h := newTestHandler(t, &mocks.Fetcher{Dir: t.TempDir()}, &mocks.Backend{})

	rec := httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="url"`)
	assert.Contains(t, body, "Describe the appearance", "question box is pre-filled")
}

func TestIndex_UnknownPathIs404(t *testing.T) {
	h := newTestHandler(t, &mocks.Fetcher{Dir: t.TempDir()}, &mocks.Backend{})

	rec := httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyze_Success(t *testing.T) {
	backend := &mocks.Backend{
		Script: []mocks.StreamCall{{Chunks: []string{"A drummer ", "plays a solo."}}},
	}
	h := newTestHandler(t, &mocks.Fetcher{Dir: t.TempDir()}, backend)

	rec := httptest.NewRecorder()
	h.Analyze(rec, analyzeRequest("https://www.youtube.com/watch?v=dQw4w9WgXcQ", "what happens?"))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "A drummer plays a solo.")
	assert.Contains(t, body, "youtube.com/embed/dQw4w9WgXcQ", "answer page embeds the player")
	assert.Equal(t, 1, backend.Deletes)
}

func TestAnalyze_MissingFields(t *testing.T) {
	backend := &mocks.Backend{}
	h := newTestHandler(t, &mocks.Fetcher{Dir: t.TempDir()}, backend)

	rec := httptest.NewRecorder()
	h.Analyze(rec, analyzeRequest("", "what happens?"))

	assert.Contains(t, rec.Body.String(), "required")
	assert.Zero(t, backend.Uploads, "the pipeline never runs without a URL")
}

func TestAnalyze_PipelineErrorIsRenderedInline(t *testing.T) {
	fetcher := &mocks.Fetcher{
		Err: &pipeline.Error{Code: pipeline.ErrDownloadFailed, Message: "video unavailable"},
	}
	h := newTestHandler(t, fetcher, &mocks.Backend{})

	rec := httptest.NewRecorder()
	h.Analyze(rec, analyzeRequest("https://youtu.be/x", "q"))

	assert.Equal(t, http.StatusOK, rec.Code, "errors render on the page, not as HTTP failures")
	assert.Contains(t, rec.Body.String(), "video unavailable")
}

func TestAnalyze_BusyGuard(t *testing.T) {
	h := newTestHandler(t, &mocks.Fetcher{Dir: t.TempDir()}, &mocks.Backend{})

	h.busy.Lock()
	defer h.busy.Unlock()

	rec := httptest.NewRecorder()
	h.Analyze(rec, analyzeRequest("https://youtu.be/x", "q"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already in progress")
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, &mocks.Fetcher{Dir: t.TempDir()}, &mocks.Backend{})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
