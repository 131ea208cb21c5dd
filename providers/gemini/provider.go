// Package gemini implements pipeline.Backend against the Google Gemini
// API: the Files API for asset upload/activation/deletion and
// streamGenerateContent for streamed video analysis.
//
// Gemini API specifics:
//  1. Authentication via the x-goog-api-key request header.
//  2. Uploaded files preprocess asynchronously; generation is only valid
//     once the file reports state ACTIVE.
//  3. Streamed generation delivers candidates as server-sent events.
package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/vidlens/pipeline"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// DefaultModel is used when no model override is configured.
const DefaultModel = "gemini-2.0-flash"

// Config holds the Gemini client configuration.
type Config struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	BaseURL string `json:"base_url" yaml:"base_url"`
	Model   string `json:"model,omitempty" yaml:"model,omitempty"`
}

// Provider is the Gemini implementation of pipeline.Backend.
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a Gemini provider. Request deadlines come from the caller's
// context, so the underlying client carries no timeout of its own: uploads
// of large media and streamed generations have very different budgets.
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{},
		logger: logger.With(zap.String("provider", "gemini")),
	}
}

func (p *Provider) Name() string { return "gemini" }

// Model reports the model generation requests are issued against.
func (p *Provider) Model() string { return p.cfg.Model }

// =============================================================================
// Wire types
// =============================================================================

type geminiFile struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	State    string `json:"state"`
	MimeType string `json:"mimeType,omitempty"`
}

type uploadResponse struct {
	File geminiFile `json:"file"`
}

type geminiPart struct {
	Text     string          `json:"text,omitempty"`
	FileData *geminiFileData `json:"file_data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generateRequest struct {
	Contents []geminiContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason,omitempty"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// =============================================================================
// Backend implementation
// =============================================================================

// Upload transfers the local media file to the Files API. The returned
// asset usually starts in PENDING (Gemini: PROCESSING) state.
func (p *Provider) Upload(ctx context.Context, asset *pipeline.LocalAsset) (*pipeline.RemoteAsset, error) {
	f, err := os.Open(asset.Path)
	if err != nil {
		return nil, uploadErr("open %q: %v", asset.Path, err)
	}
	defer f.Close()

	mimeType := "video/" + asset.Format
	endpoint := fmt.Sprintf("%s/upload/v1beta/files?uploadType=media", strings.TrimRight(p.cfg.BaseURL, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, f)
	if err != nil {
		return nil, uploadErr("build upload request: %v", err)
	}
	p.setHeaders(req)
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.ContentLength = asset.SizeBytes

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, uploadErr("upload transport: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := readErrMsg(resp.Body)
		p.logger.Error("file upload rejected", zap.Int("status", resp.StatusCode), zap.String("msg", msg))
		return nil, uploadErr("upload rejected: status=%d msg=%s", resp.StatusCode, msg)
	}

	var ur uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return nil, uploadErr("decode upload response: %v", err)
	}

	return &pipeline.RemoteAsset{
		ID:       ur.File.Name,
		URI:      ur.File.URI,
		State:    mapState(ur.File.State),
		MIMEType: mimeType,
	}, nil
}

// StateOf re-reads the file resource and maps its lifecycle state.
func (p *Provider) StateOf(ctx context.Context, asset *pipeline.RemoteAsset) (pipeline.AssetState, error) {
	endpoint := fmt.Sprintf("%s/v1beta/%s", strings.TrimRight(p.cfg.BaseURL, "/"), asset.ID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", upstreamErr("build state request: %v", err)
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", upstreamErr("state transport: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := readErrMsg(resp.Body)
		return "", mapHTTPError(resp.StatusCode, fmt.Sprintf("state query failed: %s", msg))
	}

	var file geminiFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return "", upstreamErr("decode state response: %v", err)
	}
	return mapState(file.State), nil
}

// Delete removes the uploaded file from the Files API.
func (p *Provider) Delete(ctx context.Context, asset *pipeline.RemoteAsset) error {
	endpoint := fmt.Sprintf("%s/v1beta/%s", strings.TrimRight(p.cfg.BaseURL, "/"), asset.ID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return upstreamErr("build delete request: %v", err)
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return upstreamErr("delete transport: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := readErrMsg(resp.Body)
		return mapHTTPError(resp.StatusCode, fmt.Sprintf("delete failed: %s", msg))
	}
	return nil
}

// StreamGenerate issues a streamed generation against an ACTIVE asset.
// Fragments are forwarded over the returned channel in arrival order; a
// mid-stream failure is delivered as the final chunk's Err.
func (p *Provider) StreamGenerate(ctx context.Context, instruction string, asset *pipeline.RemoteAsset) (<-chan pipeline.StreamChunk, error) {
	body := generateRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{FileData: &geminiFileData{MimeType: asset.MIMEType, FileURI: asset.URI}},
				{Text: instruction},
			},
		}},
	}
	payload, _ := json.Marshal(body)

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse",
		strings.TrimRight(p.cfg.BaseURL, "/"), p.cfg.Model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, upstreamErr("build generate request: %v", err)
	}
	p.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, upstreamErr("generate transport: %v", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		msg := readErrMsg(resp.Body)
		return nil, mapHTTPError(resp.StatusCode, msg)
	}

	ch := make(chan pipeline.StreamChunk)
	go func() {
		defer resp.Body.Close()
		defer close(ch)
		reader := bufio.NewReader(resp.Body)

		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					ch <- pipeline.StreamChunk{Err: upstreamErr("stream read: %v", err)}
				}
				return
			}

			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			// SSE framing: payload lines carry a "data: " prefix.
			line = strings.TrimPrefix(line, "data:")
			line = strings.TrimSpace(line)
			if line == "" || line == "[DONE]" {
				continue
			}

			var gr generateResponse
			if err := json.Unmarshal([]byte(line), &gr); err != nil {
				continue
			}

			for _, candidate := range gr.Candidates {
				for _, part := range candidate.Content.Parts {
					if part.Text != "" {
						ch <- pipeline.StreamChunk{Text: part.Text}
					}
				}
			}
		}
	}()

	return ch, nil
}

// =============================================================================
// Helpers
// =============================================================================

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)
}

// mapState converts Files API state strings to pipeline states. Gemini
// reports PROCESSING while preprocessing runs.
func mapState(state string) pipeline.AssetState {
	switch state {
	case "ACTIVE":
		return pipeline.StateActive
	case "FAILED":
		return pipeline.StateFailed
	default:
		return pipeline.StatePending
	}
}

func readErrMsg(body io.Reader) string {
	data, _ := io.ReadAll(body)
	var er errorResponse
	if err := json.Unmarshal(data, &er); err == nil && er.Error.Message != "" {
		return fmt.Sprintf("%s (status: %s)", er.Error.Message, er.Error.Status)
	}
	return strings.TrimSpace(string(data))
}

// mapHTTPError classifies generation-path failures. Only 503 (and bodies
// the API marks UNAVAILABLE) become the retryable overloaded kind.
func mapHTTPError(status int, msg string) *pipeline.Error {
	if status == http.StatusServiceUnavailable ||
		strings.Contains(msg, "UNAVAILABLE") ||
		strings.Contains(strings.ToLower(msg), "overloaded") {
		return &pipeline.Error{
			Code:      pipeline.ErrModelOverloaded,
			Message:   msg,
			Retryable: true,
			Provider:  "gemini",
		}
	}
	return &pipeline.Error{
		Code:     pipeline.ErrUpstreamError,
		Message:  fmt.Sprintf("status=%d msg=%s", status, msg),
		Provider: "gemini",
	}
}

func uploadErr(format string, args ...any) *pipeline.Error {
	return &pipeline.Error{
		Code:     pipeline.ErrUploadFailed,
		Message:  fmt.Sprintf(format, args...),
		Provider: "gemini",
	}
}

func upstreamErr(format string, args ...any) *pipeline.Error {
	return &pipeline.Error{
		Code:     pipeline.ErrUpstreamError,
		Message:  fmt.Sprintf(format, args...),
		Provider: "gemini",
	}
}
