package pipeline

import (
	"context"
	"errors"
)

// ErrorCode classifies pipeline failures into a stable, backend-agnostic
// taxonomy. Callers branch on codes, never on provider error strings.
type ErrorCode string

const (
	ErrDownloadFailed      ErrorCode = "DOWNLOAD_FAILED"
	ErrUploadFailed        ErrorCode = "UPLOAD_FAILED"
	ErrActivationTimeout   ErrorCode = "ACTIVATION_TIMEOUT"
	ErrActivationFailed    ErrorCode = "ACTIVATION_FAILED"
	ErrModelOverloaded     ErrorCode = "MODEL_OVERLOADED"
	ErrOverloadedExhausted ErrorCode = "OVERLOADED_EXHAUSTED"
	ErrUpstreamError       ErrorCode = "UPSTREAM_ERROR"
)

// Error is the structured error returned from every pipeline component.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Provider  string    `json:"provider,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// CodeOf returns the pipeline error code carried by err, or "" when err is
// not a pipeline error.
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsOverloaded reports whether err is the transient capacity-exhaustion
// signal from the backend. Only this kind is retried by the orchestrator.
func IsOverloaded(err error) bool {
	return CodeOf(err) == ErrModelOverloaded
}

// AssetState is the remote asset lifecycle as observed via polling. State
// transitions are driven entirely by the backend.
type AssetState string

const (
	StatePending AssetState = "PENDING"
	StateActive  AssetState = "ACTIVE"
	StateFailed  AssetState = "FAILED"
)

// MediaRequest is one user submission. Immutable, request-scoped.
type MediaRequest struct {
	SourceURL string
}

// LocalAsset is a downloaded media file owned by the pipeline until
// cleanup removes it. The file exists on disk for the asset's entire
// owned lifetime.
type LocalAsset struct {
	Path      string
	SizeBytes int64
	// Format is the container format, e.g. "mp4".
	Format string
}

// RemoteAsset is the backend-side handle for an uploaded file.
type RemoteAsset struct {
	// ID is the backend resource name, e.g. "files/abc123".
	ID    string
	URI   string
	State AssetState
	// MIMEType is the media type declared at upload time.
	MIMEType string
}

// StreamChunk is one fragment of a streamed generation. A chunk carries
// either text or a terminal error; after an error chunk the channel is
// closed.
type StreamChunk struct {
	Text string
	Err  error
}

// InferenceResult is the aggregated answer of a successful run.
type InferenceResult struct {
	Answer   string
	Model    string
	Attempts int
}

// Fetcher resolves a public video reference to a locally stored media
// file. Implementations must not reuse prior downloads for the same URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*LocalAsset, error)
}

// Backend is the minimal surface the pipeline needs from a remote
// inference service: upload, state query, deletion and content streaming.
// Any backend can be substituted behind this interface.
type Backend interface {
	// Upload hands a local file to the backend and returns the created
	// asset, typically still in StatePending.
	Upload(ctx context.Context, asset *LocalAsset) (*RemoteAsset, error)

	// StateOf re-reads the asset's current lifecycle state.
	StateOf(ctx context.Context, asset *RemoteAsset) (AssetState, error)

	// Delete removes the remote asset. Deleting an already-absent asset
	// may return an error; callers decide whether to swallow it.
	Delete(ctx context.Context, asset *RemoteAsset) error

	// StreamGenerate runs a generation against an ACTIVE asset and the
	// instruction text, delivering output incrementally. The returned
	// channel is closed when the stream ends.
	StreamGenerate(ctx context.Context, instruction string, asset *RemoteAsset) (<-chan StreamChunk, error)

	// Model reports the model name requests are issued against.
	Model() string
}
