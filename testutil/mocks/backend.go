// Package mocks provides scripted doubles for the pipeline interfaces.
package mocks

import (
	"context"
	"os"
	"sync"

	"github.com/BaSui01/vidlens/pipeline"
)

// Backend is a scripted pipeline.Backend. All fields are optional; the
// zero value uploads instantly-active assets and streams nothing.
type Backend struct {
	mu sync.Mutex

	// UploadErr, when set, fails Upload.
	UploadErr error
	// UploadState is the state of freshly uploaded assets. Defaults to
	// StateActive.
	UploadState pipeline.AssetState

	// States is consumed one per StateOf call; after exhaustion the last
	// entry repeats. Empty means StateActive.
	States []pipeline.AssetState
	// StateErr, when set, fails StateOf.
	StateErr error

	// Script is consumed one call per StreamGenerate: each entry is
	// either a chunk list to stream or an error to fail with.
	Script []StreamCall

	// DeleteErr, when set, is returned from Delete (after counting).
	DeleteErr error

	// Counters
	Uploads         int
	StateQueries    int
	Deletes         int
	GenerationCalls int
}

// StreamCall scripts one StreamGenerate invocation.
type StreamCall struct {
	Chunks []string
	Err    error
}

// Overloaded returns the transient backend overload signal.
func Overloaded() *pipeline.Error {
	return &pipeline.Error{
		Code:      pipeline.ErrModelOverloaded,
		Message:   "model is overloaded",
		Retryable: true,
		Provider:  "mock",
	}
}

func (b *Backend) Model() string { return "mock-model" }

func (b *Backend) Upload(ctx context.Context, asset *pipeline.LocalAsset) (*pipeline.RemoteAsset, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Uploads++
	if b.UploadErr != nil {
		return nil, b.UploadErr
	}
	state := b.UploadState
	if state == "" {
		state = pipeline.StateActive
	}
	return &pipeline.RemoteAsset{
		ID:       "files/mock-asset",
		URI:      "https://mock.local/files/mock-asset",
		State:    state,
		MIMEType: "video/mp4",
	}, nil
}

func (b *Backend) StateOf(ctx context.Context, asset *pipeline.RemoteAsset) (pipeline.AssetState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.StateQueries++
	if b.StateErr != nil {
		return "", b.StateErr
	}
	if len(b.States) == 0 {
		return pipeline.StateActive, nil
	}
	state := b.States[0]
	if len(b.States) > 1 {
		b.States = b.States[1:]
	}
	return state, nil
}

func (b *Backend) Delete(ctx context.Context, asset *pipeline.RemoteAsset) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Deletes++
	return b.DeleteErr
}

func (b *Backend) StreamGenerate(ctx context.Context, instruction string, asset *pipeline.RemoteAsset) (<-chan pipeline.StreamChunk, error) {
	b.mu.Lock()
	b.GenerationCalls++
	var call StreamCall
	if len(b.Script) > 0 {
		call = b.Script[0]
		b.Script = b.Script[1:]
	}
	b.mu.Unlock()

	if call.Err != nil && len(call.Chunks) == 0 {
		return nil, call.Err
	}

	ch := make(chan pipeline.StreamChunk)
	go func() {
		defer close(ch)
		for _, text := range call.Chunks {
			ch <- pipeline.StreamChunk{Text: text}
		}
		if call.Err != nil {
			ch <- pipeline.StreamChunk{Err: call.Err}
		}
	}()
	return ch, nil
}

// Fetcher is a scripted pipeline.Fetcher writing a real temp file per
// fetch, so cleanup has something to delete.
type Fetcher struct {
	// Dir receives downloaded files. Required unless Err is set.
	Dir string
	// Err, when set, fails Fetch.
	Err error
	// Content is the fake media payload.
	Content string

	Fetches int
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*pipeline.LocalAsset, error) {
	f.Fetches++
	if f.Err != nil {
		return nil, f.Err
	}

	content := f.Content
	if content == "" {
		content = "fake media bytes"
	}
	file, err := os.CreateTemp(f.Dir, "clip-*.mp4")
	if err != nil {
		return nil, err
	}
	if _, err := file.WriteString(content); err != nil {
		file.Close()
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, err
	}

	return &pipeline.LocalAsset{
		Path:      file.Name(),
		SizeBytes: int64(len(content)),
		Format:    "mp4",
	}, nil
}
