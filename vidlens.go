// Package vidlens provides a one-call entry point for asking a question
// about a video without running the web UI.
//
// Usage:
//
//	import "github.com/BaSui01/vidlens"
//
//	answer, err := vidlens.Analyze(ctx, vidlens.Options{
//	    APIKey: os.Getenv("VIDLENS_GEMINI_API_KEY"),
//	    URL:    "https://www.youtube.com/watch?v=...",
//	    Prompt: "What happens in this video?",
//	})
package vidlens

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/vidlens/config"
	"github.com/BaSui01/vidlens/fetch"
	"github.com/BaSui01/vidlens/pipeline"
	"github.com/BaSui01/vidlens/providers/gemini"
)

// Options configures a single [Analyze] call.
type Options struct {
	// APIKey is the Gemini API key. Required.
	APIKey string
	// URL is the public video link. Required.
	URL string
	// Prompt is the question or instruction. Required.
	Prompt string
	// Model overrides the default inference model.
	Model string
	// DownloadDir overrides the local download directory.
	DownloadDir string
	// Logger, when nil, defaults to a no-op logger.
	Logger *zap.Logger
}

// Analyze downloads the video, runs the full inference pipeline and
// returns the aggregated answer. Transient artifacts (the local file and
// the remote upload) are always cleaned up before Analyze returns.
func Analyze(ctx context.Context, opts Options) (string, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return "", fmt.Errorf("vidlens: APIKey is required")
	}
	if strings.TrimSpace(opts.URL) == "" || strings.TrimSpace(opts.Prompt) == "" {
		return "", fmt.Errorf("vidlens: URL and Prompt are required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := opts.DownloadDir
	if dir == "" {
		dir = config.DefaultFetchConfig().Dir
	}

	backend := gemini.New(gemini.Config{
		APIKey: opts.APIKey,
		Model:  opts.Model,
	}, logger)
	fetcher := fetch.NewDownloader(dir, logger)

	p := pipeline.New(fetcher, backend, pipeline.Options{}, nil, logger)
	result, err := p.Run(ctx, pipeline.MediaRequest{SourceURL: opts.URL}, opts.Prompt)
	if err != nil {
		return "", err
	}
	return result.Answer, nil
}
