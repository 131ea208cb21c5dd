package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"github.com/BaSui01/vidlens/pipeline"
)

// Downloader fetches YouTube videos into a fixed local directory. It
// implements pipeline.Fetcher. Downloads are never deduplicated: every
// fetch writes a fresh file, even for a URL seen before.
type Downloader struct {
	client youtube.Client
	dir    string
	logger *zap.Logger
}

// NewDownloader creates a downloader writing files under dir.
func NewDownloader(dir string, logger *zap.Logger) *Downloader {
	if dir == "" {
		dir = "./videos"
	}
	return &Downloader{
		dir:    dir,
		logger: logger.With(zap.String("component", "fetch")),
	}
}

// Fetch resolves url and downloads its best stream.
//
// On any failure the error carries DOWNLOAD_FAILED and no file is left
// behind.
func (d *Downloader) Fetch(ctx context.Context, url string) (*pipeline.LocalAsset, error) {
	d.logger.Info("fetching video", zap.String("url", url))

	video, err := d.client.GetVideoContext(ctx, url)
	if err != nil {
		d.logger.Error("video resolution failed", zap.String("url", url), zap.Error(err))
		return nil, downloadErr("resolve %q: %v", url, err)
	}

	format, err := selectFormat(video.Formats)
	if err != nil {
		d.logger.Error("no usable stream", zap.String("url", url), zap.Error(err))
		return nil, err
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, downloadErr("create download dir %q: %v", d.dir, err)
	}

	ext := formatExtension(format.MimeType)
	path := filepath.Join(d.dir, fmt.Sprintf("%s-%s.%s", video.ID, uuid.NewString(), ext))

	size, err := d.download(ctx, video, format, path)
	if err != nil {
		return nil, err
	}

	d.logger.Info("video downloaded",
		zap.String("path", path),
		zap.Int64("size_bytes", size),
		zap.String("quality", format.QualityLabel),
	)
	return &pipeline.LocalAsset{Path: path, SizeBytes: size, Format: ext}, nil
}

func (d *Downloader) download(ctx context.Context, video *youtube.Video, format *youtube.Format, path string) (int64, error) {
	stream, _, err := d.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return 0, downloadErr("open stream for %q: %v", video.ID, err)
	}
	defer stream.Close()

	f, err := os.Create(path)
	if err != nil {
		return 0, downloadErr("create %q: %v", path, err)
	}

	n, err := io.Copy(f, stream)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// A partial file is not a usable asset.
		os.Remove(path)
		return 0, downloadErr("download %q: %v", video.ID, err)
	}
	return n, nil
}

// selectFormat picks the highest-resolution stream carrying both audio
// and video. Ties keep the backing library's own ordering.
func selectFormat(formats youtube.FormatList) (*youtube.Format, error) {
	usable := formats.WithAudioChannels()
	if len(usable) == 0 {
		return nil, &pipeline.Error{
			Code:    pipeline.ErrDownloadFailed,
			Message: "no compatible audio+video stream available",
		}
	}
	usable.Sort()
	return &usable[0], nil
}

// formatExtension derives a file extension from a stream MIME type such
// as `video/mp4; codecs="avc1.42001E, mp4a.40.2"`.
func formatExtension(mimeType string) string {
	mt := mimeType
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	if i := strings.Index(mt, "/"); i >= 0 {
		mt = mt[i+1:]
	}
	mt = strings.TrimSpace(mt)
	if mt == "" {
		return "mp4"
	}
	return mt
}

func downloadErr(format string, args ...any) *pipeline.Error {
	return &pipeline.Error{
		Code:    pipeline.ErrDownloadFailed,
		Message: fmt.Sprintf(format, args...),
	}
}
