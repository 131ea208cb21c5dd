package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Uploader hands local files to the backend and blocks until the backend
// reports the uploaded asset ready for analysis.
type Uploader struct {
	backend      Backend
	logger       *zap.Logger
	timeout      time.Duration
	pollInterval time.Duration
}

// NewUploader creates an uploader polling at pollInterval until the asset
// activates or timeout elapses. The interval is constant: activation time
// is backend-determined and short, so backoff buys nothing here.
func NewUploader(backend Backend, timeout, pollInterval time.Duration, logger *zap.Logger) *Uploader {
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Uploader{
		backend:      backend,
		logger:       logger.With(zap.String("component", "uploader")),
		timeout:      timeout,
		pollInterval: pollInterval,
	}
}

// Upload transfers the local asset to the backend.
func (u *Uploader) Upload(ctx context.Context, asset *LocalAsset) (*RemoteAsset, error) {
	u.logger.Info("uploading media file",
		zap.String("path", asset.Path),
		zap.Int64("size_bytes", asset.SizeBytes),
	)

	remote, err := u.backend.Upload(ctx, asset)
	if err != nil {
		u.logger.Error("upload failed", zap.String("path", asset.Path), zap.Error(err))
		return nil, err
	}

	u.logger.Info("upload complete",
		zap.String("asset_id", remote.ID),
		zap.String("state", string(remote.State)),
	)
	return remote, nil
}

// AwaitActive polls the asset state at a fixed interval until it reaches
// ACTIVE. A FAILED terminal state aborts immediately; anything else keeps
// polling until the activation timeout elapses.
func (u *Uploader) AwaitActive(ctx context.Context, asset *RemoteAsset) (*RemoteAsset, error) {
	u.logger.Info("waiting for asset activation",
		zap.String("asset_id", asset.ID),
		zap.Duration("timeout", u.timeout),
	)

	start := time.Now()
	deadline := start.Add(u.timeout)
	ticker := time.NewTicker(u.pollInterval)
	defer ticker.Stop()

	for asset.State != StateActive {
		if asset.State == StateFailed {
			u.logger.Error("asset activation failed", zap.String("asset_id", asset.ID))
			return nil, &Error{
				Code:    ErrActivationFailed,
				Message: fmt.Sprintf("asset %s entered FAILED state during activation", asset.ID),
			}
		}

		if time.Now().After(deadline) {
			u.logger.Error("asset activation timed out",
				zap.String("asset_id", asset.ID),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil, &Error{
				Code:    ErrActivationTimeout,
				Message: fmt.Sprintf("asset %s did not become ACTIVE within %s", asset.ID, u.timeout),
			}
		}

		select {
		case <-ctx.Done():
			return nil, &Error{
				Code:    ErrActivationTimeout,
				Message: fmt.Sprintf("activation wait cancelled: %v", ctx.Err()),
			}
		case <-ticker.C:
		}

		state, err := u.backend.StateOf(ctx, asset)
		if err != nil {
			u.logger.Error("asset state query failed", zap.String("asset_id", asset.ID), zap.Error(err))
			return nil, err
		}
		asset.State = state
	}

	u.logger.Info("asset active",
		zap.String("asset_id", asset.ID),
		zap.Duration("elapsed", time.Since(start)),
	)
	return asset, nil
}
