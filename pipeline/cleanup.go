package pipeline

import (
	"context"
	"os"

	"go.uber.org/zap"
)

// Cleaner removes transient pipeline artifacts. It never fails: the local
// and remote deletions run in independent failure boundaries, and a
// failure in either is logged and swallowed.
type Cleaner struct {
	backend Backend
	logger  *zap.Logger
}

// NewCleaner creates a cleaner deleting remote assets through backend.
func NewCleaner(backend Backend, logger *zap.Logger) *Cleaner {
	return &Cleaner{
		backend: backend,
		logger:  logger.With(zap.String("component", "cleanup")),
	}
}

// Cleanup deletes the local file and the remote asset. Either argument may
// be nil when the corresponding asset was never created. Idempotent: an
// already-absent local file is a no-op, and a failed remote deletion is
// only logged.
func (c *Cleaner) Cleanup(ctx context.Context, local *LocalAsset, remote *RemoteAsset) {
	if local != nil {
		if _, err := os.Stat(local.Path); err == nil {
			if err := os.Remove(local.Path); err != nil {
				c.logger.Warn("local file removal failed",
					zap.String("path", local.Path),
					zap.Error(err),
				)
			} else {
				c.logger.Info("local file removed", zap.String("path", local.Path))
			}
		}
	}

	if remote != nil {
		if err := c.backend.Delete(ctx, remote); err != nil {
			c.logger.Warn("remote asset deletion failed",
				zap.String("asset_id", remote.ID),
				zap.Error(err),
			)
		} else {
			c.logger.Info("remote asset deleted", zap.String("asset_id", remote.ID))
		}
	}
}
