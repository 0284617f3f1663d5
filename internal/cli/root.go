package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marmistrz/ipu6-camera-hal/internal/config"
	"github.com/marmistrz/ipu6-camera-hal/internal/pipeline"
	"github.com/marmistrz/ipu6-camera-hal/internal/platform"
	"github.com/marmistrz/ipu6-camera-hal/internal/storage"
)

// Root holds the dependencies shared by every command.
type Root struct {
	cfg   *config.Config
	log   *slog.Logger
	store *storage.Store
}

// NewRoot returns a Root. store may be nil, in which case nothing is recorded.
func NewRoot(cfg *config.Config, logger *slog.Logger, store *storage.Store) *Root {
	return &Root{cfg: cfg, log: logger, store: store}
}

// openPlatform loads the capability file, if one is configured.
func (r *Root) openPlatform(path string) (*platform.Registry, error) {
	if path == "" {
		r.log.Warn("no capability file configured, ranges are unbounded")
		return nil, nil
	}
	reg, err := platform.Open(path, platform.WithLogger(r.log))
	if err != nil {
		return nil, fmt.Errorf("load capabilities: %w", err)
	}
	return reg, nil
}

// newPipeline builds a pipeline wired to the configured tuning, store and
// capability registry.
func (r *Root) newPipeline(ctx context.Context, source string, reg *platform.Registry) (*pipeline.Pipeline, error) {
	opts := []pipeline.Option{
		pipeline.WithTuning(r.cfg.Tuning),
		pipeline.WithQueueDepth(r.cfg.Pipeline.QueueDepth),
		pipeline.WithSource(source),
	}
	if reg != nil {
		opts = append(opts, pipeline.WithPlatform(reg), pipeline.WithCalibration(reg))
	}
	return pipeline.New(ctx, r.log, r.store, opts...)
}
