package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"yt-creators/internal/config"
	"yt-creators/internal/discovery"
	"yt-creators/internal/pipeline"
	"yt-creators/pkg/tasks"
)

const (
	retryBaseDelay = 5 * time.Minute
	retryMaxDelay  = 24 * time.Hour
)

// runPipeline is swapped out in tests.
var runPipeline = func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pipeline.Report, error) {
	p, closeStore, err := pipeline.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()
	return p.Run(ctx)
}

type TaskHandler struct {
	cfg    *config.Config
	logger *zap.Logger
}

func NewTaskHandler(cfg *config.Config, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{cfg: cfg, logger: logger}
}

// HandleSyncCategoryTask runs the pipeline once with the task's overrides
// applied. Errors no retry can fix are marked with asynq.SkipRetry.
func (h *TaskHandler) HandleSyncCategoryTask(ctx context.Context, t *asynq.Task) error {
	p, err := tasks.ParseSyncCategoryPayload(t)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	cfg := h.configFor(p)
	log := h.logger.With(
		zap.String("task", t.Type()),
		zap.String("category", cfg.CategoryName),
		zap.Int("cap", cfg.Cap),
		zap.String("strategy", cfg.LinkStrategy))
	log.Info("sync started")

	report, err := runPipeline(ctx, cfg, log)
	if err != nil {
		if errors.Is(err, config.ErrConfiguration) || errors.Is(err, discovery.ErrCategoryNotFound) {
			log.Error("sync rejected", zap.Error(err))
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		log.Error("sync failed", zap.Error(err))
		return fmt.Errorf("sync category %q: %w", cfg.CategoryName, err)
	}

	for _, f := range report.FailedChannels {
		log.Warn("channel not persisted", zap.String("channel_id", f.ChannelID), zap.Error(f.Err))
	}
	return nil
}

func (h *TaskHandler) configFor(p tasks.SyncCategoryTaskPayload) *config.Config {
	cfg := *h.cfg
	if p.Category != "" {
		cfg.CategoryName = p.Category
	}
	if p.Cap != 0 {
		cfg.Cap = p.Cap
	}
	if p.Strategy != "" {
		cfg.LinkStrategy = p.Strategy
	}
	return &cfg
}

// RetryDelay backs off exponentially from 5 minutes, capped at a day.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	delay := retryBaseDelay
	for i := 0; i < n; i++ {
		delay *= 2
		if delay >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return delay
}
