// Package pipeline runs one discovery → extraction → persistence → export
// pass over a category.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"yt-creators/internal/config"
	"yt-creators/internal/db"
	"yt-creators/internal/export"
	"yt-creators/internal/models"
	"yt-creators/internal/social"
)

// Discoverer finds and hydrates the channels of a category.
type Discoverer interface {
	ResolveCategoryID(ctx context.Context, name string) (string, error)
	DiscoverTopChannels(ctx context.Context, categoryID string, limit int) ([]*models.Channel, error)
}

// Persister writes a batch of channels with their links.
type Persister interface {
	Persist(ctx context.Context, entries []db.Entry) (*db.PersistResult, error)
}

// ChannelError is a per-channel failure that did not stop the run.
type ChannelError struct {
	ChannelID string
	Err       error
}

// Report describes a finished run.
type Report struct {
	CategoryID string
	Discovered int
	Inserted   int
	Updated    int
	// PartialFailures lists channels whose links could not be resolved; they
	// were persisted with an empty link set.
	PartialFailures []ChannelError
	// FailedChannels lists channels not persisted (per-channel mode only).
	FailedChannels []db.FailedChannel
	ExportPath     string
}

// Pipeline wires the components of a run together.
type Pipeline struct {
	cfg        *config.Config
	discoverer Discoverer
	resolver   social.Resolver
	store      Persister
	logger     *zap.Logger
}

func New(cfg *config.Config, discoverer Discoverer, resolver social.Resolver, store Persister, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		discoverer: discoverer,
		resolver:   resolver,
		store:      store,
		logger:     logger,
	}
}

// Run executes the pipeline once. Channels are processed sequentially. The
// export is only written when persistence succeeded.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}

	log := p.logger.With(zap.String("category", p.cfg.CategoryName))

	categoryID, err := p.discoverer.ResolveCategoryID(ctx, p.cfg.CategoryName)
	if err != nil {
		return nil, fmt.Errorf("resolve category: %w", err)
	}
	report := &Report{CategoryID: categoryID}
	log.Info("category resolved", zap.String("category_id", categoryID))

	channels, err := p.discoverer.DiscoverTopChannels(ctx, categoryID, p.cfg.Cap)
	if err != nil {
		return report, fmt.Errorf("discover channels: %w", err)
	}
	report.Discovered = len(channels)

	entries := make([]db.Entry, 0, len(channels))
	for _, ch := range channels {
		links, err := p.resolver.Resolve(ctx, ch)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			log.Warn("social link resolution failed",
				zap.String("channel_id", ch.ID),
				zap.Error(err))
			report.PartialFailures = append(report.PartialFailures, ChannelError{ChannelID: ch.ID, Err: err})
			links = models.SocialLinks{}
		}
		entries = append(entries, db.Entry{Channel: ch, Links: links})
	}

	result, err := p.store.Persist(ctx, entries)
	if err != nil {
		return report, fmt.Errorf("persist channels: %w", err)
	}
	report.Inserted = result.Inserted
	report.Updated = result.Updated
	report.FailedChannels = result.Failed

	rows := make([]export.Row, 0, len(channels))
	for _, ch := range channels {
		rows = append(rows, export.Row{Name: ch.Title, Subscribers: ch.Subscribers})
	}
	if err := export.Write(p.cfg.ExportPath, rows); err != nil {
		return report, fmt.Errorf("export channels: %w", err)
	}
	report.ExportPath = p.cfg.ExportPath

	log.Info("sync finished",
		zap.Int("discovered", report.Discovered),
		zap.Int("inserted", report.Inserted),
		zap.Int("updated", report.Updated),
		zap.Int("partial_failures", len(report.PartialFailures)),
		zap.Int("failed", len(report.FailedChannels)),
		zap.String("export", report.ExportPath))
	return report, nil
}
