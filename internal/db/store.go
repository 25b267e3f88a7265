package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"yt-creators/internal/config"
	"yt-creators/internal/models"
)

// ErrPersistence marks store failures that abort a batch.
var ErrPersistence = errors.New("persistence failure")

// Entry pairs a channel with the links resolved for it.
type Entry struct {
	Channel *models.Channel
	Links   models.SocialLinks
}

// FailedChannel records a channel that could not be written in per-channel mode.
type FailedChannel struct {
	ChannelID string
	Err       error
}

// PersistResult summarizes one Persist call.
type PersistResult struct {
	Inserted int
	Updated  int
	Failed   []FailedChannel
}

// Store writes creators and their link sets. A channel and its link row are
// always written in the same transaction.
type Store struct {
	db     *sqlx.DB
	mode   string
	logger *zap.Logger
}

// NewStore returns a Store; mode is config.PersistBatch or
// config.PersistPerChannel.
func NewStore(db *sqlx.DB, mode string, logger *zap.Logger) *Store {
	return &Store{db: db, mode: mode, logger: logger}
}

// DB exposes the underlying handle for read queries.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Persist ensures the schema and upserts every entry.
//
// In batch mode all entries share one transaction: the first failure rolls
// everything back and is returned. In per-channel mode each entry gets its
// own transaction and failures are collected in the result.
func (s *Store) Persist(ctx context.Context, entries []Entry) (*PersistResult, error) {
	if err := EnsureSchema(ctx, s.db, s.logger); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &PersistResult{}, nil
	}

	switch s.mode {
	case config.PersistPerChannel:
		return s.persistEach(ctx, entries), nil
	case config.PersistBatch, "":
		return s.persistBatch(ctx, entries)
	default:
		return nil, fmt.Errorf("%w: unknown persist mode %q", config.ErrConfiguration, s.mode)
	}
}

func (s *Store) persistBatch(ctx context.Context, entries []Entry) (*PersistResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin transaction: %w", ErrPersistence, err)
	}
	defer tx.Rollback()

	result := &PersistResult{}
	for _, e := range entries {
		inserted, err := writeEntry(ctx, tx, e)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		result.add(inserted)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", ErrPersistence, err)
	}
	return result, nil
}

func (s *Store) persistEach(ctx context.Context, entries []Entry) *PersistResult {
	result := &PersistResult{}
	for _, e := range entries {
		inserted, err := s.persistOne(ctx, e)
		if err != nil {
			s.logger.Warn("failed to persist channel",
				zap.String("channel_id", e.Channel.ID),
				zap.Error(err))
			result.Failed = append(result.Failed, FailedChannel{ChannelID: e.Channel.ID, Err: err})
			continue
		}
		result.add(inserted)
	}
	return result
}

func (s *Store) persistOne(ctx context.Context, e Entry) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted, err := writeEntry(ctx, tx, e)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func writeEntry(ctx context.Context, tx *sqlx.Tx, e Entry) (bool, error) {
	creatorID, inserted, err := UpsertCreator(ctx, tx, e.Channel)
	if err != nil {
		return false, err
	}
	if err := UpsertSocialLinks(ctx, tx, creatorID, e.Links); err != nil {
		return false, err
	}
	return inserted, nil
}

func (r *PersistResult) add(inserted bool) {
	if inserted {
		r.Inserted++
	} else {
		r.Updated++
	}
}
