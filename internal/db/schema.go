package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const createCreatorsTable = `
	CREATE TABLE IF NOT EXISTS creators (
		id SERIAL PRIMARY KEY,
		channel_id VARCHAR(500) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		subscribers BIGINT NOT NULL,
		account_created DATE
	)
`

const socialLinksTableExists = `
	SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = 'creator_social_links'
	)
`

const addSocialLinksUniqueConstraint = `
	ALTER TABLE creator_social_links
	ADD CONSTRAINT creator_social_links_creator_id_key UNIQUE (creator_id)
`

const createSocialLinksTable = `
	CREATE TABLE creator_social_links (
		id SERIAL PRIMARY KEY,
		creator_id INTEGER UNIQUE REFERENCES creators(id),
		discord VARCHAR(500),
		twitch VARCHAR(500),
		twitter VARCHAR(500),
		patreon VARCHAR(500),
		facebook VARCHAR(500),
		instagram VARCHAR(500),
		tiktok VARCHAR(500),
		other TEXT
	)
`

// Postgres error codes raised when re-adding an existing constraint.
const (
	codeDuplicateRelation = "42P07"
	codeDuplicateObject   = "42710"
)

// EnsureSchema creates the creators and creator_social_links tables when
// missing. When the link table already exists, the unique constraint on
// creator_id is added once; an "already exists" answer is not an error.
//
// It must run outside a transaction: a failed statement would abort it.
func EnsureSchema(ctx context.Context, conn sqlx.ExtContext, logger *zap.Logger) error {
	if _, err := conn.ExecContext(ctx, createCreatorsTable); err != nil {
		return fmt.Errorf("%w: create creators table: %w", ErrPersistence, err)
	}

	var exists bool
	if err := sqlx.GetContext(ctx, conn, &exists, socialLinksTableExists); err != nil {
		return fmt.Errorf("%w: check creator_social_links table: %w", ErrPersistence, err)
	}

	if !exists {
		if _, err := conn.ExecContext(ctx, createSocialLinksTable); err != nil {
			return fmt.Errorf("%w: create creator_social_links table: %w", ErrPersistence, err)
		}
		logger.Info("created creator_social_links table")
		return nil
	}

	_, err := conn.ExecContext(ctx, addSocialLinksUniqueConstraint)
	switch {
	case err == nil:
		logger.Info("added unique constraint on creator_social_links.creator_id")
	case isAlreadyExists(err):
		logger.Debug("unique constraint on creator_social_links.creator_id already present")
	default:
		return fmt.Errorf("%w: migrate creator_social_links: %w", ErrPersistence, err)
	}
	return nil
}

func isAlreadyExists(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == codeDuplicateRelation || pqErr.Code == codeDuplicateObject
	}
	return false
}
