package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"yt-creators/internal/models"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

const insertCreator = `
	INSERT INTO creators (channel_id, name, subscribers, account_created)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (channel_id) DO NOTHING
	RETURNING id
`

const updateCreator = `
	UPDATE creators
	SET name = $2, subscribers = $3, account_created = $4
	WHERE channel_id = $1
`

const selectCreatorID = `SELECT id FROM creators WHERE channel_id = $1`

const selectCreatorsWithLinks = `
	SELECT c.id, c.channel_id, c.name, c.subscribers, c.account_created,
		l.discord, l.twitch, l.twitter, l.patreon, l.facebook, l.instagram, l.tiktok, l.other
	FROM creators c
	LEFT JOIN creator_social_links l ON l.creator_id = c.id
`

// UpsertCreator inserts a channel or updates its mutable fields, and returns
// the creators.id to use as the link table's foreign key. On conflict the
// insert returns no row, so the id is looked up by channel id.
func UpsertCreator(ctx context.Context, q sqlx.ExtContext, ch *models.Channel) (id int64, inserted bool, err error) {
	created := dateOrNil(ch.AccountCreated)

	err = sqlx.GetContext(ctx, q, &id, insertCreator, ch.ID, ch.Title, ch.Subscribers, created)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("insert creator %s: %w", ch.ID, err)
	}

	if _, err := q.ExecContext(ctx, updateCreator, ch.ID, ch.Title, ch.Subscribers, created); err != nil {
		return 0, false, fmt.Errorf("update creator %s: %w", ch.ID, err)
	}
	if err := sqlx.GetContext(ctx, q, &id, selectCreatorID, ch.ID); err != nil {
		return 0, false, fmt.Errorf("look up creator %s: %w", ch.ID, err)
	}
	return id, false, nil
}

// ListCreators returns every creator with its links, most subscribed first.
func ListCreators(ctx context.Context, q sqlx.QueryerContext) ([]models.CreatorWithLinks, error) {
	var creators []models.CreatorWithLinks
	err := sqlx.SelectContext(ctx, q, &creators, selectCreatorsWithLinks+" ORDER BY c.subscribers DESC, c.id")
	if err != nil {
		return nil, fmt.Errorf("list creators: %w", err)
	}
	return creators, nil
}

// GetCreatorByChannelID returns one creator with its links.
func GetCreatorByChannelID(ctx context.Context, q sqlx.QueryerContext, channelID string) (*models.CreatorWithLinks, error) {
	creator := &models.CreatorWithLinks{}
	err := sqlx.GetContext(ctx, q, creator, selectCreatorsWithLinks+" WHERE c.channel_id = $1", channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("creator %s: %w", channelID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get creator %s: %w", channelID, err)
	}
	return creator, nil
}

func dateOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
