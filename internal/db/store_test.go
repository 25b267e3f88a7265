package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yt-creators/internal/config"
	"yt-creators/internal/models"
	"yt-creators/internal/test"
)

func strPtr(s string) *string { return &s }

var created = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)

func expectSchemaPresent(mock sqlmock.Sqlmock) {
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS creators`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`ALTER TABLE creator_social_links`).WillReturnError(&pq.Error{Code: "42P07"})
}

func expectInsertNew(mock sqlmock.Sqlmock, ch *models.Channel, id int64) {
	mock.ExpectQuery(`INSERT INTO creators`).
		WithArgs(ch.ID, ch.Title, ch.Subscribers, ch.AccountCreated).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
}

func expectUpdateExisting(mock sqlmock.Sqlmock, ch *models.Channel, id int64) {
	mock.ExpectQuery(`INSERT INTO creators`).
		WithArgs(ch.ID, ch.Title, ch.Subscribers, ch.AccountCreated).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`UPDATE creators`).
		WithArgs(ch.ID, ch.Title, ch.Subscribers, ch.AccountCreated).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM creators WHERE channel_id = $1`)).
		WithArgs(ch.ID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
}

func TestEnsureSchemaCreatesLinkTable(t *testing.T) {
	conn, mock := test.NewMockDB(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS creators`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`CREATE TABLE creator_social_links`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, EnsureSchema(context.Background(), conn, zap.NewNop()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaToleratesExistingConstraint(t *testing.T) {
	for _, code := range []string{"42P07", "42710"} {
		t.Run(code, func(t *testing.T) {
			conn, mock := test.NewMockDB(t)
			mock.ExpectExec(`CREATE TABLE IF NOT EXISTS creators`).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
			mock.ExpectExec(`ALTER TABLE creator_social_links`).WillReturnError(&pq.Error{Code: pq.ErrorCode(code)})

			require.NoError(t, EnsureSchema(context.Background(), conn, zap.NewNop()))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEnsureSchemaSurfacesOtherErrors(t *testing.T) {
	conn, mock := test.NewMockDB(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS creators`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`ALTER TABLE creator_social_links`).WillReturnError(&pq.Error{Code: "42501"})

	err := EnsureSchema(context.Background(), conn, zap.NewNop())
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestUpsertCreatorLooksUpIDAfterConflict(t *testing.T) {
	conn, mock := test.NewMockDB(t)
	ch := &models.Channel{ID: "UC1", Title: "Alpha", Subscribers: 11000000, AccountCreated: created}
	expectUpdateExisting(mock, ch, 7)

	id, inserted, err := UpsertCreator(context.Background(), conn, ch)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCreatorWithoutCreationDate(t *testing.T) {
	conn, mock := test.NewMockDB(t)
	ch := &models.Channel{ID: "UC1", Title: "Alpha", Subscribers: 5}
	mock.ExpectQuery(`INSERT INTO creators`).
		WithArgs("UC1", "Alpha", int64(5), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	id, inserted, err := UpsertCreator(context.Background(), conn, ch)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(3), id)
}

func TestPersistBatchTwoRuns(t *testing.T) {
	conn, mock := test.NewMockDB(t)
	store := NewStore(conn, config.PersistBatch, zap.NewNop())

	first := &models.Channel{ID: "UC1", Title: "Alpha", Subscribers: 10000000, AccountCreated: created}
	second := &models.Channel{ID: "UC1", Title: "Alpha", Subscribers: 12000000, AccountCreated: created}

	// first run inserts
	expectSchemaPresent(mock)
	mock.ExpectBegin()
	expectInsertNew(mock, first, 1)
	mock.ExpectExec(`INSERT INTO creator_social_links`).
		WithArgs(int64(1), nil, "https://twitch.tv/alpha", nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	// second run updates in place and reuses creator id 1
	expectSchemaPresent(mock)
	mock.ExpectBegin()
	expectUpdateExisting(mock, second, 1)
	mock.ExpectExec(`INSERT INTO creator_social_links`).
		WithArgs(int64(1), nil, "https://twitch.tv/alpha", "https://twitter.com/alpha", nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := store.Persist(context.Background(), []Entry{{Channel: first, Links: models.SocialLinks{Twitch: strPtr("https://twitch.tv/alpha")}}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	res, err = store.Persist(context.Background(), []Entry{{Channel: second, Links: models.SocialLinks{
		Twitch:  strPtr("https://twitch.tv/alpha"),
		Twitter: strPtr("https://twitter.com/alpha"),
	}}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 1, res.Updated)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistBatchIsAllOrNothing(t *testing.T) {
	conn, mock := test.NewMockDB(t)
	store := NewStore(conn, config.PersistBatch, zap.NewNop())

	a := &models.Channel{ID: "A", Title: "Alpha", Subscribers: 10, AccountCreated: created}
	b := &models.Channel{ID: "B", Title: "Beta", Subscribers: 5, AccountCreated: created}

	expectSchemaPresent(mock)
	mock.ExpectBegin()
	expectInsertNew(mock, a, 1)
	mock.ExpectExec(`INSERT INTO creator_social_links`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`INSERT INTO creators`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := store.Persist(context.Background(), []Entry{{Channel: a}, {Channel: b}})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistPerChannelIsolatesFailures(t *testing.T) {
	conn, mock := test.NewMockDB(t)
	store := NewStore(conn, config.PersistPerChannel, zap.NewNop())

	a := &models.Channel{ID: "A", Title: "Alpha", Subscribers: 10, AccountCreated: created}
	b := &models.Channel{ID: "B", Title: "Beta", Subscribers: 5, AccountCreated: created}

	expectSchemaPresent(mock)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO creators`).WillReturnError(errors.New("value too long"))
	mock.ExpectRollback()
	mock.ExpectBegin()
	expectInsertNew(mock, b, 2)
	mock.ExpectExec(`INSERT INTO creator_social_links`).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	res, err := store.Persist(context.Background(), []Entry{{Channel: a}, {Channel: b}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "A", res.Failed[0].ChannelID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistEmptyBatchOnlyEnsuresSchema(t *testing.T) {
	conn, mock := test.NewMockDB(t)
	expectSchemaPresent(mock)

	res, err := NewStore(conn, config.PersistBatch, zap.NewNop()).Persist(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, &PersistResult{}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCreators(t *testing.T) {
	conn, mock := test.NewMockDB(t)
	rows := sqlmock.NewRows([]string{"id", "channel_id", "name", "subscribers", "account_created",
		"discord", "twitch", "twitter", "patreon", "facebook", "instagram", "tiktok", "other"}).
		AddRow(1, "A", "Alpha", 10, created, nil, "https://twitch.tv/a", nil, nil, nil, nil, nil, nil).
		AddRow(2, "B", "Beta", 5, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	mock.ExpectQuery(`SELECT c.id, c.channel_id .* ORDER BY c.subscribers DESC`).WillReturnRows(rows)

	creators, err := ListCreators(context.Background(), conn)
	require.NoError(t, err)
	require.Len(t, creators, 2)
	assert.Equal(t, "Alpha", creators[0].Name)
	require.NotNil(t, creators[0].Twitch)
	assert.Equal(t, "https://twitch.tv/a", *creators[0].Twitch)
	assert.Nil(t, creators[1].AccountCreated)
	assert.True(t, creators[1].SocialLinks.IsEmpty())
}

func TestGetCreatorByChannelIDNotFound(t *testing.T) {
	conn, mock := test.NewMockDB(t)
	mock.ExpectQuery(`WHERE c.channel_id = \$1`).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := GetCreatorByChannelID(context.Background(), conn, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
