package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yt-creators/internal/test"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{BaseURL: baseURL, APIKey: "test-key", Timeout: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(ClientConfig{BaseURL: "https://example.com/"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewClient(ClientConfig{BaseURL: "not a url", APIKey: "k"}, zap.NewNop())
	assert.Error(t, err)

	c, err := NewClient(ClientConfig{BaseURL: "https://example.com/api", APIKey: "k", QPS: 2}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "/api/", c.baseURL.Path)
	assert.NotNil(t, c.limiter)
}

func TestVideoCategories(t *testing.T) {
	fake := test.NewFakeYouTube(t)
	fake.Categories["20"] = "Gaming"

	c := newTestClient(t, fake.URL())
	categories, err := c.VideoCategories(context.Background(), "US")
	require.NoError(t, err)
	assert.Equal(t, []Category{{ID: "20", Title: "Gaming"}}, categories)
}

func TestMostPopularVideos(t *testing.T) {
	fake := test.NewFakeYouTube(t)
	fake.Pages[""] = test.FakePage{ChannelIDs: []string{"A", "B"}, Next: "p2"}
	fake.Pages["p2"] = test.FakePage{ChannelIDs: []string{"C"}}

	c := newTestClient(t, fake.URL())
	page, err := c.MostPopularVideos(context.Background(), "20", 50, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, page.ChannelIDs)
	assert.Equal(t, "p2", page.NextPageToken)

	page, err = c.MostPopularVideos(context.Background(), "20", 50, "p2")
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, page.ChannelIDs)
	assert.Empty(t, page.NextPageToken)
}

func TestChannel(t *testing.T) {
	fake := test.NewFakeYouTube(t)
	fake.Channels["UC1"] = test.FakeChannel{
		Title:       "Chan",
		Description: "hello",
		Subscribers: "10000000",
		PublishedAt: "2012-03-04T05:06:07Z",
	}
	fake.Channels["UC2"] = test.FakeChannel{Title: "Hidden"}
	fake.Channels["UC3"] = test.FakeChannel{Title: "Broken", Subscribers: "lots"}

	c := newTestClient(t, fake.URL())

	ch, err := c.Channel(context.Background(), "UC1")
	require.NoError(t, err)
	assert.Equal(t, "UC1", ch.ID)
	assert.Equal(t, "Chan", ch.Title)
	assert.Equal(t, "hello", ch.Description)
	assert.Equal(t, int64(10000000), ch.Subscribers)
	assert.Equal(t, time.Date(2012, 3, 4, 0, 0, 0, 0, time.UTC), ch.AccountCreated)

	ch, err = c.Channel(context.Background(), "UC2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), ch.Subscribers)
	assert.True(t, ch.AccountCreated.IsZero())

	_, err = c.Channel(context.Background(), "UC3")
	assert.ErrorIs(t, err, ErrRemoteUnavailable)

	_, err = c.Channel(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestVideoChain(t *testing.T) {
	fake := test.NewFakeYouTube(t)
	fake.Channels["UC1"] = test.FakeChannel{Uploads: "UU1"}
	fake.Channels["UC2"] = test.FakeChannel{}
	fake.Playlists["UU1"] = "vid1"
	fake.Videos["vid1"] = "latest video"

	c := newTestClient(t, fake.URL())
	ctx := context.Background()

	playlist, err := c.UploadsPlaylistID(ctx, "UC1")
	require.NoError(t, err)
	assert.Equal(t, "UU1", playlist)

	videoID, err := c.LatestPlaylistVideoID(ctx, playlist)
	require.NoError(t, err)
	assert.Equal(t, "vid1", videoID)

	desc, err := c.VideoDescription(ctx, videoID)
	require.NoError(t, err)
	assert.Equal(t, "latest video", desc)

	_, err = c.UploadsPlaylistID(ctx, "UC2")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.LatestPlaylistVideoID(ctx, "UU-empty")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.VideoDescription(ctx, "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoteFailures(t *testing.T) {
	fake := test.NewFakeYouTube(t)
	fake.FailPaths["videoCategories"] = true

	c := newTestClient(t, fake.URL())
	_, err := c.VideoCategories(context.Background(), "US")
	assert.ErrorIs(t, err, ErrRemoteUnavailable)

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer garbage.Close()

	c = newTestClient(t, garbage.URL)
	_, err = c.MostPopularVideos(context.Background(), "20", 50, "")
	assert.ErrorIs(t, err, ErrRemoteUnavailable)
}

func TestAPIKeyIsSentOnEveryCall(t *testing.T) {
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.URL.Query().Get("key"))
		w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ctx := context.Background()
	_, _ = c.VideoCategories(ctx, "US")
	_, _ = c.MostPopularVideos(ctx, "20", 10, "tok")
	_, _ = c.Channel(ctx, "UC1")

	assert.Equal(t, []string{"test-key", "test-key", "test-key"}, keys)
}
