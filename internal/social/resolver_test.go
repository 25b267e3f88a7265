package social

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yt-creators/internal/config"
	"yt-creators/internal/models"
	"yt-creators/internal/test"
	"yt-creators/internal/youtube"
)

type stubAPI struct {
	playlistErr error
	calls       []string
}

func (s *stubAPI) UploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	s.calls = append(s.calls, "uploads:"+channelID)
	if s.playlistErr != nil {
		return "", s.playlistErr
	}
	return "UU" + channelID, nil
}

func (s *stubAPI) LatestPlaylistVideoID(ctx context.Context, playlistID string) (string, error) {
	s.calls = append(s.calls, "latest:"+playlistID)
	return "vid", nil
}

func (s *stubAPI) VideoDescription(ctx context.Context, videoID string) (string, error) {
	s.calls = append(s.calls, "video:"+videoID)
	return "new vid! https://twitch.tv/fromvideo https://tiktok.com/@fromvideo", nil
}

func TestNewResolver(t *testing.T) {
	r, err := NewResolver(config.StrategyDescription, nil)
	require.NoError(t, err)
	assert.IsType(t, DescriptionResolver{}, r)

	r, err = NewResolver(config.StrategyLatestVideo, &stubAPI{})
	require.NoError(t, err)
	assert.IsType(t, &LatestVideoResolver{}, r)

	_, err = NewResolver(config.StrategyLatestVideo, nil)
	assert.ErrorIs(t, err, config.ErrConfiguration)

	_, err = NewResolver("banner", nil)
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestDescriptionResolver(t *testing.T) {
	ch := &models.Channel{ID: "UC1", Description: "twitch.tv/loose and https://twitter.com/strict"}
	links, err := DescriptionResolver{}.Resolve(context.Background(), ch)
	require.NoError(t, err)
	require.NotNil(t, links.Twitch)
	require.NotNil(t, links.Twitter)
	assert.Equal(t, "https://twitch.tv/loose", *links.Twitch)
	assert.Equal(t, "https://twitter.com/strict", *links.Twitter)
}

func TestLatestVideoResolverPrefersChannelDescription(t *testing.T) {
	api := &stubAPI{}
	ch := &models.Channel{ID: "UC1", Description: "https://twitch.tv/fromchannel"}

	links, err := NewLatestVideoResolver(api).Resolve(context.Background(), ch)
	require.NoError(t, err)
	assert.Equal(t, []string{"uploads:UC1", "latest:UUUC1", "video:vid"}, api.calls)
	require.NotNil(t, links.Twitch)
	assert.Equal(t, "https://twitch.tv/fromchannel", *links.Twitch)
	require.NotNil(t, links.TikTok)
	assert.Equal(t, "https://tiktok.com/@fromvideo", *links.TikTok)
}

func TestLatestVideoResolverFailsSoft(t *testing.T) {
	api := &stubAPI{playlistErr: errors.New("boom")}
	ch := &models.Channel{ID: "UC1", Description: "https://twitch.tv/fromchannel"}

	links, err := NewLatestVideoResolver(api).Resolve(context.Background(), ch)
	assert.ErrorIs(t, err, ErrPartialExtraction)
	assert.True(t, links.IsEmpty())
	assert.Equal(t, []string{"uploads:UC1"}, api.calls)
}

func TestLatestVideoResolverZeroUploads(t *testing.T) {
	fake := test.NewFakeYouTube(t)
	fake.Channels["UC-empty"] = test.FakeChannel{Uploads: "UU-empty"}

	client, err := youtube.NewClient(youtube.ClientConfig{BaseURL: fake.URL(), APIKey: "k", Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)

	links, err := NewLatestVideoResolver(client).Resolve(context.Background(), &models.Channel{ID: "UC-empty"})
	assert.ErrorIs(t, err, ErrPartialExtraction)
	assert.ErrorIs(t, err, youtube.ErrNotFound)
	assert.True(t, links.IsEmpty())
}
