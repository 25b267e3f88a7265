package social

import (
	"context"
	"errors"
	"fmt"

	"yt-creators/internal/config"
	"yt-creators/internal/models"
)

// ErrPartialExtraction marks a per-channel lookup chain that failed. The
// channel still gets persisted, with an empty link set.
var ErrPartialExtraction = errors.New("social link extraction failed")

// Resolver turns a hydrated channel into its social link set.
type Resolver interface {
	Resolve(ctx context.Context, ch *models.Channel) (models.SocialLinks, error)
}

// LatestVideoAPI is the part of the YouTube client the latest-video
// strategy needs.
type LatestVideoAPI interface {
	UploadsPlaylistID(ctx context.Context, channelID string) (string, error)
	LatestPlaylistVideoID(ctx context.Context, playlistID string) (string, error)
	VideoDescription(ctx context.Context, videoID string) (string, error)
}

// NewResolver picks the strategy named by a LINK_STRATEGY value.
func NewResolver(strategy string, api LatestVideoAPI) (Resolver, error) {
	switch strategy {
	case config.StrategyDescription:
		return DescriptionResolver{}, nil
	case config.StrategyLatestVideo:
		if api == nil {
			return nil, fmt.Errorf("%w: latest-video strategy needs an api client", config.ErrConfiguration)
		}
		return NewLatestVideoResolver(api), nil
	default:
		return nil, fmt.Errorf("%w: unknown link strategy %q", config.ErrConfiguration, strategy)
	}
}

// DescriptionResolver scans only the channel's own description and accepts
// links written without a scheme.
type DescriptionResolver struct{}

func (DescriptionResolver) Resolve(_ context.Context, ch *models.Channel) (models.SocialLinks, error) {
	return ExtractLoose(ch.Description).SocialLinks(), nil
}

// LatestVideoResolver scans the channel description followed by the
// description of the channel's most recent upload.
type LatestVideoResolver struct {
	api LatestVideoAPI
}

func NewLatestVideoResolver(api LatestVideoAPI) *LatestVideoResolver {
	return &LatestVideoResolver{api: api}
}

// Resolve never aborts the caller's run: any failure in the three lookups
// yields an empty link set and an error wrapping ErrPartialExtraction.
func (r *LatestVideoResolver) Resolve(ctx context.Context, ch *models.Channel) (models.SocialLinks, error) {
	videoDescription, err := r.latestVideoDescription(ctx, ch.ID)
	if err != nil {
		return models.SocialLinks{}, fmt.Errorf("%w: channel %s: %w", ErrPartialExtraction, ch.ID, err)
	}
	return Extract(ch.Description + "\n" + videoDescription).SocialLinks(), nil
}

func (r *LatestVideoResolver) latestVideoDescription(ctx context.Context, channelID string) (string, error) {
	playlistID, err := r.api.UploadsPlaylistID(ctx, channelID)
	if err != nil {
		return "", fmt.Errorf("get uploads playlist: %w", err)
	}
	videoID, err := r.api.LatestPlaylistVideoID(ctx, playlistID)
	if err != nil {
		return "", fmt.Errorf("get latest upload: %w", err)
	}
	description, err := r.api.VideoDescription(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("get video %s: %w", videoID, err)
	}
	return description, nil
}
