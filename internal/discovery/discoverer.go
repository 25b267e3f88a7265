// Package discovery finds the channels behind the most popular videos of a
// category and hydrates them into full channel records.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"yt-creators/internal/models"
	"yt-creators/internal/youtube"
)

// ErrCategoryNotFound is returned when no category title matches.
var ErrCategoryNotFound = errors.New("category not found")

// API is the part of the YouTube client discovery needs.
type API interface {
	VideoCategories(ctx context.Context, regionCode string) ([]youtube.Category, error)
	MostPopularVideos(ctx context.Context, categoryID string, pageSize int, pageToken string) (youtube.VideoPage, error)
	Channel(ctx context.Context, id string) (*models.Channel, error)
}

// Options tunes a Discoverer.
type Options struct {
	RegionCode string
	PageSize   int
	// MaxPages bounds how many chart pages are read, whatever the cap.
	MaxPages          int
	SortBySubscribers bool
}

// Discoverer runs category resolution and channel discovery.
type Discoverer struct {
	api    API
	opts   Options
	logger *zap.Logger
}

func New(api API, opts Options, logger *zap.Logger) *Discoverer {
	return &Discoverer{api: api, opts: opts, logger: logger}
}

// ResolveCategoryID returns the id of the category whose title equals name,
// ignoring case.
func (d *Discoverer) ResolveCategoryID(ctx context.Context, name string) (string, error) {
	categories, err := d.api.VideoCategories(ctx, d.opts.RegionCode)
	if err != nil {
		return "", fmt.Errorf("list video categories: %w", err)
	}
	for _, c := range categories {
		if strings.EqualFold(c.Title, name) {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %q in region %s", ErrCategoryNotFound, name, d.opts.RegionCode)
}

// DiscoverChannelIDs walks the most-popular chart and returns the unique
// uploading channels in order of first sighting, at most limit of them.
func (d *Discoverer) DiscoverChannelIDs(ctx context.Context, categoryID string, limit int) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	pageToken := ""

	for page := 0; page < d.opts.MaxPages; page++ {
		result, err := d.api.MostPopularVideos(ctx, categoryID, d.opts.PageSize, pageToken)
		if err != nil {
			return nil, fmt.Errorf("fetch most popular page %d: %w", page+1, err)
		}
		for _, id := range result.ChannelIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}

		d.logger.Debug("chart page read",
			zap.Int("page", page+1),
			zap.Int("videos", len(result.ChannelIDs)),
			zap.Int("unique_channels", len(ids)))

		if len(ids) >= limit || result.NextPageToken == "" {
			break
		}
		pageToken = result.NextPageToken
	}

	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// DiscoverTopChannels discovers up to limit channels in a category and
// hydrates each one. Channels the API no longer knows are skipped.
func (d *Discoverer) DiscoverTopChannels(ctx context.Context, categoryID string, limit int) ([]*models.Channel, error) {
	ids, err := d.DiscoverChannelIDs(ctx, categoryID, limit)
	if err != nil {
		return nil, err
	}

	channels := make([]*models.Channel, 0, len(ids))
	for _, id := range ids {
		ch, err := d.api.Channel(ctx, id)
		if errors.Is(err, youtube.ErrNotFound) {
			d.logger.Warn("channel disappeared before hydration", zap.String("channel_id", id))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("hydrate channel %s: %w", id, err)
		}
		channels = append(channels, ch)
	}

	if d.opts.SortBySubscribers {
		sort.SliceStable(channels, func(i, j int) bool {
			return channels[i].Subscribers > channels[j].Subscribers
		})
	}

	d.logger.Info("channels discovered",
		zap.String("category_id", categoryID),
		zap.Int("unique_ids", len(ids)),
		zap.Int("hydrated", len(channels)))
	return channels, nil
}
