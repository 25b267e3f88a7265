// Package youtube is a small client for the parts of the YouTube Data API v3
// the creator pipeline reads: categories, the most-popular chart, channels,
// playlist items and videos.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"yt-creators/internal/models"
)

var (
	// ErrRemoteUnavailable covers transport failures, non-2xx answers and
	// bodies that cannot be decoded.
	ErrRemoteUnavailable = errors.New("youtube api unavailable")
	// ErrNotFound is returned when a lookup that must yield one item yields none.
	ErrNotFound = errors.New("youtube resource not found")
)

const (
	defaultTimeout = 30 * time.Second
	// maxErrorBody bounds how much of a failed response ends up in the error.
	maxErrorBody = 512
)

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// QPS paces outgoing requests; zero disables pacing.
	QPS float64
	// HTTPClient overrides the default client (Timeout is then ignored).
	HTTPClient *http.Client
}

// Client talks to the Data API with a single pre-shared key.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient validates cfg and returns a ready Client.
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("youtube api key is required")
	}
	base := cfg.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid youtube base url %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		baseURL: u,
		apiKey:  cfg.APIKey,
		http:    httpClient,
		logger:  logger,
	}
	if cfg.QPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.QPS), 1)
	}
	return c, nil
}

// VideoCategories lists the category vocabulary for a region.
func (c *Client) VideoCategories(ctx context.Context, regionCode string) ([]Category, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("regionCode", regionCode)

	var resp categoryListResponse
	if err := c.get(ctx, "videoCategories", params, &resp); err != nil {
		return nil, err
	}

	categories := make([]Category, 0, len(resp.Items))
	for _, item := range resp.Items {
		categories = append(categories, Category{ID: item.ID, Title: item.Snippet.Title})
	}
	return categories, nil
}

// MostPopularVideos fetches one page of the most-popular chart in a category.
func (c *Client) MostPopularVideos(ctx context.Context, categoryID string, pageSize int, pageToken string) (VideoPage, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("chart", "mostPopular")
	params.Set("videoCategoryId", categoryID)
	params.Set("maxResults", strconv.Itoa(pageSize))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var resp videoListResponse
	if err := c.get(ctx, "videos", params, &resp); err != nil {
		return VideoPage{}, err
	}

	page := VideoPage{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		if item.Snippet.ChannelID == "" {
			continue
		}
		page.ChannelIDs = append(page.ChannelIDs, item.Snippet.ChannelID)
	}
	return page, nil
}

// Channel hydrates a channel id into its snippet and statistics.
func (c *Client) Channel(ctx context.Context, id string) (*models.Channel, error) {
	params := url.Values{}
	params.Set("part", "snippet,statistics,brandingSettings")
	params.Set("id", id)

	var resp channelListResponse
	if err := c.get(ctx, "channels", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: channel %s", ErrNotFound, id)
	}

	item := resp.Items[0]
	subscribers, err := parseSubscriberCount(item.Statistics.SubscriberCount, item.Statistics.HiddenSubscriberCount)
	if err != nil {
		return nil, fmt.Errorf("%w: channel %s: %v", ErrRemoteUnavailable, id, err)
	}
	created, err := parseCreationDate(item.Snippet.PublishedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: channel %s: %v", ErrRemoteUnavailable, id, err)
	}

	channelID := item.ID
	if channelID == "" {
		channelID = id
	}
	return &models.Channel{
		ID:             channelID,
		Title:          item.Snippet.Title,
		Description:    item.Snippet.Description,
		Subscribers:    subscribers,
		AccountCreated: created,
	}, nil
}

// UploadsPlaylistID returns the id of the playlist holding a channel's uploads.
func (c *Client) UploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	params := url.Values{}
	params.Set("part", "contentDetails")
	params.Set("id", channelID)

	var resp channelListResponse
	if err := c.get(ctx, "channels", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 || resp.Items[0].ContentDetails.RelatedPlaylists.Uploads == "" {
		return "", fmt.Errorf("%w: uploads playlist of channel %s", ErrNotFound, channelID)
	}
	return resp.Items[0].ContentDetails.RelatedPlaylists.Uploads, nil
}

// LatestPlaylistVideoID returns the video id of the first item of a playlist.
func (c *Client) LatestPlaylistVideoID(ctx context.Context, playlistID string) (string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("playlistId", playlistID)
	params.Set("maxResults", "1")

	var resp playlistItemListResponse
	if err := c.get(ctx, "playlistItems", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet.ResourceID.VideoID == "" {
		return "", fmt.Errorf("%w: items of playlist %s", ErrNotFound, playlistID)
	}
	return resp.Items[0].Snippet.ResourceID.VideoID, nil
}

// VideoDescription returns a video's description.
func (c *Client) VideoDescription(ctx context.Context, videoID string) (string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("id", videoID)

	var resp videoListResponse
	if err := c.get(ctx, "videos", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("%w: video %s", ErrNotFound, videoID)
	}
	return resp.Items[0].Snippet.Description, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrRemoteUnavailable, endpoint, err)
		}
	}

	params.Set("key", c.apiKey)
	u := c.baseURL.ResolveReference(&url.URL{Path: endpoint})
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("youtube request", zap.String("endpoint", endpoint), zap.String("id", params.Get("id")))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRemoteUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s returned %s: %s", ErrRemoteUnavailable, endpoint, resp.Status, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrRemoteUnavailable, endpoint, err)
	}
	return nil
}

func parseSubscriberCount(raw string, hidden bool) (int64, error) {
	if hidden || raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("subscriber count %q: %w", raw, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative subscriber count %d", n)
	}
	return n, nil
}

// parseCreationDate keeps the date component of an RFC 3339 timestamp as the
// API reports it.
func parseCreationDate(publishedAt string) (time.Time, error) {
	if publishedAt == "" {
		return time.Time{}, nil
	}
	day, _, _ := strings.Cut(publishedAt, "T")
	t, err := time.Parse(time.DateOnly, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("publishedAt %q: %w", publishedAt, err)
	}
	return t, nil
}
