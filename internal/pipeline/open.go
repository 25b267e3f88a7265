package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"yt-creators/internal/config"
	"yt-creators/internal/db"
	"yt-creators/internal/discovery"
	"yt-creators/internal/social"
	"yt-creators/internal/youtube"
)

// Open validates cfg, connects to the store and builds a Pipeline. The
// returned close function releases the connection and must be called on
// every exit path.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Pipeline, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	client, err := youtube.NewClient(youtube.ClientConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.HTTPTimeout,
		QPS:     cfg.QPS,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}

	resolver, err := social.NewResolver(cfg.LinkStrategy, client)
	if err != nil {
		return nil, nil, err
	}

	conn, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	// One pipeline, one connection.
	conn.SetMaxOpenConns(1)

	discoverer := discovery.New(client, discovery.Options{
		RegionCode:        cfg.RegionCode,
		PageSize:          cfg.PageSize,
		MaxPages:          cfg.MaxPages,
		SortBySubscribers: cfg.SortBySubscribers,
	}, logger)
	store := db.NewStore(conn, cfg.PersistMode, logger)

	return New(cfg, discoverer, resolver, store, logger), conn.Close, nil
}
