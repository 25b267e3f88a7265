package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"yt-creators/internal/models"
)

// patreon and other are reserved for manual curation and left untouched.
const upsertSocialLinks = `
	INSERT INTO creator_social_links (creator_id, discord, twitch, twitter, instagram, tiktok, facebook)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (creator_id) DO UPDATE SET
		discord = EXCLUDED.discord,
		twitch = EXCLUDED.twitch,
		twitter = EXCLUDED.twitter,
		instagram = EXCLUDED.instagram,
		tiktok = EXCLUDED.tiktok,
		facebook = EXCLUDED.facebook
`

// UpsertSocialLinks writes the single link row owned by a creator.
func UpsertSocialLinks(ctx context.Context, q sqlx.ExecerContext, creatorID int64, links models.SocialLinks) error {
	_, err := q.ExecContext(ctx, upsertSocialLinks,
		creatorID, links.Discord, links.Twitch, links.Twitter, links.Instagram, links.TikTok, links.Facebook)
	if err != nil {
		return fmt.Errorf("upsert social links for creator %d: %w", creatorID, err)
	}
	return nil
}
