package models

// SocialLinks is the one-per-creator set of social network URLs.
// A nil field means no link was found for that platform.
type SocialLinks struct {
	Discord   *string `db:"discord" json:"discord"`
	Twitch    *string `db:"twitch" json:"twitch"`
	Twitter   *string `db:"twitter" json:"twitter"`
	Patreon   *string `db:"patreon" json:"patreon"`
	Facebook  *string `db:"facebook" json:"facebook"`
	Instagram *string `db:"instagram" json:"instagram"`
	TikTok    *string `db:"tiktok" json:"tiktok"`
	Other     *string `db:"other" json:"other"`
}

// IsEmpty reports whether no platform has a link.
func (s SocialLinks) IsEmpty() bool {
	for _, v := range []*string{s.Discord, s.Twitch, s.Twitter, s.Patreon, s.Facebook, s.Instagram, s.TikTok, s.Other} {
		if v != nil {
			return false
		}
	}
	return true
}
