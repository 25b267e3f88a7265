package models

import "time"

// Creator represents a row in the creators table.
type Creator struct {
	ID             int64      `db:"id" json:"id"`
	ChannelID      string     `db:"channel_id" json:"channel_id"`
	Name           string     `db:"name" json:"name"`
	Subscribers    int64      `db:"subscribers" json:"subscribers"`
	AccountCreated *time.Time `db:"account_created" json:"account_created"`
}

// CreatorWithLinks is a creator joined with its social link row.
type CreatorWithLinks struct {
	Creator
	SocialLinks
}
