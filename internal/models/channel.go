package models

import "time"

// Channel is a YouTube channel as hydrated from the Data API.
type Channel struct {
	ID          string
	Title       string
	Description string
	Subscribers int64
	// AccountCreated is the channel's publishedAt truncated to its date.
	AccountCreated time.Time
}
