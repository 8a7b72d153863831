package domain

import "time"

// MaxTweetLength bounds a tweet body in characters.
const MaxTweetLength = 280

// Tweet is a short text post owned by exactly one user.
type Tweet struct {
	ID        int64
	Body      string
	UserID    int64
	CreatedAt time.Time
	UpdatedAt time.Time

	// Author is filled when the tweet is loaded together with its owner.
	Author *Author
}

// Author is the summary of a user shown next to each tweet.
type Author struct {
	ID     int64
	Name   string
	Email  string
	Avatar Avatar
}
