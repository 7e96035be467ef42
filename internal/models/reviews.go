package models

import "time"

// A single normalized review as returned to widgets. Time is unix millis.
type Review struct {
	AuthorName              string `json:"authorName"`
	Rating                  int    `json:"rating"`
	Text                    string `json:"text"`
	Time                    int64  `json:"time"`
	AuthorPhotoURL          string `json:"authorPhotoUrl,omitempty"`
	RelativeTimeDescription string `json:"relativeTimeDescription,omitempty"`
}

// The cached payload for one place, as fetched from the provider and stored
// in KV. FetchedAt drives the tier freshness check in the handler.
type PlaceReviews struct {
	PlaceID      string    `json:"placeId"`
	BusinessName string    `json:"businessName"`
	Rating       float64   `json:"rating"`
	TotalReviews int       `json:"totalReviews"`
	Reviews      []Review  `json:"reviews"`
	FetchedAt    time.Time `json:"fetchedAt"`
}

// Returns a copy with the review list truncated to max entries. A zero or
// negative max leaves the list untouched.
func (p *PlaceReviews) Capped(max int) *PlaceReviews {
	if max <= 0 || len(p.Reviews) <= max {
		return p
	}
	capped := *p
	capped.Reviews = p.Reviews[:max]
	return &capped
}
