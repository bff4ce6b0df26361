package models

import "time"

// Category distinguishes event-bound links from free-standing ones.
type Category string

const (
	CategoryCustom Category = "custom"
	CategoryEvent  Category = "event"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryCustom || c == CategoryEvent
}

// ShortLink maps an immutable short code onto a mutable target.
type ShortLink struct {
	ID             int64      `json:"id,omitempty"`
	Code           string     `json:"shortCode"`
	Target         string     `json:"originalContent"`
	Visits         int64      `json:"visits"`
	CreatedBy      *string    `json:"createdBy,omitempty"`
	Category       Category   `json:"eventType"`
	EventRef       *string    `json:"eventRef,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	LastResolvedAt *time.Time `json:"lastScannedAt,omitempty"`
}
