package models

import "time"

// Listing is one property managed by an owner. ICSURL is empty until the
// owner connects their Airbnb calendar feed.
type Listing struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Name      string     `json:"name"`
	ICSURL    string     `json:"ics_url,omitempty"`
	LastSync  *time.Time `json:"last_sync,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// HasFeed reports whether the listing has a calendar feed connected.
func (l *Listing) HasFeed() bool {
	return l.ICSURL != ""
}

type Cleaner struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Assignment links a cleaner to a listing. The earliest assignment acts as
// the listing's default cleaner for feed-created schedule items.
type Assignment struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listing_id"`
	CleanerID string    `json:"cleaner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SyncAccount marks an owner as eligible for cron-mode sync runs.
type SyncAccount struct {
	OwnerID   string    `json:"owner_id"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}
