package models

import "time"

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	SourceAirbnb          = "airbnb"
	SourceManual          = "manual"
	SourceManualRecurring = "manual_recurring"
)

// ScheduleItem is the authoritative record of one cleaning-relevant booking.
// Items are never deleted; cancellations and completions are terminal status
// transitions and history is retained in notes.
type ScheduleItem struct {
	ID               string     `json:"id"`
	ListingID        string     `json:"listing_id"`
	CleanerID        string     `json:"cleaner_id"`
	BookingUID       string     `json:"booking_uid"`
	GuestName        string     `json:"guest_name,omitempty"`
	CheckIn          time.Time  `json:"check_in"`
	CheckOut         time.Time  `json:"check_out"`
	CheckoutTime     string     `json:"checkout_time"`
	Notes            string     `json:"notes,omitempty"`
	Status           string     `json:"status"` // pending, completed, cancelled
	Source           string     `json:"source"` // airbnb, manual, manual_recurring
	OriginalCheckIn  time.Time  `json:"original_check_in"`
	OriginalCheckOut time.Time  `json:"original_check_out"`
	IsExtended       bool       `json:"is_extended"`
	ExtensionCount   int64      `json:"extension_count"`
	ExtensionNotes   string     `json:"extension_notes,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	Version          int64      `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Terminal reports whether the item can no longer change status.
func (i *ScheduleItem) Terminal() bool {
	return i.Status == StatusCompleted || i.Status == StatusCancelled
}
