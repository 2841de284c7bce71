package models

import "time"

// DefaultCheckoutTime is the checkout time assumed for Airbnb bookings.
const DefaultCheckoutTime = "11:00"

// Booking is one reservation parsed from a calendar feed. Bookings are
// ephemeral: they exist only for the duration of a sync pass and are
// reconciled into schedule items.
type Booking struct {
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	GuestName   string    `json:"guest_name,omitempty"`
	CheckIn     time.Time `json:"check_in"`
	CheckOut    time.Time `json:"check_out"`
	Description string    `json:"description,omitempty"`
}
