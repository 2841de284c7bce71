package reconcile

import (
	"time"

	"hostsweep/internal/models"
)

// Target identifies the listing a plan is computed for and the cleaner new
// items are assigned to. The orchestrator resolves the cleaner before the
// engine runs; a listing without one is skipped entirely.
type Target struct {
	ListingID string
	CleanerID string
}

// Completion marks a pending item whose checkout has elapsed.
type Completion struct {
	ItemID  string
	Version int64
}

// Cancellation marks a feed-sourced item that vanished from the feed.
// Marker is appended to the item's notes, never overwriting them.
type Cancellation struct {
	ItemID  string
	Version int64
	Marker  string
}

// Update carries the replacement fields for an item whose checkout moved.
// When Extended is true the gateway also sets is_extended, increments
// extension_count and overwrites extension_notes with ExtensionNotes.
type Update struct {
	ItemID         string
	Version        int64
	GuestName      string
	CheckIn        time.Time
	CheckOut       time.Time
	CheckoutTime   string
	Notes          string
	Extended       bool
	ExtensionNotes string
}

// Plan is the full mutation set for one listing and one sync pass. The
// engine is pure: it never touches the store, it only decides.
type Plan struct {
	Completions   []Completion
	Cancellations []Cancellation
	Inserts       []models.ScheduleItem
	Updates       []Update
	TotalBookings int
}

// Empty reports whether the pass converged with nothing to write.
func (p Plan) Empty() bool {
	return len(p.Completions) == 0 && len(p.Cancellations) == 0 &&
		len(p.Inserts) == 0 && len(p.Updates) == 0
}
