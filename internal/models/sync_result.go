package models

import "time"

const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// ReasonNoCleaner is the skip reason recorded when a feed-enabled listing
// has no cleaner assigned.
const ReasonNoCleaner = "No cleaner assigned"

// ListingSyncResult is the per-listing outcome of one sync pass.
type ListingSyncResult struct {
	ListingID      string `json:"listingId"`
	ListingName    string `json:"listingName"`
	Status         string `json:"status"` // success, error, skipped
	Reason         string `json:"reason,omitempty"`
	Error          string `json:"error,omitempty"`
	ItemsCreated   int    `json:"itemsCreated"`
	ItemsUpdated   int    `json:"itemsUpdated"`
	ItemsCancelled int    `json:"itemsCancelled"`
	TotalBookings  int    `json:"totalBookings"`
}

type SyncSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// SyncReport aggregates one orchestrator run. Partial failure is a normal
// outcome: the report always covers every listing that was attempted.
type SyncReport struct {
	Summary  SyncSummary         `json:"summary"`
	Results  []ListingSyncResult `json:"results"`
	SyncedAt time.Time           `json:"syncedAt"`
}

// Add folds a per-listing result into the report.
func (r *SyncReport) Add(res ListingSyncResult) {
	r.Results = append(r.Results, res)
	r.Summary.Total++
	switch res.Status {
	case ResultSuccess:
		r.Summary.Successful++
	case ResultError:
		r.Summary.Failed++
	case ResultSkipped:
		r.Summary.Skipped++
	}
}
