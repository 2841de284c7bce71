package database

import "errors"

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoCleanerAssigned is returned when a listing has no assignment at
	// all. It is a configuration gap, not a mechanism fault: the whole
	// listing is skipped for the pass.
	ErrNoCleanerAssigned = errors.New("no cleaner assigned")

	// ErrConcurrentModification is returned when a versioned update matched
	// no row, meaning another sync run got there first.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrDuplicateBooking is returned when an insert hits the pending-row
	// uniqueness constraint on booking_uid.
	ErrDuplicateBooking = errors.New("pending schedule item already exists for booking")
)
