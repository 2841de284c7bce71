package ics

import "fmt"

// FetchError indicates the feed could not be retrieved over HTTP. It is
// scoped to a single listing and never aborts a batch.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch calendar feed: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("fetch calendar feed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError indicates the feed body was not usable iCalendar data.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse calendar feed: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
