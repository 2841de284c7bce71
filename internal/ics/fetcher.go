package ics

import (
	"context"
	"io"
	"net/http"
	"time"

	"hostsweep/internal/models"

	"github.com/rs/zerolog"
)

// maxFeedBytes caps the response body; Airbnb feeds are a few KB each.
const maxFeedBytes = 5 << 20

// Fetcher retrieves ICS feeds over HTTP with a bounded timeout.
type Fetcher struct {
	client *http.Client
	logger *zerolog.Logger
}

func NewFetcher(timeout time.Duration, logger *zerolog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Fetch downloads the feed body. Any transport or HTTP-status failure is a
// FetchError scoped to the one listing being synced.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	return body, nil
}

// FetchBookings is the fetch+parse pipeline used by the orchestrator.
func (f *Fetcher) FetchBookings(ctx context.Context, url string) ([]models.Booking, error) {
	body, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	bookings, err := Parse(body)
	if err != nil {
		return nil, err
	}

	f.logger.Debug().Int("bookings", len(bookings)).Str("url", url).Msg("parsed calendar feed")
	return bookings, nil
}
