package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hostsweep/internal/config"
	"hostsweep/internal/database"
	"hostsweep/internal/events"
	"hostsweep/internal/ics"
	"hostsweep/internal/models"
	"hostsweep/internal/repository"
	"hostsweep/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey   = "test-key"
	testAPIExtra = "test-extra"
	testCronKey  = "cron-secret"
)

func feedBody(uids ...string) string {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//Airbnb Inc//EN\r\n")
	checkIn := time.Now().UTC().AddDate(0, 0, 7)
	for i, uid := range uids {
		out := checkIn.AddDate(0, 0, 3+i)
		fmt.Fprintf(&b, "BEGIN:VEVENT\r\nUID:%s\r\nDTSTART;VALUE=DATE:%s\r\nDTEND;VALUE=DATE:%s\r\nSUMMARY:Guest %d (ABC123)\r\nEND:VEVENT\r\n",
			uid, checkIn.Format("20060102"), out.Format("20060102"), i)
	}
	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}

type testEnv struct {
	http *httptest.Server
	db   *database.DB
}

func newTestEnv(t *testing.T, feed string) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		io.WriteString(w, feed)
	}))
	t.Cleanup(feedSrv.Close)

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	listing := &models.Listing{OwnerID: "owner-1", Name: "Beach House", ICSURL: feedSrv.URL}
	require.NoError(t, db.CreateListing(ctx, listing))
	cleaner := &models.Cleaner{OwnerID: "owner-1", Name: "Dana"}
	require.NoError(t, db.CreateCleaner(ctx, cleaner))
	require.NoError(t, db.CreateAssignment(ctx, &models.Assignment{ListingID: listing.ID, CleanerID: cleaner.ID}))
	require.NoError(t, db.UpsertSyncAccount(ctx, "owner-1", true))

	fetcher := ics.NewFetcher(5*time.Second, &logger)
	stateRepo := repository.NewMemoryStateRepository(time.Hour)
	svc := service.NewSyncService(db, fetcher, events.NewEventBus(), nil, stateRepo, &logger)

	cfg := config.APIConfig{
		Enabled:    true,
		CronSecret: testCronKey,
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{
				{Key: testAPIKey, Extra: testAPIExtra, Name: "test", OwnerID: "owner-1"},
			},
		},
	}

	srv := NewServer(cfg, svc, stubExporter{}, db, &logger)
	ts := httptest.NewServer(srv.server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{http: ts, db: db}
}

type stubExporter struct{}

func (stubExporter) WriteSchedule(w io.Writer, items []models.ScheduleItem, from, to time.Time) error {
	_, err := fmt.Fprintf(w, "items:%d", len(items))
	return err
}

func (e *testEnv) request(t *testing.T, method, path string, body string, authed bool) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, e.http.URL+path, reader)
	require.NoError(t, err)
	if authed {
		req.Header.Set("X-API-Key", testAPIKey)
		req.Header.Set("X-API-Extra", testAPIExtra)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeSync(t *testing.T, resp *http.Response) syncResponse {
	t.Helper()
	defer resp.Body.Close()
	var out syncResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestSyncEndpoint(t *testing.T) {
	env := newTestEnv(t, feedBody("res-1", "res-2"))

	resp := env.request(t, http.MethodPost, "/api/v1/sync", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeSync(t, resp)
	assert.True(t, out.Success)
	assert.Equal(t, models.SyncSummary{Total: 1, Successful: 1}, out.Summary)
	require.Len(t, out.Results, 1)
	assert.Equal(t, 2, out.Results[0].ItemsCreated)
	assert.Equal(t, 2, out.Results[0].TotalBookings)

	// A second run is idempotent.
	resp = env.request(t, http.MethodPost, "/api/v1/sync", "", true)
	out = decodeSync(t, resp)
	assert.Equal(t, 0, out.Results[0].ItemsCreated)
}

func TestSyncEndpoint_RequiresAuth(t *testing.T) {
	env := newTestEnv(t, feedBody("res-1"))

	resp := env.request(t, http.MethodPost, "/api/v1/sync", "", false)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLastSyncEndpoint(t *testing.T) {
	env := newTestEnv(t, feedBody("res-1"))

	resp := env.request(t, http.MethodGet, "/api/v1/sync/last", "", true)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no sync has run yet")

	env.request(t, http.MethodPost, "/api/v1/sync", "", true).Body.Close()

	resp = env.request(t, http.MethodGet, "/api/v1/sync/last", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeSync(t, resp)
	assert.Equal(t, 1, out.Summary.Total)
}

func TestCronEndpoint(t *testing.T) {
	env := newTestEnv(t, feedBody("res-1"))

	// Without the bearer secret the scheduler is refused.
	resp := env.request(t, http.MethodPost, "/api/v1/cron/sync-all", "", false)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, env.http.URL+"/api/v1/cron/sync-all", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testCronKey)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Cron responds with the same batch shape as the manual endpoint,
	// folding every account together.
	var out syncResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)
	assert.Equal(t, models.SyncSummary{Total: 1, Successful: 1}, out.Summary)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "Beach House", out.Results[0].ListingName)
	assert.False(t, out.SyncedAt.IsZero())
}

func TestPreviewEndpoint_RejectsForeignURL(t *testing.T) {
	env := newTestEnv(t, feedBody("res-1"))

	body := `{"calendar_url":"https://evil.example/calendar.ics"}`
	resp := env.request(t, http.MethodPost, "/api/v1/calendar/preview", body, false)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Airbnb", "rejected on the URL pattern, not on auth or body shape")
}

func TestPreviewEndpoint_AnonymousAccess(t *testing.T) {
	env := newTestEnv(t, feedBody("res-1"))

	// No API key headers at all: the route is open, so a missing body
	// field is the first thing the handler complains about.
	resp := env.request(t, http.MethodPost, "/api/v1/calendar/preview", `{}`, false)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "calendar_url is required")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/calendar/preview", nil)
	req.RemoteAddr = "192.0.2.10:54321"
	assert.Equal(t, "192.0.2.10", clientIP(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	assert.Equal(t, "198.51.100.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.4")
	assert.Equal(t, "203.0.113.4", clientIP(req))
}

func TestExportEndpoint(t *testing.T) {
	env := newTestEnv(t, feedBody("res-1"))
	env.request(t, http.MethodPost, "/api/v1/sync", "", true).Body.Close()

	from := time.Now().UTC().Format("2006-01-02")
	to := time.Now().UTC().AddDate(0, 2, 0).Format("2006-01-02")
	resp := env.request(t, http.MethodGet, "/api/v1/schedule/export?from="+from+"&to="+to, "", true)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "items:1", string(raw))
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, feedBody())

	resp := env.request(t, http.MethodGet, "/healthz", "", false)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExportEndpoint_BadRange(t *testing.T) {
	env := newTestEnv(t, feedBody())

	resp := env.request(t, http.MethodGet, "/api/v1/schedule/export?from=2024-05-01&to=2024-04-01", "", true)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
