package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"hostsweep/internal/config"
	"hostsweep/internal/metrics"
	"hostsweep/internal/models"
	"hostsweep/internal/service"

	"github.com/rs/zerolog"
)

// airbnbFeedPattern matches the export URLs Airbnb hands out for listing
// calendars.
var airbnbFeedPattern = regexp.MustCompile(`^https://(www\.)?airbnb\.[a-z.]+/calendar/ical/\d+\.ics`)

// Server exposes the sync HTTP API.
type Server struct {
	cfg      config.APIConfig
	svc      *service.SyncService
	exporter ScheduleExporter
	pinger   Pinger
	server   *http.Server
	auth     *HTTPAuth
	logger   *zerolog.Logger
}

// ScheduleExporter renders schedule items as an xlsx workbook.
type ScheduleExporter interface {
	WriteSchedule(w io.Writer, items []models.ScheduleItem, from, to time.Time) error
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

func NewServer(cfg config.APIConfig, svc *service.SyncService, exporter ScheduleExporter, pinger Pinger, logger *zerolog.Logger) *Server {
	mux := http.NewServeMux()
	srv := &Server{cfg: cfg, svc: svc, exporter: exporter, pinger: pinger, logger: logger}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/sync", srv.handleSync)
	mux.HandleFunc("/api/v1/sync/last", srv.handleLastSync)
	mux.HandleFunc("/api/v1/cron/sync-all", srv.handleCronSyncAll)
	mux.HandleFunc("/api/v1/calendar/preview", srv.handlePreview)
	mux.HandleFunc("/api/v1/schedule/export", srv.handleExport)
	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	return srv
}

func (s *Server) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// syncResponse is the wire shape shared by the sync and cron endpoints.
type syncResponse struct {
	Success  bool                       `json:"success"`
	Summary  models.SyncSummary         `json:"summary"`
	Results  []models.ListingSyncResult `json:"results"`
	SyncedAt time.Time                  `json:"syncedAt"`
}

func reportResponse(report *models.SyncReport) syncResponse {
	return syncResponse{
		Success:  report.Summary.Failed == 0,
		Summary:  report.Summary,
		Results:  report.Results,
		SyncedAt: report.SyncedAt,
	}
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("sync")

	ownerID, ok := s.ownerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "no owner account for request")
		return
	}

	report, err := s.svc.SyncOwner(r.Context(), ownerID)
	if err != nil {
		s.logger.Error().Err(err).Str("owner_id", ownerID).Msg("sync failed")
		writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}

	writeJSON(w, http.StatusOK, reportResponse(report))
}

func (s *Server) handleLastSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("sync_last")

	ownerID, ok := s.ownerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "no owner account for request")
		return
	}

	report, err := s.svc.LastReport(r.Context(), ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load last sync report")
		return
	}
	if report == nil {
		writeError(w, http.StatusNotFound, "no sync has run yet")
		return
	}

	writeJSON(w, http.StatusOK, reportResponse(report))
}

func (s *Server) handleCronSyncAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("cron_sync_all")

	if !s.checkCronAuth(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reports, err := s.svc.SyncAll(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("cron sync failed")
		writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}

	// Accounts fold into one batch report so cron and manual sync share
	// a single response shape.
	batch := &models.SyncReport{SyncedAt: time.Now().UTC()}
	for _, report := range reports {
		batch.Summary.Total += report.Summary.Total
		batch.Summary.Successful += report.Summary.Successful
		batch.Summary.Failed += report.Summary.Failed
		batch.Summary.Skipped += report.Summary.Skipped
		batch.Results = append(batch.Results, report.Results...)
	}
	writeJSON(w, http.StatusOK, reportResponse(batch))
}

// checkCronAuth validates the scheduler's bearer secret. The cron route
// bypasses API-key auth because the scheduler acts for every account.
func (s *Server) checkCronAuth(r *http.Request) bool {
	if s.cfg.CronSecret == "" {
		return false
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.CronSecret)) == 1
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("calendar_preview")

	var body struct {
		CalendarURL string `json:"calendar_url"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	url := strings.TrimSpace(body.CalendarURL)
	if url == "" {
		writeError(w, http.StatusBadRequest, "calendar_url is required")
		return
	}
	if !airbnbFeedPattern.MatchString(url) {
		writeError(w, http.StatusBadRequest, "url is not an Airbnb calendar export")
		return
	}

	limit := s.cfg.Preview.RateLimit
	if limit <= 0 {
		limit = 10
	}
	window := time.Duration(s.cfg.Preview.WindowSecs) * time.Second
	if window <= 0 {
		window = time.Minute
	}

	bookings, err := s.svc.PreviewFeed(r.Context(), clientIP(r), url, limit, window)
	if errors.Is(err, service.ErrRateLimited) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to fetch calendar")
		return
	}

	type previewBooking struct {
		UID       string    `json:"uid"`
		GuestName string    `json:"guestName,omitempty"`
		CheckIn   time.Time `json:"checkIn"`
		CheckOut  time.Time `json:"checkOut"`
	}
	out := make([]previewBooking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, previewBooking{
			UID:       b.UID,
			GuestName: b.GuestName,
			CheckIn:   b.CheckIn,
			CheckOut:  b.CheckOut,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": out, "total": len(out)})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	metrics.IncHTTP("schedule_export")

	ownerID, ok := s.ownerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "no owner account for request")
		return
	}

	from, err := parseDateParam(r, "from", time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseDateParam(r, "to", from.AddDate(0, 1, 0))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return
	}

	items, err := s.svc.Schedule(r.Context(), ownerID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}

	fileName := fmt.Sprintf("schedule_%s_to_%s.xlsx", from.Format("2006-01-02"), to.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	if err := s.exporter.WriteSchedule(w, items, from, to); err != nil {
		s.logger.Error().Err(err).Msg("export failed")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ownerID resolves the owner account the request acts for. With auth
// disabled there is no account, so owner-scoped endpoints refuse.
func (s *Server) ownerID(r *http.Request) (string, bool) {
	client, ok := ClientFromContext(r.Context())
	if !ok || client.OwnerID == "" {
		return "", false
	}
	return client.OwnerID, true
}

// clientIP resolves the caller's address, honoring the proxy header the
// anonymous preview endpoint is rate limited by.
func clientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		if ip, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(ip)
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func parseDateParam(r *http.Request, name string, def time.Time) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def.Truncate(24 * time.Hour), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s; expected YYYY-MM-DD", name)
	}
	return t, nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
