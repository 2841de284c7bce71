package google

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hostsweep/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleRow(t *testing.T) {
	item := &models.ScheduleItem{
		ListingID:      "l1",
		CleanerID:      "c1",
		GuestName:      "John Smith",
		CheckIn:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:       time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
		CheckoutTime:   "11:00",
		Status:         models.StatusPending,
		ExtensionCount: 1,
		Notes:          "Gate code 4321",
	}

	row := scheduleRow(item)
	require.Len(t, row, len(scheduleHeader()))
	assert.Equal(t, "2024-03-01", row[2])
	assert.Equal(t, "2024-03-08", row[3])
	assert.Equal(t, models.StatusPending, row[5])
	assert.Equal(t, int64(1), row[6])
}

func TestGetServiceAccountEmail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "creds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"client_email":"svc@project.iam.gserviceaccount.com"}`), 0o600))

	s := &SheetsService{}
	email, err := s.GetServiceAccountEmail(path)
	require.NoError(t, err)
	assert.Equal(t, "svc@project.iam.gserviceaccount.com", email)
}

func TestNewSheetsService_MissingCredentials(t *testing.T) {
	_, err := NewSheetsService(t.Context(), "/does/not/exist.json", "sheet-id")
	assert.Error(t, err)
}
