package export

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"hostsweep/internal/config"
	"hostsweep/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testItems() []models.ScheduleItem {
	return []models.ScheduleItem{
		{
			ListingID:    "l1",
			CleanerID:    "c1",
			GuestName:    "John Smith",
			CheckIn:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			CheckOut:     time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			CheckoutTime: "11:00",
			Status:       models.StatusPending,
		},
		{
			ListingID:      "l1",
			CleanerID:      "c1",
			GuestName:      "Maria Garcia",
			CheckIn:        time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			CheckOut:       time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
			CheckoutTime:   "11:00",
			Status:         models.StatusPending,
			ExtensionCount: 2,
		},
	}
}

func TestWriteSchedule(t *testing.T) {
	logger := zerolog.Nop()
	e := NewExporter(config.ExportConfig{Path: t.TempDir()}, &logger)

	var buf bytes.Buffer
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, e.WriteSchedule(&buf, testItems(), from, to))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	guest, err := f.GetCellValue(sheetName, "B3")
	require.NoError(t, err)
	assert.Equal(t, "John Smith", guest)

	extensions, err := f.GetCellValue(sheetName, "G4")
	require.NoError(t, err)
	assert.Equal(t, "2", extensions)
}

func TestSaveSchedule(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.Nop()
	e := NewExporter(config.ExportConfig{Path: dir}, &logger)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	path, err := e.SaveSchedule(testItems(), from, to)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "schedule_2024-03-01_to_2024-03-31.xlsx"), path)
	assert.FileExists(t, path)
}
