package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"hostsweep/internal/config"
	"hostsweep/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Schedule"

var columns = []string{
	"Listing", "Guest", "Check-in", "Check-out", "Checkout time",
	"Status", "Extensions", "Cleaner", "Notes",
}

// Exporter renders schedule items into xlsx workbooks.
type Exporter struct {
	cfg    config.ExportConfig
	logger *zerolog.Logger
}

func NewExporter(cfg config.ExportConfig, logger *zerolog.Logger) *Exporter {
	return &Exporter{cfg: cfg, logger: logger}
}

// WriteSchedule streams a workbook for the given items to w. Items are
// written in the order provided; callers sort by check-in.
func (e *Exporter) WriteSchedule(w io.Writer, items []models.ScheduleItem, from, to time.Time) error {
	f, err := e.buildWorkbook(items, from, to)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %v", err)
	}
	return nil
}

// SaveSchedule writes the workbook under the configured exports directory
// and returns the file path.
func (e *Exporter) SaveSchedule(items []models.ScheduleItem, from, to time.Time) (string, error) {
	if err := os.MkdirAll(e.cfg.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f, err := e.buildWorkbook(items, from, to)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileName := fmt.Sprintf("schedule_%s_to_%s.xlsx",
		from.Format("2006-01-02"),
		to.Format("2006-01-02"))
	filePath := filepath.Join(e.cfg.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("Excel file created")
	return filePath, nil
}

func (e *Exporter) buildWorkbook(items []models.ScheduleItem, from, to time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Cleaning schedule: %s - %s",
		from.Format("02.01.2006"), to.Format("02.01.2006")))

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	lastCol, _ := excelize.ColumnNumberToName(len(columns))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, name := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, name)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for row, item := range items {
		values := []interface{}{
			item.ListingID,
			item.GuestName,
			item.CheckIn.Format("2006-01-02"),
			item.CheckOut.Format("2006-01-02"),
			item.CheckoutTime,
			item.Status,
			item.ExtensionCount,
			item.CleanerID,
			item.Notes,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+3)
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "B", 25)
	_ = f.SetColWidth(sheetName, "C", lastCol, 16)
	_ = f.DeleteSheet("Sheet1")

	return f, nil
}
