package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"hostsweep/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const scheduleSheetRange = "Schedule!A:I"

// SheetsService mirrors schedule state into a Google spreadsheet that
// cleaners can open on their phones. The sheet is a read model; the sqlite
// store stays the source of truth.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewSheetsService authenticates with a service account credentials file.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
	}, nil
}

// TestConnection reads the header cell to verify access.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, "Schedule!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail returns the service account email from the
// credentials file, for sharing the spreadsheet with it.
func (s *SheetsService) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}

	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}

	return creds.ClientEmail, nil
}

// ReplaceScheduleSheet clears the schedule sheet and rewrites it from the
// given items. Full replacement keeps the sheet convergent with store
// state no matter what a human edited by hand.
func (s *SheetsService) ReplaceScheduleSheet(ctx context.Context, items []models.ScheduleItem) error {
	if _, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, scheduleSheetRange, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("clear schedule sheet: %v", err)
	}

	values := [][]interface{}{scheduleHeader()}
	for i := range items {
		values = append(values, scheduleRow(&items[i]))
	}

	valueRange := &sheets.ValueRange{Values: values}
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, fmt.Sprintf("Schedule!A1:I%d", len(values)), valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update schedule sheet: %v", err)
	}
	return nil
}

func scheduleHeader() []interface{} {
	return []interface{}{
		"Listing", "Guest", "Check-in", "Check-out", "Checkout time",
		"Status", "Extensions", "Cleaner", "Notes",
	}
}

func scheduleRow(item *models.ScheduleItem) []interface{} {
	return []interface{}{
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
}
