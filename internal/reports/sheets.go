package reports

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

var ErrSheetsDisabled = errors.New("google sheets sync is not configured")

// SheetsSync overwrites one tab of a spreadsheet with a Document.
type SheetsSync struct {
	service       *sheets.Service
	spreadsheetID string
	log           *zap.Logger
}

// NewSheetsSync returns a disabled sync (nil service) when credentials or
// the spreadsheet id are missing.
func NewSheetsSync(ctx context.Context, credentialsFile, spreadsheetID string, log *zap.Logger) (*SheetsSync, error) {
	s := &SheetsSync{spreadsheetID: spreadsheetID, log: log}
	if credentialsFile == "" || spreadsheetID == "" {
		return s, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read google credentials: %w", err)
	}

	credentials, err := google.CredentialsFromJSON(ctx, b, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to load google credentials: %w", err)
	}

	client := oauth2.NewClient(ctx, credentials.TokenSource)
	service, err := sheets.New(client)
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets client: %w", err)
	}

	s.service = service
	return s, nil
}

func (s *SheetsSync) Enabled() bool {
	return s != nil && s.service != nil
}

func (s *SheetsSync) Push(ctx context.Context, doc Document) error {
	if !s.Enabled() {
		return ErrSheetsDisabled
	}

	sheet := doc.sheetName()
	if _, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, sheet, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to clear sheet %s: %w", sheet, err)
	}

	values := SheetValues(doc)
	_, err := s.service.Spreadsheets.Values.
		Update(s.spreadsheetID, sheet+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to write sheet %s: %w", sheet, err)
	}

	s.log.Info("Pushed document to google sheets", zap.String("sheet", sheet), zap.Int("rows", len(doc.Rows)))
	return nil
}

// SheetValues flattens doc into the header row followed by data rows.
func SheetValues(doc Document) [][]interface{} {
	values := make([][]interface{}, 0, len(doc.Rows)+1)

	header := make([]interface{}, len(doc.Headers))
	for i, h := range doc.Headers {
		header[i] = h
	}
	values = append(values, header)

	for _, row := range doc.Rows {
		out := make([]interface{}, len(row))
		for i, v := range row {
			if s, ok := v.(fmt.Stringer); ok {
				out[i] = s.String()
			} else {
				out[i] = v
			}
		}
		values = append(values, out)
	}

	return values
}
