package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "github.com/FirjiAchmad24/dashmonitoring-pln/internal/sheets"
)

// DefaultSheetName is the tab the recap is written to.
const DefaultSheetName = "Recap"

// recapColumns bounds the area cleared before each write.
const recapColumns = "A:Z"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.Mirror = (*Client)(nil)

// New wraps an existing Sheets service. An empty sheetName uses
// DefaultSheetName.
func New(svc *gsheet.Service, spreadsheetID, sheetName string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = DefaultSheetName
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// NewFromEnv creates a client authenticated with a service account.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, sheetName)
}

func serviceAccountCredentials() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	creds, err := serviceAccountCredentials()
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "credentials_size", len(creds))
	return svc, nil
}

func (c *Client) rangeOf(cells string) string {
	return fmt.Sprintf("'%s'!%s", c.sheetName, cells)
}

// WriteRecap replaces the recap tab contents with r.
func (c *Client) WriteRecap(ctx context.Context, r ports.Recap) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.rangeOf(recapColumns), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear recap: %w", err)
	}

	values := make([][]interface{}, len(r.Rows))
	for i, row := range r.Rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		values[i] = cells
	}

	// RAW keeps every cell as the text written, so ReadRecap sees the same rows.
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rangeOf("A1"), &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write recap: %w", err)
	}

	slog.InfoContext(ctx, "Recap written to Google Sheets",
		"sheet", c.sheetName,
		"rows", resp.UpdatedRows)
	return nil
}

// ReadRecap returns the rows currently on the recap tab as strings. Cells
// edited by hand may come back as numbers.
func (c *Client) ReadRecap(ctx context.Context) (ports.Recap, error) {
	if c.svc == nil {
		return ports.Recap{}, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rangeOf(recapColumns)).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return ports.Recap{}, fmt.Errorf("read recap: %w", err)
	}
	return parseValues(resp.Values), nil
}
