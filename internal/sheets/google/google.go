package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"finflow/internal/core"
	"finflow/internal/ingest"
	ports "finflow/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultRange is read when the caller does not name one.
const DefaultRange = "A:Z"

type Client struct {
	svc          *gsheet.Service
	defaultRange string
}

var _ ports.TableReader = (*Client)(nil)

// Credentials locates a service account key. JSON wins over File.
type Credentials struct {
	JSON string
	File string
}

func (c Credentials) Empty() bool {
	return strings.TrimSpace(c.JSON) == "" && strings.TrimSpace(c.File) == ""
}

// New creates a read-only Sheets client from service account credentials.
func New(ctx context.Context, creds Credentials, defaultRange string) (*Client, error) {
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	if strings.TrimSpace(defaultRange) == "" {
		defaultRange = DefaultRange
	}
	return &Client{svc: svc, defaultRange: defaultRange}, nil
}

func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(creds.JSON) != "":
		credentialsJSON = []byte(creds.JSON)
	case strings.TrimSpace(creds.File) != "":
		data, err := os.ReadFile(creds.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	slog.DebugContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsReadonlyScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ReadTable reads readRange (or the default range) as unformatted values, so
// numbers keep full precision and dates arrive as serial numbers. Failures
// wrap core.ErrFileRead.
func (c *Client) ReadTable(ctx context.Context, spreadsheetID, readRange string) (ingest.Table, error) {
	if c.svc == nil {
		return ingest.Table{}, errors.New("sheets service not initialized")
	}
	id, err := SpreadsheetID(spreadsheetID)
	if err != nil {
		return ingest.Table{}, fmt.Errorf("%w: %v", core.ErrFileRead, err)
	}
	if strings.TrimSpace(readRange) == "" {
		readRange = c.defaultRange
	}

	resp, err := c.svc.Spreadsheets.Values.Get(id, readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).
		Do()
	if err != nil {
		return ingest.Table{}, fmt.Errorf("%w: read %s: %v", core.ErrFileRead, readRange, err)
	}
	return ingest.FromValues("sheets:"+id, valuesToRows(resp.Values))
}
