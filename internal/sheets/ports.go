package sheets

import (
	"context"

	"finflow/internal/ingest"
)

// Ports for outbound adapters.
type (
	// TableReader fetches a remote spreadsheet range as a raw table whose
	// first row is the header.
	TableReader interface {
		ReadTable(ctx context.Context, spreadsheetID, readRange string) (ingest.Table, error)
	}
)
