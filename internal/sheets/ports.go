package sheets

import (
	"context"
	"errors"
)

// ErrRejected marks a write the spreadsheet refused outright, such as a
// missing tab or a permission error. Sending it again will not help.
var ErrRejected = errors.New("rejected by the spreadsheet")

// Ports for the spreadsheet mirror.
type (
	// RowAppender appends rows after the last non-empty row of a tab.
	RowAppender interface {
		AppendRows(ctx context.Context, tab string, rows [][]any) (rowRef string, err error)
	}

	// HeaderReader returns the first row of a tab, empty when the tab has
	// no data yet.
	HeaderReader interface {
		ReadHeader(ctx context.Context, tab string) ([]string, error)
	}

	// Mirror is what the sync worker writes to.
	Mirror interface {
		RowAppender
		HeaderReader
	}
)
