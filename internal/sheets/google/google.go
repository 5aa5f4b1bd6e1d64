package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	"google.golang.org/api/googleapi"
	gsheet "google.golang.org/api/sheets/v4"

	applog "hse/internal/log"
	ports "hse/internal/sheets"
)

// Ensure interface conformance
var _ ports.Mirror = (*Client)(nil)

const maxAttempts = 3

// Config selects the spreadsheet and the service account. CredentialsJSON
// wins over CredentialsFile when both are set.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *applog.Logger
	// retryWait is the pause before retry attempt n (1-based).
	retryWait func(attempt int) time.Duration
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	credentials, err := serviceAccountJSON(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, cfg.SpreadsheetID, logger,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// NewWithOptions creates a client with explicit API options, such as a
// custom endpoint.
func NewWithOptions(ctx context.Context, spreadsheetID string, logger *applog.Logger, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        logger.WithComponent(applog.ComponentSheets),
		retryWait:     backoff,
	}, nil
}

func serviceAccountJSON(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
	}
}

// AppendRows appends rows below the tab's data with USER_ENTERED parsing,
// so dates and numbers land as typed cells. Rate limits and server errors
// are retried.
func (c *Client) AppendRows(ctx context.Context, tab string, rows [][]any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(rows) == 0 {
		return "", nil
	}
	rng := a1Range(tab, "A1")
	// USER_ENTERED parses cells like typed input, so free text that starts
	// like a formula must be sent as plain text.
	vr := &gsheet.ValueRange{Values: escapeFormulas(rows)}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		if err == nil {
			ref := ""
			if resp.Updates != nil {
				ref = resp.Updates.UpdatedRange
			}
			return ref, nil
		}
		lastErr = err
		if !retryable(err) || attempt == maxAttempts {
			break
		}

		wait := c.retryWait(attempt)
		c.logger.WarnContext(ctx, "Sheets append failed, retrying",
			applog.FieldOperation, applog.OpAppend,
			applog.FieldTable, tab,
			"attempt", attempt,
			"backoff", wait,
			applog.FieldError, err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	return "", fmt.Errorf("append to %s: %w", tab, markRejected(lastErr))
}

// ReadHeader returns the first row of tab.
func (c *Client) ReadHeader(ctx context.Context, tab string) ([]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := a1Range(tab, "1:1")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, markRejected(err))
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	return toStrings(resp.Values[0]), nil
}

func retryable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
}

// markRejected tags 4xx answers other than 429 with ports.ErrRejected.
func markRejected(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", ports.ErrRejected, err)
	}
	return err
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * time.Second
}
