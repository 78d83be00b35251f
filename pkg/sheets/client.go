package sheets

import (
	"context"
	"fmt"
	"net/http"

	pkgerrors "github.com/ecosheet/ecosheet-backend/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/ecosheet/ecosheet-backend/pkg/config"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

// Client builds per-token sessions against the spreadsheet API.
type Client struct {
	cfg config.SheetsConfig
}

func NewClient(cfg config.SheetsConfig) *Client {
	return &Client{cfg: cfg}
}

// Session speaks to the table store with one caller's access token. Reads and
// clears are idempotent and retried at most once; writes go out exactly once.
type Session struct {
	svc *sheetsv4.Service
	cfg config.SheetsConfig
}

// Session authenticates with the caller-supplied OAuth access token.
func (c *Client) Session(ctx context.Context, accessToken string) (*Session, error) {
	if accessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing access token")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	opts := []option.ClientOption{option.WithTokenSource(ts)}
	if c.cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(c.cfg.BaseURL))
	}
	svc, err := sheetsv4.NewService(ctx, opts...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating sheets service")
	}
	return &Session{svc: svc, cfg: c.cfg}, nil
}

// RangeValues pairs one A1 range with the rows to write there.
type RangeValues struct {
	Range string
	Rows  [][]string
}

// SheetTitles lists the tab titles of the spreadsheet in document order.
func (s *Session) SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error) {
	var titles []string
	err := s.withRetry(ctx, func(ctx context.Context) error {
		meta, err := s.svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
		if err != nil {
			return err
		}
		titles = titles[:0]
		for _, sh := range meta.Sheets {
			if sh.Properties != nil {
				titles = append(titles, sh.Properties.Title)
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapAPIError(err, "listing sheet titles")
	}
	return titles, nil
}

// FirstSheetTitle returns the title of the leftmost tab.
func (s *Session) FirstSheetTitle(ctx context.Context, spreadsheetID string) (string, error) {
	titles, err := s.SheetTitles(ctx, spreadsheetID)
	if err != nil {
		return "", err
	}
	if len(titles) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "spreadsheet has no sheets")
	}
	return titles[0], nil
}

// ReadRange fetches cell values as strings. Missing trailing cells come back
// absent, so callers must treat short rows as padded with empty strings.
func (s *Session) ReadRange(ctx context.Context, spreadsheetID, rangeRef string) ([][]string, error) {
	var rows [][]string
	err := s.withRetry(ctx, func(ctx context.Context) error {
		resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, rangeRef).Context(ctx).Do()
		if err != nil {
			return err
		}
		rows = rows[:0]
		for _, raw := range resp.Values {
			row := make([]string, 0, len(raw))
			for _, cell := range raw {
				row = append(row, fmt.Sprint(cell))
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, mapAPIError(err, "reading range "+rangeRef)
	}
	return rows, nil
}

// ClearRange blanks the cells in the range without touching formatting.
func (s *Session) ClearRange(ctx context.Context, spreadsheetID, rangeRef string) error {
	err := s.withRetry(ctx, func(ctx context.Context) error {
		_, err := s.svc.Spreadsheets.Values.Clear(spreadsheetID, rangeRef, &sheetsv4.ClearValuesRequest{}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return mapAPIError(err, "clearing range "+rangeRef)
	}
	return nil
}

// WriteRange overwrites the range with the given rows. Never retried.
func (s *Session) WriteRange(ctx context.Context, spreadsheetID, rangeRef string, rows [][]string) error {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	_, err := s.svc.Spreadsheets.Values.
		Update(spreadsheetID, rangeRef, valueRange(rangeRef, rows)).
		ValueInputOption("RAW").
		Context(callCtx).
		Do()
	if err != nil {
		return mapAPIError(err, "writing range "+rangeRef)
	}
	return nil
}

// BatchWriteRanges writes several ranges in one request. A single cell is a
// one-row, one-column range, so this also covers cell-level batch updates.
// Never retried.
func (s *Session) BatchWriteRanges(ctx context.Context, spreadsheetID string, batch []RangeValues) error {
	if len(batch) == 0 {
		return nil
	}
	data := make([]*sheetsv4.ValueRange, 0, len(batch))
	for _, rv := range batch {
		data = append(data, valueRange(rv.Range, rv.Rows))
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	_, err := s.svc.Spreadsheets.Values.
		BatchUpdate(spreadsheetID, &sheetsv4.BatchUpdateValuesRequest{
			ValueInputOption: "RAW",
			Data:             data,
		}).
		Context(callCtx).
		Do()
	if err != nil {
		return mapAPIError(err, "batch writing ranges")
	}
	return nil
}

// AppendRows appends rows below the last data row of the range. Never retried.
func (s *Session) AppendRows(ctx context.Context, spreadsheetID, rangeRef string, rows [][]string) error {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	_, err := s.svc.Spreadsheets.Values.
		Append(spreadsheetID, rangeRef, valueRange(rangeRef, rows)).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(callCtx).
		Do()
	if err != nil {
		return mapAPIError(err, "appending rows to "+rangeRef)
	}
	return nil
}

// EnsureSheet adds the tab when absent and reports whether it already existed.
func (s *Session) EnsureSheet(ctx context.Context, spreadsheetID, title string) (bool, error) {
	titles, err := s.SheetTitles(ctx, spreadsheetID)
	if err != nil {
		return false, err
	}
	for _, t := range titles {
		if t == title {
			return true, nil
		}
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	_, err = s.svc.Spreadsheets.
		BatchUpdate(spreadsheetID, &sheetsv4.BatchUpdateSpreadsheetRequest{
			Requests: []*sheetsv4.Request{{
				AddSheet: &sheetsv4.AddSheetRequest{
					Properties: &sheetsv4.SheetProperties{Title: title},
				},
			}},
		}).
		Context(callCtx).
		Do()
	if err != nil {
		return false, mapAPIError(err, "adding sheet "+title)
	}
	return false, nil
}

func valueRange(rangeRef string, rows [][]string) *sheetsv4.ValueRange {
	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		cells := make([]any, 0, len(row))
		for _, cell := range row {
			cells = append(cells, cell)
		}
		values = append(values, cells)
	}
	return &sheetsv4.ValueRange{Range: rangeRef, Values: values}
}

// withRetry runs an idempotent call with a per-attempt timeout and at most one
// retry on transient upstream failures.
func (s *Session) withRetry(ctx context.Context, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(1, retry.NewConstant(s.cfg.RetryBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()
		err := fn(callCtx)
		if err != nil && isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isTransient(err error) bool {
	if apiErr, ok := err.(*googleapi.Error); ok {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return false
}

// mapAPIError translates upstream failures into coded errors. A valid status
// from the table store API passes through to the response unchanged.
func mapAPIError(err error, action string) error {
	if err == nil {
		return nil
	}
	apiErr, ok := err.(*googleapi.Error)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action+" failed")
	}
	code := pkgerrors.CodeDependency
	switch {
	case apiErr.Code == http.StatusUnauthorized:
		code = pkgerrors.CodeUnauthorized
	case apiErr.Code == http.StatusForbidden:
		code = pkgerrors.CodeForbidden
	case apiErr.Code == http.StatusNotFound:
		code = pkgerrors.CodeNotFound
	case apiErr.Code == http.StatusTooManyRequests:
		code = pkgerrors.CodeRateLimit
	case apiErr.Code == http.StatusBadRequest:
		code = pkgerrors.CodeValidation
	}
	message := apiErr.Message
	if message == "" {
		message = action + " failed"
	}
	return pkgerrors.Wrap(code, err, message).WithHTTPStatus(apiErr.Code)
}
