package audit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	pkgerrors "github.com/ecosheet/ecosheet-backend/pkg/errors"
	"github.com/ecosheet/ecosheet-backend/pkg/logger"
	"github.com/ecosheet/ecosheet-backend/pkg/sheets"
)

// HistoryHeaders is the change-history table schema, in column order.
var HistoryHeaders = []string{"Timestamp", "UserEmail", "UniqueID", "FieldName", "OldValue", "NewValue"}

// SheetSession is the slice of the table-store session the audit trail uses.
type SheetSession interface {
	EnsureSheet(ctx context.Context, spreadsheetID, title string) (bool, error)
	WriteRange(ctx context.Context, spreadsheetID, rangeRef string, rows [][]string) error
	AppendRows(ctx context.Context, spreadsheetID, rangeRef string, rows [][]string) error
	ReadRange(ctx context.Context, spreadsheetID, rangeRef string) ([][]string, error)
}

// SessionFunc opens a table-store session for one caller's access token.
type SessionFunc func(ctx context.Context, accessToken string) (SheetSession, error)

type changeRepository interface {
	CreateBatch(ctx context.Context, records []ChangeRecord) error
	List(ctx context.Context, spreadsheetID string, filter ListFilter) ([]ChangeRecord, error)
}

// FieldChange is one field edit within a save operation.
type FieldChange struct {
	FieldName string
	OldValue  string
	NewValue  string
}

// RecordInput is one save operation's worth of edits.
type RecordInput struct {
	SpreadsheetID string
	SheetName     string
	UniqueID      string
	ChangedBy     string
	Changes       []FieldChange
}

// Entry is one change-history row as returned to callers, regardless of
// which store it came from.
type Entry struct {
	Timestamp string
	UserEmail string
	UniqueID  string
	FieldName string
	OldValue  string
	NewValue  string
}

// ListFilter narrows history queries.
type ListFilter struct {
	UserEmail string
	UniqueID  string
}

// Service records and lists the change history. With an access token changes
// go straight into the spreadsheet's history sheet; without one they land in
// the relational fallback.
type Service interface {
	Record(ctx context.Context, accessToken string, input RecordInput) (string, error)
	List(ctx context.Context, accessToken, spreadsheetID string, filter ListFilter) ([]Entry, error)
}

type service struct {
	sessions  SessionFunc
	repo      changeRepository
	sheetName string
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the audit service.
func NewService(sessions SessionFunc, repo changeRepository, historySheetName string, logg *logger.Logger) (Service, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session factory required")
	}
	if repo == nil {
		return nil, fmt.Errorf("change repository required")
	}
	if historySheetName == "" {
		historySheetName = "ChangeHistory"
	}
	return &service{
		sessions:  sessions,
		repo:      repo,
		sheetName: historySheetName,
		logg:      logg,
		now:       time.Now,
	}, nil
}

// Record appends one row per changed field, all sharing the same timestamp
// and unique ID.
func (s *service) Record(ctx context.Context, accessToken string, input RecordInput) (string, error) {
	if err := validateRecordInput(input); err != nil {
		return "", err
	}

	timestamp := s.now().UTC()
	if accessToken == "" {
		records := make([]ChangeRecord, 0, len(input.Changes))
		for _, change := range input.Changes {
			records = append(records, ChangeRecord{
				SpreadsheetID: input.SpreadsheetID,
				SheetName:     sheetNameOrDefault(input.SheetName),
				UniqueID:      input.UniqueID,
				ChangedBy:     input.ChangedBy,
				FieldName:     change.FieldName,
				OldValue:      change.OldValue,
				NewValue:      change.NewValue,
				ChangedAt:     timestamp,
			})
		}
		if err := s.repo.CreateBatch(ctx, records); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording change history")
		}
		return "Change history recorded in fallback store.", nil
	}

	session, err := s.sessions(ctx, accessToken)
	if err != nil {
		return "", err
	}
	if err := s.ensureHistorySheet(ctx, session, input.SpreadsheetID); err != nil {
		return "", err
	}

	rows := make([][]string, 0, len(input.Changes))
	stamp := timestamp.Format(time.RFC3339)
	for _, change := range input.Changes {
		rows = append(rows, []string{
			stamp,
			input.ChangedBy,
			input.UniqueID,
			change.FieldName,
			change.OldValue,
			change.NewValue,
		})
	}
	if err := session.AppendRows(ctx, input.SpreadsheetID, sheets.RangeRef(s.sheetName, "A1"), rows); err != nil {
		return "", err
	}
	return "Change history recorded in spreadsheet.", nil
}

// List reads the history from the sheet when a token is supplied, otherwise
// from the fallback store. Results come back newest first.
func (s *service) List(ctx context.Context, accessToken, spreadsheetID string, filter ListFilter) ([]Entry, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "spreadsheet ID is required")
	}

	if accessToken == "" {
		records, err := s.repo.List(ctx, spreadsheetID, filter)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing change history")
		}
		entries := make([]Entry, 0, len(records))
		for _, rec := range records {
			entries = append(entries, Entry{
				Timestamp: rec.ChangedAt.UTC().Format(time.RFC3339),
				UserEmail: rec.ChangedBy,
				UniqueID:  rec.UniqueID,
				FieldName: rec.FieldName,
				OldValue:  rec.OldValue,
				NewValue:  rec.NewValue,
			})
		}
		return entries, nil
	}

	session, err := s.sessions(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if err := s.ensureHistorySheet(ctx, session, spreadsheetID); err != nil {
		return nil, err
	}

	rows, err := session.ReadRange(ctx, spreadsheetID, sheets.RangeRef(s.sheetName, "A:F"))
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return []Entry{}, nil
	}

	entries := make([]Entry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		entry := Entry{
			Timestamp: cell(row, 0),
			UserEmail: cell(row, 1),
			UniqueID:  cell(row, 2),
			FieldName: cell(row, 3),
			OldValue:  cell(row, 4),
			NewValue:  cell(row, 5),
		}
		if !matchesFilter(entry, filter) {
			continue
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
	return entries, nil
}

// ensureHistorySheet creates the history sheet with its header row on first
// use; existing sheets are left untouched.
func (s *service) ensureHistorySheet(ctx context.Context, session SheetSession, spreadsheetID string) error {
	existed, err := session.EnsureSheet(ctx, spreadsheetID, s.sheetName)
	if err != nil {
		return err
	}
	if existed {
		return nil
	}
	return session.WriteRange(ctx, spreadsheetID, sheets.RangeRef(s.sheetName, "A1"), [][]string{HistoryHeaders})
}

func validateRecordInput(input RecordInput) error {
	switch {
	case strings.TrimSpace(input.SpreadsheetID) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "spreadsheet ID is required")
	case strings.TrimSpace(input.UniqueID) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "unique ID is required")
	case strings.TrimSpace(input.ChangedBy) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "changed-by email is required")
	case len(input.Changes) == 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "a non-empty list of changes is required")
	}
	return nil
}

func matchesFilter(entry Entry, filter ListFilter) bool {
	if email := strings.TrimSpace(filter.UserEmail); email != "" {
		if !strings.Contains(strings.ToLower(entry.UserEmail), strings.ToLower(email)) {
			return false
		}
	}
	if uniqueID := strings.TrimSpace(filter.UniqueID); uniqueID != "" {
		if entry.UniqueID != uniqueID {
			return false
		}
	}
	return true
}

func sheetNameOrDefault(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Main"
	}
	return name
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}
