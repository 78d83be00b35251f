package audit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubSession struct {
	existed     bool
	ensured     []string
	written     map[string][][]string
	appended    map[string][][]string
	readRows    [][]string
	ensureErr   error
	appendCalls int
}

func newStubSession(existed bool) *stubSession {
	return &stubSession{
		existed:  existed,
		written:  map[string][][]string{},
		appended: map[string][][]string{},
	}
}

func (s *stubSession) EnsureSheet(_ context.Context, _, title string) (bool, error) {
	s.ensured = append(s.ensured, title)
	return s.existed, s.ensureErr
}

func (s *stubSession) WriteRange(_ context.Context, _, rangeRef string, rows [][]string) error {
	s.written[rangeRef] = rows
	return nil
}

func (s *stubSession) AppendRows(_ context.Context, _, rangeRef string, rows [][]string) error {
	s.appendCalls++
	s.appended[rangeRef] = append(s.appended[rangeRef], rows...)
	return nil
}

func (s *stubSession) ReadRange(_ context.Context, _, _ string) ([][]string, error) {
	return s.readRows, nil
}

type stubRepo struct {
	created []ChangeRecord
	listed  []ChangeRecord
	err     error
}

func (r *stubRepo) CreateBatch(_ context.Context, records []ChangeRecord) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, records...)
	return nil
}

func (r *stubRepo) List(_ context.Context, _ string, _ ListFilter) ([]ChangeRecord, error) {
	return r.listed, r.err
}

func newTestService(t *testing.T, session *stubSession, repo *stubRepo) *service {
	t.Helper()
	svc, err := NewService(func(_ context.Context, _ string) (SheetSession, error) {
		return session, nil
	}, repo, "ChangeHistory", nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	typed := svc.(*service)
	typed.now = func() time.Time {
		return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	}
	return typed
}

func recordInput() RecordInput {
	return RecordInput{
		SpreadsheetID: "sheet-1",
		UniqueID:      "CUST-42",
		ChangedBy:     "admin@example.com",
		Changes: []FieldChange{
			{FieldName: "contact", OldValue: "010-1111", NewValue: "010-2222"},
			{FieldName: "email", OldValue: "a@b.c", NewValue: "d@e.f"},
		},
	}
}

func TestRecordToSheetSharesTimestampAndID(t *testing.T) {
	session := newStubSession(true)
	svc := newTestService(t, session, &stubRepo{})

	msg, err := svc.Record(context.Background(), "token", recordInput())
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if msg == "" {
		t.Fatal("expected a result message")
	}

	rows := session.appended["'ChangeHistory'!A1"]
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != rows[1][0] {
		t.Fatalf("rows must share a timestamp: %q vs %q", rows[0][0], rows[1][0])
	}
	if rows[0][0] != "2024-05-01T12:00:00Z" {
		t.Fatalf("timestamp = %q", rows[0][0])
	}
	if rows[0][2] != "CUST-42" || rows[1][2] != "CUST-42" {
		t.Fatal("rows must share the unique ID")
	}
	if rows[0][3] != "contact" || rows[1][3] != "email" {
		t.Fatalf("field names = %q, %q", rows[0][3], rows[1][3])
	}
	if len(session.written) != 0 {
		t.Fatal("existing sheet must not get a header rewrite")
	}
}

func TestRecordCreatesHistorySheetWithHeaders(t *testing.T) {
	session := newStubSession(false)
	svc := newTestService(t, session, &stubRepo{})

	if _, err := svc.Record(context.Background(), "token", recordInput()); err != nil {
		t.Fatalf("record: %v", err)
	}
	header := session.written["'ChangeHistory'!A1"]
	if len(header) != 1 || header[0][0] != "Timestamp" || header[0][5] != "NewValue" {
		t.Fatalf("unexpected header write %v", header)
	}
}

func TestRecordFallsBackToRepoWithoutToken(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(t, newStubSession(true), repo)

	if _, err := svc.Record(context.Background(), "", recordInput()); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(repo.created) != 2 {
		t.Fatalf("expected 2 fallback records, got %d", len(repo.created))
	}
	if repo.created[0].SheetName != "Main" {
		t.Fatalf("sheet name default = %q", repo.created[0].SheetName)
	}
	if !repo.created[0].ChangedAt.Equal(repo.created[1].ChangedAt) {
		t.Fatal("fallback records must share a timestamp")
	}
}

func TestRecordValidatesInput(t *testing.T) {
	svc := newTestService(t, newStubSession(true), &stubRepo{})
	bad := []RecordInput{
		{},
		{SpreadsheetID: "s"},
		{SpreadsheetID: "s", UniqueID: "u"},
		{SpreadsheetID: "s", UniqueID: "u", ChangedBy: "e"},
	}
	for i, input := range bad {
		if _, err := svc.Record(context.Background(), "token", input); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestListFromSheetFiltersAndSorts(t *testing.T) {
	session := newStubSession(true)
	session.readRows = [][]string{
		{"Timestamp", "UserEmail", "UniqueID", "FieldName", "OldValue", "NewValue"},
		{"2024-05-01T10:00:00Z", "Admin@Example.com", "CUST-1", "contact", "a", "b"},
		{"2024-05-02T10:00:00Z", "admin@example.com", "CUST-2", "email", "c", "d"},
		{"2024-05-03T10:00:00Z", "other@example.com", "CUST-1", "contact", "e", "f"},
	}
	svc := newTestService(t, session, &stubRepo{})

	entries, err := svc.List(context.Background(), "token", "sheet-1", ListFilter{UserEmail: "ADMIN"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 filtered entries, got %d", len(entries))
	}
	if entries[0].Timestamp != "2024-05-02T10:00:00Z" {
		t.Fatalf("entries must be newest first, got %q", entries[0].Timestamp)
	}

	entries, err = svc.List(context.Background(), "token", "sheet-1", ListFilter{UniqueID: "CUST-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].UniqueID != "CUST-1" {
		t.Fatalf("unique ID filter failed: %+v", entries)
	}
}

func TestListHeaderOnlySheetIsEmpty(t *testing.T) {
	session := newStubSession(true)
	session.readRows = [][]string{{"Timestamp", "UserEmail", "UniqueID", "FieldName", "OldValue", "NewValue"}}
	svc := newTestService(t, session, &stubRepo{})

	entries, err := svc.List(context.Background(), "token", "sheet-1", ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty history, got %+v", entries)
	}
}

func TestListFromFallbackStore(t *testing.T) {
	repo := &stubRepo{listed: []ChangeRecord{{
		UniqueID:  "CUST-1",
		ChangedBy: "admin@example.com",
		FieldName: "contact",
		OldValue:  "a",
		NewValue:  "b",
		ChangedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}}}
	svc := newTestService(t, newStubSession(true), repo)

	entries, err := svc.List(context.Background(), "", "sheet-1", ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Timestamp != "2024-05-01T10:00:00Z" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestRecordSurfacesRepoFailure(t *testing.T) {
	repo := &stubRepo{err: errors.New("db down")}
	svc := newTestService(t, newStubSession(true), repo)
	if _, err := svc.Record(context.Background(), "", recordInput()); err == nil {
		t.Fatal("expected error from fallback store")
	}
}
