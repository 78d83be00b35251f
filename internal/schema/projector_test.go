package schema

import (
	"testing"

	"github.com/ecosheet/ecosheet-backend/internal/mapping"
)

func mappingOf(pairs map[string]string) mapping.FieldMapping {
	m := mapping.FieldMapping{}
	for header, target := range pairs {
		t := target
		m[header] = &t
	}
	return m
}

func TestProjectSalesBaseProjection(t *testing.T) {
	headers := []string{"주문번호", "고객ID", "주문일자", "상품", "수량", "금액", "상태"}
	rows := [][]string{
		{"O1", "C1", "2024-01-01", "친환경 세제", "2", "15000", "배송중"},
		{"O2", "C2", "2024-02-10", "일반 세제", "1", "8000", "완료"},
	}
	m := mappingOf(map[string]string{
		"주문번호": FieldOrderID,
		"고객ID": FieldCustomerID,
		"주문일자": FieldOrderDate,
		"상품":   FieldProductNames,
		"수량":   FieldQuantity,
		"금액":   FieldTotalAmount,
		"상태":   FieldOrderStatus,
	})

	records := NewProjector(DefaultProjectorConfig()).ProjectSales(headers, rows, m)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first := records[0]
	if first.OrderID != "O1" || first.CustomerID != "C1" || first.ProductNames != "친환경 세제" {
		t.Fatalf("unexpected projection %+v", first)
	}
	if got := len(first.Row()); got != len(SalesFields) {
		t.Fatalf("row width %d, want %d", got, len(SalesFields))
	}
	if first.OrderStatus != "배송중" {
		t.Fatalf("mapped status must not be overwritten, got %q", first.OrderStatus)
	}
}

func TestProjectSalesCompletionDateFallback(t *testing.T) {
	headers := []string{"주문일자"}
	m := mappingOf(map[string]string{"주문일자": FieldOrderDate})
	projector := NewProjector(DefaultProjectorConfig())

	records := projector.ProjectSales(headers, [][]string{{"2024-01-01"}}, m)
	if records[0].CompletionDate != "2024-01-04" {
		t.Fatalf("completion date = %q, want 2024-01-04", records[0].CompletionDate)
	}

	records = projector.ProjectSales(headers, [][]string{{"sometime soon"}}, m)
	if records[0].CompletionDate != "" {
		t.Fatalf("unparseable order date must yield empty completion date, got %q", records[0].CompletionDate)
	}

	// A mapped completion_date column disables the fallback even when empty.
	headers = []string{"주문일자", "완료일"}
	m = mappingOf(map[string]string{"주문일자": FieldOrderDate, "완료일": FieldCompletionDate})
	records = projector.ProjectSales(headers, [][]string{{"2024-01-01", ""}}, m)
	if records[0].CompletionDate != "" {
		t.Fatalf("mapped completion date must pass through, got %q", records[0].CompletionDate)
	}
}

func TestProjectSalesDefaultOrderStatus(t *testing.T) {
	headers := []string{"주문번호"}
	m := mappingOf(map[string]string{"주문번호": FieldOrderID})
	records := NewProjector(DefaultProjectorConfig()).ProjectSales(headers, [][]string{{"O1"}, {"O2"}}, m)
	for _, rec := range records {
		if rec.OrderStatus != "거래 완료" {
			t.Fatalf("expected default status, got %q", rec.OrderStatus)
		}
	}
}

func TestProjectCustomersForcedFallback(t *testing.T) {
	// No mapping covers any header; "이름" is in the forced name candidate
	// list, nothing matches an ID candidate.
	headers := []string{"날짜", "이름", "상품", "수량", "금액"}
	rows := [][]string{{"2024-01-01", "김민수", "세제", "1", "5000"}}

	records := NewProjector(DefaultProjectorConfig()).ProjectCustomers(headers, rows, mapping.FieldMapping{})
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].CustomerName != "김민수" {
		t.Fatalf("forced name fallback failed: %+v", records[0])
	}
	if records[0].CustomerID != "" {
		t.Fatalf("customer id should stay empty, got %q", records[0].CustomerID)
	}
}

func TestForcedFallbackCandidateOrderWins(t *testing.T) {
	// Both headers normalize into the candidate list; the earlier candidate
	// ("고객ID") must win even though "회원번호" appears first in the headers.
	headers := []string{"회원번호", "고객 ID"}
	rows := [][]string{{"M-77", "C-1"}}

	records := NewProjector(DefaultProjectorConfig()).ProjectCustomers(headers, rows, mapping.FieldMapping{})
	if len(records) != 1 || records[0].CustomerID != "C-1" {
		t.Fatalf("candidate-list order must break ties, got %+v", records)
	}
}

func TestProjectCustomersDedupFirstWins(t *testing.T) {
	headers := []string{"고객ID", "고객명"}
	m := mappingOf(map[string]string{"고객ID": FieldCustomerID, "고객명": FieldCustomerName})
	rows := [][]string{
		{"C1", "김민수"},
		{"C1", "김 민 수"},
		{"", "박지은"},
		{"", "박지은"},
		{"", ""},
	}

	records := NewProjector(DefaultProjectorConfig()).ProjectCustomers(headers, rows, m)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(records), records)
	}
	if records[0].CustomerName != "김민수" {
		t.Fatalf("first occurrence must win, got %q", records[0].CustomerName)
	}
	if records[1].CustomerName != "박지은" {
		t.Fatalf("name-keyed record missing, got %+v", records[1])
	}
}

func TestProjectCustomersInitializesAggregatesEmpty(t *testing.T) {
	headers := []string{"고객ID"}
	m := mappingOf(map[string]string{"고객ID": FieldCustomerID})
	records := NewProjector(DefaultProjectorConfig()).ProjectCustomers(headers, [][]string{{"C1"}}, m)
	rec := records[0]
	if rec.LastPurchaseDate != "" || rec.TotalAmount != "" || rec.TotalPurchaseCount != "" ||
		rec.CarbonGrade != "" || rec.CarbonScore != "" {
		t.Fatalf("aggregate fields must start empty: %+v", rec)
	}
	if got := len(rec.Row()); got != len(CustomerFields) {
		t.Fatalf("row width %d, want %d", got, len(CustomerFields))
	}
}

func TestCustomerKeyPrecedence(t *testing.T) {
	if key, ok := KeyFor(" C1 ", "김민수"); !ok || key != "ID:C1" {
		t.Fatalf("KeyFor with id = %q, %v", key, ok)
	}
	if key, ok := KeyFor("", " 김민수 "); !ok || key != "NAME:김민수" {
		t.Fatalf("KeyFor with name = %q, %v", key, ok)
	}
	if _, ok := KeyFor("  ", ""); ok {
		t.Fatal("blank identity must be unidentifiable")
	}
}

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"고객 ID":        "고객id",
		"Customer_Id":  "customerid",
		"  고객-번호 (PK)": "고객번호pk",
	}
	for input, want := range cases {
		if got := normalizeHeader(input); got != want {
			t.Errorf("normalizeHeader(%q) = %q, want %q", input, got, want)
		}
	}
}
