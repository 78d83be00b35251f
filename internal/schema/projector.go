package schema

import (
	"strings"

	"github.com/ecosheet/ecosheet-backend/internal/mapping"
)

// ProjectorConfig carries the fallback policies applied after base
// projection. Injected so alternate defaults/languages need no code edits.
type ProjectorConfig struct {
	// DefaultOrderStatus fills order_status on every row when the field has
	// no source mapping at all.
	DefaultOrderStatus string
	// CompletionLagDays is added to order_date to synthesize a missing
	// completion_date mapping.
	CompletionLagDays int
	// ForcedIDCandidates and ForcedNameCandidates drive the forced-mapping
	// fallback for customer identity columns. Compared after normalization;
	// list order breaks ties, not header order.
	ForcedIDCandidates   []string
	ForcedNameCandidates []string
}

// DefaultProjectorConfig returns the policies used in production.
func DefaultProjectorConfig() ProjectorConfig {
	return ProjectorConfig{
		DefaultOrderStatus: "거래 완료",
		CompletionLagDays:  3,
		ForcedIDCandidates: []string{
			"고객ID", "customer_id", "CustomerId", "고객번호", "회원번호", "고객 고유 번호", "ID",
		},
		ForcedNameCandidates: []string{
			"고객명", "customer_name", "이름", "주문자명", "성명", "회원명", "고객 이름", "name",
		},
	}
}

// Projector turns raw header/row data into normalized records using parsed
// field mappings.
type Projector struct {
	cfg ProjectorConfig
}

func NewProjector(cfg ProjectorConfig) *Projector {
	if cfg.DefaultOrderStatus == "" && cfg.CompletionLagDays == 0 &&
		len(cfg.ForcedIDCandidates) == 0 && len(cfg.ForcedNameCandidates) == 0 {
		cfg = DefaultProjectorConfig()
	}
	return &Projector{cfg: cfg}
}

const noIndex = -1

// ProjectSales builds one Sales Ledger row per raw row. Carbon fields stay
// empty here; the scorer fills them.
func (p *Projector) ProjectSales(headers []string, rows [][]string, m mapping.FieldMapping) []SalesRecord {
	indices := p.resolveIndices(headers, m, SalesFields)

	statusMapped := indices[FieldOrderStatus] != noIndex
	completionMapped := indices[FieldCompletionDate] != noIndex
	orderDateMapped := indices[FieldOrderDate] != noIndex

	records := make([]SalesRecord, 0, len(rows))
	for _, row := range rows {
		rec := SalesRecord{
			OrderID:        cellAt(row, indices[FieldOrderID]),
			CustomerID:     cellAt(row, indices[FieldCustomerID]),
			CustomerName:   cellAt(row, indices[FieldCustomerName]),
			OrderDate:      cellAt(row, indices[FieldOrderDate]),
			CompletionDate: cellAt(row, indices[FieldCompletionDate]),
			ProductNames:   cellAt(row, indices[FieldProductNames]),
			UnitPrice:      cellAt(row, indices[FieldUnitPrice]),
			Quantity:       cellAt(row, indices[FieldQuantity]),
			TotalAmount:    cellAt(row, indices[FieldTotalAmount]),
			OrderStatus:    cellAt(row, indices[FieldOrderStatus]),
		}
		if !completionMapped && orderDateMapped && rec.OrderDate != "" {
			if parsed, ok := ParseDate(rec.OrderDate); ok {
				rec.CompletionDate = parsed.AddDate(0, 0, p.cfg.CompletionLagDays).Format(ISODate)
			}
		}
		if !statusMapped {
			rec.OrderStatus = p.cfg.DefaultOrderStatus
		}
		records = append(records, rec)
	}
	return records
}

// ProjectCustomers builds the deduplicated Customer Registry. Rows are
// inserted in raw order; a row whose CustomerKey was already seen is skipped
// (first occurrence wins), and unidentifiable rows are excluded.
func (p *Projector) ProjectCustomers(headers []string, rows [][]string, m mapping.FieldMapping) []CustomerRecord {
	indices := p.resolveIndices(headers, m, CustomerFields)

	seen := make(map[CustomerKey]struct{}, len(rows))
	records := make([]CustomerRecord, 0, len(rows))
	for _, row := range rows {
		rec := CustomerRecord{
			CustomerID:   cellAt(row, indices[FieldCustomerID]),
			CustomerName: cellAt(row, indices[FieldCustomerName]),
			Contact:      cellAt(row, indices[FieldContact]),
			Email:        cellAt(row, indices[FieldEmail]),
			BirthDate:    cellAt(row, indices[FieldBirthDate]),
			JoinDate:     cellAt(row, indices[FieldJoinDate]),
		}
		key, ok := rec.Key()
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		records = append(records, rec)
	}
	return records
}

// resolveIndices maps each target field to its source column, noIndex when
// unmapped. Customer identity fields get the forced-mapping fallback when
// the parsed mapping leaves them unresolved.
func (p *Projector) resolveIndices(headers []string, m mapping.FieldMapping, fields []string) map[string]int {
	indices := make(map[string]int, len(fields))
	for _, field := range fields {
		indices[field] = noIndex
		if header, ok := m.Source(field); ok {
			indices[field] = headerIndex(headers, header)
		}
	}
	if indices[FieldCustomerID] == noIndex {
		indices[FieldCustomerID] = forcedIndex(headers, p.cfg.ForcedIDCandidates)
	}
	if indices[FieldCustomerName] == noIndex {
		indices[FieldCustomerName] = forcedIndex(headers, p.cfg.ForcedNameCandidates)
	}
	return indices
}

func headerIndex(headers []string, header string) int {
	for i, h := range headers {
		if h == header {
			return i
		}
	}
	return noIndex
}

// forcedIndex scans candidates in list order; the first candidate with any
// normalized-equal header wins.
func forcedIndex(headers []string, candidates []string) int {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}
	for _, candidate := range candidates {
		want := normalizeHeader(candidate)
		if want == "" {
			continue
		}
		for i, have := range normalized {
			if have == want {
				return i
			}
		}
	}
	return noIndex
}

// normalizeHeader folds case and strips every character outside
// [a-z0-9가-힣], so "고객 ID", "고객_id" and "고객id" compare equal.
func normalizeHeader(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(header) {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '가' && r <= '힣':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cellAt(row []string, index int) string {
	if index == noIndex || index >= len(row) {
		return ""
	}
	return row[index]
}
