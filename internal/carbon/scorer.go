package carbon

import (
	"strconv"
	"strings"

	"github.com/ecosheet/ecosheet-backend/internal/catalog"
	"github.com/ecosheet/ecosheet-backend/internal/match"
	"github.com/ecosheet/ecosheet-backend/internal/schema"
	"github.com/shopspring/decimal"
)

// Scorer computes per-line-item and per-order carbon reductions against the
// emission catalog.
type Scorer struct {
	cat *catalog.Catalog
}

func NewScorer(cat *catalog.Catalog) *Scorer {
	return &Scorer{cat: cat}
}

// LedgerScore carries the per-customer totals plus match counters for
// logging and metrics.
type LedgerScore struct {
	Totals  map[schema.CustomerKey]decimal.Decimal
	Matched int
	Missed  int
}

// ScoreLedger fills PerProductReduction and TotalReduction on every record
// in place and accumulates per-customer totals by CustomerKey. Unmatched
// products and categories without a baseline contribute zero, silently.
func (s *Scorer) ScoreLedger(records []schema.SalesRecord) LedgerScore {
	score := LedgerScore{Totals: make(map[schema.CustomerKey]decimal.Decimal)}

	for i := range records {
		rec := &records[i]
		products := splitList(rec.ProductNames)
		quantities := splitList(rec.Quantity)

		if len(products) == 0 {
			rec.PerProductReduction = ""
			rec.TotalReduction = decimal.Zero.StringFixed(2)
			continue
		}

		perProduct := make([]string, 0, len(products))
		orderTotal := decimal.Zero
		for idx, product := range products {
			reduction := s.scoreItem(product, quantityAt(quantities, idx), &score)
			perProduct = append(perProduct, reduction.StringFixed(2))
			orderTotal = orderTotal.Add(reduction)
		}
		orderTotal = orderTotal.Round(2)

		rec.PerProductReduction = strings.Join(perProduct, ",")
		rec.TotalReduction = orderTotal.StringFixed(2)

		if key, ok := rec.Key(); ok {
			score.Totals[key] = score.Totals[key].Add(orderTotal)
		}
	}

	for key, total := range score.Totals {
		score.Totals[key] = total.Round(2)
	}
	return score
}

func (s *Scorer) scoreItem(product string, quantity int64, score *LedgerScore) decimal.Decimal {
	result, ok := match.Product(product, s.cat)
	if !ok {
		score.Missed++
		return decimal.Zero
	}
	baseline, ok := s.cat.Baseline(result.Entry.Category)
	if !ok {
		score.Missed++
		return decimal.Zero
	}
	score.Matched++
	return baseline.
		Sub(result.Entry.TotalEmission).
		Mul(decimal.NewFromInt(quantity)).
		Round(2)
}

// ApplyScores writes score and grade onto matching registry rows. Rows with
// no scored sales activity keep their empty initialized fields.
func ApplyScores(customers []schema.CustomerRecord, totals map[schema.CustomerKey]decimal.Decimal) {
	for i := range customers {
		key, ok := customers[i].Key()
		if !ok {
			continue
		}
		total, ok := totals[key]
		if !ok {
			continue
		}
		customers[i].CarbonScore = total.StringFixed(2)
		customers[i].CarbonGrade = string(GradeFor(total))
	}
}

func splitList(value string) []string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// quantityAt reads the parallel quantity list, defaulting to 1 for missing
// or non-numeric entries.
func quantityAt(quantities []string, idx int) int64 {
	if idx >= len(quantities) {
		return 1
	}
	qty, err := strconv.ParseInt(quantities[idx], 10, 64)
	if err != nil || qty <= 0 {
		return 1
	}
	return qty
}
