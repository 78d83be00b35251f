package aggregate

import (
	"strconv"
	"strings"
	"time"

	"github.com/ecosheet/ecosheet-backend/internal/schema"
	"github.com/shopspring/decimal"
)

// Totals is one customer's purchase aggregate over the Sales Ledger.
type Totals struct {
	TotalAmount   decimal.Decimal
	PurchaseCount int
	LastPurchase  time.Time
	HasLastDate   bool
}

// Purchases folds the ledger into per-customer totals by CustomerKey. Rows
// with no resolvable identity are skipped. Non-numeric amounts count as 0;
// unparseable order dates are ignored for the last-purchase max, never
// propagated.
func Purchases(ledger []schema.SalesRecord) map[schema.CustomerKey]Totals {
	totals := make(map[schema.CustomerKey]Totals)
	for _, rec := range ledger {
		key, ok := rec.Key()
		if !ok {
			continue
		}
		t := totals[key]
		t.TotalAmount = t.TotalAmount.Add(parseAmount(rec.TotalAmount))
		t.PurchaseCount++
		if orderDate, ok := schema.ParseDate(rec.OrderDate); ok {
			if !t.HasLastDate || orderDate.After(t.LastPurchase) {
				t.LastPurchase = orderDate
				t.HasLastDate = true
			}
		}
		totals[key] = t
	}
	return totals
}

// Apply writes the aggregates onto matching registry rows. Rows with no
// sales activity keep their empty initialized fields.
func Apply(customers []schema.CustomerRecord, totals map[schema.CustomerKey]Totals) {
	for i := range customers {
		key, ok := customers[i].Key()
		if !ok {
			continue
		}
		t, ok := totals[key]
		if !ok {
			continue
		}
		customers[i].TotalAmount = t.TotalAmount.String()
		customers[i].TotalPurchaseCount = strconv.Itoa(t.PurchaseCount)
		if t.HasLastDate {
			customers[i].LastPurchaseDate = t.LastPurchase.Format(schema.ISODate)
		}
	}
}

// parseAmount strips currency decoration (commas, won sign, whitespace)
// before parsing. Anything that still fails parses as zero.
func parseAmount(value string) decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', '₩', ' ', '\t', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(value))
	if cleaned == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return amount
}
