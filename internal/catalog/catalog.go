package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Entry is one reference product with its emission data.
type Entry struct {
	Industry       string
	Code           string
	ProductName    string
	EmissionFactor decimal.Decimal
	WeightFactor   decimal.Decimal
	TotalEmission  decimal.Decimal
	Category       string
	IsBaseProduct  bool
}

// Catalog holds the reference emission data for one scoring pass. Immutable
// after load, safe to share across concurrent jobs.
type Catalog struct {
	entries   map[string]Entry
	order     []string
	baselines map[string]decimal.Decimal
}

// New builds a catalog from in-memory entries, preserving entry order.
func New(entries []Entry, baselines map[string]decimal.Decimal) *Catalog {
	byName := make(map[string]Entry, len(entries))
	order := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.ProductName == "" {
			continue
		}
		if _, dup := byName[entry.ProductName]; !dup {
			order = append(order, entry.ProductName)
		}
		byName[entry.ProductName] = entry
	}
	if baselines == nil {
		baselines = map[string]decimal.Decimal{}
	}
	return &Catalog{entries: byName, order: order, baselines: baselines}
}

// Lookup returns the entry registered under the exact product name.
func (c *Catalog) Lookup(productName string) (Entry, bool) {
	entry, ok := c.entries[productName]
	return entry, ok
}

// ProductNames lists catalog keys in file order. Matching iterates in this
// order so equal-score ties resolve deterministically to the first entry.
func (c *Catalog) ProductNames() []string {
	return c.order
}

// Baseline returns the reference emission for a category.
func (c *Catalog) Baseline(category string) (decimal.Decimal, bool) {
	baseline, ok := c.baselines[strings.TrimSpace(category)]
	return baseline, ok
}

// Size reports the number of catalog entries.
func (c *Catalog) Size() int {
	return len(c.entries)
}
