package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ecosheet/ecosheet-backend/pkg/config"
	"github.com/ecosheet/ecosheet-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Loader reads the emission catalog and category baseline CSVs. The loaded
// catalog is cached for the process lifetime; the files are static reference
// data.
type Loader struct {
	cfg  config.CatalogConfig
	logg *logger.Logger

	once   sync.Once
	cached *Catalog
	err    error
}

func NewLoader(cfg config.CatalogConfig, logg *logger.Logger) *Loader {
	return &Loader{cfg: cfg, logg: logg}
}

// Load returns the process-wide catalog, reading the files on first use.
// A missing or unreadable file is an error the caller downgrades: scoring is
// skipped, projection still completes.
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	l.once.Do(func() {
		l.cached, l.err = l.load(ctx)
	})
	return l.cached, l.err
}

func (l *Loader) load(ctx context.Context) (*Catalog, error) {
	entries, order, err := l.loadEntries()
	if err != nil {
		return nil, err
	}
	baselines, err := l.loadBaselines()
	if err != nil {
		return nil, err
	}

	// An entry flagged as its category's base product backfills a baseline
	// the baseline file does not carry.
	for _, name := range order {
		entry := entries[name]
		if !entry.IsBaseProduct || entry.Category == "" {
			continue
		}
		if _, ok := baselines[entry.Category]; !ok {
			baselines[entry.Category] = entry.TotalEmission
		}
	}

	if l.logg != nil {
		l.logg.Info(l.logg.WithFields(ctx, map[string]any{
			"catalog_entries": len(entries),
			"baselines":       len(baselines),
		}), "emission catalog loaded")
	}
	return &Catalog{entries: entries, order: order, baselines: baselines}, nil
}

// Emission catalog columns: industry, code, product_name, emission_factor,
// weight_factor, total_emission, category, is_base_product.
func (l *Loader) loadEntries() (map[string]Entry, []string, error) {
	rows, err := readCSV(l.cfg.EmissionPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading emission catalog: %w", err)
	}

	entries := make(map[string]Entry, len(rows))
	order := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) < 8 {
			continue
		}
		name := strings.TrimSpace(row[2])
		if name == "" {
			continue
		}
		if _, dup := entries[name]; !dup {
			order = append(order, name)
		}
		entries[name] = Entry{
			Industry:       strings.TrimSpace(row[0]),
			Code:           strings.TrimSpace(row[1]),
			ProductName:    name,
			EmissionFactor: parseDecimal(row[3]),
			WeightFactor:   parseDecimal(row[4]),
			TotalEmission:  parseDecimal(row[5]),
			Category:       strings.TrimSpace(row[6]),
			IsBaseProduct:  parseBool(row[7]),
		}
	}
	return entries, order, nil
}

// Baseline columns: category, base_product_name, product_code, base_emission.
func (l *Loader) loadBaselines() (map[string]decimal.Decimal, error) {
	rows, err := readCSV(l.cfg.BaselinePath)
	if err != nil {
		return nil, fmt.Errorf("loading category baselines: %w", err)
	}

	baselines := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		category := strings.TrimSpace(row[0])
		if category == "" {
			continue
		}
		baselines[category] = parseDecimal(row[3])
	}
	return baselines, nil
}

// readCSV parses the file with full quoting support and skips the header row.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	header := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header {
			header = false
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseDecimal(value string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "y", "yes", "예":
		return true
	}
	return false
}
