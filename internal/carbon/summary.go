package carbon

import (
	"sort"
	"strconv"
	"time"

	"github.com/ecosheet/ecosheet-backend/internal/catalog"
	"github.com/ecosheet/ecosheet-backend/internal/match"
	"github.com/ecosheet/ecosheet-backend/internal/schema"
	"github.com/shopspring/decimal"
)

// One planted tree absorbs roughly 22kg of CO2 per year.
var treeAbsorption = decimal.NewFromInt(22)

// Summary holds the four blocks written to the reduction summary sheet.
type Summary struct {
	// Overview covers A1:B5 — total reduction (current year), tree
	// equivalent, eco product ratio, customer engagement.
	Overview [][]string
	// Monthly covers D1:E* — year-month to reduction, newest first.
	Monthly [][]string
	// Category covers G1:H* — category to reduction.
	Category [][]string
	// Segments covers J1:K* — customer segment sizes.
	Segments [][]string
}

type customerStats struct {
	purchases    int
	ecoPurchases int
}

// BuildSummary derives the dashboard summary from a scored Sales Ledger.
// Products are re-matched against the catalog; items that miss are skipped,
// never an error. The overview totals cover now's calendar year while the
// monthly block spans all years.
func BuildSummary(records []schema.SalesRecord, cat *catalog.Catalog, now time.Time) Summary {
	currentYear := now.Year()

	totalReduction := decimal.Zero
	monthly := map[string]decimal.Decimal{}
	byCategory := map[string]decimal.Decimal{}
	stats := map[schema.CustomerKey]*customerStats{}

	totalItems := 0
	ecoItems := 0
	ecoCustomers := map[schema.CustomerKey]struct{}{}

	for _, rec := range records {
		orderDate, dateOK := schema.ParseDate(rec.OrderDate)
		key, keyOK := rec.Key()
		if keyOK {
			if _, ok := stats[key]; !ok {
				stats[key] = &customerStats{}
			}
			stats[key].purchases++
		}

		products := splitList(rec.ProductNames)
		quantities := splitList(rec.Quantity)
		rowHasEco := false
		for idx, product := range products {
			totalItems++
			result, ok := match.Product(product, cat)
			if !ok {
				continue
			}
			if result.Entry.WeightFactor.LessThan(decimal.NewFromInt(1)) {
				ecoItems++
				rowHasEco = true
				if keyOK {
					ecoCustomers[key] = struct{}{}
				}
			}
			baseline, ok := cat.Baseline(result.Entry.Category)
			if !ok {
				continue
			}
			reduction := baseline.
				Sub(result.Entry.TotalEmission).
				Mul(decimal.NewFromInt(quantityAt(quantities, idx)))

			byCategory[result.Entry.Category] = byCategory[result.Entry.Category].Add(reduction)
			if dateOK {
				monthKey := orderDate.Format("2006-01")
				monthly[monthKey] = monthly[monthKey].Add(reduction)
				if orderDate.Year() == currentYear {
					totalReduction = totalReduction.Add(reduction)
				}
			}
		}
		if rowHasEco && keyOK {
			stats[key].ecoPurchases++
		}
	}

	return Summary{
		Overview: overviewBlock(totalReduction, totalItems, ecoItems, len(stats), len(ecoCustomers)),
		Monthly:  monthlyBlock(monthly),
		Category: categoryBlock(byCategory),
		Segments: segmentBlock(stats),
	}
}

func overviewBlock(total decimal.Decimal, totalItems, ecoItems, customers, ecoCustomers int) [][]string {
	trees := total.Div(treeAbsorption).Round(0)
	return [][]string{
		{"구분", "값"},
		{"총_탄소_감축량", total.Round(1).String()},
		{"나무_그루_수", trees.String()},
		{"친환경_제품_비율", ratioPercent(ecoItems, totalItems)},
		{"고객_환경_참여도", ratioPercent(ecoCustomers, customers)},
	}
}

func monthlyBlock(monthly map[string]decimal.Decimal) [][]string {
	months := make([]string, 0, len(monthly))
	for month := range monthly {
		months = append(months, month)
	}
	// Newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(months)))

	rows := [][]string{{"년월", "감축량"}}
	for _, month := range months {
		rows = append(rows, []string{month, monthly[month].Round(1).String()})
	}
	return rows
}

func categoryBlock(byCategory map[string]decimal.Decimal) [][]string {
	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	rows := [][]string{{"카테고리", "감축량"}}
	for _, category := range categories {
		rows = append(rows, []string{category, byCategory[category].Round(1).String()})
	}
	return rows
}

// segmentBlock buckets customers by purchase volume and eco ratio.
func segmentBlock(stats map[schema.CustomerKey]*customerStats) [][]string {
	var champions, loyalists, potentials, newcomers int
	for _, s := range stats {
		ecoRatio := 0.0
		if s.purchases > 0 {
			ecoRatio = float64(s.ecoPurchases) / float64(s.purchases)
		}
		switch {
		case s.purchases >= 5 && ecoRatio >= 0.5:
			champions++
		case s.purchases >= 5:
			loyalists++
		case s.purchases >= 2 && ecoRatio >= 0.3:
			potentials++
		default:
			newcomers++
		}
	}
	return [][]string{
		{"세그먼트", "고객수"},
		{"champions", strconv.Itoa(champions)},
		{"loyalists", strconv.Itoa(loyalists)},
		{"potentials", strconv.Itoa(potentials)},
		{"newcomers", strconv.Itoa(newcomers)},
	}
}

func ratioPercent(part, whole int) string {
	if whole == 0 {
		return "0"
	}
	return decimal.NewFromInt(int64(part)).
		Div(decimal.NewFromInt(int64(whole))).
		Mul(decimal.NewFromInt(100)).
		Round(1).
		String()
}
