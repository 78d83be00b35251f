package match

import (
	"strings"
	"unicode"

	"github.com/ecosheet/ecosheet-backend/internal/catalog"
)

// Result is a resolved catalog entry with its match score. Outcome records
// which rule produced it, for logging and metrics only.
type Result struct {
	Entry   catalog.Entry
	Score   int
	Outcome string
}

// Match outcomes.
const (
	OutcomeExact       = "exact"
	OutcomeContainment = "containment"
	OutcomeToken       = "token"
	OutcomeMiss        = "miss"
)

// Product resolves a sold product name against the catalog: exact key match
// first, then containment scoring over normalized names, then token overlap.
// The single highest-scoring candidate wins; the first seen wins exact ties.
// A zero best score is a miss, never an error: the caller scores the item as
// zero reduction.
func Product(query string, cat *catalog.Catalog) (Result, bool) {
	if cat == nil {
		return Result{Outcome: OutcomeMiss}, false
	}
	if entry, ok := cat.Lookup(query); ok {
		return Result{
			Entry:   entry,
			Score:   runeLen(normalize(query)),
			Outcome: OutcomeExact,
		}, true
	}

	nq := normalize(query)
	if nq == "" {
		return Result{Outcome: OutcomeMiss}, false
	}
	queryTokens := tokenize(nq)

	best := Result{Outcome: OutcomeMiss}
	for _, name := range cat.ProductNames() {
		nc := normalize(name)
		score, outcome := containmentScore(nq, nc)
		if score == 0 {
			score = tokenScore(queryTokens, tokenize(nc))
			outcome = OutcomeToken
		}
		if score > best.Score {
			entry, _ := cat.Lookup(name)
			best = Result{Entry: entry, Score: score, Outcome: outcome}
		}
	}
	if best.Score == 0 {
		return Result{Outcome: OutcomeMiss}, false
	}
	return best, true
}

func containmentScore(nq, nc string) (int, string) {
	if nc == "" {
		return 0, OutcomeMiss
	}
	if strings.Contains(nq, nc) {
		return runeLen(nc), OutcomeContainment
	}
	if strings.Contains(nc, nq) {
		return runeLen(nq), OutcomeContainment
	}
	return 0, OutcomeMiss
}

// tokenScore finds any query token of length >= 2 that is a substring of, or
// contains, any candidate token; the score is that query token's length.
func tokenScore(queryTokens, candidateTokens []string) int {
	for _, qt := range queryTokens {
		if runeLen(qt) < 2 {
			continue
		}
		for _, ct := range candidateTokens {
			if strings.Contains(ct, qt) || strings.Contains(qt, ct) {
				return runeLen(qt)
			}
		}
	}
	return 0
}

// normalize removes whitespace and folds case.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// tokenize splits on any rune outside [가-힣a-z0-9].
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= '0' && r <= '9':
			return false
		case r >= '가' && r <= '힣':
			return false
		}
		return true
	})
}

func runeLen(s string) int {
	return len([]rune(s))
}
