package match

import (
	"testing"

	"github.com/ecosheet/ecosheet-backend/internal/catalog"
	"github.com/shopspring/decimal"
)

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Entry{
		{ProductName: "친환경 세제", Category: "세제", TotalEmission: decimal.RequireFromString("6.0")},
		{ProductName: "일반 세제", Category: "세제", TotalEmission: decimal.RequireFromString("12.0")},
		{ProductName: "대나무 칫솔", Category: "생활용품", TotalEmission: decimal.RequireFromString("1.5")},
		{ProductName: "유기농 쌀", Category: "곡물", TotalEmission: decimal.RequireFromString("8.0")},
	}, nil)
}

func TestMatchExact(t *testing.T) {
	result, ok := Product("친환경 세제", testCatalog())
	if !ok {
		t.Fatal("expected a match")
	}
	if result.Entry.ProductName != "친환경 세제" || result.Outcome != OutcomeExact {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Score != 5 {
		t.Fatalf("exact score = %d, want full normalized length 5", result.Score)
	}
}

func TestMatchQueryContainsCandidate(t *testing.T) {
	result, ok := Product("프리미엄 친환경 세제 1L", testCatalog())
	if !ok {
		t.Fatal("expected a match")
	}
	if result.Entry.ProductName != "친환경 세제" || result.Outcome != OutcomeContainment {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Score != 5 {
		t.Fatalf("score = %d, want candidate length 5", result.Score)
	}
}

func TestMatchCandidateContainsQuery(t *testing.T) {
	result, ok := Product("대나무", testCatalog())
	if !ok {
		t.Fatal("expected a match")
	}
	if result.Entry.ProductName != "대나무 칫솔" || result.Score != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestMatchTokenOverlap(t *testing.T) {
	// No containment over the whole normalized strings; the 유기농 token is
	// a substring of the candidate token 유기농쌀.
	result, ok := Product("유기농-현미 5kg", testCatalog())
	if !ok {
		t.Fatal("expected a token match")
	}
	if result.Entry.ProductName != "유기농 쌀" || result.Outcome != OutcomeToken {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Score != 3 {
		t.Fatalf("score = %d, want query token length 3", result.Score)
	}
}

func TestMatchHighestScoreWins(t *testing.T) {
	// "일반 세제" (length 4) scores higher than the 세제-only overlap.
	result, ok := Product("일반 세제 대용량", testCatalog())
	if !ok {
		t.Fatal("expected a match")
	}
	if result.Entry.ProductName != "일반 세제" {
		t.Fatalf("unexpected winner %+v", result)
	}
}

func TestMatchFirstSeenWinsOnTie(t *testing.T) {
	cat := catalog.New([]catalog.Entry{
		{ProductName: "세제 A"},
		{ProductName: "세제 B"},
	}, nil)
	result, ok := Product("세제", cat)
	if !ok {
		t.Fatal("expected a match")
	}
	if result.Entry.ProductName != "세제 A" {
		t.Fatalf("tie must keep the first-seen candidate, got %+v", result)
	}
}

func TestMatchMiss(t *testing.T) {
	if result, ok := Product("전혀 관계없는 항목", testCatalog()); ok {
		t.Fatalf("expected a miss, got %+v", result)
	} else if result.Outcome != OutcomeMiss {
		t.Fatalf("unexpected outcome %q", result.Outcome)
	}
	if _, ok := Product("", testCatalog()); ok {
		t.Fatal("empty query must miss")
	}
	if _, ok := Product("세제", nil); ok {
		t.Fatal("nil catalog must miss")
	}
}
