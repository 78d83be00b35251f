package carbon

import "github.com/shopspring/decimal"

// Grade is the customer's carbon-reduction tier.
type Grade string

const (
	GradeStone    Grade = "Stone"
	GradeBronze   Grade = "Bronze"
	GradeSilver   Grade = "Silver"
	GradeGold     Grade = "Gold"
	GradePlatinum Grade = "Platinum"
	GradeDiamond  Grade = "Diamond"
)

var gradeRanks = map[Grade]int{
	GradeStone:    0,
	GradeBronze:   1,
	GradeSilver:   2,
	GradeGold:     3,
	GradePlatinum: 4,
	GradeDiamond:  5,
}

// Rank orders grades Stone < Bronze < Silver < Gold < Platinum < Diamond.
func (g Grade) Rank() int {
	return gradeRanks[g]
}

var (
	bronzeUpper   = decimal.NewFromInt(200)
	silverUpper   = decimal.NewFromInt(500)
	goldUpper     = decimal.NewFromInt(1000)
	platinumUpper = decimal.NewFromInt(3000)
)

// GradeFor maps an aggregate score to its tier. Pure and total: it is always
// recomputed from the final score, never adjusted incrementally, which keeps
// repeated scoring runs idempotent.
func GradeFor(score decimal.Decimal) Grade {
	switch {
	case score.Sign() <= 0:
		return GradeStone
	case score.LessThan(bronzeUpper):
		return GradeBronze
	case score.LessThan(silverUpper):
		return GradeSilver
	case score.LessThan(goldUpper):
		return GradeGold
	case score.LessThan(platinumUpper):
		return GradePlatinum
	default:
		return GradeDiamond
	}
}
