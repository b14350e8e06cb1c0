// Package analytics derives chart and heatmap views from a fetched trade
// list. Every function is pure and leaves its input untouched.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"trading-analytics-go/internal/models"
	"trading-analytics-go/internal/timestamp"
)

// CumulativePoint is one sample of the running P&L line.
type CumulativePoint struct {
	Index      int     `json:"index"`
	Profit     float64 `json:"profit"`
	Cumulative float64 `json:"cumulative"`
	Date       string  `json:"date"`
}

// CumulativePnL orders trades by normalized timestamp, oldest first, and
// emits the running profit sum. Trades with equal timestamps keep their
// input order. The sum accumulates unrounded values; only emitted fields
// are rounded.
func CumulativePnL(trades []models.Trade, loc *time.Location) []CumulativePoint {
	ordered := SortedByTime(trades, loc)

	points := make([]CumulativePoint, 0, len(ordered))
	var running float64
	for i, t := range ordered {
		profit := t.ProfitValue()
		running += profit
		points = append(points, CumulativePoint{
			Index:      i + 1,
			Profit:     round2(profit),
			Cumulative: round2(running),
			Date:       timestamp.FormatDate(timestamp.NormalizeIn(t.Timestamp.String(), loc), loc),
		})
	}
	return points
}

// SortedByTime returns a copy of trades in ascending normalized-timestamp
// order. Unknown times normalize to 0 and therefore come first.
func SortedByTime(trades []models.Trade, loc *time.Location) []models.Trade {
	keys := make([]int64, len(trades))
	idx := make([]int, len(trades))
	for i, t := range trades {
		keys[i] = timestamp.NormalizeIn(t.Timestamp.String(), loc)
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]] < keys[idx[b]]
	})

	out := make([]models.Trade, len(trades))
	for i, j := range idx {
		out[i] = trades[j]
	}
	return out
}

// round2 rounds half away from zero to two decimal places.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
