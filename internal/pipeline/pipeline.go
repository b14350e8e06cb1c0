// Package pipeline filters and orders an already-fetched trade list for the
// trade history table.
package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"trading-analytics-go/internal/models"
	"trading-analytics-go/internal/timestamp"
)

// Outcome selects trades by profit sign.
type Outcome string

const (
	OutcomeAll    Outcome = "all"
	OutcomeWins   Outcome = "wins"
	OutcomeLosses Outcome = "losses"
)

// SortKey selects the ordering field.
type SortKey string

const (
	SortByDate   SortKey = "date"
	SortByProfit SortKey = "profit"
)

// Order is the sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Filters are combined with logical AND. Empty string fields match
// everything.
type Filters struct {
	Outcome Outcome
	// Ticker is a case-insensitive substring match.
	Ticker string
	// Action is a case-insensitive equality match.
	Action string
}

// Options is the full pipeline input besides the trades.
type Options struct {
	Filters  Filters
	SortBy   SortKey
	Order    Order
	Location *time.Location
}

// DefaultOptions mirrors the table's initial state: all trades, newest first.
func DefaultOptions() Options {
	return Options{
		Filters: Filters{Outcome: OutcomeAll},
		SortBy:  SortByDate,
		Order:   Desc,
	}
}

// Parse fills options from their string forms, keeping defaults for empty
// values.
func Parse(outcome, sortBy, order string) (Options, error) {
	opts := DefaultOptions()
	switch o := Outcome(outcome); o {
	case "":
	case OutcomeAll, OutcomeWins, OutcomeLosses:
		opts.Filters.Outcome = o
	default:
		return opts, fmt.Errorf("unknown outcome filter %q", outcome)
	}
	switch k := SortKey(sortBy); k {
	case "":
	case SortByDate, SortByProfit:
		opts.SortBy = k
	default:
		return opts, fmt.Errorf("unknown sort key %q", sortBy)
	}
	switch d := Order(order); d {
	case "":
	case Asc, Desc:
		opts.Order = d
	default:
		return opts, fmt.Errorf("unknown sort order %q", order)
	}
	return opts, nil
}

// Apply returns a new filtered and sorted slice. The input is not modified.
// Applying the same options to the result returns an equal slice.
func Apply(trades []models.Trade, opts Options) []models.Trade {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if opts.Filters.match(t) {
			out = append(out, t)
		}
	}

	key := sortKey(opts.SortBy, loc)
	keys := make([]float64, len(out))
	sorted := make([]int, len(out))
	for i := range out {
		sorted[i] = i
		keys[i] = key(out[i])
	}
	sort.SliceStable(sorted, func(a, b int) bool {
		diff := keys[sorted[a]] - keys[sorted[b]]
		if opts.Order == Desc {
			diff = -diff
		}
		return diff < 0
	})

	result := make([]models.Trade, len(out))
	for i, j := range sorted {
		result[i] = out[j]
	}
	return result
}

func (f Filters) match(t models.Trade) bool {
	profit := t.ProfitValue()
	switch f.Outcome {
	case OutcomeWins:
		if profit <= 0 {
			return false
		}
	case OutcomeLosses:
		if profit >= 0 {
			return false
		}
	}
	if f.Ticker != "" && !strings.Contains(strings.ToLower(t.Ticker), strings.ToLower(f.Ticker)) {
		return false
	}
	if f.Action != "" && !strings.EqualFold(t.Action, f.Action) {
		return false
	}
	return true
}

func sortKey(k SortKey, loc *time.Location) func(models.Trade) float64 {
	if k == SortByProfit {
		return models.Trade.ProfitValue
	}
	return func(t models.Trade) float64 {
		return float64(timestamp.NormalizeIn(t.Timestamp.String(), loc))
	}
}

// Summary is the table footer, e.g. "Showing 12 of 40 trades".
func Summary(shown, total int) string {
	return fmt.Sprintf("Showing %d of %d trades", shown, total)
}
