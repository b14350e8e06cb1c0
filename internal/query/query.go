// Package query turns user-selected filter options into the argument set
// sent with query_trades and export_csv.
package query

import (
	"fmt"
	"time"
)

// Scope is a named subset selector. Exactly one scope is active.
type Scope string

const (
	ScopeAllTrades      Scope = "all_trades"
	ScopeWinners        Scope = "winners"
	ScopeLosers         Scope = "losers"
	ScopeEntries        Scope = "entries"
	ScopeExits          Scope = "exits"
	ScopeWithIndicators Scope = "with_indicators"
)

// Scope thresholds sent to the backend.
const (
	WinnersMinProfit = 0.01
	LosersMaxProfit  = -0.01
)

// ParseScope validates a scope name. An empty name is ScopeAllTrades.
func ParseScope(s string) (Scope, error) {
	switch sc := Scope(s); sc {
	case "":
		return ScopeAllTrades, nil
	case ScopeAllTrades, ScopeWinners, ScopeLosers, ScopeEntries, ScopeExits, ScopeWithIndicators:
		return sc, nil
	default:
		return "", fmt.Errorf("unknown data scope %q", s)
	}
}

// Args is the normalized argument set for a trade query. Pointer fields
// are omitted from the JSON body when nil.
type Args struct {
	Account      string   `json:"account"`
	StartDate    *string  `json:"start_date,omitempty"`
	EndDate      *string  `json:"end_date,omitempty"`
	Action       *string  `json:"action,omitempty"`
	MinProfit    *float64 `json:"min_profit,omitempty"`
	MaxProfit    *float64 `json:"max_profit,omitempty"`
	SignalType   *string  `json:"signal_type,omitempty"`
	CompleteOnly *bool    `json:"complete_only,omitempty"`
	Limit        int      `json:"limit,omitempty"`
}

// Options are the user-facing selections a query is built from.
type Options struct {
	Account   string
	Range     DateRange
	Action    string
	MinProfit *float64
	MaxProfit *float64
	Scope     Scope
	Limit     int
}

// Build constructs fresh query arguments for one fetch. Explicit profit
// bounds are applied first; the scope mapping is applied last and wins.
func Build(opts Options, now time.Time) Args {
	bounds := opts.Range.Bounds(now)
	args := Args{
		Account:   opts.Account,
		StartDate: bounds.StartDate,
		EndDate:   bounds.EndDate,
		MinProfit: copyFloat(opts.MinProfit),
		MaxProfit: copyFloat(opts.MaxProfit),
		Limit:     opts.Limit,
	}
	if opts.Action != "" {
		action := opts.Action
		args.Action = &action
	}
	applyScope(&args, opts.Scope)
	return args
}

func applyScope(args *Args, scope Scope) {
	switch scope {
	case ScopeWinners:
		v := WinnersMinProfit
		args.MinProfit = &v
	case ScopeLosers:
		v := LosersMaxProfit
		args.MaxProfit = &v
	case ScopeEntries:
		v := "entry"
		args.SignalType = &v
	case ScopeExits:
		v := "exit"
		args.SignalType = &v
	case ScopeWithIndicators:
		v := true
		args.CompleteOnly = &v
	}
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
