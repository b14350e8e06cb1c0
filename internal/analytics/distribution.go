package analytics

import (
	"strings"

	"trading-analytics-go/internal/models"
)

// WinLoss is the pie-chart partition. Zero-profit trades count as losses
// here, unlike Outcomes.
type WinLoss struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

// Distribution partitions trades by profit > 0 versus profit <= 0.
func Distribution(trades []models.Trade) WinLoss {
	var d WinLoss
	for _, t := range trades {
		if t.ProfitValue() > 0 {
			d.Wins++
		} else {
			d.Losses++
		}
	}
	return d
}

// Percent returns the share of n in the partition total, 0 when empty.
func (d WinLoss) Percent(n int) float64 {
	total := d.Wins + d.Losses
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// Outcomes is the strict win-rate classification: zero-profit trades are
// neither winners nor losers and are left out of the rate.
type Outcomes struct {
	Winning    int     `json:"winning_trades"`
	Losing     int     `json:"losing_trades"`
	Breakeven  int     `json:"breakeven_trades"`
	Classified int     `json:"classified_trades"`
	WinRate    float64 `json:"win_rate"`
}

// ClassifyOutcomes counts winners (> 0) and losers (< 0).
func ClassifyOutcomes(trades []models.Trade) Outcomes {
	var o Outcomes
	for _, t := range trades {
		switch p := t.ProfitValue(); {
		case p > 0:
			o.Winning++
		case p < 0:
			o.Losing++
		default:
			o.Breakeven++
		}
	}
	o.Classified = o.Winning + o.Losing
	if o.Classified > 0 {
		o.WinRate = round2(float64(o.Winning) / float64(o.Classified) * 100)
	}
	return o
}

// ActionCount is one bar of the action distribution.
type ActionCount struct {
	Action string `json:"action"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
}

// ActionDistribution counts trades per raw action string, in order of first
// appearance. "buy" and "BUY" are distinct groups that share a label.
func ActionDistribution(trades []models.Trade) []ActionCount {
	pos := make(map[string]int)
	var out []ActionCount
	for _, t := range trades {
		i, ok := pos[t.Action]
		if !ok {
			i = len(out)
			pos[t.Action] = i
			out = append(out, ActionCount{Action: t.Action, Label: strings.ToUpper(t.Action)})
		}
		out[i].Count++
	}
	return out
}
