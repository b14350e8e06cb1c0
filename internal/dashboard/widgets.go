package dashboard

import (
	"time"

	"trading-analytics-go/internal/analytics"
	"trading-analytics-go/internal/models"
)

// Tone is the color role of a displayed value.
type Tone string

const (
	ToneProfit  Tone = "profit"
	ToneLoss    Tone = "loss"
	ToneWarning Tone = "warning"
	ToneInfo    Tone = "info"
)

// Thresholds for metric card coloring.
const (
	goodWinRate      = 0.5
	goodProfitFactor = 1.5
)

// MsgNoMetrics is shown before metrics have been loaded.
const MsgNoMetrics = "No metrics available"

// State is the loading status common to every widget.
type State struct {
	Loaded    bool      `json:"loaded"`
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
	Account   string    `json:"account"`
	Epoch     uint64    `json:"epoch"`
	UpdatedAt time.Time `json:"updated_at"`
}

func state[T any](s Snapshot[T]) State {
	return State{Loaded: s.Loaded, Loading: s.Loading, Error: s.Error, Account: s.Account, Epoch: s.Epoch, UpdatedAt: s.UpdatedAt}
}

// Card is one metric tile.
type Card struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Tone  Tone   `json:"tone"`
}

// MetricsView is the metrics panel.
type MetricsView struct {
	State
	Metrics *models.Metrics `json:"metrics,omitempty"`
	Cards   []Card          `json:"cards,omitempty"`
	Footer  []Card          `json:"footer,omitempty"`
	Message string          `json:"message,omitempty"`
}

func newMetricsView(s Snapshot[*models.Metrics]) MetricsView {
	v := MetricsView{State: state(s), Metrics: s.Data}
	m := s.Data
	if m == nil {
		v.Message = MsgNoMetrics
		return v
	}

	v.Cards = []Card{
		{Label: "Win Rate", Value: analytics.Percent(m.WinRate * 100), Tone: pick(m.WinRate >= goodWinRate, ToneProfit, ToneLoss)},
		{Label: "Net P&L", Value: analytics.Money(m.NetPnL), Tone: pick(m.NetPnL >= 0, ToneProfit, ToneLoss)},
		{Label: "Profit Factor", Value: analytics.Decimal(m.ProfitFactor), Tone: pick(m.ProfitFactor >= goodProfitFactor, ToneProfit, ToneWarning)},
		{Label: "Total Trades", Value: analytics.Count(m.TotalTrades), Tone: ToneInfo},
		{Label: "Avg Win", Value: analytics.Money(m.AverageWin), Tone: ToneProfit},
		{Label: "Avg Loss", Value: analytics.AbsMoney(m.AverageLoss), Tone: ToneLoss},
	}
	v.Footer = []Card{
		{Label: "Wins", Value: analytics.Count(m.WinningTrades), Tone: ToneProfit},
		{Label: "Losses", Value: analytics.Count(m.LosingTrades), Tone: ToneLoss},
		{Label: "Best Win", Value: analytics.Money(m.LargestWin), Tone: ToneProfit},
		{Label: "Worst Loss", Value: analytics.AbsMoney(m.LargestLoss), Tone: ToneLoss},
	}
	return v
}

func pick(ok bool, yes, no Tone) Tone {
	if ok {
		return yes
	}
	return no
}

// TradesView is the trade history table after local filtering.
type TradesView struct {
	State
	Trades  []models.Trade `json:"trades"`
	Shown   int            `json:"shown"`
	Total   int            `json:"total"`
	Summary string         `json:"summary"`
}

// ChartsView holds the performance charts.
type ChartsView struct {
	State
	Cumulative   []analytics.CumulativePoint `json:"cumulative"`
	Distribution analytics.WinLoss           `json:"distribution"`
	Outcomes     analytics.Outcomes          `json:"outcomes"`
	Actions      []analytics.ActionCount     `json:"actions"`
}

func newChartsView(s Snapshot[[]models.Trade], loc *time.Location) ChartsView {
	return ChartsView{
		State:        state(s),
		Cumulative:   analytics.CumulativePnL(s.Data, loc),
		Distribution: analytics.Distribution(s.Data),
		Outcomes:     analytics.ClassifyOutcomes(s.Data),
		Actions:      analytics.ActionDistribution(s.Data),
	}
}

// HeatmapCell is a rendered heatmap cell.
type HeatmapCell struct {
	analytics.Cell
	Average   float64             `json:"average"`
	State     analytics.CellState `json:"state"`
	Intensity float64             `json:"intensity"`
	Opacity   float64             `json:"opacity"`
	Tooltip   string              `json:"tooltip"`
}

// HeatmapRow is one weekday.
type HeatmapRow struct {
	Day   string        `json:"day"`
	Cells []HeatmapCell `json:"cells"`
}

// HeatmapView is the rendered matrix, Sunday first.
type HeatmapView struct {
	State
	Rows     []HeatmapRow `json:"rows"`
	Min      float64      `json:"min"`
	Max      float64      `json:"max"`
	Unplaced int          `json:"unplaced"`
}

func newHeatmapView(s Snapshot[[]models.Trade], loc *time.Location) HeatmapView {
	h := analytics.BuildHeatmap(s.Data, loc)
	v := HeatmapView{State: state(s), Min: h.Min, Max: h.Max, Unplaced: h.Unplaced}
	for day, cells := range h.Cells {
		row := HeatmapRow{Day: analytics.DayNames[day], Cells: make([]HeatmapCell, 0, len(cells))}
		for _, c := range cells {
			row.Cells = append(row.Cells, HeatmapCell{
				Cell:      c,
				Average:   c.Average(),
				State:     c.State(),
				Intensity: h.Intensity(c),
				Opacity:   c.Opacity(),
				Tooltip:   c.Tooltip(),
			})
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}

// AccountsView is the account selector.
type AccountsView struct {
	Accounts     []models.AccountInfo `json:"accounts"`
	Selected     string               `json:"selected"`
	SelectedInfo *models.AccountInfo  `json:"selected_info,omitempty"`
	Error        string               `json:"error,omitempty"`
}
