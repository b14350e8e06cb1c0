package analytics

import (
	"math"
	"time"

	"trading-analytics-go/internal/models"
	"trading-analytics-go/internal/timestamp"
)

// DayNames are the heatmap row labels, Sunday first.
var DayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

const (
	minIntensity = 0.2
	maxIntensity = 1.0
)

// CellState selects how a heatmap cell is drawn.
type CellState string

const (
	NoTrades CellState = "no_trades"
	Profit   CellState = "profit"
	Loss     CellState = "loss"
)

// Cell accumulates the trades placed in one (day, hour) slot.
type Cell struct {
	Day       int     `json:"day"`
	Hour      int     `json:"hour"`
	SumProfit float64 `json:"sum_profit"`
	Count     int     `json:"count"`
}

// Average is SumProfit / Count, or 0 for an empty cell. Use State to tell
// an empty cell from one that averages to zero.
func (c Cell) Average() float64 {
	if c.Count == 0 {
		return 0
	}
	return c.SumProfit / float64(c.Count)
}

// State reports the rendering state. A zero average on a non-empty cell is
// a profit cell.
func (c Cell) State() CellState {
	switch {
	case c.Count == 0:
		return NoTrades
	case c.Average() >= 0:
		return Profit
	default:
		return Loss
	}
}

// Opacity scales with trade density: 0.2 for an empty cell, otherwise
// 0.3 plus 0.07 per trade, capped at 1.
func (c Cell) Opacity() float64 {
	if c.Count == 0 {
		return minIntensity
	}
	return math.Min(0.3+float64(c.Count)/10*0.7, 1)
}

// Tooltip is the hover text for the cell.
func (c Cell) Tooltip() string {
	return printer.Sprintf("%s %d:00 - %d trades, Avg: %s", DayNames[c.Day], c.Hour, c.Count, Money(c.Average()))
}

// Heatmap is the day-of-week by hour-of-day matrix.
type Heatmap struct {
	Cells [7][24]Cell `json:"cells"`
	// Min and Max are the extreme non-empty cell averages, both seeded at 0.
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	// Unplaced counts trades whose timestamp could not be read.
	Unplaced int `json:"unplaced"`
}

// BuildHeatmap buckets trades by local weekday and hour in loc. A trade
// whose timestamp cannot be read is not placed at the epoch; it is counted
// in Unplaced and left out of the cells and of Min/Max.
func BuildHeatmap(trades []models.Trade, loc *time.Location) Heatmap {
	var h Heatmap
	for d := range h.Cells {
		for hr := range h.Cells[d] {
			h.Cells[d][hr] = Cell{Day: d, Hour: hr}
		}
	}

	for _, t := range trades {
		ms := timestamp.NormalizeIn(t.Timestamp.String(), loc)
		if ms == 0 {
			h.Unplaced++
			continue
		}
		at := time.UnixMilli(ms).In(loc)
		cell := &h.Cells[at.Weekday()][at.Hour()]
		cell.SumProfit += t.ProfitValue()
		cell.Count++
	}

	for d := range h.Cells {
		for hr := range h.Cells[d] {
			c := h.Cells[d][hr]
			if c.Count == 0 {
				continue
			}
			avg := c.Average()
			h.Min = math.Min(h.Min, avg)
			h.Max = math.Max(h.Max, avg)
		}
	}
	return h
}

// Cell returns the cell for a weekday and hour.
func (h Heatmap) Cell(day time.Weekday, hour int) Cell {
	return h.Cells[day][hour]
}

// Intensity is |avg| normalized against the most extreme cell average,
// clamped to [0.2, 1]. A flat matrix yields the minimum.
func (h Heatmap) Intensity(c Cell) float64 {
	denom := math.Max(math.Abs(h.Min), math.Abs(h.Max))
	if denom == 0 {
		return minIntensity
	}
	return math.Min(math.Max(math.Abs(c.Average())/denom, minIntensity), maxIntensity)
}

// Total is the number of trades placed on the matrix.
func (h Heatmap) Total() int {
	n := 0
	for d := range h.Cells {
		for hr := range h.Cells[d] {
			n += h.Cells[d][hr].Count
		}
	}
	return n
}
