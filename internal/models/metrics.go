package models

// Metrics is the summary computed by the backend's get_metrics tool.
type Metrics struct {
	TotalTrades          int     `json:"total_trades"`
	WinningTrades        int     `json:"winning_trades"`
	LosingTrades         int     `json:"losing_trades"`
	WinRate              float64 `json:"win_rate"`
	TotalProfit          float64 `json:"total_profit"`
	TotalLoss            float64 `json:"total_loss"`
	NetPnL               float64 `json:"net_pnl"`
	AverageWin           float64 `json:"average_win"`
	AverageLoss          float64 `json:"average_loss"`
	ProfitFactor         float64 `json:"profit_factor"`
	LargestWin           float64 `json:"largest_win"`
	LargestLoss          float64 `json:"largest_loss"`
	MaxConsecutiveWins   int     `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
}

// AccountInfo is one entry of the list_accounts result.
type AccountInfo struct {
	Account        string  `json:"account"`
	TotalTrades    int     `json:"total_trades"`
	Complete       int     `json:"complete"`
	TotalPnL       float64 `json:"total_pnl"`
	LatestActivity string  `json:"latest_activity"`
}
