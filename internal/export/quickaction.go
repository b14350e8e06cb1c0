package export

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"trading-analytics-go/internal/backend"
	"trading-analytics-go/internal/query"
)

// QuickAction is a predefined one-click export.
type QuickAction struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Platform    PlatformID `json:"platform"`
	// ChatCommand is the natural-language equivalent sent to the assistant.
	ChatCommand  string   `json:"chat_command"`
	Filename     string   `json:"filename"`
	MinProfit    *float64 `json:"min_profit,omitempty"`
	CompleteOnly bool     `json:"complete_only,omitempty"`
}

// QuickResult is the outcome shown next to the action buttons.
type QuickResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

func winnersMin() *float64 {
	v := query.WinnersMinProfit
	return &v
}

var quickActions = []QuickAction{
	{
		ID:          "drive_all",
		Label:       "All Trades → Drive",
		Description: "Export complete dataset to Google Drive",
		Platform:    GoogleDrive,
		ChatCommand: "Export all my trades to Google Drive as CSV",
		Filename:    "all_trades",
	},
	{
		ID:          "drive_winners",
		Label:       "Winners → Drive",
		Description: "Export winning trades only",
		Platform:    GoogleDrive,
		ChatCommand: "Export only winning trades to Google Drive",
		Filename:    "winning_trades",
		MinProfit:   winnersMin(),
	},
	{
		ID:           "qc_backtest",
		Label:        "Backtest Data → QC",
		Description:  "Push indicator dataset to QuantConnect",
		Platform:     QuantConnect,
		ChatCommand:  "Push my full trade dataset with indicators to QuantConnect for backtesting",
		Filename:     "qc_backtest_data",
		CompleteOnly: true,
	},
	{
		ID:           "qc_ml",
		Label:        "ML Training → QC",
		Description:  "Push ML-ready dataset to QuantConnect",
		Platform:     QuantConnect,
		ChatCommand:  "Create an ML training dataset and push to QuantConnect",
		Filename:     "ml_training_data",
		CompleteOnly: true,
	},
	{
		ID:          "kaggle_dataset",
		Label:       "Publish → Kaggle",
		Description: "Publish trading dataset for ML research",
		Platform:    Kaggle,
		ChatCommand: "Create and publish my NQ futures dataset to Kaggle",
		Filename:    "nq_futures_dataset",
	},
	{
		ID:          "download_csv",
		Label:       "Download CSV",
		Description: "Download trade data locally",
		Platform:    Local,
		ChatCommand: "Export all my trades to CSV and give me a download link",
		Filename:    "trade_export",
	},
}

// QuickActions lists the predefined actions in display order.
func QuickActions() []QuickAction {
	out := make([]QuickAction, len(quickActions))
	copy(out, quickActions)
	return out
}

// LookupQuickAction finds an action by id.
func LookupQuickAction(id string) (QuickAction, error) {
	for _, a := range quickActions {
		if a.ID == id {
			return a, nil
		}
	}
	return QuickAction{}, fmt.Errorf("%w: %q", ErrUnknownQuickAction, id)
}

// request builds the export_csv arguments for the action.
func (a QuickAction) request(account string) backend.ExportRequest {
	args := query.Args{Account: account}
	if a.MinProfit != nil {
		v := *a.MinProfit
		args.MinProfit = &v
	}
	if a.CompleteOnly {
		v := true
		args.CompleteOnly = &v
	}
	return backend.ExportRequest{Args: args, Filename: a.Filename}
}

// RunQuickAction exports directly, without a job record, and resolves a
// download link.
func (o *Orchestrator) RunQuickAction(ctx context.Context, account string, a QuickAction) QuickResult {
	logger := o.logger.With(zap.String("quick_action", a.ID))

	artifact, err := o.api.ExportCSV(ctx, a.request(account))
	if err != nil {
		logger.Warn("Quick action export failed", zap.Error(err))
		msg := MsgExportFailed
		if !backend.Malformed(err) {
			msg = failureMessage(err)
		}
		return QuickResult{ID: a.ID, Message: msg}
	}

	res := QuickResult{ID: a.ID, Success: true}
	if artifact.Count > 0 {
		res.Message = fmt.Sprintf("Exported %d successfully", artifact.Count)
	} else {
		res.Message = "Exported trades successfully"
	}

	url, err := o.api.GetExportURL(ctx, artifact.S3Key)
	if err != nil {
		logger.Debug("No download URL for quick action", zap.Error(err))
	}
	res.URL = url
	return res
}
