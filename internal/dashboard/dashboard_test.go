package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trading-analytics-go/internal/analytics"
	"trading-analytics-go/internal/backend"
	"trading-analytics-go/internal/backend/backendtest"
	"trading-analytics-go/internal/chat"
	"trading-analytics-go/internal/config"
	"trading-analytics-go/internal/database"
	"trading-analytics-go/internal/export"
	"trading-analytics-go/internal/models"
	"trading-analytics-go/internal/pipeline"
	"trading-analytics-go/internal/query"
)

var fixedNow = time.Date(2026, 2, 13, 10, 30, 0, 0, time.UTC)

func setupTest(t *testing.T, account string) (*Dashboard, *backendtest.MockAPI) {
	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)

	api := new(backendtest.MockAPI)
	exports := export.NewOrchestrator(api, database.NewJobStore(db), config.Exports{Limit: 10000, HistorySize: 10}, time.UTC, zap.NewNop())
	cfg := config.Dashboard{
		Account:          account,
		FallbackAccount:  "FALLBACK",
		TradesLimit:      100,
		ChartsLimit:      100,
		HeatmapLimit:     500,
		TradesWindowDays: 30,
		Timezone:         "UTC",
	}
	d := New(api, exports, cfg, zap.NewNop())
	d.now = func() time.Time { return fixedNow }
	return d, api
}

func trades() []models.Trade {
	return []models.Trade{
		{ID: "1", Timestamp: "2026-02-10T14:00:00Z", Action: "long_exit", Ticker: "NQ1!", Profit: "10"},
		{ID: "2", Timestamp: "2026-02-11T14:00:00Z", Action: "short_exit", Ticker: "ES1!", Profit: "-5"},
		{ID: "3", Timestamp: "2026-02-12T14:00:00Z", Action: "long_exit", Ticker: "NQ1!", Profit: "20"},
	}
}

func TestAccounts_SelectsFirstListed(t *testing.T) {
	// Arrange
	d, api := setupTest(t, "")
	api.On("ListAccounts", mock.Anything).Return([]models.AccountInfo{
		{Account: "A1", TotalTrades: 5},
		{Account: "A2", TotalTrades: 9},
	}, nil).Once()

	// Act
	view := d.Accounts(context.Background())
	again := d.Accounts(context.Background())

	// Assert
	assert.Equal(t, "A1", view.Selected)
	require.NotNil(t, view.SelectedInfo)
	assert.Equal(t, 5, view.SelectedInfo.TotalTrades)
	assert.Equal(t, view, again, "account list is cached for the epoch")
	api.AssertExpectations(t)
}

func TestAccounts_FallbackOnError(t *testing.T) {
	d, api := setupTest(t, "")
	api.On("ListAccounts", mock.Anything).Return(nil, errors.New("connection refused"))

	view := d.Accounts(context.Background())

	assert.Equal(t, "FALLBACK", view.Selected)
	assert.Equal(t, "connection refused", view.Error)
	assert.Nil(t, view.SelectedInfo)
	assert.Equal(t, "FALLBACK", d.Account())
}

func TestAccounts_KeepsSelection(t *testing.T) {
	d, api := setupTest(t, "A2")
	api.On("ListAccounts", mock.Anything).Return([]models.AccountInfo{{Account: "A1"}, {Account: "A2"}}, nil)

	view := d.Accounts(context.Background())

	assert.Equal(t, "A2", view.Selected)
	require.NotNil(t, view.SelectedInfo)
	assert.Equal(t, "A2", view.SelectedInfo.Account)
}

func TestWidgets_RequireAccount(t *testing.T) {
	d, _ := setupTest(t, "")

	_, err := d.Metrics(context.Background())

	assert.ErrorIs(t, err, ErrNoAccount)
}

func TestMetrics_Cards(t *testing.T) {
	// Arrange
	d, api := setupTest(t, "A1")
	api.On("GetMetrics", mock.Anything, "A1").Return(&models.Metrics{
		TotalTrades:   1200,
		WinningTrades: 700,
		LosingTrades:  500,
		WinRate:       0.5833,
		NetPnL:        -1234.5,
		AverageWin:    45.25,
		AverageLoss:   -30,
		ProfitFactor:  1.2,
		LargestWin:    500,
		LargestLoss:   -250.75,
	}, nil).Once()

	// Act
	view, err := d.Metrics(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, view.Cards, 6)
	assert.Equal(t, Card{Label: "Win Rate", Value: "58.3%", Tone: ToneProfit}, view.Cards[0])
	assert.Equal(t, Card{Label: "Net P&L", Value: "$-1,234.50", Tone: ToneLoss}, view.Cards[1])
	assert.Equal(t, Card{Label: "Profit Factor", Value: "1.20", Tone: ToneWarning}, view.Cards[2])
	assert.Equal(t, "1,200", view.Cards[3].Value)
	assert.Equal(t, "$30.00", view.Cards[5].Value)
	assert.Equal(t, "$250.75", view.Footer[3].Value)
	assert.Empty(t, view.Message)
	assert.True(t, view.Loaded)
}

func TestMetrics_NoData(t *testing.T) {
	d, api := setupTest(t, "A1")
	api.On("GetMetrics", mock.Anything, "A1").Return(nil, errors.New("timeout"))

	view, err := d.Metrics(context.Background())

	require.NoError(t, err)
	assert.Equal(t, MsgNoMetrics, view.Message)
	assert.Equal(t, "timeout", view.Error)
	assert.Empty(t, view.Cards)
}

func TestMetrics_RefetchOnEpochAndAccount(t *testing.T) {
	// Arrange
	d, api := setupTest(t, "A1")
	ctx := context.Background()
	api.On("GetMetrics", mock.Anything, "A1").Return(&models.Metrics{TotalTrades: 1}, nil).Twice()
	api.On("GetMetrics", mock.Anything, "A2").Return(&models.Metrics{TotalTrades: 2}, nil).Once()

	// Act
	_, err := d.Metrics(ctx)
	require.NoError(t, err)
	_, err = d.Metrics(ctx) // cached
	require.NoError(t, err)
	d.Refresh()
	_, err = d.Metrics(ctx)
	require.NoError(t, err)
	d.SelectAccount("A2")
	view, err := d.Metrics(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, view.Metrics.TotalTrades)
	assert.Equal(t, "A2", view.Account)
	assert.Equal(t, uint64(2), view.Epoch)
	api.AssertExpectations(t)
}

func TestSelectAccount_SameAccountKeepsEpoch(t *testing.T) {
	d, _ := setupTest(t, "A1")

	d.SelectAccount("A1")

	assert.Equal(t, uint64(0), d.Epoch())
}

func TestTrades_WindowAndLocalFiltering(t *testing.T) {
	// Arrange
	d, api := setupTest(t, "A1")
	start, end := "2026-01-14", "2026-02-13"
	api.On("QueryTrades", mock.Anything, query.Args{
		Account: "A1", StartDate: &start, EndDate: &end, Limit: 100,
	}).Return(&backend.TradesResult{Trades: trades(), Count: 3}, nil).Once()

	// Act
	all, err := d.Trades(context.Background(), pipeline.DefaultOptions())
	require.NoError(t, err)
	wins, err := d.Trades(context.Background(), pipeline.Options{
		Filters: pipeline.Filters{Outcome: pipeline.OutcomeWins, Ticker: "nq"},
		SortBy:  pipeline.SortByProfit,
		Order:   pipeline.Asc,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2", "1"}, ids(all.Trades))
	assert.Equal(t, []string{"1", "3"}, ids(wins.Trades))
	assert.Equal(t, "Showing 2 of 3 trades", wins.Summary)
	api.AssertExpectations(t)
}

func ids(rows []models.Trade) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestChartsAndHeatmap(t *testing.T) {
	// Arrange
	d, api := setupTest(t, "A1")
	api.On("QueryTrades", mock.Anything, query.Args{Account: "A1", Limit: 100}).
		Return(&backend.TradesResult{Trades: trades()}, nil).Once()
	api.On("QueryTrades", mock.Anything, query.Args{Account: "A1", Limit: 500}).
		Return(&backend.TradesResult{Trades: trades()}, nil).Once()

	// Act
	charts, err := d.Charts(context.Background())
	require.NoError(t, err)
	heat, err := d.Heatmap(context.Background())
	require.NoError(t, err)

	// Assert
	require.Len(t, charts.Cumulative, 3)
	assert.Equal(t, 25.0, charts.Cumulative[2].Cumulative)
	assert.Equal(t, analytics.WinLoss{Wins: 2, Losses: 1}, charts.Distribution)
	require.Len(t, charts.Actions, 2)
	assert.Equal(t, "LONG_EXIT", charts.Actions[0].Label)

	require.Len(t, heat.Rows, 7)
	assert.Equal(t, "Sun", heat.Rows[0].Day)
	tue := heat.Rows[2].Cells[14]
	assert.Equal(t, 1, tue.Count)
	assert.Equal(t, analytics.Profit, tue.State)
	assert.Equal(t, 0.5, tue.Intensity)
	assert.Equal(t, 1.0, heat.Rows[4].Cells[14].Intensity)
	assert.Equal(t, analytics.Loss, heat.Rows[3].Cells[14].State)
	assert.Equal(t, analytics.NoTrades, heat.Rows[0].Cells[0].State)
	assert.Equal(t, 0.2, heat.Rows[0].Cells[0].Opacity)
	api.AssertExpectations(t)
}

func TestExportTradesCSV(t *testing.T) {
	d, api := setupTest(t, "A1")
	api.On("ExportCSV", mock.Anything, backend.ExportRequest{Args: query.Args{Account: "A1"}}).
		Return(&backend.ExportResult{S3Key: "k"}, nil)
	api.On("GetExportURL", mock.Anything, "k").Return("https://s3/k", nil)

	url, err := d.ExportTradesCSV(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "https://s3/k", url)
}

func TestChat_TradeWriteRefreshes(t *testing.T) {
	d, api := setupTest(t, "A1")
	api.On("Chat", mock.Anything, mock.MatchedBy(func(r backend.ChatRequest) bool {
		return r.ActiveAccount == "A1" && r.Message == "log a trade"
	})).Return(&backend.ChatResponse{
		Response:  "Done",
		ToolCalls: []backend.ToolCall{{Name: "write_trade"}},
	}, nil)

	msg, err := d.Chat(context.Background(), "log a trade")

	require.NoError(t, err)
	assert.Equal(t, "Done", msg.Content)
	assert.Equal(t, uint64(1), d.Epoch())
	assert.Len(t, d.ChatHistory(), 2)
}

func TestQuickAction_ViaChat(t *testing.T) {
	d, api := setupTest(t, "A1")
	action, err := export.LookupQuickAction("drive_all")
	require.NoError(t, err)
	api.On("Chat", mock.Anything, mock.MatchedBy(func(r backend.ChatRequest) bool {
		return r.Message == action.ChatCommand
	})).Return(&backend.ChatResponse{Response: "Exporting now"}, nil)

	res, err := d.QuickAction(context.Background(), "drive_all", true)

	require.NoError(t, err)
	assert.Equal(t, export.QuickResult{ID: "drive_all", Success: true, Message: "Exporting now"}, res)
	api.AssertNotCalled(t, "ExportCSV", mock.Anything, mock.Anything)
}

func TestQuickAction_ViaChatFailure(t *testing.T) {
	d, api := setupTest(t, "A1")
	api.On("Chat", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))

	res, err := d.QuickAction(context.Background(), "qc_ml", true)

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, chat.MsgConnectionError, res.Message)
}

func TestTrades_FailedFetchForNewAccountDropsOldRows(t *testing.T) {
	// Arrange
	d, api := setupTest(t, "A1")
	api.On("QueryTrades", mock.Anything, mock.MatchedBy(func(a query.Args) bool { return a.Account == "A1" })).
		Return(&backend.TradesResult{Trades: trades()}, nil).Once()
	api.On("QueryTrades", mock.Anything, mock.MatchedBy(func(a query.Args) bool { return a.Account == "A2" })).
		Return(nil, errors.New("timeout")).Once()

	// Act
	first, err := d.Trades(context.Background(), pipeline.DefaultOptions())
	require.NoError(t, err)
	d.SelectAccount("A2")
	second, err := d.Trades(context.Background(), pipeline.DefaultOptions())

	// Assert
	require.NoError(t, err)
	assert.Len(t, first.Trades, 3)
	assert.Empty(t, second.Trades)
	assert.Equal(t, 0, second.Total)
	assert.Equal(t, "timeout", second.Error)
	assert.Equal(t, "A2", second.Account)
	assert.False(t, second.Loaded)
}

func TestQuickAction_Unknown(t *testing.T) {
	d, _ := setupTest(t, "A1")

	_, err := d.QuickAction(context.Background(), "nope", false)

	assert.ErrorIs(t, err, export.ErrUnknownQuickAction)
}

func TestStartExport_RecordsJob(t *testing.T) {
	d, api := setupTest(t, "A1")
	api.On("ExportCSV", mock.Anything, mock.Anything).Return(&backend.ExportResult{S3Key: "k"}, nil)
	api.On("GetExportURL", mock.Anything, "k").Return("https://s3/k", nil)

	job, err := d.StartExport(context.Background(), export.Local, export.Config{})
	require.NoError(t, err)
	d.exports.Wait()
	jobs, err := d.ExportJobs(context.Background())

	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, job.JobID, jobs[0].JobID)
	assert.Equal(t, models.JobSuccess, jobs[0].Status)
}
