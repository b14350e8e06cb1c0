package export

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trading-analytics-go/internal/backend"
	"trading-analytics-go/internal/query"
)

func TestQuickActions_Catalogue(t *testing.T) {
	actions := QuickActions()
	require.Len(t, actions, 6)

	ids := make([]string, len(actions))
	for i, a := range actions {
		ids[i] = a.ID
		assert.NotEmpty(t, a.ChatCommand)
	}
	assert.Equal(t, []string{"drive_all", "drive_winners", "qc_backtest", "qc_ml", "kaggle_dataset", "download_csv"}, ids)

	_, err := LookupQuickAction("nope")
	assert.ErrorIs(t, err, ErrUnknownQuickAction)
}

func TestRunQuickAction(t *testing.T) {
	t.Run("WinnersWithCount", func(t *testing.T) {
		// Arrange
		o, api, _ := setupTest(t)
		action, err := LookupQuickAction("drive_winners")
		require.NoError(t, err)
		minProfit := query.WinnersMinProfit
		api.On("ExportCSV", mock.Anything, backend.ExportRequest{
			Args:     query.Args{Account: "A1", MinProfit: &minProfit},
			Filename: "winning_trades",
		}).Return(&backend.ExportResult{S3Key: "k", Count: 12}, nil)
		api.On("GetExportURL", mock.Anything, "k").Return("https://s3/k", nil)

		// Act
		res := o.RunQuickAction(context.Background(), "A1", action)

		// Assert
		assert.True(t, res.Success)
		assert.Equal(t, "Exported 12 successfully", res.Message)
		assert.Equal(t, "https://s3/k", res.URL)
	})

	t.Run("CompleteOnlyWithoutCount", func(t *testing.T) {
		o, api, _ := setupTest(t)
		action, err := LookupQuickAction("qc_ml")
		require.NoError(t, err)
		complete := true
		api.On("ExportCSV", mock.Anything, backend.ExportRequest{
			Args:     query.Args{Account: "A1", CompleteOnly: &complete},
			Filename: "ml_training_data",
		}).Return(&backend.ExportResult{S3Key: "k"}, nil)
		api.On("GetExportURL", mock.Anything, "k").Return("", backend.ErrMissingField)

		res := o.RunQuickAction(context.Background(), "A1", action)

		assert.True(t, res.Success)
		assert.Equal(t, "Exported trades successfully", res.Message)
		assert.Empty(t, res.URL)
	})

	t.Run("MissingReference", func(t *testing.T) {
		o, api, _ := setupTest(t)
		action, _ := LookupQuickAction("download_csv")
		api.On("ExportCSV", mock.Anything, mock.Anything).Return(nil, backend.ErrMissingResult)

		res := o.RunQuickAction(context.Background(), "A1", action)

		assert.False(t, res.Success)
		assert.Equal(t, MsgExportFailed, res.Message)
	})

	t.Run("TransportError", func(t *testing.T) {
		o, api, _ := setupTest(t)
		action, _ := LookupQuickAction("kaggle_dataset")
		api.On("ExportCSV", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: refused"))

		res := o.RunQuickAction(context.Background(), "A1", action)

		assert.False(t, res.Success)
		assert.Equal(t, "dial tcp: refused", res.Message)
	})
}

func TestPlatforms(t *testing.T) {
	kaggle, err := LookupPlatform(Kaggle)
	require.NoError(t, err)
	assert.True(t, kaggle.Supports(CSV))
	assert.False(t, kaggle.Supports(JSON))
	assert.False(t, kaggle.AutoSync)

	qc, err := LookupPlatform(QuantConnect)
	require.NoError(t, err)
	assert.True(t, qc.AutoSync)
	assert.Equal(t, query.ScopeWithIndicators, qc.Defaults.Scope)

	cfg, err := qc.Validate(Config{})
	require.NoError(t, err)
	assert.Equal(t, CSV, cfg.Format)
	assert.Equal(t, "nq_backtest_data", cfg.Filename)
}
