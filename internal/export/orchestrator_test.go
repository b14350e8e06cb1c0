package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trading-analytics-go/internal/backend"
	"trading-analytics-go/internal/backend/backendtest"
	"trading-analytics-go/internal/config"
	"trading-analytics-go/internal/database"
	"trading-analytics-go/internal/models"
	"trading-analytics-go/internal/query"
)

var fixedNow = time.Date(2026, 2, 13, 10, 30, 0, 0, time.UTC)

// setupTest creates an orchestrator over a mock backend and an in-memory ledger.
func setupTest(t *testing.T) (*Orchestrator, *backendtest.MockAPI, *database.JobStore) {
	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)
	store := database.NewJobStore(db)

	api := new(backendtest.MockAPI)
	cfg := config.Exports{Limit: 10000, DriveFolder: "Trading Analytics", HistorySize: 10}
	o := NewOrchestrator(api, store, cfg, time.UTC, zap.NewNop())
	o.now = func() time.Time { return fixedNow }
	return o, api, store
}

func TestRun_DriveSuccess(t *testing.T) {
	// Arrange
	o, api, _ := setupTest(t)
	ctx := context.Background()

	start, end := "2026-01-14", "2026-02-13"
	api.On("ExportCSV", mock.Anything, backend.ExportRequest{
		Args:     query.Args{Account: "A1", StartDate: &start, EndDate: &end, Limit: 10000},
		Filename: "trading_data",
		Format:   "csv",
	}).Return(&backend.ExportResult{S3Key: "exports/k.csv"}, nil)
	api.On("UploadToDrive", mock.Anything, backend.DriveUpload{
		S3Key: "exports/k.csv", Filename: "trading_data.csv", Folder: "Trading Analytics",
	}).Return(&backend.DriveResult{DriveURL: "https://drive/x"}, nil)
	api.On("GetExportURL", mock.Anything, "exports/k.csv").Return("https://s3/x", nil)

	drive, err := LookupPlatform(GoogleDrive)
	require.NoError(t, err)

	// Act
	job, err := o.Run(ctx, Request{Account: "A1", Platform: GoogleDrive, Config: drive.Defaults})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, models.JobSuccess, job.Status)
	assert.Equal(t, "Uploaded to Google Drive: Trading Analytics/trading_data.csv", job.Message)
	assert.Equal(t, "https://drive/x", job.DownloadURL, "destination URL wins over the download URL")
	assert.Equal(t, "export-1770978600000", job.JobID)
	api.AssertExpectations(t)
}

func TestRun_MissingStorageReferenceFails(t *testing.T) {
	o, api, store := setupTest(t)
	ctx := context.Background()
	api.On("ExportCSV", mock.Anything, mock.Anything).
		Return(nil, errors.Join(errors.New("failed to export"), backend.ErrMissingField))

	job, err := o.Run(ctx, Request{Account: "A1", Platform: Kaggle})

	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Equal(t, MsgStorageFailed, job.Message)
	api.AssertNotCalled(t, "UploadToKaggle", mock.Anything, mock.Anything)
	api.AssertNotCalled(t, "GetExportURL", mock.Anything, mock.Anything)

	stored, err := store.Get(ctx, job.RowID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, stored.Status)
}

func TestRun_TransportErrorUsesMessage(t *testing.T) {
	o, api, _ := setupTest(t)
	api.On("ExportCSV", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	job, err := o.Run(context.Background(), Request{Account: "A1", Platform: QuantConnect})

	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Equal(t, "connection refused", job.Message)
}

func TestRun_DestinationFailureStillResolvesDownload(t *testing.T) {
	o, api, _ := setupTest(t)
	api.On("ExportCSV", mock.Anything, mock.Anything).Return(&backend.ExportResult{S3Key: "k"}, nil)
	api.On("SyncToQC", mock.Anything, backend.QCSync{S3Key: "k", DatasetName: "nq_backtest_data", Format: "csv"}).
		Return(nil, errors.New("quantconnect unavailable"))
	api.On("GetExportURL", mock.Anything, "k").Return("https://s3/k", nil)

	job, err := o.Run(context.Background(), Request{Account: "A1", Platform: QuantConnect})

	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Equal(t, "quantconnect unavailable", job.Message)
	assert.Equal(t, "https://s3/k", job.DownloadURL)
	api.AssertExpectations(t)
}

func TestRun_DownloadURLFillsMissingDestinationURL(t *testing.T) {
	o, api, _ := setupTest(t)
	api.On("ExportCSV", mock.Anything, mock.Anything).Return(&backend.ExportResult{S3Key: "k"}, nil)
	api.On("UploadToKaggle", mock.Anything, backend.KaggleUpload{
		S3Key:       "k",
		DatasetName: "nq_futures_trading_dataset",
		Description: "NQ Futures trading dataset - all_trades - exported 2/13/2026",
	}).Return(&backend.KaggleResult{}, nil)
	api.On("GetExportURL", mock.Anything, "k").Return("https://s3/k", nil)

	job, err := o.Run(context.Background(), Request{Account: "A1", Platform: Kaggle})

	require.NoError(t, err)
	assert.Equal(t, models.JobSuccess, job.Status)
	assert.Equal(t, "Published to Kaggle: nq_futures_trading_dataset", job.Message)
	assert.Equal(t, "https://s3/k", job.DownloadURL)
}

func TestRun_DestinationWithoutResultSucceeds(t *testing.T) {
	// Arrange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Tool string `json:"tool"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		switch req.Tool {
		case backend.ToolExportCSV:
			_, _ = w.Write([]byte(`{"result":{"s3_key":"exports/x.csv","count":3}}`))
		case backend.ToolGetExportURL:
			_, _ = w.Write([]byte(`{"result":{"download_url":"https://s3/x"}}`))
		case backend.ToolUploadToDrive:
			_, _ = w.Write([]byte(`{"result":null}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	db, err := database.NewDatabase("file::memory:")
	require.NoError(t, err)
	client := backend.NewClient(&config.Backend{APIBase: srv.URL, MaxAttempts: 1}, zap.NewNop())
	o := NewOrchestrator(client, database.NewJobStore(db), config.Exports{Limit: 10000, DriveFolder: "Trading Analytics", HistorySize: 10}, time.UTC, zap.NewNop())
	o.now = func() time.Time { return fixedNow }

	// Act
	job, err := o.Run(context.Background(), Request{Account: "A1", Platform: GoogleDrive})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, models.JobSuccess, job.Status)
	assert.Equal(t, "Uploaded to Google Drive: Trading Analytics/trading_data.csv", job.Message)
	assert.Equal(t, "https://s3/x", job.DownloadURL)
}

func TestRun_DestinationMissingFieldSucceeds(t *testing.T) {
	o, api, _ := setupTest(t)
	api.On("ExportCSV", mock.Anything, mock.Anything).Return(&backend.ExportResult{S3Key: "k"}, nil)
	api.On("SyncToQC", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("failed to sync to quantconnect: %w", backend.ErrMissingResult))
	api.On("GetExportURL", mock.Anything, "k").Return("https://s3/k", nil)

	job, err := o.Run(context.Background(), Request{Account: "A1", Platform: QuantConnect})

	require.NoError(t, err)
	assert.Equal(t, models.JobSuccess, job.Status)
	assert.Equal(t, "Synced to QuantConnect: nq_backtest_data", job.Message)
	assert.Equal(t, "https://s3/k", job.DownloadURL)
}

func TestRun_DestinationStatusErrorFails(t *testing.T) {
	o, api, _ := setupTest(t)
	api.On("ExportCSV", mock.Anything, mock.Anything).Return(&backend.ExportResult{S3Key: "k"}, nil)
	api.On("UploadToKaggle", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("failed to upload to kaggle: %w", &backend.StatusError{Code: http.StatusBadGateway}))
	api.On("GetExportURL", mock.Anything, "k").Return("https://s3/k", nil)

	job, err := o.Run(context.Background(), Request{Account: "A1", Platform: Kaggle})

	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Equal(t, "https://s3/k", job.DownloadURL)
}

func TestRun_DownloadURLFailureIsIgnored(t *testing.T) {
	o, api, _ := setupTest(t)
	api.On("ExportCSV", mock.Anything, mock.Anything).Return(&backend.ExportResult{S3Key: "k"}, nil)
	api.On("GetExportURL", mock.Anything, "k").Return("", backend.ErrMissingField)

	job, err := o.Run(context.Background(), Request{Account: "A1", Platform: Local, Config: Config{Format: JSON, Filename: "mine"}})

	require.NoError(t, err)
	assert.Equal(t, models.JobSuccess, job.Status)
	assert.Equal(t, "Export ready: mine.json", job.Message)
	assert.Empty(t, job.DownloadURL)
}

func TestRun_ValidationHappensBeforeJobCreation(t *testing.T) {
	testCases := []struct {
		name string
		req  Request
		err  error
	}{
		{name: "UnknownPlatform", req: Request{Platform: "dropbox"}, err: ErrUnknownPlatform},
		{name: "KaggleRejectsJSON", req: Request{Platform: Kaggle, Config: Config{Format: JSON}}, err: ErrUnsupportedFormat},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			o, api, store := setupTest(t)

			job, err := o.Run(context.Background(), tc.req)

			assert.Nil(t, job)
			assert.ErrorIs(t, err, tc.err)
			jobs, listErr := store.Recent(context.Background(), 0)
			require.NoError(t, listErr)
			assert.Empty(t, jobs)
			api.AssertNotCalled(t, "ExportCSV", mock.Anything, mock.Anything)
		})
	}
}

func TestRun_ScopeMapping(t *testing.T) {
	o, api, _ := setupTest(t)
	minProfit := query.WinnersMinProfit
	api.On("ExportCSV", mock.Anything, backend.ExportRequest{
		Args:     query.Args{Account: "A1", MinProfit: &minProfit, Limit: 10000},
		Filename: "winners",
		Format:   "csv",
	}).Return(&backend.ExportResult{S3Key: "k"}, nil)
	api.On("GetExportURL", mock.Anything, "k").Return("https://s3/k", nil)

	job, err := o.Run(context.Background(), Request{
		Account:  "A1",
		Platform: Local,
		Config:   Config{Scope: query.ScopeWinners, Filename: "winners"},
	})

	require.NoError(t, err)
	assert.Equal(t, models.JobSuccess, job.Status)
	api.AssertExpectations(t)
}

func TestSubmit_RunsInBackground(t *testing.T) {
	o, api, _ := setupTest(t)
	api.On("ExportCSV", mock.Anything, mock.Anything).Return(nil, backend.ErrMissingResult)

	snapshot, err := o.Submit(context.Background(), Request{Account: "A1", Platform: GoogleDrive})
	require.NoError(t, err)
	assert.Equal(t, models.JobRunning, snapshot.Status)
	assert.Equal(t, "Exporting to Google Drive...", snapshot.Message)

	o.Wait()

	jobs, err := o.Jobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobFailed, jobs[0].Status)
	assert.NotEmpty(t, jobs[0].Message)
}

func TestJobs_TruncatesHistory(t *testing.T) {
	o, api, _ := setupTest(t)
	o.historySize = 2
	api.On("ExportCSV", mock.Anything, mock.Anything).Return(nil, backend.ErrMissingResult)

	for i := 0; i < 3; i++ {
		_, err := o.Run(context.Background(), Request{Account: "A1", Platform: Local})
		require.NoError(t, err)
	}

	jobs, err := o.Jobs(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestFailureMessage(t *testing.T) {
	assert.Equal(t, MsgExportFailed, failureMessage(errors.New("")))
	assert.Equal(t, "boom", failureMessage(errors.New("boom")))
}
