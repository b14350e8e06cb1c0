// Package backendtest provides a testify mock of backend.API.
package backendtest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"trading-analytics-go/internal/backend"
	"trading-analytics-go/internal/models"
	"trading-analytics-go/internal/query"
)

// MockAPI is a mock implementation of backend.API.
type MockAPI struct {
	mock.Mock
}

var _ backend.API = (*MockAPI)(nil)

func (m *MockAPI) GetMetrics(ctx context.Context, account string) (*models.Metrics, error) {
	args := m.Called(ctx, account)
	res, _ := args.Get(0).(*models.Metrics)
	return res, args.Error(1)
}

func (m *MockAPI) QueryTrades(ctx context.Context, q query.Args) (*backend.TradesResult, error) {
	args := m.Called(ctx, q)
	res, _ := args.Get(0).(*backend.TradesResult)
	return res, args.Error(1)
}

func (m *MockAPI) ExportCSV(ctx context.Context, req backend.ExportRequest) (*backend.ExportResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*backend.ExportResult)
	return res, args.Error(1)
}

func (m *MockAPI) GetExportURL(ctx context.Context, s3Key string) (string, error) {
	args := m.Called(ctx, s3Key)
	return args.String(0), args.Error(1)
}

func (m *MockAPI) UploadToDrive(ctx context.Context, req backend.DriveUpload) (*backend.DriveResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*backend.DriveResult)
	return res, args.Error(1)
}

func (m *MockAPI) SyncToQC(ctx context.Context, req backend.QCSync) (*backend.QCResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*backend.QCResult)
	return res, args.Error(1)
}

func (m *MockAPI) UploadToKaggle(ctx context.Context, req backend.KaggleUpload) (*backend.KaggleResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*backend.KaggleResult)
	return res, args.Error(1)
}

func (m *MockAPI) WriteTradesBatch(ctx context.Context, trades []models.Trade) (*backend.BatchResult, error) {
	args := m.Called(ctx, trades)
	res, _ := args.Get(0).(*backend.BatchResult)
	return res, args.Error(1)
}

func (m *MockAPI) ListAccounts(ctx context.Context) ([]models.AccountInfo, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).([]models.AccountInfo)
	return res, args.Error(1)
}

func (m *MockAPI) Chat(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*backend.ChatResponse)
	return res, args.Error(1)
}
