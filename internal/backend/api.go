// Package backend is the client for the remote analytics service: the
// generic /execute tool envelope and the /chat endpoint. Each tool result
// is decoded into its own struct and checked for the fields callers read.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"trading-analytics-go/internal/models"
	"trading-analytics-go/internal/query"
	"trading-analytics-go/internal/tracing"
)

// Tool names understood by the backend.
const (
	ToolGetMetrics       = "get_metrics"
	ToolQueryTrades      = "query_trades"
	ToolExportCSV        = "export_csv"
	ToolGetExportURL     = "get_export_url"
	ToolUploadToDrive    = "upload_to_drive"
	ToolSyncToQC         = "sync_to_qc"
	ToolUploadToKaggle   = "upload_to_kaggle"
	ToolWriteTradesBatch = "write_trades_batch"
	ToolListAccounts     = "list_accounts"
)

// API defines the interface for the analytics backend.
type API interface {
	GetMetrics(ctx context.Context, account string) (*models.Metrics, error)
	QueryTrades(ctx context.Context, args query.Args) (*TradesResult, error)
	ExportCSV(ctx context.Context, req ExportRequest) (*ExportResult, error)
	GetExportURL(ctx context.Context, s3Key string) (string, error)
	UploadToDrive(ctx context.Context, req DriveUpload) (*DriveResult, error)
	SyncToQC(ctx context.Context, req QCSync) (*QCResult, error)
	UploadToKaggle(ctx context.Context, req KaggleUpload) (*KaggleResult, error)
	WriteTradesBatch(ctx context.Context, trades []models.Trade) (*BatchResult, error)
	ListAccounts(ctx context.Context) ([]models.AccountInfo, error)
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// TradesResult is the query_trades result.
type TradesResult struct {
	Trades []models.Trade `json:"trades"`
	Count  int            `json:"count"`
}

// ExportRequest is the export_csv argument set: the query arguments plus
// an optional filename and format.
type ExportRequest struct {
	query.Args
	Filename string `json:"filename,omitempty"`
	Format   string `json:"format,omitempty"`
}

// ExportResult is the export_csv result. S3Key is the storage reference
// every later step is keyed by.
type ExportResult struct {
	S3Key    string `json:"s3_key"`
	Count    int    `json:"count,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// DriveUpload is the upload_to_drive argument set.
type DriveUpload struct {
	S3Key    string `json:"s3_key"`
	Filename string `json:"filename"`
	Folder   string `json:"folder"`
}

// DriveResult is the upload_to_drive result.
type DriveResult struct {
	DriveURL string `json:"drive_url"`
}

// QCSync is the sync_to_qc argument set.
type QCSync struct {
	S3Key       string `json:"s3_key"`
	DatasetName string `json:"dataset_name"`
	Format      string `json:"format"`
}

// QCResult is the sync_to_qc result.
type QCResult struct {
	QCURL string `json:"qc_url"`
}

// KaggleUpload is the upload_to_kaggle argument set.
type KaggleUpload struct {
	S3Key       string `json:"s3_key"`
	DatasetName string `json:"dataset_name"`
	Description string `json:"description"`
}

// KaggleResult is the upload_to_kaggle result.
type KaggleResult struct {
	KaggleURL string `json:"kaggle_url"`
}

// BatchResult is the write_trades_batch result. The backend only promises
// a non-null value, so the counters may be zero.
type BatchResult struct {
	Written int `json:"written"`
	Failed  int `json:"failed"`
}

// ChatMessage is one entry of the conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the /chat request body.
type ChatRequest struct {
	Message             string        `json:"message"`
	ActiveAccount       string        `json:"active_account"`
	ConversationHistory []ChatMessage `json:"conversation_history"`
}

// ToolCall is one tool invocation the assistant performed.
type ToolCall struct {
	Name string `json:"name"`
}

// ChatResponse is the /chat response body.
type ChatResponse struct {
	Response  string     `json:"response"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// GetMetrics fetches the performance summary for an account.
func (c *Client) GetMetrics(ctx context.Context, account string) (*models.Metrics, error) {
	var m models.Metrics
	if err := c.executeInto(ctx, ToolGetMetrics, map[string]string{"account": account}, &m); err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}
	return &m, nil
}

// QueryTrades fetches trades matching args.
func (c *Client) QueryTrades(ctx context.Context, args query.Args) (*TradesResult, error) {
	var out struct {
		Trades *[]models.Trade `json:"trades"`
		Count  int             `json:"count"`
	}
	if err := c.executeInto(ctx, ToolQueryTrades, args, &out); err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	if out.Trades == nil {
		return nil, fmt.Errorf("failed to query trades: %w: trades", ErrMissingField)
	}
	return &TradesResult{Trades: *out.Trades, Count: out.Count}, nil
}

// ExportCSV asks the backend to materialize an export artifact.
func (c *Client) ExportCSV(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	var res ExportResult
	if err := c.executeInto(ctx, ToolExportCSV, req, &res); err != nil {
		return nil, fmt.Errorf("failed to export: %w", err)
	}
	if res.S3Key == "" {
		return nil, fmt.Errorf("failed to export: %w: s3_key", ErrMissingField)
	}
	return &res, nil
}

// GetExportURL resolves a direct download URL for an artifact. Older
// backends answer with "url" instead of "download_url".
func (c *Client) GetExportURL(ctx context.Context, s3Key string) (string, error) {
	var res struct {
		DownloadURL string `json:"download_url"`
		URL         string `json:"url"`
	}
	if err := c.executeInto(ctx, ToolGetExportURL, map[string]string{"s3_key": s3Key}, &res); err != nil {
		return "", fmt.Errorf("failed to get export url: %w", err)
	}
	switch {
	case res.DownloadURL != "":
		return res.DownloadURL, nil
	case res.URL != "":
		return res.URL, nil
	default:
		return "", fmt.Errorf("failed to get export url: %w: download_url", ErrMissingField)
	}
}

// UploadToDrive copies an artifact to Google Drive.
func (c *Client) UploadToDrive(ctx context.Context, req DriveUpload) (*DriveResult, error) {
	var res DriveResult
	if err := c.executeInto(ctx, ToolUploadToDrive, req, &res); err != nil {
		return nil, fmt.Errorf("failed to upload to drive: %w", err)
	}
	return &res, nil
}

// SyncToQC publishes an artifact as a QuantConnect dataset.
func (c *Client) SyncToQC(ctx context.Context, req QCSync) (*QCResult, error) {
	var res QCResult
	if err := c.executeInto(ctx, ToolSyncToQC, req, &res); err != nil {
		return nil, fmt.Errorf("failed to sync to quantconnect: %w", err)
	}
	return &res, nil
}

// UploadToKaggle publishes an artifact as a Kaggle dataset.
func (c *Client) UploadToKaggle(ctx context.Context, req KaggleUpload) (*KaggleResult, error) {
	var res KaggleResult
	if err := c.executeInto(ctx, ToolUploadToKaggle, req, &res); err != nil {
		return nil, fmt.Errorf("failed to upload to kaggle: %w", err)
	}
	return &res, nil
}

// WriteTradesBatch stores trades. Any non-null result counts as success.
func (c *Client) WriteTradesBatch(ctx context.Context, trades []models.Trade) (*BatchResult, error) {
	result, _, err := c.execute(ctx, ToolWriteTradesBatch, map[string]any{"trades": trades})
	if err != nil {
		return nil, fmt.Errorf("failed to write trades: %w", err)
	}
	var res BatchResult
	// Non-object results such as true are still a success.
	_ = json.Unmarshal(result, &res)
	return &res, nil
}

// ListAccounts returns the known accounts. The list may sit under result
// or at the top level of the response.
func (c *Client) ListAccounts(ctx context.Context) ([]models.AccountInfo, error) {
	type accountsPayload struct {
		Accounts *[]models.AccountInfo `json:"accounts"`
	}

	result, body, err := c.execute(ctx, ToolListAccounts, struct{}{})
	if err != nil && body == nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	for _, raw := range [][]byte{result, body} {
		if len(raw) == 0 {
			continue
		}
		var p accountsPayload
		if json.Unmarshal(raw, &p) == nil && p.Accounts != nil {
			return *p.Accounts, nil
		}
	}
	return nil, fmt.Errorf("failed to list accounts: %w: accounts", ErrMissingField)
}

// Chat sends one user message with the prior conversation.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "backend.chat")
	defer span.End()

	if req.ConversationHistory == nil {
		req.ConversationHistory = []ChatMessage{}
	}

	r := c.client.R().SetContext(ctx).SetBody(req)
	resp, err := c.doRequest(ctx, http.MethodPost, chatPath, r)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to chat: %w", err)
	}

	var out struct {
		Response  *string    `json:"response"`
		ToolCalls []ToolCall `json:"tool_calls"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("failed to chat: decode response: %w", err)
	}
	if out.Response == nil || *out.Response == "" {
		return nil, fmt.Errorf("failed to chat: %w: response", ErrMissingField)
	}
	return &ChatResponse{Response: *out.Response, ToolCalls: out.ToolCalls}, nil
}
