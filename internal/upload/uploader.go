package upload

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"trading-analytics-go/internal/backend"
	"trading-analytics-go/internal/models"
)

// PreviewSize is the number of parsed rows echoed back to the user.
const PreviewSize = 5

const (
	MsgUnsupported  = "Unsupported file type. Please upload CSV, Excel, JSON, or YAML."
	MsgNoTrades     = "No valid trades found in file"
	MsgUploadFailed = "Failed to upload trades"
	MsgProcessFile  = "Failed to process file"
)

// Writer is the part of the backend the uploader needs.
type Writer interface {
	WriteTradesBatch(ctx context.Context, trades []models.Trade) (*backend.BatchResult, error)
}

// Result is what the uploader reports back.
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Count   int            `json:"count"`
	Preview []models.Trade `json:"preview,omitempty"`
}

// Uploader parses files and writes them to the active account.
type Uploader struct {
	api        Writer
	logger     *zap.Logger
	onComplete func()
}

// NewUploader creates an uploader. onComplete, if set, runs after a
// successful write.
func NewUploader(api Writer, logger *zap.Logger, onComplete func()) *Uploader {
	return &Uploader{api: api, logger: logger.Named("upload"), onComplete: onComplete}
}

// Upload parses the file and submits every valid row tagged with account.
// Failures are reported in the result, never returned.
func (u *Uploader) Upload(ctx context.Context, account, filename string, r io.Reader) Result {
	logger := u.logger.With(zap.String("file", filename), zap.String("account", account))

	trades, err := Parse(filename, r)
	if err != nil {
		logger.Warn("Upload rejected", zap.Error(err))
		return Result{Message: userMessage(err)}
	}

	res := Result{Count: len(trades), Preview: preview(trades)}

	batch := make([]models.Trade, len(trades))
	for i, t := range trades {
		t.Account = account
		batch[i] = t
	}

	if _, err := u.api.WriteTradesBatch(ctx, batch); err != nil {
		logger.Error("Failed to write uploaded trades", zap.Error(err))
		if backend.Malformed(err) {
			res.Message = MsgUploadFailed
		} else {
			res.Message = userMessage(err)
		}
		return res
	}

	logger.Info("Uploaded trades", zap.Int("count", len(batch)))
	res.Success = true
	res.Message = fmt.Sprintf("Successfully uploaded %d trades!", len(batch))
	if u.onComplete != nil {
		u.onComplete()
	}
	return res
}

func preview(trades []models.Trade) []models.Trade {
	n := len(trades)
	if n > PreviewSize {
		n = PreviewSize
	}
	out := make([]models.Trade, n)
	copy(out, trades[:n])
	return out
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return MsgUnsupported
	case errors.Is(err, ErrNoTrades):
		return MsgNoTrades
	case err.Error() == "":
		return MsgProcessFile
	default:
		return err.Error()
	}
}
