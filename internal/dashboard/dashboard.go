// Package dashboard holds the per-widget state of the trading dashboard and
// the account selection they share. Widgets refetch when the selected
// account or the refresh epoch changes.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"trading-analytics-go/internal/backend"
	"trading-analytics-go/internal/chat"
	"trading-analytics-go/internal/config"
	"trading-analytics-go/internal/export"
	"trading-analytics-go/internal/models"
	"trading-analytics-go/internal/pipeline"
	"trading-analytics-go/internal/query"
	"trading-analytics-go/internal/upload"
)

// ErrNoAccount is returned when a widget is loaded before any account is known.
var ErrNoAccount = errors.New("no account selected")

// Dashboard owns every widget view.
type Dashboard struct {
	api     backend.API
	exports *export.Orchestrator
	cfg     config.Dashboard
	loc     *time.Location
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	account string
	epoch   uint64

	metrics  View[*models.Metrics]
	trades   View[[]models.Trade]
	charts   View[[]models.Trade]
	heatmap  View[[]models.Trade]
	accounts View[[]models.AccountInfo]

	chat     *chat.Session
	uploader *upload.Uploader
}

// New creates a dashboard. The configured account, if any, is selected.
func New(api backend.API, exports *export.Orchestrator, cfg config.Dashboard, logger *zap.Logger) *Dashboard {
	d := &Dashboard{
		api:     api,
		exports: exports,
		cfg:     cfg,
		loc:     cfg.Location(),
		logger:  logger.Named("dashboard"),
		now:     time.Now,
		account: cfg.Account,
	}
	d.chat = chat.NewSession(api, logger, d.Refresh)
	d.uploader = upload.NewUploader(api, logger, d.Refresh)
	return d
}

// Account returns the selected account.
func (d *Dashboard) Account() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.account
}

// Epoch returns the current refresh epoch.
func (d *Dashboard) Epoch() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.epoch
}

// Refresh bumps the epoch so every widget refetches on its next read.
func (d *Dashboard) Refresh() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.epoch++
	d.logger.Debug("Refresh requested", zap.Uint64("epoch", d.epoch))
}

// SelectAccount switches the active account. Switching refreshes.
func (d *Dashboard) SelectAccount(account string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if account == d.account {
		return
	}
	d.account = account
	d.epoch++
	d.logger.Info("Account selected", zap.String("account", account))
}

func (d *Dashboard) scope() (string, uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.account == "" {
		return "", 0, ErrNoAccount
	}
	return d.account, d.epoch, nil
}

// load refreshes a view if it is stale for the current account and epoch.
func load[T any](ctx context.Context, d *Dashboard, v *View[T], name string, fetch func(context.Context, string) (T, error)) (Snapshot[T], error) {
	account, epoch, err := d.scope()
	if err != nil {
		return v.Snapshot(), err
	}
	if v.Fresh(account, epoch) {
		return v.Snapshot(), nil
	}
	snap := v.Load(ctx, account, epoch, func(ctx context.Context) (T, error) {
		data, err := fetch(ctx, account)
		if err != nil {
			d.logger.Warn("Widget fetch failed", zap.String("widget", name), zap.String("account", account), zap.Error(err))
		}
		return data, err
	})
	return snap, nil
}

// Accounts lists accounts and selects one when none is chosen: the first
// listed, or the configured fallback when the list cannot be fetched.
func (d *Dashboard) Accounts(ctx context.Context) AccountsView {
	d.mu.Lock()
	epoch := d.epoch
	d.mu.Unlock()

	snap := d.accounts.Snapshot()
	if !d.accounts.Fresh("", epoch) {
		snap = d.accounts.Load(ctx, "", epoch, func(ctx context.Context) ([]models.AccountInfo, error) {
			return d.api.ListAccounts(ctx)
		})
	}

	d.mu.Lock()
	if d.account == "" {
		switch {
		case snap.Error == "" && len(snap.Data) > 0:
			d.account = snap.Data[0].Account
		case snap.Error != "" && d.cfg.FallbackAccount != "":
			d.account = d.cfg.FallbackAccount
			d.logger.Warn("Account list unavailable, using fallback", zap.String("account", d.account), zap.String("error", snap.Error))
		}
	}
	selected := d.account
	d.mu.Unlock()

	view := AccountsView{Accounts: snap.Data, Selected: selected, Error: snap.Error}
	for i := range snap.Data {
		if snap.Data[i].Account == selected {
			info := snap.Data[i]
			view.SelectedInfo = &info
		}
	}
	return view
}

// Metrics returns the metric cards.
func (d *Dashboard) Metrics(ctx context.Context) (MetricsView, error) {
	snap, err := load(ctx, d, &d.metrics, "metrics", d.api.GetMetrics)
	if err != nil {
		return MetricsView{}, err
	}
	return newMetricsView(snap), nil
}

// Trades returns the history table. The fetch covers the trailing window;
// filtering and sorting run locally on the fetched list.
func (d *Dashboard) Trades(ctx context.Context, opts pipeline.Options) (TradesView, error) {
	snap, err := load(ctx, d, &d.trades, "trades", func(ctx context.Context, account string) ([]models.Trade, error) {
		args := query.Build(query.Options{
			Account: account,
			Range:   d.tradesWindow(),
			Limit:   d.cfg.TradesLimit,
		}, d.now())
		res, err := d.api.QueryTrades(ctx, args)
		if err != nil {
			return nil, err
		}
		return res.Trades, nil
	})
	if err != nil {
		return TradesView{}, err
	}

	if opts.Location == nil {
		opts.Location = d.loc
	}
	rows := pipeline.Apply(snap.Data, opts)
	return TradesView{
		State:   state(snap),
		Trades:  rows,
		Shown:   len(rows),
		Total:   len(snap.Data),
		Summary: pipeline.Summary(len(rows), len(snap.Data)),
	}, nil
}

// tradesWindow is a fixed-length window ending today.
func (d *Dashboard) tradesWindow() query.DateRange {
	days := d.cfg.TradesWindowDays
	if days <= 0 {
		return query.MustPreset(query.PresetAll)
	}
	now := d.now()
	return query.CustomRange(
		now.Add(-time.Duration(days)*24*time.Hour).UTC().Format("2006-01-02"),
		now.UTC().Format("2006-01-02"),
	)
}

// Charts returns the performance charts.
func (d *Dashboard) Charts(ctx context.Context) (ChartsView, error) {
	snap, err := load(ctx, d, &d.charts, "charts", d.recentTrades(d.cfg.ChartsLimit))
	if err != nil {
		return ChartsView{}, err
	}
	return newChartsView(snap, d.loc), nil
}

// Heatmap returns the day/hour matrix.
func (d *Dashboard) Heatmap(ctx context.Context) (HeatmapView, error) {
	snap, err := load(ctx, d, &d.heatmap, "heatmap", d.recentTrades(d.cfg.HeatmapLimit))
	if err != nil {
		return HeatmapView{}, err
	}
	return newHeatmapView(snap, d.loc), nil
}

func (d *Dashboard) recentTrades(limit int) func(context.Context, string) ([]models.Trade, error) {
	return func(ctx context.Context, account string) ([]models.Trade, error) {
		res, err := d.api.QueryTrades(ctx, query.Args{Account: account, Limit: limit})
		if err != nil {
			return nil, err
		}
		return res.Trades, nil
	}
}

// ExportTradesCSV exports the account's trades and returns a download link.
func (d *Dashboard) ExportTradesCSV(ctx context.Context) (string, error) {
	account, _, err := d.scope()
	if err != nil {
		return "", err
	}
	artifact, err := d.api.ExportCSV(ctx, backend.ExportRequest{Args: query.Args{Account: account}})
	if err != nil {
		d.logger.Error("Error exporting CSV", zap.Error(err))
		return "", err
	}
	url, err := d.api.GetExportURL(ctx, artifact.S3Key)
	if err != nil {
		d.logger.Error("Error resolving export URL", zap.Error(err))
		return "", err
	}
	return url, nil
}

// Chat sends a message on behalf of the selected account.
func (d *Dashboard) Chat(ctx context.Context, text string) (chat.Message, error) {
	account, _, err := d.scope()
	if err != nil {
		return chat.Message{}, err
	}
	return d.chat.Send(ctx, account, text)
}

// ChatHistory returns the conversation so far.
func (d *Dashboard) ChatHistory() []chat.Message {
	return d.chat.Messages()
}

// Upload parses and stores a trade file for the selected account.
func (d *Dashboard) Upload(ctx context.Context, filename string, r io.Reader) (upload.Result, error) {
	account, _, err := d.scope()
	if err != nil {
		return upload.Result{}, err
	}
	return d.uploader.Upload(ctx, account, filename, r), nil
}

// QuickAction runs a predefined export. With viaChat the action's chat
// command is sent to the assistant instead and its reply is returned.
func (d *Dashboard) QuickAction(ctx context.Context, id string, viaChat bool) (export.QuickResult, error) {
	action, err := export.LookupQuickAction(id)
	if err != nil {
		return export.QuickResult{}, err
	}
	account, _, err := d.scope()
	if err != nil {
		return export.QuickResult{}, err
	}

	if viaChat {
		reply, err := d.chat.Send(ctx, account, action.ChatCommand)
		if err != nil {
			return export.QuickResult{}, fmt.Errorf("forward %s to chat: %w", id, err)
		}
		return export.QuickResult{ID: id, Success: !reply.Failed, Message: reply.Content}, nil
	}
	return d.exports.RunQuickAction(ctx, account, action), nil
}

// StartExport submits an export job for the selected account.
func (d *Dashboard) StartExport(ctx context.Context, platform export.PlatformID, cfg export.Config) (*models.ExportJob, error) {
	account, _, err := d.scope()
	if err != nil {
		return nil, err
	}
	return d.exports.Submit(ctx, export.Request{Account: account, Platform: platform, Config: cfg})
}

// ExportJobs lists recent export jobs.
func (d *Dashboard) ExportJobs(ctx context.Context) ([]models.ExportJob, error) {
	return d.exports.Jobs(ctx)
}

// Location is the display timezone.
func (d *Dashboard) Location() *time.Location {
	return d.loc
}
