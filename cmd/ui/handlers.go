package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"trading-analytics-go/internal/chat"
	"trading-analytics-go/internal/dashboard"
	"trading-analytics-go/internal/export"
	"trading-analytics-go/internal/pipeline"
	"trading-analytics-go/internal/query"
)

// maxUploadSize bounds multipart bodies on /api/upload.
const maxUploadSize = 32 << 20

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log  *zap.Logger
	dash *dashboard.Dashboard
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, dash *dashboard.Dashboard) *APIHandler {
	return &APIHandler{log: log.Named("api"), dash: dash}
}

// Routes registers every endpoint on mux.
func (h *APIHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", h.StatusHandler)
	mux.HandleFunc("POST /api/refresh", h.RefreshHandler)
	mux.HandleFunc("GET /api/accounts", h.AccountsHandler)
	mux.HandleFunc("POST /api/accounts", h.SelectAccountHandler)
	mux.HandleFunc("GET /api/metrics", h.MetricsHandler)
	mux.HandleFunc("GET /api/trades", h.TradesHandler)
	mux.HandleFunc("POST /api/trades/export", h.ExportTradesHandler)
	mux.HandleFunc("GET /api/charts", h.ChartsHandler)
	mux.HandleFunc("GET /api/heatmap", h.HeatmapHandler)
	mux.HandleFunc("GET /api/chat", h.ChatHistoryHandler)
	mux.HandleFunc("POST /api/chat", h.ChatHandler)
	mux.HandleFunc("GET /api/platforms", h.PlatformsHandler)
	mux.HandleFunc("GET /api/exports", h.ExportJobsHandler)
	mux.HandleFunc("POST /api/exports", h.StartExportHandler)
	mux.HandleFunc("GET /api/quick-actions", h.QuickActionsHandler)
	mux.HandleFunc("POST /api/quick-actions/{id}", h.RunQuickActionHandler)
	mux.HandleFunc("POST /api/upload", h.UploadHandler)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to write response", zap.Error(err))
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// widgetError maps a widget read failure to a status code.
func (h *APIHandler) widgetError(w http.ResponseWriter, err error) {
	if errors.Is(err, dashboard.ErrNoAccount) {
		h.writeError(w, http.StatusConflict, err)
		return
	}
	h.log.Error("Request failed", zap.Error(err))
	h.writeError(w, http.StatusInternalServerError, err)
}

// StatusHandler reports the selected account and refresh epoch.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, struct {
		Account  string `json:"account"`
		Epoch    uint64 `json:"epoch"`
		Timezone string `json:"timezone"`
	}{
		Account:  h.dash.Account(),
		Epoch:    h.dash.Epoch(),
		Timezone: h.dash.Location().String(),
	})
}

// RefreshHandler invalidates every widget.
func (h *APIHandler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	h.dash.Refresh()
	h.StatusHandler(w, r)
}

// AccountsHandler lists accounts and the current selection.
func (h *APIHandler) AccountsHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.dash.Accounts(r.Context()))
}

// SelectAccountHandler switches the active account.
func (h *APIHandler) SelectAccountHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Account string `json:"account"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Account == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("account is required"))
		return
	}
	h.dash.SelectAccount(body.Account)
	h.writeJSON(w, http.StatusOK, h.dash.Accounts(r.Context()))
}

// MetricsHandler returns the metric cards.
func (h *APIHandler) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	view, err := h.dash.Metrics(r.Context())
	if err != nil {
		h.widgetError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// TradesHandler returns the filtered and sorted trade history.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts, err := pipeline.Parse(q.Get("filter"), q.Get("sort"), q.Get("order"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	opts.Filters.Ticker = q.Get("ticker")
	opts.Filters.Action = q.Get("action")

	view, err := h.dash.Trades(r.Context(), opts)
	if err != nil {
		h.widgetError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// ExportTradesHandler exports the account's trades and returns the link.
func (h *APIHandler) ExportTradesHandler(w http.ResponseWriter, r *http.Request) {
	url, err := h.dash.ExportTradesCSV(r.Context())
	if err != nil {
		h.widgetError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// ChartsHandler returns the performance charts.
func (h *APIHandler) ChartsHandler(w http.ResponseWriter, r *http.Request) {
	view, err := h.dash.Charts(r.Context())
	if err != nil {
		h.widgetError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// HeatmapHandler returns the day/hour matrix.
func (h *APIHandler) HeatmapHandler(w http.ResponseWriter, r *http.Request) {
	view, err := h.dash.Heatmap(r.Context())
	if err != nil {
		h.widgetError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// ChatHistoryHandler returns the conversation and starter prompts.
func (h *APIHandler) ChatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, struct {
		Messages    []chat.Message `json:"messages"`
		Suggestions []string       `json:"suggestions"`
	}{
		Messages:    h.dash.ChatHistory(),
		Suggestions: chat.Suggestions,
	})
}

// ChatHandler sends one message to the assistant.
func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	reply, err := h.dash.Chat(r.Context(), body.Message)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, chat.ErrBusy):
		h.writeError(w, http.StatusConflict, err)
	case err != nil:
		h.widgetError(w, err)
	default:
		h.writeJSON(w, http.StatusOK, reply)
	}
}

// PlatformsHandler lists export destinations.
func (h *APIHandler) PlatformsHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, export.Platforms())
}

// ExportJobsHandler lists recent export jobs, newest first.
func (h *APIHandler) ExportJobsHandler(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.dash.ExportJobs(r.Context())
	if err != nil {
		h.log.Error("Failed to get export jobs", zap.Error(err))
		http.Error(w, "Failed to get export jobs", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, jobs)
}

// exportBody is the export panel form. Empty fields keep the platform default.
type exportBody struct {
	Platform  export.PlatformID `json:"platform"`
	Format    export.Format     `json:"format"`
	DateRange query.Preset      `json:"date_range"`
	StartDate string            `json:"custom_start_date"`
	EndDate   string            `json:"custom_end_date"`
	Scope     string            `json:"data_scope"`
	Filename  string            `json:"filename"`
}

func (b exportBody) config() (export.Config, error) {
	platform, err := export.LookupPlatform(b.Platform)
	if err != nil {
		return export.Config{}, err
	}
	cfg := platform.Defaults
	if b.Format != "" {
		cfg.Format = b.Format
	}
	if b.Filename != "" {
		cfg.Filename = b.Filename
	}
	if b.Scope != "" {
		if cfg.Scope, err = query.ParseScope(b.Scope); err != nil {
			return cfg, err
		}
	}
	switch b.DateRange {
	case "":
	case query.PresetCustom:
		cfg.Range = query.CustomRange(b.StartDate, b.EndDate)
	default:
		if cfg.Range, err = query.PresetRange(b.DateRange); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// StartExportHandler submits an export job; it completes in the background.
func (h *APIHandler) StartExportHandler(w http.ResponseWriter, r *http.Request) {
	var body exportBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	cfg, err := body.config()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	job, err := h.dash.StartExport(r.Context(), body.Platform, cfg)
	switch {
	case errors.Is(err, export.ErrUnsupportedFormat), errors.Is(err, export.ErrUnknownPlatform):
		h.writeError(w, http.StatusBadRequest, err)
	case err != nil:
		h.widgetError(w, err)
	default:
		h.writeJSON(w, http.StatusAccepted, job)
	}
}

// QuickActionsHandler lists the predefined exports.
func (h *APIHandler) QuickActionsHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, export.QuickActions())
}

// RunQuickActionHandler runs one predefined export. ?via=chat forwards its
// command to the assistant instead.
func (h *APIHandler) RunQuickActionHandler(w http.ResponseWriter, r *http.Request) {
	viaChat := r.URL.Query().Get("via") == "chat"
	res, err := h.dash.QuickAction(r.Context(), r.PathValue("id"), viaChat)
	switch {
	case errors.Is(err, export.ErrUnknownQuickAction):
		h.writeError(w, http.StatusNotFound, err)
	case err != nil:
		h.widgetError(w, err)
	default:
		h.writeJSON(w, http.StatusOK, res)
	}
}

// UploadHandler accepts a multipart "file" field.
func (h *APIHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("file is required"))
		return
	}
	defer file.Close()

	res, err := h.dash.Upload(r.Context(), header.Filename, file)
	if err != nil {
		h.widgetError(w, err)
		return
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	h.writeJSON(w, status, res)
}
