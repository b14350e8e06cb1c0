// Package export runs the multi-step export workflow: materialize an
// artifact on the backend, optionally publish it to a destination platform,
// then resolve a direct download link.
package export

import (
	"errors"
	"fmt"

	"trading-analytics-go/internal/query"
)

var (
	ErrUnknownPlatform    = errors.New("unknown export platform")
	ErrUnsupportedFormat  = errors.New("format not supported by platform")
	ErrUnknownQuickAction = errors.New("unknown quick action")
)

// PlatformID identifies an export destination.
type PlatformID string

const (
	GoogleDrive  PlatformID = "google_drive"
	QuantConnect PlatformID = "quantconnect"
	Kaggle       PlatformID = "kaggle"
	// Local produces a download link only.
	Local PlatformID = "local"
)

// Format is the artifact encoding.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
)

// Config is one export request's settings.
type Config struct {
	Format   Format          `json:"format"`
	Range    query.DateRange `json:"-"`
	Scope    query.Scope     `json:"data_scope"`
	Filename string          `json:"filename"`
}

// Platform describes a destination and its defaults.
type Platform struct {
	ID          PlatformID `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Formats     []Format   `json:"formats"`
	AutoSync    bool       `json:"supports_auto_sync"`
	Defaults    Config     `json:"defaults"`
}

// Supports reports whether the platform accepts f.
func (p Platform) Supports(f Format) bool {
	for _, have := range p.Formats {
		if have == f {
			return true
		}
	}
	return false
}

var platforms = []Platform{
	{
		ID:          GoogleDrive,
		Name:        "Google Drive",
		Description: "Export trade data and reports to your Google Drive",
		Formats:     []Format{CSV, JSON},
		AutoSync:    true,
		Defaults: Config{
			Format:   CSV,
			Range:    query.MustPreset(query.PresetMonth),
			Scope:    query.ScopeAllTrades,
			Filename: "trading_data",
		},
	},
	{
		ID:          QuantConnect,
		Name:        "QuantConnect",
		Description: "Push datasets for backtesting and ML model training",
		Formats:     []Format{CSV, JSON},
		AutoSync:    true,
		Defaults: Config{
			Format:   CSV,
			Range:    query.MustPreset(query.PresetAll),
			Scope:    query.ScopeWithIndicators,
			Filename: "nq_backtest_data",
		},
	},
	{
		ID:          Kaggle,
		Name:        "Kaggle",
		Description: "Publish trading datasets for ML research and competitions",
		Formats:     []Format{CSV},
		AutoSync:    false,
		Defaults: Config{
			Format:   CSV,
			Range:    query.MustPreset(query.PresetAll),
			Scope:    query.ScopeAllTrades,
			Filename: "nq_futures_trading_dataset",
		},
	},
	{
		ID:          Local,
		Name:        "Download",
		Description: "Download trade data locally",
		Formats:     []Format{CSV, JSON},
		Defaults: Config{
			Format:   CSV,
			Range:    query.MustPreset(query.PresetAll),
			Scope:    query.ScopeAllTrades,
			Filename: "trade_export",
		},
	},
}

// Platforms lists every destination in display order.
func Platforms() []Platform {
	out := make([]Platform, len(platforms))
	copy(out, platforms)
	return out
}

// LookupPlatform finds a destination by id.
func LookupPlatform(id PlatformID) (Platform, error) {
	for _, p := range platforms {
		if p.ID == id {
			return p, nil
		}
	}
	return Platform{}, fmt.Errorf("%w: %q", ErrUnknownPlatform, id)
}

// Validate checks cfg against the platform's accepted formats. An empty
// format or filename falls back to the platform default.
func (p Platform) Validate(cfg Config) (Config, error) {
	if cfg.Format == "" {
		cfg.Format = p.Defaults.Format
	}
	if cfg.Filename == "" {
		cfg.Filename = p.Defaults.Filename
	}
	if cfg.Scope == "" {
		cfg.Scope = query.ScopeAllTrades
	}
	if !p.Supports(cfg.Format) {
		return cfg, fmt.Errorf("%w: %s does not accept %s", ErrUnsupportedFormat, p.Name, cfg.Format)
	}
	return cfg, nil
}
