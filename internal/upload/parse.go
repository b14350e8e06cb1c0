// Package upload parses bulk trade files and submits them through the
// write_trades_batch tool.
package upload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"trading-analytics-go/internal/models"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file type")
	ErrNoTrades          = errors.New("no valid trades found in file")
)

// row is the flat, all-text shape shared by the tabular formats.
type row struct {
	TradeID    string `csv:"trade_id" yaml:"trade_id"`
	Timestamp  string `csv:"timestamp" yaml:"timestamp"`
	Action     string `csv:"action" yaml:"action"`
	Ticker     string `csv:"ticker" yaml:"ticker"`
	Interval   string `csv:"interval" yaml:"interval"`
	EntryPrice string `csv:"entry_price" yaml:"entry_price"`
	ExitPrice  string `csv:"exit_price" yaml:"exit_price"`
	Quantity   string `csv:"quantity" yaml:"quantity"`
	Profit     string `csv:"profit" yaml:"profit"`
	Indicators string `csv:"indicators" yaml:"-"`
}

func (r row) trade() models.Trade {
	return models.Trade{
		ID:         r.TradeID,
		Timestamp:  models.FlexString(strings.TrimSpace(r.Timestamp)),
		Action:     strings.TrimSpace(r.Action),
		Ticker:     r.Ticker,
		Interval:   r.Interval,
		EntryPrice: models.FlexString(r.EntryPrice),
		ExitPrice:  models.FlexString(r.ExitPrice),
		Quantity:   models.FlexString(r.Quantity),
		Profit:     models.FlexString(r.Profit),
		Indicators: indicatorsFromText(r.Indicators),
	}
}

// indicatorsFromText keeps JSON text as-is and quotes anything else.
func indicatorsFromText(s string) json.RawMessage {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	quoted, _ := json.Marshal(s)
	return quoted
}

// Parse decodes a trade file, choosing the decoder by extension, and drops
// rows without a timestamp or action.
func Parse(filename string, r io.Reader) ([]models.Trade, error) {
	var (
		trades []models.Trade
		err    error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		trades, err = parseCSV(r)
	case ".xlsx", ".xls":
		trades, err = parseSpreadsheet(r)
	case ".json":
		trades, err = parseJSON(r)
	case ".yaml", ".yml":
		trades, err = parseYAML(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	valid := trades[:0]
	for _, t := range trades {
		if t.Timestamp != "" && t.Action != "" {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoTrades
	}
	return valid, nil
}

func parseCSV(r io.Reader) ([]models.Trade, error) {
	var rows []*row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	trades := make([]models.Trade, 0, len(rows))
	for _, rw := range rows {
		trades = append(trades, rw.trade())
	}
	return trades, nil
}

// parseSpreadsheet reads the first sheet, using its first row as the header.
func parseSpreadsheet(r io.Reader) ([]models.Trade, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoTrades
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, ErrNoTrades
	}

	header := rows[0]
	trades := make([]models.Trade, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		record := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(cells) {
				record[strings.TrimSpace(name)] = cells[i]
			}
		}
		trades = append(trades, row{
			TradeID:    record["trade_id"],
			Timestamp:  record["timestamp"],
			Action:     record["action"],
			Ticker:     record["ticker"],
			Interval:   record["interval"],
			EntryPrice: record["entry_price"],
			ExitPrice:  record["exit_price"],
			Quantity:   record["quantity"],
			Profit:     record["profit"],
			Indicators: record["indicators"],
		}.trade())
	}
	return trades, nil
}

// parseJSON accepts an array of trades or a single trade object.
func parseJSON(r io.Reader) ([]models.Trade, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read json: %w", err)
	}
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '[' {
		var trades []models.Trade
		if err := json.Unmarshal(data, &trades); err != nil {
			return nil, fmt.Errorf("failed to parse json: %w", err)
		}
		return trades, nil
	}
	var t models.Trade
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse json: %w", err)
	}
	return []models.Trade{t}, nil
}

// yamlRow decodes scalars as their literal text. Indicators keep their
// structure and are re-encoded as JSON.
type yamlRow struct {
	row        `yaml:",inline"`
	Indicators any `yaml:"indicators"`
}

// parseYAML accepts a sequence of trades or a single mapping.
func parseYAML(r io.Reader) ([]models.Trade, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoTrades
		}
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	var rows []yamlRow
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&rows); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	case yaml.MappingNode:
		var single yamlRow
		if err := root.Decode(&single); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
		rows = append(rows, single)
	default:
		return nil, ErrNoTrades
	}

	trades := make([]models.Trade, 0, len(rows))
	for _, yr := range rows {
		t := yr.row.trade()
		if yr.Indicators != nil {
			if encoded, err := json.Marshal(yr.Indicators); err == nil {
				t.Indicators = encoded
			}
		}
		trades = append(trades, t)
	}
	return trades, nil
}
