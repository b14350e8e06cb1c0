package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Trade is one completed trade record as returned by the backend.
// Numeric fields arrive as strings and are parsed only when computed on.
type Trade struct {
	ID         string          `json:"trade_id"`
	Account    string          `json:"account,omitempty"`
	Timestamp  FlexString      `json:"timestamp"`
	Action     string          `json:"action"`
	Ticker     string          `json:"ticker,omitempty"`
	Interval   string          `json:"interval,omitempty"`
	EntryPrice FlexString      `json:"entry_price"`
	ExitPrice  FlexString      `json:"exit_price"`
	Quantity   FlexString      `json:"quantity"`
	Profit     FlexString      `json:"profit"`
	Indicators json.RawMessage `json:"indicators,omitempty"`
}

// ProfitValue parses the profit field. Unparseable values count as zero.
func (t Trade) ProfitValue() float64 {
	return t.Profit.Float()
}

// FlexString accepts either a JSON string or a JSON number and keeps the
// textual form. The backend is not consistent about quoting numbers.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = FlexString(num.String())
	return nil
}

// String returns the raw text.
func (s FlexString) String() string {
	return string(s)
}

// Float parses the value as a float64, returning 0 when it is empty or
// not a finite number.
func (s FlexString) Float() float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
