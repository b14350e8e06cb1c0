package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrade_UnmarshalMixedNumbers(t *testing.T) {
	// Arrange
	body := `{"trade_id":"t1","timestamp":1739400000000,"action":"long_exit","profit":"12.5","quantity":2,"entry_price":null}`

	// Act
	var trade Trade
	err := json.Unmarshal([]byte(body), &trade)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, FlexString("1739400000000"), trade.Timestamp)
	assert.Equal(t, 12.5, trade.ProfitValue())
	assert.Equal(t, 2.0, trade.Quantity.Float())
	assert.Equal(t, FlexString(""), trade.EntryPrice)
}

func TestFlexString_Float(t *testing.T) {
	testCases := []struct {
		in   FlexString
		want float64
	}{
		{"", 0},
		{" 3.25 ", 3.25},
		{"-7", -7},
		{"abc", 0},
		{"NaN", 0},
		{"Inf", 0},
	}
	for _, tc := range testCases {
		t.Run(string(tc.in), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Float())
		})
	}
}

func TestFlexString_RejectsObjects(t *testing.T) {
	var s FlexString
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &s))
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.False(t, JobPending.Terminal())
	assert.False(t, JobRunning.Terminal())
	assert.True(t, JobSuccess.Terminal())
	assert.True(t, JobFailed.Terminal())
}
