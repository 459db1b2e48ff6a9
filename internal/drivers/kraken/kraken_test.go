package kraken

import (
	"testing"

	"github.com/navid-fn/zoneradar/internal/drivers"
	"github.com/navid-fn/zoneradar/internal/models"
)

func TestSymbol(t *testing.T) {
	c := New()

	testCases := []struct {
		input    string
		expected string
	}{
		{"BTCUSDT", "XBTUSDT"},
		{"DOGEUSDT", "XDGUSDT"},
		{"ETHUSDT", "ETHUSDT"},
		{"SOLUSD", "SOLUSD"},
	}

	for _, tc := range testCases {
		if got := c.Symbol(tc.input); got != tc.expected {
			t.Errorf("Symbol(%s) = %s, expected %s", tc.input, got, tc.expected)
		}
	}
}

func TestNormalize(t *testing.T) {
	c := New()

	testCases := []struct {
		name     string
		tuple    []any
		wantNil  bool
		wantSide string
		wantTs   int64
	}{
		{
			name:     "sell tuple",
			tuple:    []any{"42000.5", "0.25", 1700000000.123, "s", "l", "", 12345.0},
			wantSide: models.SideSell,
			wantTs:   1700000000123,
		},
		{
			name:     "buy tuple",
			tuple:    []any{"42000.5", "0.25", 1700000000.0, "b", "m", "", 12346.0},
			wantSide: models.SideBuy,
			wantTs:   1700000000000,
		},
		{
			name:    "too short",
			tuple:   []any{"42000.5", "0.25"},
			wantNil: true,
		},
		{
			name:    "price not a string",
			tuple:   []any{42000.5, "0.25", 1700000000.0, "b"},
			wantNil: true,
		},
		{
			name:    "zero price",
			tuple:   []any{"0", "0.25", 1700000000.0, "b"},
			wantNil: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw := drivers.RawTrade{Exchange: c.Name(), Symbol: "BTCUSDT", FetchedAt: 1700000099000, Record: tc.tuple}
			trade := c.Normalize(raw)

			if tc.wantNil {
				if trade != nil {
					t.Fatal("Expected nil trade")
				}
				return
			}
			if trade == nil {
				t.Fatal("Expected a trade, got nil")
			}
			if trade.Side != tc.wantSide {
				t.Errorf("Expected side %s, got %s", tc.wantSide, trade.Side)
			}
			if trade.Timestamp != tc.wantTs {
				t.Errorf("Expected timestamp %d, got %d", tc.wantTs, trade.Timestamp)
			}
		})
	}
}
