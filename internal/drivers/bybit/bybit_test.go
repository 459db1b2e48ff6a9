package bybit

import (
	"testing"

	"github.com/navid-fn/zoneradar/internal/drivers"
	"github.com/navid-fn/zoneradar/internal/models"
)

func TestNormalize(t *testing.T) {
	c := New()

	testCases := []struct {
		name     string
		record   tradeRecord
		wantNil  bool
		wantSide string
	}{
		{
			name:     "capitalized sell side",
			record:   tradeRecord{ExecID: "1", Price: "16618.49", Size: "0.00012", Side: "Sell", Time: "1672052955758"},
			wantSide: models.SideSell,
		},
		{
			name:     "capitalized buy side",
			record:   tradeRecord{ExecID: "2", Price: "16618.49", Size: "0.00012", Side: "Buy", Time: "1672052955758"},
			wantSide: models.SideBuy,
		},
		{
			name:     "unknown side defaults to buy",
			record:   tradeRecord{ExecID: "3", Price: "16618.49", Size: "0.00012", Time: "1672052955758"},
			wantSide: models.SideBuy,
		},
		{
			name:    "missing price is skipped",
			record:  tradeRecord{ExecID: "4", Size: "0.00012", Time: "1672052955758"},
			wantNil: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw := drivers.RawTrade{Exchange: c.Name(), Symbol: "BTCUSDT", FetchedAt: 1700000099000, Record: tc.record}
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
			if trade.Exchange != models.ExchangeBybit {
				t.Errorf("Expected exchange bybit, got %s", trade.Exchange)
			}
		})
	}
}
