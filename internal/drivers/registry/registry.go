// Package registry wires the venue connectors into lookup tables used by
// the backfill engine and the price resolver.
package registry

import (
	"fmt"

	"github.com/navid-fn/zoneradar/internal/drivers"
	"github.com/navid-fn/zoneradar/internal/drivers/binance"
	"github.com/navid-fn/zoneradar/internal/drivers/bybit"
	"github.com/navid-fn/zoneradar/internal/drivers/kraken"
	"github.com/navid-fn/zoneradar/internal/drivers/okx"
	"github.com/navid-fn/zoneradar/internal/models"
)

var connectors = map[models.Exchange]drivers.Connector{
	models.ExchangeBinance: binance.New(),
	models.ExchangeKraken:  kraken.New(),
	models.ExchangeOKX:     okx.New(),
	models.ExchangeBybit:   bybit.New(),
}

// Connector returns the adapter for the named venue.
func Connector(exchange models.Exchange) (drivers.Connector, error) {
	c, ok := connectors[exchange]
	if !ok {
		return nil, fmt.Errorf("unknown exchange %q", exchange)
	}
	return c, nil
}

// Connectors returns every registered adapter.
func Connectors() []drivers.Connector {
	out := make([]drivers.Connector, 0, len(connectors))
	for _, e := range models.Exchanges {
		out = append(out, connectors[e])
	}
	return out
}

// Tickers returns the price sources in resolver preference order. Kraken
// is excluded: its ticker payload shares the trades envelope quirks and the
// remaining venues give the chain enough depth.
func Tickers() []drivers.TickerSource {
	return []drivers.TickerSource{binance.New(), okx.New(), bybit.New()}
}
