package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/navid-fn/zoneradar/internal/drivers"
	"github.com/navid-fn/zoneradar/internal/models"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("startTime") != "1000" || q.Get("endTime") != "2000" {
			t.Errorf("Unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"a":42,"p":"100.5","q":"2","T":1500,"m":true}]`))
	}))
	defer srv.Close()

	c := &Connector{baseURL: srv.URL}
	raws, err := c.Fetch(context.Background(), "BTCUSDT", 1000, 2000, 500)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(raws) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(raws))
	}

	trade := c.Normalize(raws[0])
	if trade == nil {
		t.Fatal("Fetched record must normalize")
	}
	if trade.Price != 100.5 || trade.Side != models.SideSell || trade.Timestamp != 1500 {
		t.Errorf("Unexpected trade: %+v", trade)
	}
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := &Connector{baseURL: srv.URL}
	_, err := c.Fetch(context.Background(), "BTCUSDT", 1000, 2000, 500)

	var terr *drivers.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Expected a TransportError, got %v", err)
	}
	if terr.Exchange != models.ExchangeBinance {
		t.Errorf("Expected exchange binance, got %s", terr.Exchange)
	}
}

func TestFetchMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"`))
	}))
	defer srv.Close()

	c := &Connector{baseURL: srv.URL}
	_, err := c.Fetch(context.Background(), "BTCUSDT", 1000, 2000, 500)

	var terr *drivers.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Expected a TransportError, got %v", err)
	}
}

func TestKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			[1700000000000,"1.0","2.0","0.5","1.5","100.0",1700000059999,"x",10,"y","z","0"],
			["bad row"],
			[1700000060000,"1.5","2.5","1.0","2.0","50.0",1700000119999,"x",10,"y","z","0"]
		]`))
	}))
	defer srv.Close()

	c := &Connector{baseURL: srv.URL}
	candles, err := c.Klines(context.Background(), "BTCUSDT", "1h", 200)
	if err != nil {
		t.Fatalf("Klines failed: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("Expected 2 candles (bad row skipped), got %d", len(candles))
	}
	if candles[0].Close != 1.5 || candles[0].Volume != 100 || candles[0].OpenTime != 1700000000000 {
		t.Errorf("Unexpected first candle: %+v", candles[0])
	}
}

func TestKlinesMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := &Connector{baseURL: srv.URL}
	_, err := c.Klines(context.Background(), "BTCUSDT", "1h", 200)

	var terr *drivers.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Expected a TransportError, got %v", err)
	}
}

func TestTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"42000.1"}`))
	}))
	defer srv.Close()

	c := &Connector{baseURL: srv.URL}
	price, err := c.Ticker(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("Ticker failed: %v", err)
	}
	if price != 42000.1 {
		t.Errorf("Expected 42000.1, got %f", price)
	}
}

func TestTickerMissingPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT"}`))
	}))
	defer srv.Close()

	c := &Connector{baseURL: srv.URL}
	_, err := c.Ticker(context.Background(), "BTCUSDT")

	var terr *drivers.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Expected a TransportError, got %v", err)
	}
}
