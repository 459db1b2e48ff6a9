package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/zoneradar/internal/backfill"
	"github.com/navid-fn/zoneradar/internal/drivers"
	"github.com/navid-fn/zoneradar/internal/models"
	"github.com/navid-fn/zoneradar/internal/price"
	"github.com/navid-fn/zoneradar/internal/storage"
	"github.com/navid-fn/zoneradar/internal/zones"
)

// Handler binds the HTTP endpoints to the engine and service layer.
type Handler struct {
	engine *backfill.Engine
	svc    *ZoneService
}

func NewHandler(engine *backfill.Engine, svc *ZoneService) *Handler {
	return &Handler{engine: engine, svc: svc}
}

type createBackfillRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Exchange string `json:"exchange" binding:"required"`
	StartTs  int64  `json:"start_ts" binding:"required"`
	EndTs    int64  `json:"end_ts" binding:"required"`
}

// CreateBackfill registers a job and returns its id immediately; progress
// is polled through GetBackfill.
func (h *Handler) CreateBackfill(c *gin.Context) {
	var req createBackfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidExchange(req.Exchange) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown exchange: " + req.Exchange})
		return
	}

	id, err := h.engine.Create(c.Request.Context(),
		strings.ToUpper(req.Symbol), models.Exchange(req.Exchange), req.StartTs, req.EndTs)
	if errors.Is(err, backfill.ErrInvalid) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id})
}

func (h *Handler) GetBackfill(c *gin.Context) {
	job, err := h.engine.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) ListBackfills(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	jobs, err := h.engine.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// GetZones runs zone extraction for a symbol. Strategy and thresholds come
// from query parameters; upstream failures map to 502, bad input to 400.
func (h *Handler) GetZones(c *gin.Context) {
	symbol := strings.ToUpper(c.Query("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	q := ZoneQuery{
		Symbol:     symbol,
		Strategy:   c.DefaultQuery("strategy", "candles"),
		BucketSize: queryFloat(c, "bucket_size", 0),
		SinceTs:    queryInt64(c, "since", 0),
		Interval:   c.Query("interval"),
		Limit:      int(queryInt64(c, "limit", 0)),
		Exchanges:  parseExchanges(c.Query("exchanges")),
		Options: zones.Options{
			MinSeparation:   queryFloat(c, "min_separation", 0),
			RangeLimit:      queryFloat(c, "range_limit", 0),
			MaxLevels:       int(queryInt64(c, "max_levels", 0)),
			VolumeFactor:    queryFloat(c, "volume_factor", 0),
			DeltaFloor:      queryFloat(c, "delta_floor", 0),
			DeltaPercentile: queryFloat(c, "delta_percentile", 0),
		},
	}
	if q.Strategy != "candles" && q.Strategy != "trades" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "strategy must be candles or trades"})
		return
	}

	resp, err := h.svc.Zones(c.Request.Context(), q)
	if err != nil {
		c.JSON(upstreamStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetPrice(c *gin.Context) {
	symbol := strings.ToUpper(c.Query("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	quote, err := h.svc.Price(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(upstreamStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *Handler) GetLatestTrades(c *gin.Context) {
	symbol := strings.ToUpper(c.Query("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	trades, err := h.svc.LatestTrades(c.Request.Context(), symbol,
		parseExchanges(c.Query("exchanges")), queryInt64(c, "since", 0))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trades)
}

// upstreamStatus distinguishes "upstream unavailable" from internal faults.
func upstreamStatus(err error) int {
	var transport *drivers.TransportError
	if errors.Is(err, price.ErrNoData) || errors.As(err, &transport) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func parseExchanges(raw string) []models.Exchange {
	if raw == "" {
		return nil
	}
	var out []models.Exchange
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if models.ValidExchange(name) {
			out = append(out, models.Exchange(name))
		}
	}
	return out
}

func queryFloat(c *gin.Context, key string, def float64) float64 {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func queryInt64(c *gin.Context, key string, def int64) int64 {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}
