package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ringboard/ringboard/internal/store"
	"github.com/ringboard/ringboard/services"
)

// respondOK and respondError emit the dashboard response envelope:
// {success: true, data} | {success: false, error: {message}}.
func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": gin.H{"message": message}})
}

type DashboardHandler struct {
	stats *services.StatsService
	store *store.Store
}

func NewDashboardHandler(stats *services.StatsService, viewStore *store.Store) *DashboardHandler {
	return &DashboardHandler{stats: stats, store: viewStore}
}

// GetSummary handles GET /api/summary. Summary is a load-once kind: when
// the store already holds data and no request is in flight, it answers from
// the store without re-fetching.
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	if !h.store.ShouldLoad(store.KindSummary) {
		if state := h.store.Get(store.KindSummary); state.Value != nil {
			respondOK(c, state.Value)
			return
		}
	}

	seq := h.store.Begin(store.KindSummary)
	stats, err := h.stats.GetSummaryStats(c.Request.Context())
	h.store.Complete(store.KindSummary, seq, stats, err)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, stats)
}

// GetTimeSeries handles GET /api/timeseries?metric=&period=. Time series
// re-fetches on every call; the store fences overlapping requests.
func (h *DashboardHandler) GetTimeSeries(c *gin.Context) {
	metric := c.DefaultQuery("metric", services.MetricCalls)
	period := c.DefaultQuery("period", services.PeriodDay)

	seq := h.store.Begin(store.KindTimeSeries)
	series, err := h.stats.GetTimeSeries(c.Request.Context(), metric, period)
	h.store.Complete(store.KindTimeSeries, seq, series, err)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, series)
}

// GetEvents handles GET /api/events?page=&pageSize=&status=&direction=.
func (h *DashboardHandler) GetEvents(c *gin.Context) {
	page := 1
	if pageStr := c.Query("page"); pageStr != "" {
		if parsed, err := strconv.Atoi(pageStr); err == nil && parsed > 0 {
			page = parsed
		}
	}
	pageSize := 50
	if sizeStr := c.Query("pageSize"); sizeStr != "" {
		if parsed, err := strconv.Atoi(sizeStr); err == nil && parsed > 0 {
			pageSize = parsed
		}
	}

	seq := h.store.Begin(store.KindEvents)
	events, err := h.stats.ListEvents(c.Request.Context(), page, pageSize, c.Query("status"), c.Query("direction"))
	h.store.Complete(store.KindEvents, seq, events, err)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, events)
}

// GetEngagement handles GET /api/metrics/engagement, another load-once kind.
func (h *DashboardHandler) GetEngagement(c *gin.Context) {
	if !h.store.ShouldLoad(store.KindEngagement) {
		if state := h.store.Get(store.KindEngagement); state.Value != nil {
			respondOK(c, state.Value)
			return
		}
	}

	seq := h.store.Begin(store.KindEngagement)
	metrics, err := h.stats.GetEngagementMetrics(c.Request.Context())
	h.store.Complete(store.KindEngagement, seq, metrics, err)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	respondOK(c, metrics)
}

// GetCustomerCount handles GET /api/metrics/customers.
func (h *DashboardHandler) GetCustomerCount(c *gin.Context) {
	respondOK(c, gin.H{"totalCustomers": h.stats.GetTotalCustomers(c.Request.Context())})
}
