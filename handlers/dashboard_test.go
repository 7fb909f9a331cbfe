package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ringboard/ringboard/internal/store"
	"github.com/ringboard/ringboard/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envelope mirrors the response wrapper every endpoint emits.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func newDashboardRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	// No database wired: the stats service answers from the mock source.
	handler := NewDashboardHandler(services.NewStatsService(nil, nil), store.New())

	r := gin.New()
	r.GET("/api/summary", handler.GetSummary)
	r.GET("/api/timeseries", handler.GetTimeSeries)
	r.GET("/api/events", handler.GetEvents)
	r.GET("/api/metrics/engagement", handler.GetEngagement)
	r.GET("/api/metrics/customers", handler.GetCustomerCount)
	return r
}

func TestGetSummaryEnvelope(t *testing.T) {
	r := newDashboardRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/summary", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)

	var data struct {
		TotalCalls    int `json:"totalCalls"`
		AnsweredCalls int `json:"answeredCalls"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 1247, data.TotalCalls)
	assert.Equal(t, 892, data.AnsweredCalls)
}

func TestGetSummaryServedFromStoreOnRepeat(t *testing.T) {
	r := newDashboardRouter()

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/summary", nil)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decodeEnvelope(t, w).Success)
	}
}

func TestGetTimeSeriesEchoesParams(t *testing.T) {
	r := newDashboardRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/timeseries?metric=answered_rate&period=hour", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.True(t, env.Success)

	var data struct {
		Metric string `json:"metric"`
		Period string `json:"period"`
		Data   []struct {
			Value float64 `json:"value"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "answered_rate", data.Metric)
	assert.Equal(t, "hour", data.Period)
	assert.NotEmpty(t, data.Data)
}

func TestGetEventsPagination(t *testing.T) {
	r := newDashboardRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/events?page=2&pageSize=10&status=missed", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.True(t, env.Success)

	var data struct {
		Events []struct {
			Status string `json:"status"`
		} `json:"events"`
		Page     int `json:"page"`
		PageSize int `json:"pageSize"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 2, data.Page)
	assert.Equal(t, 10, data.PageSize)
	for _, event := range data.Events {
		assert.Equal(t, "missed", event.Status)
	}
}

func TestGetCustomerCount(t *testing.T) {
	r := newDashboardRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/metrics/customers", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.True(t, env.Success)

	var data struct {
		TotalCustomers int `json:"totalCustomers"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 1500, data.TotalCustomers)
}
