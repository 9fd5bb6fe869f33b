package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-metrics-service/internal/config"
	"delivery-metrics-service/internal/http/middleware"
	"delivery-metrics-service/internal/model"
	"delivery-metrics-service/internal/service"
)

type stubStore struct {
	calls int
	err   error

	summary model.SummaryRow
	days    []model.OnTimeByDayRow
	routes  []model.RouteRow
	drivers []model.DriverRow

	lastRange   model.DateRange
	lastRoutes  model.RouteFilter
	lastDrivers model.LeaderboardFilter
}

func (s *stubStore) Ping(ctx context.Context) (int, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return 1, nil
}

func (s *stubStore) Summary(ctx context.Context) (model.SummaryRow, error) {
	s.calls++
	return s.summary, s.err
}

func (s *stubStore) OnTimeByDay(ctx context.Context, rng model.DateRange) ([]model.OnTimeByDayRow, error) {
	s.calls++
	s.lastRange = rng
	return s.days, s.err
}

func (s *stubStore) WorstRoutes(ctx context.Context, filter model.RouteFilter) ([]model.RouteRow, error) {
	s.calls++
	s.lastRoutes = filter
	return s.routes, s.err
}

func (s *stubStore) DriverLeaderboard(ctx context.Context, filter model.LeaderboardFilter) ([]model.DriverRow, error) {
	s.calls++
	s.lastDrivers = filter
	return s.drivers, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		HTTP:        config.HTTPConfig{AllowedOrigins: []string{"http://localhost:8501"}},
		Metrics: config.MetricsConfig{
			DefaultMinShipments: 10,
			DefaultLimit:        10,
			PrometheusEnabled:   true,
			PrometheusPath:      "/internal/prometheus",
		},
	}
}

func newTestRouter(store *stubStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewMetricsService(store, 10, 10)
	return NewRouter(NewHandler(svc, zerolog.Nop()), testConfig(), zerolog.Nop())
}

func get(t *testing.T, r http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error  string `json:"error"`
	Fields []struct {
		Field      string `json:"field"`
		Constraint string `json:"constraint"`
	} `json:"fields"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func valid(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestRouter(&stubStore{}), "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","db":1}`, rec.Body.String())
}

func TestHealthStoreDown(t *testing.T) {
	rec := get(t, newTestRouter(&stubStore{err: errors.New("connection refused")}), "/health")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","error":"record store unavailable"}`, rec.Body.String())
}

func TestSummary(t *testing.T) {
	store := &stubStore{summary: model.SummaryRow{TotalShipments: 2, OnTimeRatePct: valid(50), AvgTransitHours: valid(15)}}
	rec := get(t, newTestRouter(store), "/metrics/summary")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_shipments":2,"on_time_rate_pct":50.0,"avg_transit_hours":15.0}`, rec.Body.String())
}

func TestSummaryEmptyStore(t *testing.T) {
	rec := get(t, newTestRouter(&stubStore{}), "/metrics/summary")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_shipments":0,"on_time_rate_pct":0,"avg_transit_hours":0}`, rec.Body.String())
}

func TestStoreFailureHidesDetail(t *testing.T) {
	store := &stubStore{err: errors.New(`pq: relation "shipment_delivery_summary" does not exist`)}
	rec := get(t, newTestRouter(store), "/metrics/summary")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"record store unavailable"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "shipment_delivery_summary")
}

func TestOnTimeByDay(t *testing.T) {
	store := &stubStore{days: []model.OnTimeByDayRow{
		{ShipDate: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), Total: 20, OnTimeRatePct: valid(85)},
		{ShipDate: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), Total: 18, OnTimeRatePct: valid(77.78)},
	}}
	rec := get(t, newTestRouter(store), "/metrics/on_time_by_day?start=2025-01-05&end=2025-01-07")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"ship_date":"2025-01-05","total":20,"on_time_rate_pct":85},
		{"ship_date":"2025-01-06","total":18,"on_time_rate_pct":77.78}
	]`, rec.Body.String())
	require.NotNil(t, store.lastRange.Start)
	require.NotNil(t, store.lastRange.End)
	assert.Equal(t, "2025-01-05", store.lastRange.Start.String())
	assert.Equal(t, "2025-01-07", store.lastRange.End.String())
}

func TestOnTimeByDayBoundsAreIndependent(t *testing.T) {
	store := &stubStore{}
	rec := get(t, newTestRouter(store), "/metrics/on_time_by_day?end=2025-02-01")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Nil(t, store.lastRange.Start)
	require.NotNil(t, store.lastRange.End)
}

func TestOnTimeByDayRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{"malformed start", "start=2025-13-01", "start"},
		{"timestamp not date", "end=2025-01-01T10:00:00Z", "end"},
		{"start after end", "start=2025-01-10&end=2025-01-01", "start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubStore{}
			rec := get(t, newTestRouter(store), "/metrics/on_time_by_day?"+tt.query)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			require.Len(t, body.Fields, 1)
			assert.Equal(t, tt.field, body.Fields[0].Field)
			assert.Zero(t, store.calls)
		})
	}
}

func TestWorstRoutesDefaultsAndMapping(t *testing.T) {
	store := &stubStore{routes: []model.RouteRow{
		{DestState: "CA", AvgTransitHours: valid(30), OnTimeRatePct: valid(83.33), Shipments: 12},
	}}
	rec := get(t, newTestRouter(store), "/metrics/routes_worst")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"dest_state":"CA","avg_transit_hours":30,"on_time_rate_pct":83.33,"shipments":12}]`, rec.Body.String())
	assert.Equal(t, model.RouteFilter{MinShipments: 10, Limit: 10}, store.lastRoutes)
}

func TestWorstRoutesPassesParameters(t *testing.T) {
	store := &stubStore{}
	rec := get(t, newTestRouter(store), "/metrics/routes_worst?min_shipments=3&limit=100")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.RouteFilter{MinShipments: 3, Limit: 100}, store.lastRoutes)
}

func TestWorstRoutesRejectsBadInput(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		field      string
		constraint string
	}{
		{"min shipments zero", "min_shipments=0", "min_shipments", ">= 1"},
		{"limit zero", "limit=0", "limit", ">= 1"},
		{"limit too large", "limit=101", "limit", "<= 100"},
		{"limit not a number", "limit=ten", "limit", "integer"},
		{"min shipments empty", "min_shipments=", "min_shipments", "integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubStore{}
			rec := get(t, newTestRouter(store), "/metrics/routes_worst?"+tt.query)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			require.Len(t, body.Fields, 1)
			assert.Equal(t, tt.field, body.Fields[0].Field)
			assert.Equal(t, tt.constraint, body.Fields[0].Constraint)
			assert.Contains(t, body.Error, tt.field)
			assert.Zero(t, store.calls)
		})
	}
}

func TestDriverLeaderboard(t *testing.T) {
	store := &stubStore{drivers: []model.DriverRow{
		{DriverID: "DRV004", Name: "Dana Cole", Region: "East", TotalShipments: 31, OnTimeRatePct: valid(93.55), AvgTransitHours: valid(27.1)},
		{DriverID: "DRV011", Name: "Lee Park", Region: "West", TotalShipments: 29, OnTimeRatePct: valid(89.66), AvgTransitHours: valid(30.02)},
	}}
	rec := get(t, newTestRouter(store), "/drivers/leaderboard?limit=2")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"driver_id":"DRV004","name":"Dana Cole","region":"East","total_shipments":31,"on_time_rate_pct":93.55,"avg_transit_hours":27.1},
		{"driver_id":"DRV011","name":"Lee Park","region":"West","total_shipments":29,"on_time_rate_pct":89.66,"avg_transit_hours":30.02}
	]`, rec.Body.String())
	assert.Equal(t, 2, store.lastDrivers.Limit)
}

func TestDriverLeaderboardRejectsLimit(t *testing.T) {
	store := &stubStore{}
	rec := get(t, newTestRouter(store), "/drivers/leaderboard?limit=500")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, store.calls)
}

func TestRequestIDEchoed(t *testing.T) {
	router := newTestRouter(&stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "dash-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "dash-123", rec.Header().Get(middleware.RequestIDHeader))

	rec = get(t, router, "/health")
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestUnknownRouteAndMethod(t *testing.T) {
	router := newTestRouter(&stubStore{})

	rec := get(t, router, "/metrics/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/metrics/summary", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(&stubStore{})

	req := httptest.NewRequest(http.MethodOptions, "/metrics/summary", nil)
	req.Header.Set("Origin", "http://localhost:8501")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:8501", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPrometheusEndpoint(t *testing.T) {
	router := newTestRouter(&stubStore{})
	get(t, router, "/health")

	rec := get(t, router, "/internal/prometheus")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
