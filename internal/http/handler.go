package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"delivery-metrics-service/internal/http/middleware"
	"delivery-metrics-service/internal/model"
	"delivery-metrics-service/internal/service"
	"delivery-metrics-service/internal/validation"
)

type Handler struct {
	metrics *service.MetricsService
	log     zerolog.Logger
}

func NewHandler(metrics *service.MetricsService, log zerolog.Logger) *Handler {
	return &Handler{metrics: metrics, log: log}
}

func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.health)

	metricsGroup := r.Group("/metrics")
	metricsGroup.GET("/summary", h.getSummary)
	metricsGroup.GET("/on_time_by_day", h.getOnTimeByDay)
	metricsGroup.GET("/routes_worst", h.getWorstRoutes)

	drivers := r.Group("/drivers")
	drivers.GET("/leaderboard", h.getDriverLeaderboard)
}

type worstRoutesRequest struct {
	MinShipments *int `query:"min_shipments" validate:"omitempty,min=1"`
	Limit        *int `query:"limit" validate:"omitempty,min=1,max=100"`
}

type leaderboardRequest struct {
	Limit *int `query:"limit" validate:"omitempty,min=1,max=100"`
}

func (h *Handler) health(c *gin.Context) {
	status, err := h.metrics.Health(c.Request.Context())
	if err != nil {
		h.logStoreError(c, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": storeUnavailableMessage})
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *Handler) getSummary(c *gin.Context) {
	summary, err := h.metrics.Summary(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) getOnTimeByDay(c *gin.Context) {
	start, err := queryDate(c, "start")
	if err != nil {
		h.handleError(c, err)
		return
	}
	end, err := queryDate(c, "end")
	if err != nil {
		h.handleError(c, err)
		return
	}

	rng := model.DateRange{Start: start, End: end}
	if rng.Inverted() {
		h.handleError(c, service.NewParamError("start", "<= end"))
		return
	}

	days, err := h.metrics.OnTimeByDay(c.Request.Context(), rng)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, days)
}

func (h *Handler) getWorstRoutes(c *gin.Context) {
	minShipments, err := queryInt(c, "min_shipments")
	if err != nil {
		h.handleError(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		h.handleError(c, err)
		return
	}

	req := worstRoutesRequest{MinShipments: minShipments, Limit: limit}
	if err := validation.Struct(req); err != nil {
		h.handleError(c, service.ParamErrorFrom(err))
		return
	}

	routes, err := h.metrics.WorstRoutes(c.Request.Context(), service.WorstRoutesParams{
		MinShipments: req.MinShipments,
		Limit:        req.Limit,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, routes)
}

func (h *Handler) getDriverLeaderboard(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		h.handleError(c, err)
		return
	}

	req := leaderboardRequest{Limit: limit}
	if err := validation.Struct(req); err != nil {
		h.handleError(c, service.ParamErrorFrom(err))
		return
	}

	drivers, err := h.metrics.DriverLeaderboard(c.Request.Context(), service.LeaderboardParams{Limit: req.Limit})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, drivers)
}

// queryInt returns nil when the parameter is absent.
func queryInt(c *gin.Context, name string) (*int, error) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return nil, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, service.NewParamError(name, "integer")
	}
	return &value, nil
}

func queryDate(c *gin.Context, name string) (*model.Date, error) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return nil, nil
	}
	value, err := model.ParseDate(raw)
	if err != nil {
		return nil, service.NewParamError(name, "date YYYY-MM-DD")
	}
	return &value, nil
}

const storeUnavailableMessage = "record store unavailable"

func (h *Handler) handleError(c *gin.Context, err error) {
	var paramErr *service.ParamError
	switch {
	case errors.As(err, &paramErr):
		c.JSON(http.StatusBadRequest, paramErrorResponse(paramErr))
	case errors.Is(err, service.ErrStoreUnavailable):
		h.logStoreError(c, err)
		c.JSON(http.StatusServiceUnavailable, errorResponse(storeUnavailableMessage))
	default:
		h.log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func (h *Handler) logStoreError(c *gin.Context, err error) {
	h.log.Error().
		Err(err).
		Str("request_id", middleware.GetRequestID(c)).
		Str("path", c.FullPath()).
		Msg("record store failure")
}

func paramErrorResponse(err *service.ParamError) gin.H {
	fields := make([]gin.H, 0, len(err.Violations))
	for _, v := range err.Violations {
		fields = append(fields, gin.H{"field": v.Field, "constraint": v.Constraint})
	}
	return gin.H{"error": err.Error(), "fields": fields}
}

func errorResponse(message string) gin.H {
	return gin.H{"error": message}
}
