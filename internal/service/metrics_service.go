package service

import (
	"context"
	"database/sql"
	"math"

	"delivery-metrics-service/internal/model"
	"delivery-metrics-service/internal/validation"
)

const (
	DefaultMinShipments = 10
	DefaultLimit        = 10
)

// MetricsStore is the record store boundary. Each method is a single query.
type MetricsStore interface {
	Ping(ctx context.Context) (int, error)
	Summary(ctx context.Context) (model.SummaryRow, error)
	OnTimeByDay(ctx context.Context, rng model.DateRange) ([]model.OnTimeByDayRow, error)
	WorstRoutes(ctx context.Context, filter model.RouteFilter) ([]model.RouteRow, error)
	DriverLeaderboard(ctx context.Context, filter model.LeaderboardFilter) ([]model.DriverRow, error)
}

// WorstRoutesParams holds the caller's optional parameters; nil means default.
type WorstRoutesParams struct {
	MinShipments *int
	Limit        *int
}

type LeaderboardParams struct {
	Limit *int
}

type MetricsService struct {
	store               MetricsStore
	defaultMinShipments int
	defaultLimit        int
}

func NewMetricsService(store MetricsStore, defaultMinShipments, defaultLimit int) *MetricsService {
	if defaultMinShipments <= 0 {
		defaultMinShipments = DefaultMinShipments
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &MetricsService{
		store:               store,
		defaultMinShipments: defaultMinShipments,
		defaultLimit:        defaultLimit,
	}
}

func (s *MetricsService) Health(ctx context.Context) (model.Health, error) {
	one, err := s.store.Ping(ctx)
	if err != nil {
		return model.Health{}, &StoreError{Op: "health", Err: err}
	}
	return model.Health{Status: "ok", DB: one}, nil
}

func (s *MetricsService) Summary(ctx context.Context) (model.SummaryMetrics, error) {
	row, err := s.store.Summary(ctx)
	if err != nil {
		return model.SummaryMetrics{}, &StoreError{Op: "summary", Err: err}
	}
	return model.SummaryMetrics{
		TotalShipments:  row.TotalShipments,
		OnTimeRatePct:   orZero(row.OnTimeRatePct),
		AvgTransitHours: orZero(row.AvgTransitHours),
	}, nil
}

func (s *MetricsService) OnTimeByDay(ctx context.Context, rng model.DateRange) ([]model.OnTimeByDay, error) {
	if rng.Inverted() {
		return nil, NewParamError("start", "<= end")
	}

	rows, err := s.store.OnTimeByDay(ctx, rng)
	if err != nil {
		return nil, &StoreError{Op: "on_time_by_day", Err: err}
	}
	return mapRows(rows, func(row model.OnTimeByDayRow) model.OnTimeByDay {
		return model.OnTimeByDay{
			ShipDate:      model.DateOf(row.ShipDate),
			Total:         row.Total,
			OnTimeRatePct: orZero(row.OnTimeRatePct),
		}
	}), nil
}

func (s *MetricsService) WorstRoutes(ctx context.Context, params WorstRoutesParams) ([]model.RoutePerformance, error) {
	filter := model.RouteFilter{
		MinShipments: valueOr(params.MinShipments, s.defaultMinShipments),
		Limit:        valueOr(params.Limit, s.defaultLimit),
	}
	if err := validation.Struct(filter); err != nil {
		return nil, ParamErrorFrom(err)
	}

	rows, err := s.store.WorstRoutes(ctx, filter)
	if err != nil {
		return nil, &StoreError{Op: "routes_worst", Err: err}
	}
	return mapRows(rows, func(row model.RouteRow) model.RoutePerformance {
		return model.RoutePerformance{
			DestState:       row.DestState,
			AvgTransitHours: orZero(row.AvgTransitHours),
			OnTimeRatePct:   orZero(row.OnTimeRatePct),
			Shipments:       row.Shipments,
		}
	}), nil
}

func (s *MetricsService) DriverLeaderboard(ctx context.Context, params LeaderboardParams) ([]model.DriverPerformance, error) {
	filter := model.LeaderboardFilter{Limit: valueOr(params.Limit, s.defaultLimit)}
	if err := validation.Struct(filter); err != nil {
		return nil, ParamErrorFrom(err)
	}

	rows, err := s.store.DriverLeaderboard(ctx, filter)
	if err != nil {
		return nil, &StoreError{Op: "driver_leaderboard", Err: err}
	}
	return mapRows(rows, func(row model.DriverRow) model.DriverPerformance {
		return model.DriverPerformance{
			DriverID:        row.DriverID,
			Name:            row.Name,
			Region:          row.Region,
			TotalShipments:  row.TotalShipments,
			OnTimeRatePct:   orZero(row.OnTimeRatePct),
			AvgTransitHours: orZero(row.AvgTransitHours),
		}
	}), nil
}

// mapRows never returns nil so list endpoints encode an empty result as [].
func mapRows[R any, T any](rows []R, fn func(R) T) []T {
	result := make([]T, 0, len(rows))
	for _, row := range rows {
		result = append(result, fn(row))
	}
	return result
}

func orZero(v sql.NullFloat64) float64 {
	if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
		return 0
	}
	return v.Float64
}

func valueOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
