package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"delivery-metrics-service/internal/metrics"
	"delivery-metrics-service/internal/model"
	"delivery-metrics-service/internal/query"
)

// MetricsRepository executes the aggregate statements, one per call.
type MetricsRepository struct {
	builder      *query.Builder
	queryTimeout time.Duration
	log          zerolog.Logger
}

func NewMetricsRepository(db *gorm.DB, queryTimeout time.Duration, log zerolog.Logger) *MetricsRepository {
	return &MetricsRepository{
		builder:      query.NewBuilder(db),
		queryTimeout: queryTimeout,
		log:          log,
	}
}

func (r *MetricsRepository) Ping(ctx context.Context) (int, error) {
	var one int
	err := r.run(ctx, "ping", func(ctx context.Context) error {
		return r.builder.Ping(ctx).Scan(&one).Error
	})
	if err != nil {
		return 0, err
	}
	return one, nil
}

func (r *MetricsRepository) Summary(ctx context.Context) (model.SummaryRow, error) {
	var row model.SummaryRow
	err := r.run(ctx, "summary", func(ctx context.Context) error {
		return r.builder.Summary(ctx).Scan(&row).Error
	})
	if err != nil {
		return model.SummaryRow{}, err
	}
	return row, nil
}

func (r *MetricsRepository) OnTimeByDay(ctx context.Context, rng model.DateRange) ([]model.OnTimeByDayRow, error) {
	var rows []model.OnTimeByDayRow
	err := r.run(ctx, "on_time_by_day", func(ctx context.Context) error {
		return r.builder.DailyTrend(ctx, rng).Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *MetricsRepository) WorstRoutes(ctx context.Context, filter model.RouteFilter) ([]model.RouteRow, error) {
	var rows []model.RouteRow
	err := r.run(ctx, "routes_worst", func(ctx context.Context) error {
		return r.builder.WorstRoutes(ctx, filter).Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *MetricsRepository) DriverLeaderboard(ctx context.Context, filter model.LeaderboardFilter) ([]model.DriverRow, error) {
	var rows []model.DriverRow
	err := r.run(ctx, "driver_leaderboard", func(ctx context.Context) error {
		return r.builder.DriverLeaderboard(ctx, filter).Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// run bounds fn by the configured query timeout and records its duration.
func (r *MetricsRepository) run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if r.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	metrics.ObserveQuery(name, elapsed, err)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	r.log.Debug().Str("query", name).Dur("elapsed", elapsed).Msg("store query")
	return nil
}
