// Package query builds the parameterized aggregate statements behind the
// delivery metrics. Every caller-supplied value is bound through a
// placeholder; nothing is formatted into the SQL text.
package query

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"delivery-metrics-service/internal/model"
)

const (
	SummaryRelation     = "shipment_delivery_summary"
	DriversRelation     = "drivers"
	AssignmentsRelation = "driver_assignments"
)

// Percentages and averages are rounded half away from zero by Postgres
// ROUND(numeric, 2). AVG over an empty set stays NULL here and is coerced
// to zero when rows are mapped.
func onTimePct(column string) string {
	return fmt.Sprintf("ROUND(AVG(CASE WHEN %s THEN 1.0 ELSE 0.0 END) * 100, 2)", column)
}

func avgHours(column string) string {
	return fmt.Sprintf("ROUND(AVG(%s)::numeric, 2)", column)
}

// Predicate is one optional filter condition with its bound argument.
type Predicate struct {
	Clause string
	Arg    interface{}
}

// Predicates are combined with AND in the order they were added.
type Predicates []Predicate

func (p Predicates) Apply(tx *gorm.DB) *gorm.DB {
	for _, pred := range p {
		tx = tx.Where(pred.Clause, pred.Arg)
	}
	return tx
}

// TrendPredicates returns zero, one or two predicates for the supplied bounds.
func TrendPredicates(rng model.DateRange) Predicates {
	preds := make(Predicates, 0, 2)
	if rng.Start != nil {
		preds = append(preds, Predicate{Clause: "created_at >= CAST(? AS date)", Arg: rng.Start.String()})
	}
	if rng.End != nil {
		preds = append(preds, Predicate{Clause: "created_at < CAST(? AS date)", Arg: rng.End.String()})
	}
	return preds
}

type Builder struct {
	db *gorm.DB
}

func NewBuilder(db *gorm.DB) *Builder {
	return &Builder{db: db}
}

func (b *Builder) Summary(ctx context.Context) *gorm.DB {
	return b.db.WithContext(ctx).
		Table(SummaryRelation).
		Select(`COUNT(*) AS total_shipments,
			` + onTimePct("on_time") + ` AS on_time_rate_pct,
			` + avgHours("transit_hours") + ` AS avg_transit_hours`)
}

func (b *Builder) DailyTrend(ctx context.Context, rng model.DateRange) *gorm.DB {
	query := b.db.WithContext(ctx).
		Table(SummaryRelation).
		Select(`DATE(created_at) AS ship_date,
			COUNT(*) AS total,
			` + onTimePct("on_time") + ` AS on_time_rate_pct`)

	return TrendPredicates(rng).Apply(query).
		Group("DATE(created_at)").
		Order("ship_date ASC")
}

func (b *Builder) WorstRoutes(ctx context.Context, filter model.RouteFilter) *gorm.DB {
	return b.db.WithContext(ctx).
		Table(SummaryRelation).
		Select(`dest_state,
			` + avgHours("transit_hours") + ` AS avg_transit_hours,
			` + onTimePct("on_time") + ` AS on_time_rate_pct,
			COUNT(*) AS shipments`).
		Group("dest_state").
		Having("COUNT(*) >= ?", filter.MinShipments).
		Order("avg_transit_hours DESC").
		Order("dest_state ASC").
		Limit(filter.Limit)
}

func (b *Builder) DriverLeaderboard(ctx context.Context, filter model.LeaderboardFilter) *gorm.DB {
	return b.db.WithContext(ctx).
		Table(AssignmentsRelation+" da").
		Select(`d.driver_id,
			d.name,
			d.region,
			COUNT(*) AS total_shipments,
			` + onTimePct("sds.on_time") + ` AS on_time_rate_pct,
			` + avgHours("sds.transit_hours") + ` AS avg_transit_hours`).
		Joins("JOIN " + DriversRelation + " d ON d.driver_id = da.driver_id").
		Joins("JOIN " + SummaryRelation + " sds ON sds.shipment_id = da.shipment_id").
		Group("d.driver_id, d.name, d.region").
		Order("on_time_rate_pct DESC").
		Order("d.driver_id ASC").
		Limit(filter.Limit)
}

// Ping is the trivial statement behind the health probe.
func (b *Builder) Ping(ctx context.Context) *gorm.DB {
	return b.db.WithContext(ctx).Raw("SELECT 1")
}
