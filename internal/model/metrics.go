package model

import (
	"database/sql"
	"time"
)

type SummaryMetrics struct {
	TotalShipments  int64   `json:"total_shipments"`
	OnTimeRatePct   float64 `json:"on_time_rate_pct"`
	AvgTransitHours float64 `json:"avg_transit_hours"`
}

type OnTimeByDay struct {
	ShipDate      Date    `json:"ship_date"`
	Total         int64   `json:"total"`
	OnTimeRatePct float64 `json:"on_time_rate_pct"`
}

type RoutePerformance struct {
	DestState       string  `json:"dest_state"`
	AvgTransitHours float64 `json:"avg_transit_hours"`
	OnTimeRatePct   float64 `json:"on_time_rate_pct"`
	Shipments       int64   `json:"shipments"`
}

type DriverPerformance struct {
	DriverID        string  `json:"driver_id"`
	Name            string  `json:"name"`
	Region          string  `json:"region"`
	TotalShipments  int64   `json:"total_shipments"`
	OnTimeRatePct   float64 `json:"on_time_rate_pct"`
	AvgTransitHours float64 `json:"avg_transit_hours"`
}

type Health struct {
	Status string `json:"status"`
	DB     int    `json:"db"`
}

// Aggregate rows as scanned from the store. Averages are nullable because
// AVG over zero rows yields NULL.

type SummaryRow struct {
	TotalShipments  int64
	OnTimeRatePct   sql.NullFloat64
	AvgTransitHours sql.NullFloat64
}

type OnTimeByDayRow struct {
	ShipDate      time.Time
	Total         int64
	OnTimeRatePct sql.NullFloat64
}

type RouteRow struct {
	DestState       string
	AvgTransitHours sql.NullFloat64
	OnTimeRatePct   sql.NullFloat64
	Shipments       int64
}

type DriverRow struct {
	DriverID        string
	Name            string
	Region          string
	TotalShipments  int64
	OnTimeRatePct   sql.NullFloat64
	AvgTransitHours sql.NullFloat64
}
