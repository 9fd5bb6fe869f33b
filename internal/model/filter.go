package model

// DateRange bounds the daily trend. Start is inclusive, End exclusive; either
// may be nil, in which case that side is unbounded.
type DateRange struct {
	Start *Date
	End   *Date
}

func (r DateRange) Inverted() bool {
	return r.Start != nil && r.End != nil && r.Start.After(r.End.Time)
}

type RouteFilter struct {
	MinShipments int `query:"min_shipments" validate:"min=1"`
	Limit        int `query:"limit" validate:"min=1,max=100"`
}

type LeaderboardFilter struct {
	Limit int `query:"limit" validate:"min=1,max=100"`
}
