package plan

import "github.com/rustyeddy/trendengine/market"

// Trail carries stop levels open positions should be trailed to. Zero
// means no level for that side.
type Trail struct {
	Long  float64
	Short float64
}

// Level returns the trail level for positions in direction d.
func (t Trail) Level(d market.Direction) float64 {
	switch d {
	case market.Long:
		return t.Long
	case market.Short:
		return t.Short
	default:
		return 0
	}
}

// Plan is everything the Coordinator reconciles in one cycle: the legs to
// hold, which open orders to close and where to trail stops.
type Plan struct {
	Legs []Leg

	// Close names the direction of open orders to close. CloseAll closes
	// every open order regardless of direction.
	Close    market.Direction
	CloseAll bool

	// ClosePending cancels unfilled limit orders.
	ClosePending bool

	Trail Trail
}

// Direction is the side of the plan's legs.
func (p Plan) Direction() market.Direction {
	if len(p.Legs) == 0 {
		return market.None
	}
	return p.Legs[0].Direction
}

func (p Plan) Empty() bool {
	return len(p.Legs) == 0 && p.Close == market.None && !p.CloseAll &&
		!p.ClosePending && p.Trail == (Trail{})
}
