package orders

import (
	"fmt"

	"github.com/rustyeddy/trendengine/plan"
)

type Kind int

const (
	Open Kind = iota
	ModifyStop
	ModifyTakeProfit
	Close
)

func (k Kind) String() string {
	switch k {
	case Open:
		return "open"
	case ModifyStop:
		return "modify_stop"
	case ModifyTakeProfit:
		return "modify_take_profit"
	case Close:
		return "close"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Action is one order delta for the transport. Leg is set for Open,
// Price carries the new level for the Modify kinds.
// ReasonOpposite marks a Close of an order against the plan's direction.
// Opens in the same batch depend on it.
const ReasonOpposite = "opposite_signal"

type Action struct {
	Kind   Kind
	Ticket int64
	Leg    plan.Leg
	Price  float64
	Reason string
}

func (a Action) String() string {
	switch a.Kind {
	case Open:
		return fmt.Sprintf("open %s %s", a.Leg.Direction, a.Leg.Tag)
	case ModifyStop, ModifyTakeProfit:
		return fmt.Sprintf("%s #%d %v", a.Kind, a.Ticket, a.Price)
	default:
		return fmt.Sprintf("%s #%d", a.Kind, a.Ticket)
	}
}
