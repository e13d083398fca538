package strategies

import (
	"github.com/rustyeddy/trendengine/market"
	"github.com/rustyeddy/trendengine/plan"
	"github.com/rustyeddy/trendengine/risk"
)

// Action is what a Signal asks the coordinator to do.
type Action int

const (
	ActNone Action = iota
	ActEnter
	ActExit
	ActExitAll
	ActTrail
)

func (a Action) String() string {
	switch a {
	case ActEnter:
		return "enter"
	case ActExit:
		return "exit"
	case ActExitAll:
		return "exit_all"
	case ActTrail:
		return "trail"
	default:
		return "none"
	}
}

// Signal is the Evaluator's output for one cycle. At most one entry is
// proposed per cycle.
type Signal struct {
	Action Action
	Entry  plan.CandidateEntry

	// Exit is the direction of open orders to close for ActExit.
	Exit  market.Direction
	Trail plan.Trail

	// ClosePending is set when the risk governor asked to flatten unfilled
	// orders.
	ClosePending bool
	Risk         risk.Decision

	Reason string
}

// Plan wraps the signal and the legs built from its entry into the
// coordinator's envelope.
func (s Signal) Plan(legs []plan.Leg) plan.Plan {
	p := plan.Plan{ClosePending: s.ClosePending}
	switch s.Action {
	case ActEnter:
		p.Legs = legs
	case ActExit:
		p.Close = s.Exit
	case ActExitAll:
		p.CloseAll = true
	case ActTrail:
		p.Trail = s.Trail
	}
	return p
}
