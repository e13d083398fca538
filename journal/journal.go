// Package journal keeps the audit trail of engine cycles and the order
// actions they produced, for backtest reconciliation.
package journal

import (
	"time"

	"github.com/rustyeddy/trendengine/market"
)

// CycleRecord is one engine cycle for one instrument.
type CycleRecord struct {
	ID         string
	Instrument string
	BarTime    time.Time
	Phase      market.Phase
	Signal     string
	Reason     string
	Risk       float64
	Verdict    string
	Actions    int
	Err        string
}

// ActionRecord is one dispatched order action. Err is set when the
// transport rejected it.
type ActionRecord struct {
	CycleID    string
	Seq        int
	Instrument string
	Kind       string
	Ticket     int64
	Direction  market.Direction
	Price      float64
	StopLoss   float64
	TakeProfit float64
	Lots       float64
	// RR is the leg's reward-to-risk ratio at submission; 0 without a
	// take-profit.
	RR         float64
	Tag        string
	Reason     string
	Err        string
}

type Journal interface {
	RecordCycle(CycleRecord) error
	RecordAction(ActionRecord) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordCycle(CycleRecord) error   { return nil }
func (Nop) RecordAction(ActionRecord) error { return nil }
func (Nop) Close() error                    { return nil }
