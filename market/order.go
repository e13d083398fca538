package market

import "time"

// Order is the broker's view of one order or position. The engine never
// owns order state; it reads these and proposes deltas.
type Order struct {
	Ticket     int64     `json:"ticket" yaml:"ticket"`
	Instrument string    `json:"instrument" yaml:"instrument"`
	Direction  Direction `json:"direction" yaml:"direction"`
	OpenPrice  float64   `json:"open_price" yaml:"open_price"`
	StopLoss   float64   `json:"stop_loss" yaml:"stop_loss"`
	TakeProfit float64   `json:"take_profit" yaml:"take_profit"`

	// InitialStop is the stop-loss the order was opened with; it defines the
	// risk unit the stop ladder is measured in.
	InitialStop float64 `json:"initial_stop,omitempty" yaml:"initial_stop,omitempty"`
	Lots        float64 `json:"lots" yaml:"lots"`
	Tag         string  `json:"tag,omitempty" yaml:"tag,omitempty"`

	OpenTime   time.Time `json:"open_time" yaml:"open_time"`
	CloseTime  time.Time `json:"close_time,omitempty" yaml:"close_time,omitempty"`
	ClosePrice float64   `json:"close_price,omitempty" yaml:"close_price,omitempty"`
	Profit     float64   `json:"profit" yaml:"profit"`

	Open    bool `json:"open" yaml:"open"`
	Pending bool `json:"pending,omitempty" yaml:"pending,omitempty"`
}

// Closed reports whether the order has a recorded close.
func (o Order) Closed() bool {
	return !o.Open && !o.CloseTime.IsZero()
}

// RiskUnit is the price distance between the open price and the initial
// stop. It falls back to the current stop while that is still on the losing
// side of the open price.
func (o Order) RiskUnit() float64 {
	if o.InitialStop > 0 {
		if d := o.Direction.Sign() * (o.OpenPrice - o.InitialStop); d > 0 {
			return d
		}
	}
	if o.StopLoss > 0 {
		if d := o.Direction.Sign() * (o.OpenPrice - o.StopLoss); d > 0 {
			return d
		}
	}
	return 0
}

// RMultiple is the closed result measured in risk units. It is zero when the
// risk unit is unknown or the order is still open.
func (o Order) RMultiple() float64 {
	unit := o.RiskUnit()
	if unit == 0 || !o.Closed() || o.ClosePrice == 0 {
		return 0
	}
	return o.Direction.Sign() * (o.ClosePrice - o.OpenPrice) / unit
}
