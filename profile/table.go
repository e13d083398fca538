package profile

import (
	"time"

	"github.com/rustyeddy/trendengine/market"
	"github.com/rustyeddy/trendengine/plan"
)

// weekdays builds a weekday multiplier table from a sparse map.
func weekdays(m map[time.Weekday]float64) (t [7]float64) {
	for d, v := range m {
		t[d] = v
	}
	return t
}

func months(m map[time.Month]float64) (t [13]float64) {
	for mo, v := range m {
		t[mo] = v
	}
	return t
}

// builtin is the instrument table. The seasonal multipliers were derived
// from historical trade logs; they are data and can be overridden from a
// profiles file.
var builtin = []Profile{
	{
		ID: "EURUSD", Digits: 5, PipLocation: -4,
		StopLossMultiplier: 1.0, ATRRangeDivisor: 3, ATRRangeMultiplier: 1.0,
		TakeProfitFromStopLoss: true, MinTakeProfit: 0.0010,
		TradingStartHour: 2, TradingStopHour: 22,
		Weekday: weekdays(map[time.Weekday]float64{time.Monday: 0.5, time.Friday: 0.5}),
		Month:   months(map[time.Month]float64{time.August: 0.5, time.December: 0.5}),
		Blackout: Blackout{YearEnd: true},
		Filter:   Filter{Kind: FilterSpread, MaxSpread: 0.0003},
		Split:    plan.ShortTerm,
	},
	{
		ID: "GBPUSD", Digits: 5, PipLocation: -4,
		StopLossMultiplier: 1.2, ATRRangeDivisor: 3, ATRRangeMultiplier: 1.2,
		MinTakeProfit:    0.0015,
		TradingStartHour: 7, TradingStopHour: 20,
		Weekday:  weekdays(map[time.Weekday]float64{time.Friday: 0.5}),
		Blackout: Blackout{YearEnd: true},
		Filter:   Filter{Kind: FilterSpread, MaxSpread: 0.0004},
		Split:    plan.ShortTerm,
	},
	{
		ID: "USDJPY", Digits: 3, PipLocation: -2,
		StopLossMultiplier: 1.0, ATRRangeDivisor: 3, ATRRangeMultiplier: 1.0,
		TakeProfitFromStopLoss: true, MinTakeProfit: 0.10,
		TradingStartHour: 0, TradingStopHour: 24,
		Month:    months(map[time.Month]float64{time.January: 0.5}),
		Blackout: Blackout{YearEnd: true},
		Filter:   Filter{Kind: FilterMACD},
		Split:    plan.AtrTiered,
	},
	{
		ID: "AUDUSD", Digits: 5, PipLocation: -4,
		StopLossMultiplier: 1.0, ATRRangeDivisor: 3,
		TradingStartHour: 0, TradingStopHour: 16,
		Weekday: weekdays(map[time.Weekday]float64{time.Monday: 0.5}),
		Filter:  Filter{Kind: FilterSpread, MaxSpread: 0.0004},
		Split:   plan.Single,
	},
	{
		ID: "USDCAD", Digits: 5, PipLocation: -4,
		StopLossMultiplier: 1.1, ATRRangeDivisor: 3,
		TradingStartHour: 12, TradingStopHour: 21,
		Filter: Filter{Kind: FilterSpread, MaxSpread: 0.0004},
		Split:  plan.Single,
	},
	{
		ID: "USDCHF", Digits: 5, PipLocation: -4,
		StopLossMultiplier: 1.0, ATRRangeDivisor: 3,
		TradingStartHour: 6, TradingStopHour: 20,
		Filter: Filter{Kind: FilterSpread, MaxSpread: 0.0004},
		Split:  plan.Single,
	},
	{
		ID: "NZDUSD", Digits: 5, PipLocation: -4,
		StopLossMultiplier: 1.0, ATRRangeDivisor: 3,
		TradingStartHour: 22, TradingStopHour: 14,
		Filter: Filter{Kind: FilterSpread, MaxSpread: 0.0005},
		Split:  plan.Single,
	},
	{
		ID: "EURJPY", Digits: 3, PipLocation: -2,
		StopLossMultiplier: 1.3, ATRRangeDivisor: 3, ATRRangeMultiplier: 1.5,
		MinTakeProfit: 0.15,
		SwingHours:    4, SwingOffset: 1,
		Filter: Filter{Kind: FilterBBS, Timeframe: market.H4},
		Split:  plan.FourHourSwing,
	},
	{
		ID: "GBPJPY", Digits: 3, PipLocation: -2,
		StopLossMultiplier: 1.5, ATRRangeDivisor: 2.5, ATRRangeMultiplier: 1.5,
		MinTakeProfit: 0.20,
		SwingHours:    4, SwingOffset: 1,
		Weekday: weekdays(map[time.Weekday]float64{time.Friday: 0.5}),
		Filter:  Filter{Kind: FilterBBS, Timeframe: market.H4},
		Split:   plan.KeyK,
	},
	{
		ID: "XAUUSD", Digits: 2, PipLocation: -1,
		StopLossMultiplier: 1.5, ATRRangeDivisor: 2, ATRRangeMultiplier: 2.0,
		MinTakeProfit:    3.0,
		TradingStartHour: 1, TradingStopHour: 23,
		SwingHours: 4, SwingOffset: 2,
		Weekday: weekdays(map[time.Weekday]float64{time.Monday: 0.5, time.Thursday: 1.5}),
		Month:   months(map[time.Month]float64{time.January: 2.0, time.June: 0.5}),
		Blackout: Blackout{
			YearEnd: true,
			Dates:   []MonthDay{{Month: time.July, Day: 4}, {Month: time.November, Day: 28}},
		},
		Filter: Filter{Kind: FilterVolatility, MinATR: 2.0, MaxATR: 60.0},
		Split:  plan.FourHourSwing,
	},
	{
		ID: "XAUAUD", Digits: 2, PipLocation: -1,
		StopLossMultiplier: 2.0, ATRRangeDivisor: 3, ATRRangeMultiplier: 1.5,
		MinTakeProfit:    5.0,
		TradingStartHour: 0, TradingStopHour: 8,
		Filter: Filter{Kind: FilterSpread, MaxSpread: 1.5},
		Split:  plan.Single,
	},
	{
		ID: "XAGUSD", Digits: 3, PipLocation: -2,
		StopLossMultiplier: 1.5, ATRRangeDivisor: 3, ATRRangeMultiplier: 1.5,
		MinTakeProfit:    0.10,
		TradingStartHour: 1, TradingStopHour: 23,
		Filter: Filter{Kind: FilterVolatility, MinATR: 0.05},
		Split:  plan.AtrTiered,
	},
	{
		ID: "US30", Digits: 1, PipLocation: 0,
		StopLossMultiplier: 1.2, ATRRangeDivisor: 3, ATRRangeMultiplier: 1.0,
		MinTakeProfit:    20,
		TradingStartHour: 15, TradingStopHour: 22,
		Weekday:  weekdays(map[time.Weekday]float64{time.Friday: 0.5}),
		Blackout: Blackout{YearEnd: true, Dates: []MonthDay{{Month: time.July, Day: 4}}},
		Split:    plan.FibonacciLimit,
	},
	{
		ID: "NAS100", Digits: 1, PipLocation: 0,
		StopLossMultiplier: 1.2, ATRRangeDivisor: 3,
		MinTakeProfit:    15,
		TradingStartHour: 15, TradingStopHour: 22,
		Blackout: Blackout{YearEnd: true, Dates: []MonthDay{{Month: time.July, Day: 4}}},
		Split:    plan.FibonacciLimit,
	},
	{
		ID: "GER40", Digits: 1, PipLocation: 0,
		StopLossMultiplier: 1.2, ATRRangeDivisor: 3,
		MinTakeProfit:    15,
		TradingStartHour: 9, TradingStopHour: 17,
		Blackout: Blackout{YearEnd: true},
		Split:    plan.ShortTerm,
	},
	{
		ID: "BTCUSD", Digits: 1, PipLocation: 0,
		StopLossMultiplier: 2.0, ATRRangeDivisor: 4, ATRRangeMultiplier: 2.0,
		MinTakeProfit: 200,
		Filter:        Filter{Kind: FilterVolatility, MinATR: 100},
		Split:         plan.LongTermNoTp,
	},
}
