package risk

// EURUSD → quote = USD → QuoteToAccount = 1.0
// USDJPY → quote = JPY → QuoteToAccount = 1 / USDJPY mid

import "math"

type Inputs struct {
	Equity         float64
	RiskPct        float64 // 0.01 per unit of risk fraction
	Fraction       float64 // risk fraction for this order; 0 reads as 1
	EntryPrice     float64
	StopPrice      float64
	PipLocation    int
	QuoteToAccount float64 // USD quote → 1.0, JPY quote → JPYUSD

	ContractSize float64 // units per lot, 100000 for FX; 0 reads as 1
	LotStep      float64 // 0.01 typical; 0 disables lot rounding
}

type Result struct {
	Units      float64
	Lots       float64
	StopPips   float64
	RiskAmount float64
}

func pipSize(loc int) float64 {
	return math.Pow(10, float64(loc))
}

// PipSize returns the pip size for a given pip location.
func PipSize(loc int) float64 {
	return pipSize(loc)
}

// Calculate sizes a position so that hitting the stop loses
// Equity * RiskPct * Fraction in account currency. Lots are floored to
// LotStep, never rounded up.
func Calculate(in Inputs) Result {
	pip := pipSize(in.PipLocation)
	stopPips := math.Abs(in.EntryPrice-in.StopPrice) / pip

	fraction := in.Fraction
	if fraction == 0 {
		fraction = 1
	}
	riskAmt := in.Equity * in.RiskPct * fraction
	pipValuePerUnit := pip * in.QuoteToAccount

	if stopPips == 0 || pipValuePerUnit == 0 || riskAmt <= 0 {
		return Result{StopPips: stopPips, RiskAmount: math.Max(riskAmt, 0)}
	}

	// The nudge absorbs float noise in stopPips (0.0100000000000000009).
	units := math.Floor(riskAmt/(stopPips*pipValuePerUnit) + 1e-6)

	contract := in.ContractSize
	if contract <= 0 {
		contract = 1
	}
	lots := units / contract
	if in.LotStep > 0 {
		// Nudge before flooring so 0.3/0.01 does not land on 29.999.
		lots = math.Floor(lots/in.LotStep+1e-9) * in.LotStep
	}

	return Result{
		Units:      units,
		Lots:       lots,
		StopPips:   stopPips,
		RiskAmount: riskAmt,
	}
}

// RR is the reward-to-risk ratio of an entry.
func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	reward := math.Abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}
