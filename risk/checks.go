package risk

import (
	"fmt"
	"math"
)

// Verdict is the governor's answer.
type Verdict int

const (
	Allow Verdict = iota
	Reduce
	Block
)

func (v Verdict) String() string {
	switch v {
	case Reduce:
		return "reduce"
	case Block:
		return "block"
	default:
		return "allow"
	}
}

type Violation struct {
	Code string
	Msg  string
}

// Decision is a governor result. A block is a decision, not an error.
type Decision struct {
	Verdict Verdict
	// Factor multiplies the proposed risk fraction. It is 1 for a plain
	// Allow, may exceed 1 when seasonal tables boost risk, and is 0 on
	// Block.
	Factor     float64
	Violations []Violation

	// FlattenPending asks the caller to cancel unfilled orders.
	FlattenPending bool
}

// Reason is the first violation's code, or "" when none.
func (d Decision) Reason() string {
	if len(d.Violations) == 0 {
		return ""
	}
	return d.Violations[0].Code
}

// Fraction applies the decision to a proposed risk fraction.
func (d Decision) Fraction(proposed float64) float64 {
	if d.Verdict == Block {
		return 0
	}
	return proposed * d.Factor
}

func (d *Decision) block(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Verdict = Block
	d.Factor = 0
}

func (d *Decision) reduce(factor float64, code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Factor *= factor
	if d.Verdict == Allow {
		d.Verdict = Reduce
	}
}

// Breaker checks the day-level loss streak. It applies every cycle,
// whether or not an entry is proposed: a tripped breaker blocks entries
// and asks for unfilled orders to be cancelled.
func (p Policy) Breaker(day DayState) (Decision, bool) {
	d := Decision{Verdict: Allow, Factor: 1}
	if p.LossStreak > 0 && day.Losses >= p.LossStreak {
		d.block("LOSS_STREAK", fmt.Sprintf("%d losing closes today >= limit %d", day.Losses, p.LossStreak))
		d.FlattenPending = true
		return d, true
	}
	return d, false
}

// Check evaluates a proposed entry of risk fraction proposed against the
// account, the day's counters and the instrument's seasonal multiplier.
// It has no side effects.
func (p Policy) Check(acct AccountState, proposed float64, day DayState, seasonal float64) Decision {
	d := Decision{Verdict: Allow, Factor: 1}

	if math.IsNaN(proposed) || math.IsInf(proposed, 0) || proposed <= 0 {
		d.block("INVALID_RISK", fmt.Sprintf("proposed risk fraction %v is not positive", proposed))
		return d
	}
	if math.IsNaN(seasonal) || math.IsInf(seasonal, 0) {
		d.block("INVALID_RISK", "seasonal multiplier is not finite")
		return d
	}

	// Circuit breakers
	if brk, tripped := p.Breaker(day); tripped {
		return brk
	}
	dd := acct.Drawdown()
	if p.MaxDrawdownPct > 0 && dd >= p.MaxDrawdownPct {
		d.block("MAX_DRAWDOWN", fmt.Sprintf("drawdown %.2f%% >= max %.2f%%", 100*dd, 100*p.MaxDrawdownPct))
		return d
	}
	if seasonal <= 0 {
		d.block("SEASONAL_BLOCK", "seasonal risk multiplier is zero")
		return d
	}

	if seasonal != 1 {
		d.Factor = seasonal
		if seasonal < 1 {
			d.Verdict = Reduce
			d.Violations = append(d.Violations, Violation{
				Code: "SEASONAL_REDUCE",
				Msg:  fmt.Sprintf("seasonal multiplier %.2f", seasonal),
			})
		}
	}

	if p.CautionDrawdownPct > 0 && dd >= p.CautionDrawdownPct && p.CautionFactor > 0 && p.CautionFactor < 1 {
		d.reduce(p.CautionFactor, "DRAWDOWN_CAUTION",
			fmt.Sprintf("drawdown %.2f%% >= caution %.2f%%", 100*dd, 100*p.CautionDrawdownPct))
	}

	maxFraction := p.MaxFraction
	if maxFraction <= 0 {
		maxFraction = 2
	}
	if f := proposed * d.Factor; f > maxFraction {
		d.Factor = maxFraction / proposed
	}

	// Open risk headroom
	if p.MaxOpenRiskPct > 0 && p.RiskPerTradePct > 0 {
		headroom := p.MaxOpenRiskPct - acct.OpenRiskPct
		if headroom <= 0 {
			d.block("OPEN_RISK_LIMIT", fmt.Sprintf("open risk %.2f%% >= max %.2f%%",
				100*acct.OpenRiskPct, 100*p.MaxOpenRiskPct))
			return d
		}
		requested := proposed * d.Factor * p.RiskPerTradePct
		if requested > headroom {
			d.reduce(headroom/requested, "OPEN_RISK_HEADROOM",
				fmt.Sprintf("requested %.2f%% exceeds headroom %.2f%%", 100*requested, 100*headroom))
		}
	}

	if final := proposed * d.Factor; final < p.MinFraction {
		d.block("RISK_TOO_SMALL", fmt.Sprintf("final risk fraction %.3f below minimum %.3f", final, p.MinFraction))
		return d
	}

	return d
}
