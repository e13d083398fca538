package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		loc  int
		want float64
	}{
		{"index", 0, 1},
		{"jpy", -2, 0.01},
		{"gold", -1, 0.1},
		{"major", -4, 0.0001},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, PipSize(tt.loc), 1e-12)
		})
	}
}

func TestCalculateLots(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        Inputs
		wantPips  float64
		wantRisk  float64
		wantLots  float64
		wantUnits float64
	}{
		{
			name: "full fraction on a 100 pip stop",
			in: Inputs{
				Equity: 10000, RiskPct: 0.01, EntryPrice: 1.2050, StopPrice: 1.1950,
				PipLocation: -4, QuoteToAccount: 1, ContractSize: 100000, LotStep: 0.01,
			},
			wantPips: 100, wantRisk: 100, wantLots: 0.10, wantUnits: 10000,
		},
		{
			name: "leg fraction",
			in: Inputs{
				Equity: 10000, RiskPct: 0.01, Fraction: 0.3, EntryPrice: 1.2050, StopPrice: 1.1950,
				PipLocation: -4, QuoteToAccount: 1, ContractSize: 100000, LotStep: 0.01,
			},
			wantPips: 100, wantRisk: 30, wantLots: 0.03, wantUnits: 3000,
		},
		{
			name: "jpy quote",
			in: Inputs{
				Equity: 5000, RiskPct: 0.02, EntryPrice: 150.00, StopPrice: 149.50,
				PipLocation: -2, QuoteToAccount: 0.0091, ContractSize: 100000, LotStep: 0.01,
			},
			wantPips: 50, wantRisk: 100, wantLots: 0.21, wantUnits: 21978,
		},
		{
			name: "short stop above entry without lot rounding",
			in: Inputs{
				Equity: 2000, RiskPct: 0.005, EntryPrice: 1.0000, StopPrice: 1.0100,
				PipLocation: -4, QuoteToAccount: 1,
			},
			wantPips: 100, wantRisk: 10, wantLots: 1000, wantUnits: 1000,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Calculate(tt.in)
			assert.InDelta(t, tt.wantPips, got.StopPips, 1e-6)
			assert.InDelta(t, tt.wantRisk, got.RiskAmount, 1e-9)
			assert.InDelta(t, tt.wantUnits, got.Units, 1.0)
			assert.InDelta(t, tt.wantLots, got.Lots, 1e-9)
		})
	}
}

func TestCalculateZeroStop(t *testing.T) {
	t.Parallel()

	got := Calculate(Inputs{Equity: 1000, RiskPct: 0.01, EntryPrice: 1.2, StopPrice: 1.2, PipLocation: -4, QuoteToAccount: 1})
	assert.Equal(t, 0.0, got.Units)
	assert.Equal(t, 0.0, got.Lots)
}

func TestRR(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 2.0, RR(1.2050, 1.1950, 1.2250), 1e-9)
	assert.Equal(t, 0.0, RR(1.2, 1.2, 1.3))
}
