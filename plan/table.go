package plan

// Basis is what a tier's Multiple multiplies.
type Basis int

const (
	// BasisEntry uses the entry's own take-profit.
	BasisEntry Basis = iota
	// BasisStop multiplies the entry-to-stop distance.
	BasisStop
	// BasisATR multiplies the entry's ATR.
	BasisATR
	// BasisRetrace places limit legs a fraction of the stop distance back
	// toward the stop; Multiple then sets the take-profit beyond the entry.
	BasisRetrace
	// BasisNone emits legs without a take-profit.
	BasisNone
)

// Tier is one leg of a split: its share of the position, its take-profit
// multiple and, for retracement splits, how far back the limit sits.
type Tier struct {
	Fraction float64
	Multiple float64
	Retrace  float64
}

// Strategy is one row of the split table.
type Strategy struct {
	Kind  Kind
	Code  string
	Basis Basis
	Tiers []Tier

	// PullbackATR, when set, turns BasisNone legs into limits this many ATRs
	// behind the entry.
	PullbackATR float64
}

var table = map[Kind]Strategy{
	Single: {
		Kind: Single, Code: "SG", Basis: BasisEntry,
		Tiers: []Tier{{Fraction: 1.0}},
	},
	ShortTerm: {
		Kind: ShortTerm, Code: "ST", Basis: BasisStop,
		Tiers: []Tier{
			{Fraction: 0.3, Multiple: 1.0},
			{Fraction: 0.4, Multiple: 1.25},
			{Fraction: 0.3, Multiple: 2.0},
		},
	},
	LongTermNoTp: {
		Kind: LongTermNoTp, Code: "LT", Basis: BasisNone,
		Tiers:       []Tier{{Fraction: 1.0}},
		PullbackATR: 0.5,
	},
	KeyK: {
		Kind: KeyK, Code: "KK", Basis: BasisStop,
		Tiers: []Tier{
			{Fraction: 0.5, Multiple: 1.0},
			{Fraction: 0.5, Multiple: 2.0},
		},
	},
	AtrTiered: {
		Kind: AtrTiered, Code: "AT", Basis: BasisATR,
		Tiers: []Tier{
			{Fraction: 0.6, Multiple: 1.0},
			{Fraction: 0.4, Multiple: 2.0},
		},
	},
	FibonacciLimit: {
		Kind: FibonacciLimit, Code: "FB", Basis: BasisRetrace,
		Tiers: []Tier{
			{Fraction: 0.5, Multiple: 1.0, Retrace: 0.382},
			{Fraction: 0.5, Multiple: 1.0, Retrace: 0.5},
		},
	},
	FourHourSwing: {
		Kind: FourHourSwing, Code: "4H", Basis: BasisATR,
		Tiers: []Tier{
			{Fraction: 0.4, Multiple: 1.0},
			{Fraction: 0.3, Multiple: 2.0},
			{Fraction: 0.3, Multiple: 3.0},
		},
	},
}

// Lookup returns the split table row for k.
func Lookup(k Kind) (Strategy, bool) {
	s, ok := table[k]
	return s, ok
}
