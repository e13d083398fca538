package pricing

import (
	"fmt"
	"sync"

	"github.com/rustyeddy/trendengine/market"
)

// DefaultMaxBars is enough history for the slowest indicator window.
const DefaultMaxBars = 200

// BarBuilder folds ticks into mid-price bars of one timeframe, per
// instrument. Ticks must arrive in time order per instrument; a tick older
// than the current bar is dropped.
type BarBuilder struct {
	mu   sync.Mutex
	tf   market.Timeframe
	max  int
	bars map[string][]market.Bar
}

func NewBarBuilder(tf market.Timeframe, keep int) (*BarBuilder, error) {
	if !tf.Valid() {
		return nil, fmt.Errorf("bar builder: unsupported timeframe %q", string(tf))
	}
	if keep <= 0 {
		keep = DefaultMaxBars
	}
	return &BarBuilder{tf: tf, max: keep, bars: make(map[string][]market.Bar)}, nil
}

func (b *BarBuilder) Timeframe() market.Timeframe { return b.tf }

// Add folds t into its instrument's bars.
func (b *BarBuilder) Add(t Tick) {
	mid := t.Mid()
	if mid <= 0 {
		return
	}
	d, _ := b.tf.Duration()
	start := t.Time.UTC().Truncate(d)

	b.mu.Lock()
	defer b.mu.Unlock()

	bars := b.bars[t.Instrument]
	if n := len(bars); n > 0 {
		last := &bars[n-1]
		switch {
		case start.Before(last.Time):
			return
		case start.Equal(last.Time):
			last.High = max(last.High, mid)
			last.Low = min(last.Low, mid)
			last.Close = mid
			last.Volume++
			return
		}
	}

	bars = append(bars, market.Bar{Time: start, Open: mid, High: mid, Low: mid, Close: mid, Volume: 1})
	if len(bars) > b.max {
		bars = append(bars[:0:0], bars[len(bars)-b.max:]...)
	}
	b.bars[t.Instrument] = bars
}

// Series returns a copy of the instrument's bars with the newest as the
// current bar.
func (b *BarBuilder) Series(instrument string) (market.Series, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bars, ok := b.bars[instrument]
	if !ok || len(bars) == 0 {
		return market.Series{}, false
	}
	return market.NewSeries(append([]market.Bar(nil), bars...)...), true
}
