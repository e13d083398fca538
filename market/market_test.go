package market

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDirection(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, Long.Sign())
	assert.Equal(t, -1.0, Short.Sign())
	assert.Equal(t, 0.0, None.Sign())
	assert.Equal(t, Short, Long.Opposite())
	assert.Equal(t, None, None.Opposite())

	assert.True(t, Long.Favorable(1.2010, 1.2000))
	assert.False(t, Long.Favorable(1.2000, 1.2000))
	assert.True(t, Short.Favorable(1.1990, 1.2000))
	assert.InDelta(t, 1.1950, Short.Offset(1.2000, 0.0050), 1e-12)
}

func TestPhaseDirection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		phase Phase
		want  Direction
	}{
		{Range, None},
		{BeginningUp, Long},
		{BeginningDown, Short},
		{MiddleUp, Long},
		{MiddleDown, Short},
		{MiddleUpRetreat, Long},
		{MiddleDownRetreat, Short},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.phase.String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.phase.Direction())
		})
	}
}

func TestPhaseYAML(t *testing.T) {
	t.Parallel()

	var r Readings
	err := yaml.Unmarshal([]byte("phase: middleUpRetreat\nstrength: -3\n"), &r)
	require.NoError(t, err)
	assert.Equal(t, MiddleUpRetreat, r.Phase)
	assert.True(t, r.Phase.IsRetreat())
	assert.Equal(t, -3, r.Strength)

	err = yaml.Unmarshal([]byte("phase: sideways\n"), &r)
	assert.Error(t, err)
}

func TestSeriesAt(t *testing.T) {
	t.Parallel()

	s := NewSeries(Bar{Close: 1}, Bar{Close: 2}, Bar{Close: 3})

	b, ok := s.At(0)
	require.True(t, ok)
	assert.Equal(t, 3.0, b.Close)

	b, ok = s.At(2)
	require.True(t, ok)
	assert.Equal(t, 1.0, b.Close)

	_, ok = s.At(3)
	assert.False(t, ok)

	s.Current = 1
	b, _ = s.At(0)
	assert.Equal(t, 2.0, b.Close)
	assert.Len(t, s.Window(5), 2)
}

func TestSnapshotValidate(t *testing.T) {
	t.Parallel()

	good := Snapshot{Instrument: "EURUSD", Bid: 1.2000, Ask: 1.2002, Time: time.Now()}
	assert.NoError(t, good.Validate())

	tests := []struct {
		name string
		mut  func(*Snapshot)
	}{
		{"nan bid", func(s *Snapshot) { s.Bid = math.NaN() }},
		{"crossed", func(s *Snapshot) { s.Ask = 1.1990 }},
		{"zero time", func(s *Snapshot) { s.Time = time.Time{} }},
		{"no instrument", func(s *Snapshot) { s.Instrument = "" }},
		{"bad bar", func(s *Snapshot) {
			s.Series = map[Timeframe]Series{H1: NewSeries(Bar{High: math.Inf(1)})}
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := good
			tt.mut(&s)
			err := s.Validate()
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}

func TestReadingsValidate(t *testing.T) {
	t.Parallel()

	r := Readings{ATR: ATR{Primary: 0.0050}}
	assert.NoError(t, r.Validate())

	r.ATR.Daily = math.Inf(1)
	assert.ErrorIs(t, r.Validate(), ErrInvalidInput)

	r = Readings{ATR: ATR{Primary: 0.005}, BBS: map[Timeframe]BBS{H1: {Stop: math.NaN()}}}
	assert.ErrorIs(t, r.Validate(), ErrInvalidInput)
}

func TestOrderRMultiple(t *testing.T) {
	t.Parallel()

	o := Order{
		Direction:   Long,
		OpenPrice:   1.2000,
		InitialStop: 1.1900,
		StopLoss:    1.2100,
		ClosePrice:  1.2250,
		CloseTime:   time.Now(),
	}
	assert.InDelta(t, 0.0100, o.RiskUnit(), 1e-12)
	assert.InDelta(t, 2.5, o.RMultiple(), 1e-9)

	o.InitialStop = 0
	assert.Equal(t, 0.0, o.RiskUnit(), "stop above entry is not a risk unit")
}

func TestMACDDirection(t *testing.T) {
	t.Parallel()

	m := MACD{Fast: 0.1, Slow: 0.2, Histogram: 0.05}
	assert.Equal(t, Long, m.Direction(false))
	assert.Equal(t, None, m.Direction(true))
}
