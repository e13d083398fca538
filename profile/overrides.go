package profile

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rustyeddy/trendengine/plan"
	"gopkg.in/yaml.v3"
)

// Override is a partial profile read from a profiles file. Nil fields keep
// the base profile's value.
type Override struct {
	ID                     string             `yaml:"id"`
	Digits                 *int               `yaml:"digits,omitempty"`
	PipLocation            *int               `yaml:"pip_location,omitempty"`
	StopLossMultiplier     *float64           `yaml:"stop_loss_multiplier,omitempty"`
	ATRRangeDivisor        *float64           `yaml:"atr_range_divisor,omitempty"`
	ATRRangeMultiplier     *float64           `yaml:"atr_range_multiplier,omitempty"`
	TakeProfitFromStopLoss *bool              `yaml:"take_profit_from_stop_loss,omitempty"`
	MinTakeProfit          *float64           `yaml:"min_take_profit,omitempty"`
	TradingStartHour       *int               `yaml:"trading_start_hour,omitempty"`
	TradingStopHour        *int               `yaml:"trading_stop_hour,omitempty"`
	SwingHours             *int               `yaml:"swing_hours,omitempty"`
	SwingOffset            *int               `yaml:"swing_offset,omitempty"`
	Weekday                map[string]float64 `yaml:"weekday,omitempty"`
	Month                  map[string]float64 `yaml:"month,omitempty"`
	Blackout               *Blackout          `yaml:"blackout,omitempty"`
	Filter                 *Filter            `yaml:"filter,omitempty"`
	Split                  *plan.Kind         `yaml:"split,omitempty"`
}

type overridesFile struct {
	Profiles []Override `yaml:"profiles"`
}

// LoadOverrides reads a profiles file.
func LoadOverrides(path string) ([]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}
	var f overridesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse profiles file: %w", err)
	}
	for i, o := range f.Profiles {
		if Canonical(o.ID) == "" {
			return nil, fmt.Errorf("profiles[%d].id is required", i)
		}
	}
	return f.Profiles, nil
}

// Apply returns a new resolver with overrides merged onto r's table. An
// override for an unknown id starts from Default.
func (r *Resolver) Apply(overrides []Override) (*Resolver, error) {
	merged := make(map[string]Profile, len(r.profiles))
	for k, p := range r.profiles {
		merged[k] = p
	}
	for _, o := range overrides {
		key := Canonical(o.ID)
		base, ok := merged[key]
		if !ok {
			base = Default()
			base.ID = key
		}
		p, err := o.merge(base)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", key, err)
		}
		merged[key] = p
	}
	all := make([]Profile, 0, len(merged))
	for _, p := range merged {
		all = append(all, p)
	}
	return NewResolver(all...), nil
}

func (o Override) merge(p Profile) (Profile, error) {
	if o.Digits != nil {
		p.Digits = *o.Digits
	}
	if o.PipLocation != nil {
		p.PipLocation = *o.PipLocation
	}
	if o.StopLossMultiplier != nil {
		p.StopLossMultiplier = *o.StopLossMultiplier
	}
	if o.ATRRangeDivisor != nil {
		p.ATRRangeDivisor = *o.ATRRangeDivisor
	}
	if o.ATRRangeMultiplier != nil {
		p.ATRRangeMultiplier = *o.ATRRangeMultiplier
	}
	if o.TakeProfitFromStopLoss != nil {
		p.TakeProfitFromStopLoss = *o.TakeProfitFromStopLoss
	}
	if o.MinTakeProfit != nil {
		p.MinTakeProfit = *o.MinTakeProfit
	}
	if o.TradingStartHour != nil {
		p.TradingStartHour = *o.TradingStartHour
	}
	if o.TradingStopHour != nil {
		p.TradingStopHour = *o.TradingStopHour
	}
	if o.SwingHours != nil {
		p.SwingHours = *o.SwingHours
	}
	if o.SwingOffset != nil {
		p.SwingOffset = *o.SwingOffset
	}
	for name, v := range o.Weekday {
		d, err := parseWeekday(name)
		if err != nil {
			return p, err
		}
		p.Weekday[d] = v
	}
	for name, v := range o.Month {
		m, err := parseMonth(name)
		if err != nil {
			return p, err
		}
		p.Month[m] = v
	}
	if o.Blackout != nil {
		p.Blackout = *o.Blackout
	}
	if o.Filter != nil {
		p.Filter = *o.Filter
	}
	if o.Split != nil {
		p.Split = *o.Split
	}
	if p.TradingStartHour < 0 || p.TradingStartHour > 24 || p.TradingStopHour < 0 || p.TradingStopHour > 24 {
		return p, fmt.Errorf("trading hours must be within 0..24")
	}
	if p.SwingHours < 0 || p.SwingHours > 24 {
		return p, fmt.Errorf("swing_hours must be within 0..24")
	}
	return p, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if want == name || want == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

func parseMonth(s string) (time.Month, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if want == name || want == name[:3] {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown month %q", s)
}
