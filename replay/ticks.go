package replay

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/trendengine/pricing"
)

// ReadTicks reads a time,instrument,bid,ask CSV file. A header row is
// detected and skipped. Ticks are returned in time order.
func ReadTicks(path string) ([]pricing.Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var (
		ticks []pricing.Tick
		line  int
	)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
			continue
		}
		t, err := parseTick(row)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		ticks = append(ticks, t)
	}

	sort.SliceStable(ticks, func(i, j int) bool { return ticks[i].Time.Before(ticks[j].Time) })
	return ticks, nil
}

func parseTick(row []string) (pricing.Tick, error) {
	if len(row) < 4 {
		return pricing.Tick{}, fmt.Errorf("bad row (need time,instrument,bid,ask): %v", row)
	}

	t, err := time.Parse(time.RFC3339, strings.TrimSpace(row[0]))
	if err != nil {
		return pricing.Tick{}, fmt.Errorf("bad time %q: %w", row[0], err)
	}
	inst := strings.TrimSpace(row[1])
	if inst == "" {
		return pricing.Tick{}, errors.New("instrument is empty")
	}
	bid, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return pricing.Tick{}, fmt.Errorf("bad bid %q: %w", row[2], err)
	}
	ask, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return pricing.Tick{}, fmt.Errorf("bad ask %q: %w", row[3], err)
	}
	if ask < bid {
		return pricing.Tick{}, fmt.Errorf("ask %v below bid %v", ask, bid)
	}

	return pricing.Tick{Time: t, Instrument: inst, Bid: bid, Ask: ask}, nil
}
