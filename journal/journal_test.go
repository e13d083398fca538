package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/trendengine/market"
)

var t0 = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

func cycle(id string, at time.Time) CycleRecord {
	return CycleRecord{
		ID:         id,
		Instrument: "EURUSD",
		BarTime:    at,
		Phase:      market.MiddleUp,
		Signal:     "enter",
		Reason:     "middle",
		Risk:       1,
		Verdict:    "ok",
		Actions:    2,
	}
}

func TestSQLiteCycles(t *testing.T) {
	t.Parallel()

	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.RecordCycle(cycle("b", t0.Add(time.Hour))))
	require.NoError(t, j.RecordCycle(cycle("a", t0)))
	other := cycle("c", t0)
	other.Instrument = "GBPUSD"
	require.NoError(t, j.RecordCycle(other))
	require.NoError(t, j.RecordCycle(cycle("d", t0.Add(2*time.Hour))))

	got, err := j.ListCycles("EURUSD", t0, t0.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.True(t, got[0].BarTime.Equal(t0))
	assert.Equal(t, market.MiddleUp, got[0].Phase)
	assert.Equal(t, 2, got[0].Actions)

	assert.Error(t, j.RecordCycle(cycle("a", t0)), "duplicate id")
}

func TestSQLiteActions(t *testing.T) {
	t.Parallel()

	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	for i, kind := range []string{"Open", "ModifyStop"} {
		require.NoError(t, j.RecordAction(ActionRecord{
			CycleID:    "a",
			Seq:        i,
			Instrument: "EURUSD",
			Kind:       kind,
			Ticket:     int64(10 + i),
			Direction:  market.Short,
			Price:      1.2048,
			StopLoss:   1.2150,
			Lots:       0.1,
			RR:         1.5,
			Tag:        "a:0",
		}))
	}
	require.NoError(t, j.RecordAction(ActionRecord{CycleID: "b", Kind: "Close", Err: "rejected"}))

	got, err := j.ListActions("a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Open", got[0].Kind)
	assert.Equal(t, "ModifyStop", got[1].Kind)
	assert.Equal(t, market.Short, got[1].Direction)
	assert.Equal(t, int64(11), got[1].Ticket)
	assert.InDelta(t, 1.5, got[0].RR, 1e-12)

	got, err = j.ListActions("b")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "rejected", got[0].Err)
	assert.Equal(t, market.None, got[0].Direction)
}

func TestCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cp, ap := filepath.Join(dir, "cycles.csv"), filepath.Join(dir, "actions.csv")
	j, err := NewCSV(cp, ap)
	require.NoError(t, err)

	require.NoError(t, j.RecordCycle(cycle("a", t0)))
	require.NoError(t, j.RecordAction(ActionRecord{CycleID: "a", Kind: "Open", Direction: market.Long, Price: 1.205, Lots: 0.25, RR: 2}))
	require.NoError(t, j.Close())

	rows := readCSV(t, cp)
	require.Len(t, rows, 2)
	assert.Equal(t, cycleHeader, rows[0])
	assert.Equal(t, []string{"a", "EURUSD", "2024-03-05T10:00:00Z", "MiddleUp", "enter", "middle", "1", "ok", "2", ""}, rows[1])

	rows = readCSV(t, ap)
	require.Len(t, rows, 2)
	assert.Equal(t, actionHeader, rows[0])
	assert.Equal(t, "long", rows[1][5])
	assert.Equal(t, "1.205", rows[1][6])
	assert.Equal(t, "0.25", rows[1][9])
	assert.Equal(t, "2", rows[1][10])
}

func TestNop(t *testing.T) {
	t.Parallel()

	var j Journal = Nop{}
	assert.NoError(t, j.RecordCycle(CycleRecord{}))
	assert.NoError(t, j.RecordAction(ActionRecord{}))
	assert.NoError(t, j.Close())
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
