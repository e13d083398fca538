package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

var (
	cycleHeader  = []string{"id", "instrument", "bar_time", "phase", "signal", "reason", "risk", "verdict", "actions", "err"}
	actionHeader = []string{"cycle_id", "seq", "instrument", "kind", "ticket", "direction", "price", "stop_loss", "take_profit", "lots", "rr", "tag", "reason", "err"}
)

type CSV struct {
	cycles  *csv.Writer
	actions *csv.Writer
	cf, af  *os.File
}

func NewCSV(cyclesPath, actionsPath string) (*CSV, error) {
	cf, err := os.Create(cyclesPath)
	if err != nil {
		return nil, err
	}
	af, err := os.Create(actionsPath)
	if err != nil {
		_ = cf.Close()
		return nil, err
	}

	j := &CSV{cycles: csv.NewWriter(cf), actions: csv.NewWriter(af), cf: cf, af: af}
	if err := j.write(j.cycles, cycleHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if err := j.write(j.actions, actionHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSV) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) RecordCycle(c CycleRecord) error {
	return j.write(j.cycles, []string{
		c.ID,
		c.Instrument,
		c.BarTime.UTC().Format(time.RFC3339),
		c.Phase.String(),
		c.Signal,
		c.Reason,
		f(c.Risk),
		c.Verdict,
		strconv.Itoa(c.Actions),
		c.Err,
	})
}

func (j *CSV) RecordAction(a ActionRecord) error {
	return j.write(j.actions, []string{
		a.CycleID,
		strconv.Itoa(a.Seq),
		a.Instrument,
		a.Kind,
		strconv.FormatInt(a.Ticket, 10),
		a.Direction.String(),
		f(a.Price),
		f(a.StopLoss),
		f(a.TakeProfit),
		f(a.Lots),
		f(a.RR),
		a.Tag,
		a.Reason,
		a.Err,
	})
}

func (j *CSV) Close() error {
	j.cycles.Flush()
	if err := j.cycles.Error(); err != nil {
		return err
	}
	j.actions.Flush()
	if err := j.actions.Error(); err != nil {
		return err
	}
	if err := j.cf.Close(); err != nil {
		return err
	}
	return j.af.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
