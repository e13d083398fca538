// Package turning persists the per-instrument turning-point flag: whether
// the engine is between trends or riding a confirmed one.
package turning

import (
	"context"
	"sort"
	"time"

	"github.com/rustyeddy/trendengine/market"
)

// ConfirmR is the closed R multiple that confirms a trend.
const ConfirmR = 2.0

// Record is the persisted state for one key.
type Record struct {
	Turning       bool             `json:"turning"`
	LastDirection market.Direction `json:"last_direction"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Initial is the record of a key that was never written: turning, no
// direction.
func Initial() Record {
	return Record{Turning: true}
}

// Confirmed reports whether the record is a confirmed trend in d.
func (r Record) Confirmed(d market.Direction) bool {
	return !r.Turning && d != market.None && r.LastDirection == d
}

// Same compares the persisted fields. UpdatedAt is compared at second
// precision since stores may truncate it.
func (r Record) Same(o Record) bool {
	return r.Turning == o.Turning && r.LastDirection == o.LastDirection &&
		r.UpdatedAt.Unix() == o.UpdatedAt.Unix()
}

// Store is keyed load/store with last-writer-wins semantics.
// CompareAndSwap writes next only if the stored record is still prev and
// reports whether it did.
type Store interface {
	Load(ctx context.Context, key string) (Record, error)
	Save(ctx context.Context, key string, rec Record) error
	CompareAndSwap(ctx context.Context, key string, prev, next Record) (bool, error)
	Close() error
}

// AfterClose folds a closed order into rec. A close at or beyond ConfirmR
// marks a confirmed trend in the order's direction. Orders closed before
// rec was last updated were already counted and are ignored.
func AfterClose(rec Record, o market.Order) Record {
	if !o.Closed() || !o.CloseTime.After(rec.UpdatedAt) {
		return rec
	}
	if o.RMultiple() >= ConfirmR {
		rec.Turning = false
		rec.LastDirection = o.Direction
	}
	rec.UpdatedAt = o.CloseTime
	return rec
}

// AfterCloses folds every closed order in orders into rec in close-time
// order, ties broken by ticket, so the result does not depend on how the
// broker listed them.
func AfterCloses(rec Record, orders []market.Order) Record {
	closed := make([]market.Order, 0, len(orders))
	for _, o := range orders {
		if o.Closed() {
			closed = append(closed, o)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		a, b := closed[i], closed[j]
		if !a.CloseTime.Equal(b.CloseTime) {
			return a.CloseTime.Before(b.CloseTime)
		}
		return a.Ticket < b.Ticket
	})
	for _, o := range closed {
		rec = AfterClose(rec, o)
	}
	return rec
}

// AfterOpen folds a newly opened position in direction d into rec. An
// opposite direction resets the record to turning.
func AfterOpen(rec Record, d market.Direction, at time.Time) Record {
	if d == market.None {
		return rec
	}
	if rec.LastDirection != market.None && d != rec.LastDirection {
		rec.Turning = true
	}
	rec.LastDirection = d
	if at.After(rec.UpdatedAt) {
		rec.UpdatedAt = at
	}
	return rec
}
