// Package bills holds the behavior behind the bills pages: the list
// pipeline that turns raw store records into display rows, and the create
// flow that validates a proof upload before anything is written.
package bills

import (
	"context"
	"sort"
	"time"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/store"
)

// Lister fetches raw bills and derives the display projection. The store
// may be nil, in which case GetBills is a no-op.
type Lister struct {
	store  store.BillStore
	logger *log.Logger
}

func NewLister(st store.BillStore, logger *log.Logger) *Lister {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentBills)
	}
	return &Lister{store: st, logger: logger}
}

// GetBills returns the display rows, oldest first. Records without a date
// are dropped; a record whose date cannot be formatted survives with its
// raw date and no RawDate guarantee; one bad record never sinks the batch.
func (l *Lister) GetBills(ctx context.Context) ([]core.BillView, error) {
	if l.store == nil {
		return nil, nil
	}

	raw, err := l.store.List(ctx)
	if err != nil {
		return nil, err
	}

	kept := raw[:0:0]
	for _, b := range raw {
		if b.Date != "" {
			kept = append(kept, b)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return sortKey(kept[i].Date).Before(sortKey(kept[j].Date))
	})

	views := make([]core.BillView, 0, len(kept))
	for _, b := range kept {
		views = append(views, l.toView(ctx, b))
	}
	return views, nil
}

// sortKey parses a raw date for ordering. Malformed dates sort before
// everything else so their placement stays deterministic.
func sortKey(raw string) time.Time {
	t, err := core.ParseDate(raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (l *Lister) toView(ctx context.Context, b core.Bill) core.BillView {
	v := core.BillView{Bill: b}
	v.Status = core.FormatStatus(b.Status)

	display, err := core.FormatDate(b.Date)
	if err != nil {
		l.logger.WarnContext(ctx, "Keeping raw date for unformattable bill",
			log.FieldBillID, b.ID, "date", b.Date, log.FieldError, err.Error())
		return v
	}
	v.Date = display
	v.RawDate = b.Date
	return v
}
