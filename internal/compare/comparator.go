package compare

import (
	"fmt"

	"flightsnap/internal/snapshot"

	"go.uber.org/zap"
)

// Comparator loads snapshots from a store and compares them.
type Comparator struct {
	store  *snapshot.Store
	logger *zap.Logger
}

func NewComparator(store *snapshot.Store, logger *zap.Logger) *Comparator {
	return &Comparator{store: store, logger: logger}
}

// CompareDates compares snapshot dateA (earlier) with dateB. Load errors keep
// their *snapshot.NotFoundError or *snapshot.MalformedError type.
func (c *Comparator) CompareDates(dateA, dateB string, opts Options) (*Result, error) {
	a, err := c.store.Load(dateA)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", dateA, err)
	}
	b, err := c.store.Load(dateB)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", dateB, err)
	}
	c.logger.Info("snapshots loaded",
		zap.String("date1", dateA), zap.Int("rows1", len(a.Rows)),
		zap.String("date2", dateB), zap.Int("rows2", len(b.Rows)))

	res := Compare(a, b, opts)
	c.logger.Info("comparison complete",
		zap.Int("keys", res.Overall.Keys),
		zap.Int("changed", res.Overall.Changed),
		zap.Int("new", res.Overall.New),
		zap.Int("dropped", res.Overall.Dropped),
		zap.Int("currency_mismatch", res.Overall.CurrencyMismatch))
	if n := res.Overall.DuplicatesA + res.Overall.DuplicatesB; n > 0 {
		c.logger.Warn("duplicate keys resolved to the cheapest price",
			zap.Int("duplicates1", res.Overall.DuplicatesA),
			zap.Int("duplicates2", res.Overall.DuplicatesB))
	}
	return res, nil
}

// CompareLatest compares the two most recent snapshots.
func (c *Comparator) CompareLatest(opts Options) (*Result, error) {
	dates, err := c.store.Latest(2)
	if err != nil {
		return nil, err
	}
	return c.CompareDates(dates[0], dates[1], opts)
}
