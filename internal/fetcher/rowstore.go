package fetcher

import (
	"sync"

	"flightsnap/internal/snapshot"
)

// RowStore collects fetched rows per route. Workers write to distinct
// routes, so locking is per route after the first insert.
type RowStore struct {
	globalMu sync.RWMutex
	data     map[snapshot.Route]*routeRows
}

type routeRows struct {
	mu   sync.Mutex
	rows []snapshot.PriceRow
}

func NewRowStore() *RowStore {
	return &RowStore{
		data: make(map[snapshot.Route]*routeRows),
	}
}

func (s *RowStore) bucket(route snapshot.Route) *routeRows {
	// Fast path: lock per-route store only
	s.globalMu.RLock()
	b, ok := s.data[route]
	s.globalMu.RUnlock()
	if ok {
		return b
	}

	s.globalMu.Lock()
	defer s.globalMu.Unlock()
	if b, ok = s.data[route]; !ok {
		b = &routeRows{}
		s.data[route] = b
	}
	return b
}

// Add appends rows for route. Adding no rows still marks the route as seen.
func (s *RowStore) Add(route snapshot.Route, rows ...snapshot.PriceRow) {
	b := s.bucket(route)
	b.mu.Lock()
	b.rows = append(b.rows, rows...)
	b.mu.Unlock()
}

// Seen reports whether the route was added, with or without rows.
func (s *RowStore) Seen(route snapshot.Route) bool {
	s.globalMu.RLock()
	defer s.globalMu.RUnlock()
	_, ok := s.data[route]
	return ok
}

func (s *RowStore) GetByRoute(route snapshot.Route) []snapshot.PriceRow {
	s.globalMu.RLock()
	b, ok := s.data[route]
	s.globalMu.RUnlock()
	if !ok {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cp := make([]snapshot.PriceRow, len(b.rows))
	copy(cp, b.rows)
	return cp
}

// CountAll returns the total number of rows stored across all routes.
func (s *RowStore) CountAll() int {
	s.globalMu.RLock()
	defer s.globalMu.RUnlock()

	total := 0
	for _, b := range s.data {
		b.mu.Lock()
		total += len(b.rows)
		b.mu.Unlock()
	}
	return total
}
