package snapshot

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// FailedRoute records a route whose fetch failed during a run.
type FailedRoute struct {
	Route string `json:"route"`
	Error string `json:"error"`
}

// MissingPair records a configured (route, OTA) pair without rows in a snapshot.
type MissingPair struct {
	Route string `json:"route"`
	OTA   string `json:"ota"`
}

// Summary is the snapshot_summary.json document.
type Summary struct {
	CollectionTimestamp time.Time      `json:"collection_timestamp"`
	SnapshotDate        string         `json:"snapshot_date"`
	RunID               string         `json:"run_id"`
	Currency            string         `json:"currency"`
	TotalFlights        int            `json:"total_flights"`
	RoutesCovered       int            `json:"routes_covered"`
	RoutesWithData      int            `json:"routes_with_data"`
	ActiveOTAs          int            `json:"active_otas"`
	PriceRangeMin       float64        `json:"price_range_min"`
	PriceRangeMax       float64        `json:"price_range_max"`
	AveragePrice        float64        `json:"average_price"`
	DateRangeStart      string         `json:"date_range_start,omitempty"`
	DateRangeEnd        string         `json:"date_range_end,omitempty"`
	RouteCounts         map[string]int `json:"route_counts"`
	OTACounts           map[string]int `json:"ota_counts"`
	FailedRoutes        []FailedRoute  `json:"failed_routes"`
	MissingPairs        []MissingPair  `json:"missing_pairs"`
}

// SummaryInput carries the run facts that are not derivable from the rows.
type SummaryInput struct {
	Date          string
	RunID         string
	CollectedAt   time.Time
	Currency      string
	RoutesCovered int
	FailedRoutes  []FailedRoute
	MissingPairs  []MissingPair
}

// BuildSummary computes snapshot metadata from rows.
func BuildSummary(in SummaryInput, rows []PriceRow) *Summary {
	s := &Summary{
		CollectionTimestamp: in.CollectedAt,
		SnapshotDate:        in.Date,
		RunID:               in.RunID,
		Currency:            in.Currency,
		TotalFlights:        len(rows),
		RoutesCovered:       in.RoutesCovered,
		RouteCounts:         map[string]int{},
		OTACounts:           map[string]int{},
		FailedRoutes:        in.FailedRoutes,
		MissingPairs:        in.MissingPairs,
	}
	if s.FailedRoutes == nil {
		s.FailedRoutes = []FailedRoute{}
	}
	if s.MissingPairs == nil {
		s.MissingPairs = []MissingPair{}
	}
	if len(rows) == 0 {
		return s
	}

	minPrice, maxPrice := rows[0].Price, rows[0].Price
	sum := decimal.Zero
	var departs []string
	for _, r := range rows {
		s.RouteCounts[r.Route().String()]++
		s.OTACounts[r.Gate]++
		sum = sum.Add(r.Price)
		if r.Price.LessThan(minPrice) {
			minPrice = r.Price
		}
		if r.Price.GreaterThan(maxPrice) {
			maxPrice = r.Price
		}
		if r.DepartDate != "" {
			departs = append(departs, r.DepartDate)
		}
	}

	s.RoutesWithData = len(s.RouteCounts)
	s.ActiveOTAs = len(s.OTACounts)
	s.PriceRangeMin = minPrice.InexactFloat64()
	s.PriceRangeMax = maxPrice.InexactFloat64()
	s.AveragePrice = sum.Div(decimal.NewFromInt(int64(len(rows)))).Round(2).InexactFloat64()

	// ISO dates sort lexically
	if len(departs) > 0 {
		sort.Strings(departs)
		s.DateRangeStart = departs[0]
		s.DateRangeEnd = departs[len(departs)-1]
	}
	return s
}
