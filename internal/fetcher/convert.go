package fetcher

import (
	"fmt"
	"strings"
	"time"

	"flightsnap/internal/snapshot"
	"flightsnap/pkg/travelpayouts"
)

// ToPriceRow converts an API offer for route into a snapshot row.
func ToPriceRow(route snapshot.Route, p travelpayouts.Price, collectedAt time.Time, date string) (snapshot.PriceRow, error) {
	row := snapshot.PriceRow{
		Origin:          strings.ToUpper(p.Origin),
		Destination:     strings.ToUpper(p.Destination),
		Gate:            strings.TrimSpace(p.Gate),
		Price:           p.Value,
		Currency:        strings.ToUpper(p.Currency),
		CollectedAt:     collectedAt,
		SnapshotDate:    date,
		DepartDate:      p.DepartDate,
		ReturnDate:      p.ReturnDate,
		NumberOfChanges: p.NumberOfChanges,
		TripClass:       int(p.TripClass),
		Distance:        p.Distance,
		Duration:        p.Duration,
		FoundAt:         p.FoundAt.Time,
	}
	if row.Origin == "" {
		row.Origin = route.Origin
	}
	if row.Destination == "" {
		row.Destination = route.Destination
	}

	if row.Route() != route {
		return row, fmt.Errorf("offer for %s returned for route %s", row.Route(), route)
	}
	if err := row.Validate(); err != nil {
		return row, fmt.Errorf("invalid offer from %q: %w", p.Gate, err)
	}
	return row, nil
}
