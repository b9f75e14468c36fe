package snapshot

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PriceRow is one observed offer: a price quoted by an OTA (gate) for a route.
type PriceRow struct {
	Origin      string          `json:"origin"`
	Destination string          `json:"destination"`
	Gate        string          `json:"gate"` // OTA identifier
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	CollectedAt time.Time       `json:"collection_timestamp"`

	SnapshotDate string `json:"snapshot_date,omitempty"`

	// Flight metadata, optional.
	DepartDate      string    `json:"depart_date,omitempty"`
	ReturnDate      string    `json:"return_date,omitempty"`
	NumberOfChanges int       `json:"number_of_changes"`
	TripClass       int       `json:"trip_class"`
	Distance        int       `json:"distance"`
	Duration        int       `json:"duration"`
	FoundAt         time.Time `json:"found_at,omitempty"`
}

func (r PriceRow) Route() Route {
	return Route{Origin: r.Origin, Destination: r.Destination}
}

// Validate checks the fields the comparator joins and diffs on.
func (r PriceRow) Validate() error {
	if err := r.Route().Validate(); err != nil {
		return err
	}
	if r.Gate == "" {
		return errors.New("empty gate")
	}
	if r.Price.IsNegative() {
		return errors.New("negative price")
	}
	if r.Currency == "" {
		return errors.New("empty currency")
	}
	if r.CollectedAt.IsZero() {
		return errors.New("missing collection timestamp")
	}
	return nil
}
