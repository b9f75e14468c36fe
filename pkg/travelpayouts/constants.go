package travelpayouts

import "fmt"

// Sorting is the order in which the API returns prices.
type Sorting string

// SortingMeta describes an accepted sorting value.
type SortingMeta struct {
	APIValue    string
	Description string
}

const (
	SortByPrice         Sorting = "price"
	SortByRoute         Sorting = "route" // by route popularity
	SortByDistancePrice Sorting = "distance_unit_price"
)

var validSortings = map[Sorting]SortingMeta{
	SortByPrice:         {APIValue: "price", Description: "cheapest first"},
	SortByRoute:         {APIValue: "route", Description: "most popular routes first"},
	SortByDistancePrice: {APIValue: "distance_unit_price", Description: "cheapest per kilometre first"},
}

// IsValid checks if the Sorting is a valid predefined value
func (s Sorting) IsValid() bool {
	_, ok := validSortings[s]
	return ok
}

// ParseSorting parses a string into a valid Sorting
func ParseSorting(s string) (Sorting, error) {
	sorting := Sorting(s)
	if !sorting.IsValid() {
		return "", fmt.Errorf("invalid sorting: %s", s)
	}
	return sorting, nil
}

// TripClass is the cabin class code used by the API.
type TripClass int

const (
	Economy  TripClass = 0
	Business TripClass = 1
	First    TripClass = 2
)

func (c TripClass) String() string {
	switch c {
	case Economy:
		return "economy"
	case Business:
		return "business"
	case First:
		return "first"
	default:
		return fmt.Sprintf("trip_class(%d)", int(c))
	}
}

// IsValid checks if the TripClass is a known cabin class
func (c TripClass) IsValid() bool {
	return c >= Economy && c <= First
}

const (
	// LatestPricesPath returns prices found by users in the last 48 hours.
	LatestPricesPath = "/v2/prices/latest"
	// TokenHeader carries the API token.
	TokenHeader = "x-access-token"
	// MaxLimit is the largest page size the API accepts.
	MaxLimit = 1000
)
