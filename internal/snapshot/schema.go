package snapshot

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Combined and per-route CSV columns.
const (
	ColRoute           = "route"
	ColOrigin          = "origin"
	ColDestination     = "destination"
	ColGate            = "gate"
	ColPrice           = "price"
	ColCurrency        = "currency"
	ColDepartDate      = "depart_date"
	ColReturnDate      = "return_date"
	ColNumberOfChanges = "number_of_changes"
	ColTripClass       = "trip_class"
	ColDistance        = "distance"
	ColDuration        = "duration"
	ColFoundAt         = "found_at"
	ColCollectedAt     = "collection_timestamp"
	ColSnapshotDate    = "snapshot_date"
)

// Header is the column order used when writing snapshots.
var Header = []string{
	ColRoute, ColOrigin, ColDestination, ColGate, ColPrice, ColCurrency,
	ColDepartDate, ColReturnDate, ColNumberOfChanges, ColTripClass,
	ColDistance, ColDuration, ColFoundAt, ColCollectedAt, ColSnapshotDate,
}

// columnAliases maps legacy headers onto current ones. Snapshots written by the
// first collector stored EUR prices in "price_eur" without a currency column.
var columnAliases = map[string]string{
	"price_eur": ColPrice,
	"ota":       ColGate,
}

const legacyCurrency = "EUR"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func encodeRow(r PriceRow) []string {
	foundAt := ""
	if !r.FoundAt.IsZero() {
		foundAt = r.FoundAt.Format(time.RFC3339)
	}
	return []string{
		r.Route().String(),
		r.Origin,
		r.Destination,
		r.Gate,
		r.Price.String(),
		r.Currency,
		r.DepartDate,
		r.ReturnDate,
		strconv.Itoa(r.NumberOfChanges),
		strconv.Itoa(r.TripClass),
		strconv.Itoa(r.Distance),
		strconv.Itoa(r.Duration),
		foundAt,
		r.CollectedAt.Format(time.RFC3339Nano),
		r.SnapshotDate,
	}
}

// columnIndex maps canonical column names to record positions.
type columnIndex struct {
	pos             map[string]int
	impliedCurrency string
}

// fieldError is a row-level decode failure; the loader adds path and line.
type fieldError struct {
	column string
	reason string
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("column %q: %s", e.column, e.reason)
}

func newColumnIndex(header []string) (*columnIndex, error) {
	idx := &columnIndex{pos: make(map[string]int, len(header))}
	legacyPrice := false
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if canonical, ok := columnAliases[name]; ok {
			if canonical == ColPrice && name == "price_eur" {
				legacyPrice = true
			}
			name = canonical
		}
		if _, dup := idx.pos[name]; dup {
			continue
		}
		idx.pos[name] = i
	}

	if !idx.has(ColCurrency) && legacyPrice {
		idx.impliedCurrency = legacyCurrency
	}

	required := []string{ColGate, ColPrice, ColCollectedAt}
	if !idx.has(ColRoute) || idx.has(ColOrigin) || idx.has(ColDestination) {
		required = append(required, ColOrigin, ColDestination)
	}
	if idx.impliedCurrency == "" {
		required = append(required, ColCurrency)
	}
	for _, col := range required {
		if !idx.has(col) {
			return nil, &fieldError{column: col, reason: "required column is missing"}
		}
	}
	return idx, nil
}

func (idx *columnIndex) has(col string) bool {
	_, ok := idx.pos[col]
	return ok
}

func (idx *columnIndex) get(rec []string, col string) string {
	i, ok := idx.pos[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (idx *columnIndex) decode(rec []string) (PriceRow, error) {
	var row PriceRow

	if idx.has(ColOrigin) {
		row.Origin = strings.ToUpper(idx.get(rec, ColOrigin))
		row.Destination = strings.ToUpper(idx.get(rec, ColDestination))
	} else {
		route, err := ParseRoute(idx.get(rec, ColRoute))
		if err != nil {
			return row, &fieldError{column: ColRoute, reason: err.Error()}
		}
		row.Origin, row.Destination = route.Origin, route.Destination
	}
	if err := row.Route().Validate(); err != nil {
		return row, &fieldError{column: ColOrigin, reason: err.Error()}
	}

	row.Gate = idx.get(rec, ColGate)
	if row.Gate == "" {
		return row, &fieldError{column: ColGate, reason: "empty value"}
	}

	raw := idx.get(rec, ColPrice)
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return row, &fieldError{column: ColPrice, reason: fmt.Sprintf("invalid price %q", raw)}
	}
	if price.IsNegative() {
		return row, &fieldError{column: ColPrice, reason: fmt.Sprintf("negative price %q", raw)}
	}
	row.Price = price

	row.Currency = strings.ToUpper(idx.get(rec, ColCurrency))
	if row.Currency == "" {
		row.Currency = idx.impliedCurrency
	}
	if row.Currency == "" {
		return row, &fieldError{column: ColCurrency, reason: "empty value"}
	}

	collectedAt, err := parseTimestamp(idx.get(rec, ColCollectedAt))
	if err != nil {
		return row, &fieldError{column: ColCollectedAt, reason: err.Error()}
	}
	row.CollectedAt = collectedAt

	if v := idx.get(rec, ColFoundAt); v != "" {
		if row.FoundAt, err = parseTimestamp(v); err != nil {
			return row, &fieldError{column: ColFoundAt, reason: err.Error()}
		}
	}

	row.SnapshotDate = idx.get(rec, ColSnapshotDate)
	row.DepartDate = idx.get(rec, ColDepartDate)
	row.ReturnDate = idx.get(rec, ColReturnDate)

	ints := []struct {
		col string
		dst *int
	}{
		{ColNumberOfChanges, &row.NumberOfChanges},
		{ColTripClass, &row.TripClass},
		{ColDistance, &row.Distance},
		{ColDuration, &row.Duration},
	}
	for _, f := range ints {
		n, err := parseInt(idx.get(rec, f.col))
		if err != nil {
			return row, &fieldError{column: f.col, reason: err.Error()}
		}
		*f.dst = n
	}

	return row, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// parseInt accepts "" (zero) and integral floats such as "2.0", which pandas
// writes for integer columns containing gaps.
func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return int(f), nil
}
