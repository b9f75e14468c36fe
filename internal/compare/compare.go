// Package compare aligns two snapshots on (route, OTA) keys and reports the
// price change of every key plus per-route, per-OTA and overall statistics.
package compare

import (
	"fmt"
	"sort"

	"flightsnap/internal/snapshot"

	"github.com/shopspring/decimal"
)

// MatchMode selects the join key.
type MatchMode string

const (
	// MatchRouteOTA joins on (route, OTA); the cheapest offer per key is compared.
	MatchRouteOTA MatchMode = "route_ota"
	// MatchFlight also joins on departure date.
	MatchFlight MatchMode = "flight"
)

func ParseMatchMode(s string) (MatchMode, error) {
	switch m := MatchMode(s); m {
	case MatchRouteOTA, MatchFlight:
		return m, nil
	case "":
		return MatchRouteOTA, nil
	default:
		return "", fmt.Errorf("invalid match mode %q: expected route_ota or flight", s)
	}
}

// Key identifies a price across snapshots.
type Key struct {
	Route      snapshot.Route
	OTA        string
	DepartDate string // empty in route_ota mode
}

func (k Key) String() string {
	if k.DepartDate == "" {
		return k.Route.String() + " " + k.OTA
	}
	return k.Route.String() + " " + k.OTA + " " + k.DepartDate
}

func (k Key) less(o Key) bool {
	if k.Route != o.Route {
		return k.Route.String() < o.Route.String()
	}
	if k.OTA != o.OTA {
		return k.OTA < o.OTA
	}
	return k.DepartDate < o.DepartDate
}

type Status string

const (
	StatusChanged   Status = "changed"
	StatusUnchanged Status = "unchanged"
	StatusNew       Status = "new"
	StatusDropped   Status = "dropped"
	// StatusCurrencyMismatch marks a key quoted in different currencies; it
	// has no delta and is left out of every aggregate.
	StatusCurrencyMismatch Status = "currency_mismatch"
)

// Matched reports whether the key has a delta.
func (s Status) Matched() bool {
	return s == StatusChanged || s == StatusUnchanged
}

// Delta is the comparison of one key.
type Delta struct {
	Key      Key
	Currency string
	PriceA   decimal.NullDecimal
	PriceB   decimal.NullDecimal
	// Delta is PriceB - PriceA, exact.
	Delta decimal.NullDecimal
	// Percent is Delta / PriceA * 100, invalid when PriceA is zero.
	Percent decimal.NullDecimal
	Status  Status
	Band    Band
}

// PercentFloat returns the percent change, ok is false when undefined.
func (d Delta) PercentFloat() (float64, bool) {
	if !d.Percent.Valid {
		return 0, false
	}
	return d.Percent.Decimal.InexactFloat64(), true
}

type Options struct {
	Match MatchMode
	// TopN bounds the biggest increase and decrease lists.
	TopN int
	// Routes restricts the comparison; empty compares every route.
	Routes []snapshot.Route
}

// Result is the full comparison of snapshot A (earlier) with B (later).
type Result struct {
	DateA   string
	DateB   string
	Match   MatchMode
	Deltas  []Delta
	Routes  []GroupStats
	OTAs    []GroupStats
	Overall Overall
}

// percentPrecision is the number of decimal places kept for percentages.
const percentPrecision = 4

var hundred = decimal.NewFromInt(100)

// index maps keys to the cheapest row and counts duplicate keys.
func index(rows []snapshot.PriceRow, match MatchMode, routes map[snapshot.Route]bool) (map[Key]snapshot.PriceRow, int) {
	out := make(map[Key]snapshot.PriceRow, len(rows))
	duplicates := 0
	for _, r := range rows {
		if len(routes) > 0 && !routes[r.Route()] {
			continue
		}
		k := Key{Route: r.Route(), OTA: r.Gate}
		if match == MatchFlight {
			k.DepartDate = r.DepartDate
		}
		prev, ok := out[k]
		if !ok {
			out[k] = r
			continue
		}
		duplicates++
		if r.Price.LessThan(prev.Price) {
			out[k] = r
		}
	}
	return out, duplicates
}

// Compare aligns a and b on keys and computes every delta and aggregate.
func Compare(a, b *snapshot.Snapshot, opts Options) *Result {
	if opts.Match == "" {
		opts.Match = MatchRouteOTA
	}
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	var routes map[snapshot.Route]bool
	if len(opts.Routes) > 0 {
		routes = make(map[snapshot.Route]bool, len(opts.Routes))
		for _, r := range opts.Routes {
			routes[r] = true
		}
	}

	idxA, dupA := index(a.Rows, opts.Match, routes)
	idxB, dupB := index(b.Rows, opts.Match, routes)

	deltas := make([]Delta, 0, len(idxA)+len(idxB))
	for k, ra := range idxA {
		rb, ok := idxB[k]
		if !ok {
			deltas = append(deltas, Delta{
				Key:      k,
				Currency: ra.Currency,
				PriceA:   decimal.NewNullDecimal(ra.Price),
				Status:   StatusDropped,
			})
			continue
		}
		deltas = append(deltas, diff(k, ra, rb))
	}
	for k, rb := range idxB {
		if _, ok := idxA[k]; ok {
			continue
		}
		deltas = append(deltas, Delta{
			Key:      k,
			Currency: rb.Currency,
			PriceB:   decimal.NewNullDecimal(rb.Price),
			Status:   StatusNew,
		})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Key.less(deltas[j].Key) })

	res := &Result{
		DateA:  a.Date,
		DateB:  b.Date,
		Match:  opts.Match,
		Deltas: deltas,
		Routes: groupBy(deltas, func(d Delta) string { return d.Key.Route.String() }, true),
		OTAs:   groupBy(deltas, func(d Delta) string { return d.Key.OTA }, false),
	}
	res.Overall = overall(deltas, opts.TopN)
	res.Overall.DuplicatesA = dupA
	res.Overall.DuplicatesB = dupB
	return res
}

func diff(k Key, ra, rb snapshot.PriceRow) Delta {
	d := Delta{
		Key:      k,
		Currency: rb.Currency,
		PriceA:   decimal.NewNullDecimal(ra.Price),
		PriceB:   decimal.NewNullDecimal(rb.Price),
	}
	if ra.Currency != rb.Currency {
		d.Currency = ra.Currency + "/" + rb.Currency
		d.Status = StatusCurrencyMismatch
		return d
	}

	delta := rb.Price.Sub(ra.Price)
	d.Delta = decimal.NewNullDecimal(delta)
	if !ra.Price.IsZero() {
		d.Percent = decimal.NewNullDecimal(delta.Div(ra.Price).Mul(hundred).Round(percentPrecision))
	}

	d.Status = StatusUnchanged
	if !delta.IsZero() {
		d.Status = StatusChanged
	}
	d.Band = bandOf(d)
	return d
}
