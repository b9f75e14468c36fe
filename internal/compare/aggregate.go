package compare

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Band classifies a matched key by percent change. Bands are right-inclusive:
// (-inf,-5] (-5,-1] (-1,1] (1,5] (5,inf).
type Band string

const (
	BandMajorDrop     Band = "Major Drop"
	BandMinorDrop     Band = "Minor Drop"
	BandStable        Band = "Stable"
	BandMinorIncrease Band = "Minor Increase"
	BandMajorIncrease Band = "Major Increase"
)

// Bands lists every band from the largest drop to the largest increase.
var Bands = []Band{BandMajorDrop, BandMinorDrop, BandStable, BandMinorIncrease, BandMajorIncrease}

// BandForPercent returns the band of a percent change.
func BandForPercent(pct float64) Band {
	switch {
	case pct <= -5:
		return BandMajorDrop
	case pct <= -1:
		return BandMinorDrop
	case pct <= 1:
		return BandStable
	case pct <= 5:
		return BandMinorIncrease
	default:
		return BandMajorIncrease
	}
}

// bandOf bands a matched delta. A zero base price has no percent change; a
// rise from zero counts as a major increase.
func bandOf(d Delta) Band {
	if pct, ok := d.PercentFloat(); ok {
		return BandForPercent(pct)
	}
	if d.Delta.Valid && d.Delta.Decimal.IsPositive() {
		return BandMajorIncrease
	}
	return BandStable
}

// Strategy labels the average percent change of an OTA.
type Strategy string

const (
	StrategyAggressiveIncrease Strategy = "Aggressive Increase"
	StrategyModerateIncrease   Strategy = "Moderate Increase"
	StrategyStable             Strategy = "Stable"
	StrategyModerateDecrease   Strategy = "Moderate Decrease"
	StrategyAggressiveDecrease Strategy = "Aggressive Decrease"
)

func StrategyFor(avgPct float64) Strategy {
	switch {
	case avgPct > 5:
		return StrategyAggressiveIncrease
	case avgPct > 1:
		return StrategyModerateIncrease
	case math.Abs(avgPct) <= 1:
		return StrategyStable
	case avgPct > -5:
		return StrategyModerateDecrease
	default:
		return StrategyAggressiveDecrease
	}
}

// GroupStats aggregates the deltas of one route or OTA. Optional statistics
// are nil when undefined (no matched keys, or fewer than two for the
// standard deviation).
type GroupStats struct {
	Name            string   `json:"name"`
	Total           int      `json:"total"` // matched keys
	New             int      `json:"new"`
	Dropped         int      `json:"dropped"`
	AvgPriceDiff    *float64 `json:"avg_price_diff"`
	StdPriceDiff    *float64 `json:"std_price_diff"`
	AvgChangePct    *float64 `json:"avg_change_pct"`
	MinChangePct    *float64 `json:"min_change_pct"`
	MaxChangePct    *float64 `json:"max_change_pct"`
	AvgCurrentPrice *float64 `json:"avg_current_price"`
	NumOTAs         int      `json:"num_otas,omitempty"`
	Strategy        Strategy `json:"pricing_strategy,omitempty"`
}

// Overall summarises the whole comparison.
type Overall struct {
	Keys             int             `json:"keys"`
	Matched          int             `json:"matched"`
	Changed          int             `json:"changed"`
	Unchanged        int             `json:"unchanged"`
	New              int             `json:"new"`
	Dropped          int             `json:"dropped"`
	CurrencyMismatch int             `json:"currency_mismatch"`
	DuplicatesA      int             `json:"duplicates_a"`
	DuplicatesB      int             `json:"duplicates_b"`
	TotalDelta       decimal.Decimal `json:"total_delta"`
	AvgChangePct     *float64        `json:"avg_change_pct"`
	BandCounts       map[Band]int    `json:"band_counts"`
	BiggestIncreases []Delta         `json:"-"`
	BiggestDecreases []Delta         `json:"-"`
}

func round2(v float64) *float64 {
	r := math.Round(v*100) / 100
	return &r
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStd is the n-1 standard deviation.
func sampleStd(xs []float64) float64 {
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

type groupAcc struct {
	stats   GroupStats
	diffs   []float64
	pcts    []float64
	current []float64
	otas    map[string]bool
}

// groupBy aggregates deltas by name, sorted by average change descending.
// Groups without a defined average sort last, by name.
func groupBy(deltas []Delta, name func(Delta) string, countOTAs bool) []GroupStats {
	accs := make(map[string]*groupAcc)
	for _, d := range deltas {
		n := name(d)
		acc, ok := accs[n]
		if !ok {
			acc = &groupAcc{stats: GroupStats{Name: n}, otas: make(map[string]bool)}
			accs[n] = acc
		}
		switch {
		case d.Status == StatusNew:
			acc.stats.New++
		case d.Status == StatusDropped:
			acc.stats.Dropped++
		case d.Status.Matched():
			acc.stats.Total++
			acc.diffs = append(acc.diffs, d.Delta.Decimal.InexactFloat64())
			acc.current = append(acc.current, d.PriceB.Decimal.InexactFloat64())
			if pct, ok := d.PercentFloat(); ok {
				acc.pcts = append(acc.pcts, pct)
			}
			acc.otas[d.Key.OTA] = true
		}
	}

	out := make([]GroupStats, 0, len(accs))
	for _, acc := range accs {
		s := acc.stats
		if len(acc.diffs) > 0 {
			s.AvgPriceDiff = round2(mean(acc.diffs))
			s.AvgCurrentPrice = round2(mean(acc.current))
		}
		if len(acc.diffs) > 1 {
			s.StdPriceDiff = round2(sampleStd(acc.diffs))
		}
		if len(acc.pcts) > 0 {
			lo, hi := acc.pcts[0], acc.pcts[0]
			for _, p := range acc.pcts[1:] {
				lo = math.Min(lo, p)
				hi = math.Max(hi, p)
			}
			s.AvgChangePct = round2(mean(acc.pcts))
			s.MinChangePct = round2(lo)
			s.MaxChangePct = round2(hi)
			if !countOTAs {
				s.Strategy = StrategyFor(*s.AvgChangePct)
			}
		}
		if countOTAs {
			s.NumOTAs = len(acc.otas)
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].AvgChangePct, out[j].AvgChangePct
		switch {
		case a != nil && b != nil && *a != *b:
			return *a > *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func overall(deltas []Delta, topN int) Overall {
	o := Overall{
		Keys:       len(deltas),
		TotalDelta: decimal.Zero,
		BandCounts: make(map[Band]int, len(Bands)),
	}
	for _, b := range Bands {
		o.BandCounts[b] = 0
	}

	var pcts []float64
	var increases, decreases []Delta
	for _, d := range deltas {
		switch d.Status {
		case StatusNew:
			o.New++
			continue
		case StatusDropped:
			o.Dropped++
			continue
		case StatusCurrencyMismatch:
			o.CurrencyMismatch++
			continue
		case StatusChanged:
			o.Changed++
		case StatusUnchanged:
			o.Unchanged++
		}

		o.Matched++
		o.TotalDelta = o.TotalDelta.Add(d.Delta.Decimal)
		o.BandCounts[d.Band]++
		if pct, ok := d.PercentFloat(); ok {
			pcts = append(pcts, pct)
		}
		switch {
		case d.Delta.Decimal.IsPositive():
			increases = append(increases, d)
		case d.Delta.Decimal.IsNegative():
			decreases = append(decreases, d)
		}
	}
	if len(pcts) > 0 {
		o.AvgChangePct = round2(mean(pcts))
	}

	sort.SliceStable(increases, func(i, j int) bool {
		return increases[i].Delta.Decimal.GreaterThan(increases[j].Delta.Decimal)
	})
	sort.SliceStable(decreases, func(i, j int) bool {
		return decreases[i].Delta.Decimal.LessThan(decreases[j].Delta.Decimal)
	})
	o.BiggestIncreases = increases[:min(topN, len(increases))]
	o.BiggestDecreases = decreases[:min(topN, len(decreases))]
	return o
}
