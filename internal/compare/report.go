package compare

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"
)

// Report file formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatNone = "none"
)

var detailedHeader = []string{
	"route", "origin", "destination", "gate", "depart_date", "status",
	"price_old", "price_new", "price_diff", "change_pct", "change_type", "currency",
}

var groupHeader = []string{
	"total", "new", "dropped", "avg_price_diff", "std_price_diff", "avg_change_pct",
	"min_change_pct", "max_change_pct", "avg_current_price",
}

// FileNames returns the report files produced for format.
func FileNames(res *Result, format string) []string {
	suffix := res.DateA + "_to_" + res.DateB
	switch format {
	case FormatCSV:
		return []string{
			"detailed_comparison_" + suffix + ".csv",
			"ota_analysis_" + suffix + ".csv",
			"route_analysis_" + suffix + ".csv",
		}
	case FormatJSON:
		return []string{"comparison_" + suffix + ".json"}
	default:
		return nil
	}
}

// WriteFiles writes the report files of res into dir and returns their
// paths. Each file is written to a temp file and renamed into place.
func WriteFiles(dir string, res *Result, format string) ([]string, error) {
	if format == FormatNone || format == "" {
		return nil, nil
	}
	if format != FormatCSV && format != FormatJSON {
		return nil, fmt.Errorf("invalid report format %q", format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	names := FileNames(res, format)
	var contents [][][]string
	if format == FormatCSV {
		contents = [][][]string{detailedRecords(res), otaRecords(res), routeRecords(res)}
	}

	var paths []string
	for i, name := range names {
		path := filepath.Join(dir, name)
		var err error
		if format == FormatJSON {
			err = writeAtomic(path, func(f *os.File) error {
				enc := json.NewEncoder(f)
				enc.SetIndent("", "  ")
				return enc.Encode(newJSONReport(res))
			})
		} else {
			records := contents[i]
			err = writeAtomic(path, func(f *os.File) error {
				w := csv.NewWriter(f)
				if err := w.WriteAll(records); err != nil {
					return err
				}
				return w.Error()
			})
		}
		if err != nil {
			return paths, fmt.Errorf("write %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeAtomic(path string, write func(*os.File) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func nullString(d decimal.NullDecimal, places int32) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(places)
}

func floatString(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', 2, 64)
}

func detailedRecords(res *Result) [][]string {
	out := [][]string{detailedHeader}
	for _, d := range res.Deltas {
		out = append(out, []string{
			d.Key.Route.String(),
			d.Key.Route.Origin,
			d.Key.Route.Destination,
			d.Key.OTA,
			d.Key.DepartDate,
			string(d.Status),
			nullString(d.PriceA, 2),
			nullString(d.PriceB, 2),
			nullString(d.Delta, 2),
			nullString(d.Percent, 2),
			string(d.Band),
			d.Currency,
		})
	}
	return out
}

func groupRecord(s GroupStats) []string {
	return []string{
		strconv.Itoa(s.Total),
		strconv.Itoa(s.New),
		strconv.Itoa(s.Dropped),
		floatString(s.AvgPriceDiff),
		floatString(s.StdPriceDiff),
		floatString(s.AvgChangePct),
		floatString(s.MinChangePct),
		floatString(s.MaxChangePct),
		floatString(s.AvgCurrentPrice),
	}
}

func otaRecords(res *Result) [][]string {
	header := append([]string{"gate"}, groupHeader...)
	out := [][]string{append(header, "pricing_strategy")}
	for _, s := range res.OTAs {
		rec := append([]string{s.Name}, groupRecord(s)...)
		out = append(out, append(rec, string(s.Strategy)))
	}
	return out
}

func routeRecords(res *Result) [][]string {
	header := append([]string{"route"}, groupHeader...)
	out := [][]string{append(header, "num_otas")}
	for _, s := range res.Routes {
		rec := append([]string{s.Name}, groupRecord(s)...)
		out = append(out, append(rec, strconv.Itoa(s.NumOTAs)))
	}
	return out
}

type jsonDelta struct {
	Route      string              `json:"route"`
	Gate       string              `json:"gate"`
	DepartDate string              `json:"depart_date,omitempty"`
	Status     Status              `json:"status"`
	PriceOld   decimal.NullDecimal `json:"price_old"`
	PriceNew   decimal.NullDecimal `json:"price_new"`
	PriceDiff  decimal.NullDecimal `json:"price_diff"`
	ChangePct  decimal.NullDecimal `json:"change_pct"`
	ChangeType Band                `json:"change_type,omitempty"`
	Currency   string              `json:"currency"`
}

type jsonReport struct {
	Date1            string       `json:"date1"`
	Date2            string       `json:"date2"`
	Match            MatchMode    `json:"match"`
	Overall          Overall      `json:"overall"`
	BiggestIncreases []jsonDelta  `json:"biggest_increases"`
	BiggestDecreases []jsonDelta  `json:"biggest_decreases"`
	OTAs             []GroupStats `json:"ota_analysis"`
	Routes           []GroupStats `json:"route_analysis"`
	Deltas           []jsonDelta  `json:"deltas"`
}

func toJSONDeltas(ds []Delta) []jsonDelta {
	out := make([]jsonDelta, 0, len(ds))
	for _, d := range ds {
		out = append(out, jsonDelta{
			Route:      d.Key.Route.String(),
			Gate:       d.Key.OTA,
			DepartDate: d.Key.DepartDate,
			Status:     d.Status,
			PriceOld:   d.PriceA,
			PriceNew:   d.PriceB,
			PriceDiff:  d.Delta,
			ChangePct:  d.Percent,
			ChangeType: d.Band,
			Currency:   d.Currency,
		})
	}
	return out
}

func newJSONReport(res *Result) jsonReport {
	return jsonReport{
		Date1:            res.DateA,
		Date2:            res.DateB,
		Match:            res.Match,
		Overall:          res.Overall,
		BiggestIncreases: toJSONDeltas(res.Overall.BiggestIncreases),
		BiggestDecreases: toJSONDeltas(res.Overall.BiggestDecreases),
		OTAs:             res.OTAs,
		Routes:           res.Routes,
		Deltas:           toJSONDeltas(res.Deltas),
	}
}
