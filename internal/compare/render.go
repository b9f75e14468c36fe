package compare

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Mode selects which console tables are rendered.
type Mode string

const (
	ModePairwise      Mode = "pairwise"
	ModeOTAAnalysis   Mode = "ota_analysis"
	ModeRouteAnalysis Mode = "route_analysis"
	ModeFull          Mode = "full"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModePairwise, ModeOTAAnalysis, ModeRouteAnalysis, ModeFull:
		return m, nil
	case "":
		return ModePairwise, nil
	default:
		return "", fmt.Errorf("invalid mode %q: expected pairwise, ota_analysis, route_analysis or full", s)
	}
}

// Render prints the console report of res for mode.
func Render(w io.Writer, res *Result, mode Mode) {
	renderOverall(w, res)
	switch mode {
	case ModeOTAAnalysis:
		renderGroups(w, "OTA analysis", "OTA", res.OTAs, false)
	case ModeRouteAnalysis:
		renderGroups(w, "Route analysis", "Route", res.Routes, true)
	case ModeFull:
		renderMovers(w, res)
		renderGroups(w, "OTA analysis", "OTA", res.OTAs, false)
		renderGroups(w, "Route analysis", "Route", res.Routes, true)
		renderDeltas(w, res)
	default:
		renderMovers(w, res)
		renderChurn(w, res)
	}
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func pct(f *float64) string {
	if f == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", *f)
}

func money(f *float64) string {
	if f == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *f)
}

func renderOverall(w io.Writer, res *Result) {
	o := res.Overall
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("Price comparison %s to %s (%s)", res.DateA, res.DateB, res.Match))
	t.AppendRows([]table.Row{
		{"Keys compared", o.Keys},
		{"Matched", o.Matched},
		{"Changed", o.Changed},
		{"Unchanged", o.Unchanged},
		{"New", o.New},
		{"Dropped", o.Dropped},
		{"Currency mismatch", o.CurrencyMismatch},
		{"Duplicates", fmt.Sprintf("%d / %d", o.DuplicatesA, o.DuplicatesB)},
		{"Average change", pct(o.AvgChangePct)},
		{"Total delta", o.TotalDelta.StringFixed(2)},
	})
	t.Render()

	bands := newTable(w)
	bands.SetTitle("Change distribution")
	bands.AppendHeader(table.Row{"Band", "Keys"})
	for _, b := range Bands {
		bands.AppendRow(table.Row{b, o.BandCounts[b]})
	}
	bands.Render()
}

func deltaRow(d Delta) table.Row {
	change := "n/a"
	if p, ok := d.PercentFloat(); ok {
		change = fmt.Sprintf("%+.2f%%", p)
	}
	return table.Row{
		d.Key.Route.String(),
		d.Key.OTA,
		nullString(d.PriceA, 2),
		nullString(d.PriceB, 2),
		nullString(d.Delta, 2),
		change,
		d.Currency,
	}
}

func renderMovers(w io.Writer, res *Result) {
	for _, m := range []struct {
		title  string
		deltas []Delta
	}{
		{"Biggest increases", res.Overall.BiggestIncreases},
		{"Biggest decreases", res.Overall.BiggestDecreases},
	} {
		if len(m.deltas) == 0 {
			continue
		}
		t := newTable(w)
		t.SetTitle(m.title)
		t.AppendHeader(table.Row{"Route", "OTA", "Old", "New", "Diff", "Change", "Currency"})
		for _, d := range m.deltas {
			t.AppendRow(deltaRow(d))
		}
		t.Render()
	}
}

// renderChurn lists the keys present in only one of the two snapshots.
func renderChurn(w io.Writer, res *Result) {
	t := newTable(w)
	t.SetTitle("New and dropped")
	t.AppendHeader(table.Row{"Route", "OTA", "Depart", "Status", "Old", "New", "Currency"})
	n := 0
	for _, d := range res.Deltas {
		if d.Status != StatusNew && d.Status != StatusDropped {
			continue
		}
		t.AppendRow(table.Row{
			d.Key.Route.String(), d.Key.OTA, d.Key.DepartDate, d.Status,
			nullString(d.PriceA, 2), nullString(d.PriceB, 2), d.Currency,
		})
		n++
	}
	if n == 0 {
		return
	}
	t.Render()
}

func renderGroups(w io.Writer, title, name string, groups []GroupStats, routes bool) {
	t := newTable(w)
	t.SetTitle(title)
	header := table.Row{name, "Matched", "New", "Dropped", "Avg diff", "Std diff", "Avg change", "Min", "Max", "Avg price"}
	if routes {
		header = append(header, "OTAs")
	} else {
		header = append(header, "Strategy")
	}
	t.AppendHeader(header)
	for _, g := range groups {
		row := table.Row{
			g.Name, g.Total, g.New, g.Dropped,
			money(g.AvgPriceDiff), money(g.StdPriceDiff),
			pct(g.AvgChangePct), pct(g.MinChangePct), pct(g.MaxChangePct),
			money(g.AvgCurrentPrice),
		}
		if routes {
			row = append(row, g.NumOTAs)
		} else {
			row = append(row, g.Strategy)
		}
		t.AppendRow(row)
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	t.Render()
}

func renderDeltas(w io.Writer, res *Result) {
	t := newTable(w)
	t.SetTitle("All keys")
	t.AppendHeader(table.Row{"Route", "OTA", "Depart", "Status", "Old", "New", "Diff", "Change", "Band"})
	for _, d := range res.Deltas {
		r := deltaRow(d)
		t.AppendRow(table.Row{r[0], r[1], d.Key.DepartDate, d.Status, r[2], r[3], r[4], r[5], d.Band})
	}
	t.Render()
}
