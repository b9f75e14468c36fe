package fetcher

import (
	"fmt"
	"io"
	"sort"

	"flightsnap/internal/snapshot"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const previewRows = 5

// RenderReport prints the collection overview of a published run.
func RenderReport(w io.Writer, res *Result) {
	snap := res.Snapshot
	sum := snap.Summary

	overview := newTable(w)
	overview.SetTitle(fmt.Sprintf("Snapshot %s", snap.Date))
	overview.AppendRows([]table.Row{
		{"Directory", res.Dir},
		{"Total flights", sum.TotalFlights},
		{"Routes with data", fmt.Sprintf("%d / %d", sum.RoutesWithData, sum.RoutesCovered)},
		{"Active OTAs", sum.ActiveOTAs},
		{"Departure dates", fmt.Sprintf("%s to %s", sum.DateRangeStart, sum.DateRangeEnd)},
		{"Price range", fmt.Sprintf("%.2f - %.2f %s", sum.PriceRangeMin, sum.PriceRangeMax, sum.Currency)},
		{"Average price", fmt.Sprintf("%.2f %s", sum.AveragePrice, sum.Currency)},
	})
	overview.Render()

	// Cheapest flight per route, cheapest route first
	type cheapest struct {
		route string
		row   snapshot.PriceRow
	}
	var best []cheapest
	for route, rows := range snap.ByRoute() {
		low := rows[0]
		for _, r := range rows[1:] {
			if r.Price.LessThan(low.Price) {
				low = r
			}
		}
		best = append(best, cheapest{route: route.String(), row: low})
	}
	sort.Slice(best, func(i, j int) bool {
		if c := best[i].row.Price.Cmp(best[j].row.Price); c != 0 {
			return c < 0
		}
		return best[i].route < best[j].route
	})

	cheap := newTable(w)
	cheap.SetTitle("Cheapest flight per route")
	cheap.AppendHeader(table.Row{"Route", "Price", "OTA", "Depart"})
	for _, b := range best {
		cheap.AppendRow(table.Row{b.route, b.row.Price.StringFixed(2) + " " + b.row.Currency, b.row.Gate, b.row.DepartDate})
	}
	cheap.Render()

	// OTA distribution, most rows first
	type otaCount struct {
		gate string
		n    int
	}
	var otas []otaCount
	for gate, n := range sum.OTACounts {
		otas = append(otas, otaCount{gate, n})
	}
	sort.Slice(otas, func(i, j int) bool {
		if otas[i].n != otas[j].n {
			return otas[i].n > otas[j].n
		}
		return otas[i].gate < otas[j].gate
	})

	dist := newTable(w)
	dist.SetTitle("OTA distribution")
	dist.AppendHeader(table.Row{"OTA", "Flights"})
	for _, o := range otas {
		dist.AppendRow(table.Row{o.gate, o.n})
	}
	dist.Render()

	preview := newTable(w)
	preview.SetTitle("Sample rows")
	preview.AppendHeader(table.Row{"Route", "OTA", "Price", "Depart", "Return", "Changes"})
	for i, r := range snap.Rows {
		if i == previewRows {
			break
		}
		preview.AppendRow(table.Row{r.Route().String(), r.Gate, r.Price.StringFixed(2), r.DepartDate, r.ReturnDate, r.NumberOfChanges})
	}
	preview.Render()

	if len(res.FailedRoutes) > 0 || len(res.MissingPairs) > 0 {
		gaps := newTable(w)
		gaps.SetTitle("Gaps")
		gaps.AppendHeader(table.Row{"Route", "OTA", "Reason"})
		for _, f := range res.FailedRoutes {
			gaps.AppendRow(table.Row{f.Route, "", text.WrapSoft(f.Error, 60)})
		}
		for _, m := range res.MissingPairs {
			gaps.AppendRow(table.Row{m.Route, m.OTA, "no rows"})
		}
		gaps.Render()
	}

	fmt.Fprintf(w, "\nCompare with a later snapshot:\n  comparator compare --date1 %s --date2 <YYYYMMDD>\n", snap.Date)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}
