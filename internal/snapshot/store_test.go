package snapshot_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"flightsnap/internal/snapshot"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var collectedAt = time.Date(2025, 6, 18, 9, 30, 0, 0, time.UTC)

func row(origin, destination, gate, price string) snapshot.PriceRow {
	return snapshot.PriceRow{
		Origin:       origin,
		Destination:  destination,
		Gate:         gate,
		Price:        decimal.RequireFromString(price),
		Currency:     "EUR",
		CollectedAt:  collectedAt,
		SnapshotDate: "20250618",
		DepartDate:   "2025-07-01",
		TripClass:    0,
	}
}

func writeFile(t *testing.T, root, date, content string) {
	t.Helper()
	dir := filepath.Join(root, date)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, snapshot.CombinedFile), []byte(content), 0o644))
}

// go test -v --run TestStoreWriteLoad
func TestStoreWriteLoad(t *testing.T) {
	store := snapshot.NewStore(t.TempDir())

	rows := []snapshot.PriceRow{
		row("BCN", "MAD", "Kiwi.com", "49.99"),
		row("BCN", "MAD", "Trip.com", "52.10"),
		row("IST", "NRT", "Kiwi.com", "612.00"),
	}
	sum := snapshot.BuildSummary(snapshot.SummaryInput{
		Date:          "20250618",
		RunID:         "run-1",
		CollectedAt:   collectedAt,
		Currency:      "EUR",
		RoutesCovered: 2,
	}, rows)

	dir, err := store.Write(&snapshot.Snapshot{Date: "20250618", Rows: rows, Summary: sum})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(store.Root(), "20250618"), dir)

	files, err := store.Files("20250618")
	require.NoError(t, err)
	want := []string{
		"all_routes.csv",
		"route_breakdown/bcn_mad_prices.csv",
		"route_breakdown/ist_nrt_prices.csv",
		"snapshot_summary.json",
	}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}

	got, err := store.Load("20250618")
	require.NoError(t, err)
	require.Len(t, got.Rows, 3)
	for i := range rows {
		require.True(t, rows[i].Price.Equal(got.Rows[i].Price), "row %d price", i)
		require.Equal(t, rows[i].Gate, got.Rows[i].Gate)
		require.Equal(t, rows[i].Route(), got.Rows[i].Route())
		require.True(t, rows[i].CollectedAt.Equal(got.Rows[i].CollectedAt))
	}

	require.NotNil(t, got.Summary)
	require.Equal(t, 3, got.Summary.TotalFlights)
	require.Equal(t, 2, got.Summary.RoutesWithData)
	require.Equal(t, 2, got.Summary.ActiveOTAs)
	require.Equal(t, map[string]int{"BCN-MAD": 2, "IST-NRT": 1}, got.Summary.RouteCounts)
}

// go test -v --run TestStoreWriteReplacesExisting
func TestStoreWriteReplacesExisting(t *testing.T) {
	store := snapshot.NewStore(t.TempDir())

	_, err := store.Write(&snapshot.Snapshot{Date: "20250618", Rows: []snapshot.PriceRow{
		row("BCN", "MAD", "Kiwi.com", "49.99"),
		row("IST", "NRT", "Kiwi.com", "612.00"),
	}})
	require.NoError(t, err)

	_, err = store.Write(&snapshot.Snapshot{Date: "20250618", Rows: []snapshot.PriceRow{
		row("BCN", "MAD", "Kiwi.com", "55.00"),
	}})
	require.NoError(t, err)

	got, err := store.Load("20250618")
	require.NoError(t, err)
	require.Len(t, got.Rows, 1)
	require.Equal(t, "55", got.Rows[0].Price.String())

	// the stale route file of the first run must be gone
	files, err := store.Files("20250618")
	require.NoError(t, err)
	require.Equal(t, []string{"all_routes.csv", "route_breakdown/bcn_mad_prices.csv"}, files)

	entries, err := os.ReadDir(store.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp directories left behind")
}

// go test -v --run TestStoreLoadNotFound
func TestStoreLoadNotFound(t *testing.T) {
	root := t.TempDir()
	store := snapshot.NewStore(root)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "20250620"), 0o755))

	for _, date := range []string{"20250619", "20250620", "2025-06-19", ""} {
		_, err := store.Load(date)
		require.Error(t, err, date)
		require.True(t, errors.Is(err, snapshot.ErrNotFound), "date %q: %v", date, err)

		var nf *snapshot.NotFoundError
		require.ErrorAs(t, err, &nf)
		require.Equal(t, date, nf.Date)
	}
}

// go test -v --run TestStoreLoadMalformed
func TestStoreLoadMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
		column  string
	}{
		{
			name:    "empty file",
			content: "",
		},
		{
			name:    "missing price column",
			content: "origin,destination,gate,currency,collection_timestamp\nBCN,MAD,Kiwi.com,EUR,2025-06-18T09:30:00Z\n",
			line:    1,
			column:  "price",
		},
		{
			name:    "missing currency column",
			content: "origin,destination,gate,price,collection_timestamp\nBCN,MAD,Kiwi.com,10,2025-06-18T09:30:00Z\n",
			line:    1,
			column:  "currency",
		},
		{
			name: "non numeric price",
			content: "origin,destination,gate,price,currency,collection_timestamp\n" +
				"BCN,MAD,Kiwi.com,10,EUR,2025-06-18T09:30:00Z\n" +
				"BCN,MAD,Trip.com,abc,EUR,2025-06-18T09:30:00Z\n",
			line:   3,
			column: "price",
		},
		{
			name: "negative price",
			content: "origin,destination,gate,price,currency,collection_timestamp\n" +
				"BCN,MAD,Kiwi.com,-1,EUR,2025-06-18T09:30:00Z\n",
			line:   2,
			column: "price",
		},
		{
			name: "empty gate",
			content: "origin,destination,gate,price,currency,collection_timestamp\n" +
				"BCN,MAD,,10,EUR,2025-06-18T09:30:00Z\n",
			line:   2,
			column: "gate",
		},
		{
			name: "bad timestamp",
			content: "origin,destination,gate,price,currency,collection_timestamp\n" +
				"BCN,MAD,Kiwi.com,10,EUR,yesterday\n",
			line:   2,
			column: "collection_timestamp",
		},
		{
			name: "bad origin",
			content: "origin,destination,gate,price,currency,collection_timestamp\n" +
				"BARCELONA,MAD,Kiwi.com,10,EUR,2025-06-18T09:30:00Z\n",
			line:   2,
			column: "origin",
		},
		{
			// route identifiers are IATA pairs; opaque names are rejected
			name: "opaque route name",
			content: "route,gate,price,currency,collection_timestamp\n" +
				"RouteX,Kiwi.com,10,EUR,2025-06-18T09:30:00Z\n",
			line:   2,
			column: "route",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, root, "20250618", tt.content)

			_, err := snapshot.NewStore(root).Load("20250618")
			require.Error(t, err)
			require.True(t, errors.Is(err, snapshot.ErrMalformedData), "got %v", err)

			var me *snapshot.MalformedError
			require.ErrorAs(t, err, &me)
			require.Equal(t, tt.line, me.Line)
			require.Equal(t, tt.column, me.Column)
		})
	}
}

// go test -v --run TestStoreLoadLegacyColumns
func TestStoreLoadLegacyColumns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "20250618",
		"\ufefforigin,destination,ota,price_eur,depart_date,number_of_changes,collection_timestamp,extra\n"+
			"bcn,mad,Kiwi.com,49.5,2025-07-01,1.0,2025-06-18 09:30:00,ignored\n")

	got, err := snapshot.NewStore(root).Load("20250618")
	require.NoError(t, err)
	require.Len(t, got.Rows, 1)

	r := got.Rows[0]
	require.Equal(t, "BCN-MAD", r.Route().String())
	require.Equal(t, "Kiwi.com", r.Gate)
	require.Equal(t, "EUR", r.Currency)
	require.Equal(t, "49.5", r.Price.String())
	require.Equal(t, 1, r.NumberOfChanges)
	require.Equal(t, "20250618", r.SnapshotDate)
	require.Nil(t, got.Summary)
}

// go test -v --run TestStoreList
func TestStoreList(t *testing.T) {
	root := t.TempDir()
	store := snapshot.NewStore(root)

	dates, err := store.List()
	require.NoError(t, err)
	require.Empty(t, dates)

	header := "origin,destination,gate,price,currency,collection_timestamp\n"
	writeFile(t, root, "20250619", header)
	writeFile(t, root, "20250617", header)
	writeFile(t, root, "20250618", header)
	writeFile(t, root, "not-a-date", header)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "20250620"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".20250621.tmp-x"), 0o755))

	dates, err = store.List()
	require.NoError(t, err)
	require.Equal(t, []string{"20250617", "20250618", "20250619"}, dates)

	latest, err := store.Latest(2)
	require.NoError(t, err)
	require.Equal(t, []string{"20250618", "20250619"}, latest)

	_, err = store.Latest(4)
	require.ErrorIs(t, err, snapshot.ErrNotFound)
}

// go test -v --run TestParseRoute
func TestParseRoute(t *testing.T) {
	for _, in := range []string{"BCN-MAD", "bcn/mad", " BCN→MAD ", "BCN MAD"} {
		r, err := snapshot.ParseRoute(in)
		require.NoError(t, err, in)
		require.Equal(t, snapshot.Route{Origin: "BCN", Destination: "MAD"}, r)
	}
	for _, in := range []string{"", "BCN", "BCN-BCN", "BC-MAD", "B1N-MAD"} {
		_, err := snapshot.ParseRoute(in)
		require.Error(t, err, in)
	}
}
