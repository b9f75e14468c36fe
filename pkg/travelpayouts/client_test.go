package travelpayouts_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"flightsnap/pkg/travelpayouts"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const latestBody = `{
  "success": true,
  "currency": "eur",
  "data": [
    {"value": 49, "origin": "BCN", "destination": "MAD", "gate": "Kiwi.com",
     "depart_date": "2025-07-01", "return_date": "2025-07-05", "number_of_changes": 0,
     "trip_class": 0, "distance": 484, "duration": 70, "found_at": "2025-06-17T10:22:11+04:00",
     "actual": true, "show_to_affiliates": true},
    {"value": 52.5, "origin": "BCN", "destination": "MAD", "gate": "Trip.com",
     "depart_date": "2025-07-02", "number_of_changes": 1, "trip_class": 0,
     "distance": 484, "found_at": "2025-06-17T08:00:00", "actual": true}
  ]
}`

func newServer(t *testing.T, status int, body string, seen *url.Values, token *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, travelpayouts.LatestPricesPath, r.URL.Path)
		if seen != nil {
			*seen = r.URL.Query()
		}
		if token != nil {
			*token = r.Header.Get(travelpayouts.TokenHeader)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// go test -v --run TestLatestPrices
func TestLatestPrices(t *testing.T) {
	var query url.Values
	var token string
	srv := newServer(t, http.StatusOK, latestBody, &query, &token)

	client := travelpayouts.NewClient(travelpayouts.Options{
		BaseURL: srv.URL,
		Token:   "secret",
		Timeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	prices, err := client.LatestPrices(ctx, travelpayouts.Query{
		Origin:           "BCN",
		Destination:      "MAD",
		Currency:         "EUR",
		Limit:            30,
		ShowToAffiliates: true,
	})
	require.NoError(t, err)

	require.Equal(t, "secret", token)
	wantQuery := url.Values{
		"origin":             {"BCN"},
		"destination":        {"MAD"},
		"currency":           {"eur"},
		"limit":              {"30"},
		"sorting":            {"price"},
		"show_to_affiliates": {"true"},
	}
	if diff := cmp.Diff(wantQuery, query); diff != "" {
		t.Fatalf("query mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, prices, 2)
	require.Equal(t, "49", prices[0].Value.String())
	require.Equal(t, "52.5", prices[1].Value.String())
	require.Equal(t, "Kiwi.com", prices[0].Gate)
	require.Equal(t, "EUR", prices[0].Currency)
	require.Equal(t, 70, prices[0].Duration)
	require.Equal(t, 1, prices[1].NumberOfChanges)
	require.Equal(t, travelpayouts.Economy, prices[0].TripClass)
	require.True(t, prices[0].FoundAt.Equal(time.Date(2025, 6, 17, 6, 22, 11, 0, time.UTC)))
	require.True(t, prices[1].FoundAt.Equal(time.Date(2025, 6, 17, 8, 0, 0, 0, time.UTC)))
}

// go test -v --run TestLatestPricesErrors
func TestLatestPricesErrors(t *testing.T) {
	q := travelpayouts.Query{Origin: "BCN", Destination: "MAD", Currency: "eur"}

	t.Run("http status", func(t *testing.T) {
		srv := newServer(t, http.StatusUnauthorized, `{"success":false,"error":"Unauthorized"}`, nil, nil)
		client := travelpayouts.NewClient(travelpayouts.Options{BaseURL: srv.URL, Token: "bad"})

		_, err := client.LatestPrices(context.Background(), q)
		var apiErr *travelpayouts.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		require.Equal(t, "Unauthorized", apiErr.Message)
	})

	t.Run("unsuccessful envelope", func(t *testing.T) {
		srv := newServer(t, http.StatusOK, `{"success":false,"error":"unknown origin","data":null}`, nil, nil)
		client := travelpayouts.NewClient(travelpayouts.Options{BaseURL: srv.URL, Token: "t"})

		_, err := client.LatestPrices(context.Background(), q)
		var apiErr *travelpayouts.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, "unknown origin", apiErr.Message)
	})

	t.Run("empty data", func(t *testing.T) {
		srv := newServer(t, http.StatusOK, `{"success":true,"data":[],"currency":"eur"}`, nil, nil)
		client := travelpayouts.NewClient(travelpayouts.Options{BaseURL: srv.URL, Token: "t"})

		prices, err := client.LatestPrices(context.Background(), q)
		require.NoError(t, err)
		require.Empty(t, prices)
	})

	t.Run("missing token", func(t *testing.T) {
		client := travelpayouts.NewClient(travelpayouts.Options{BaseURL: "http://127.0.0.1:1"})
		_, err := client.LatestPrices(context.Background(), q)
		require.True(t, errors.Is(err, travelpayouts.ErrMissingToken))
	})

	t.Run("invalid sorting", func(t *testing.T) {
		client := travelpayouts.NewClient(travelpayouts.Options{BaseURL: "http://127.0.0.1:1", Token: "t"})
		bad := q
		bad.Sorting = "cheapest"
		_, err := client.LatestPrices(context.Background(), bad)
		require.Error(t, err)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		t.Cleanup(srv.Close)
		client := travelpayouts.NewClient(travelpayouts.Options{BaseURL: srv.URL, Token: "t"})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := client.LatestPrices(ctx, q)
		require.Error(t, err)
	})
}

// go test -v --run TestParseSorting
func TestParseSorting(t *testing.T) {
	s, err := travelpayouts.ParseSorting("distance_unit_price")
	require.NoError(t, err)
	require.Equal(t, travelpayouts.SortByDistancePrice, s)

	_, err = travelpayouts.ParseSorting("random")
	require.Error(t, err)

	require.Equal(t, "business", travelpayouts.Business.String())
	require.False(t, travelpayouts.TripClass(7).IsValid())
}
