package commands_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"flightsnap/cmd/fetcher/commands"
	"flightsnap/internal/snapshot"
	"flightsnap/pkg/travelpayouts"

	"github.com/stretchr/testify/require"
)

const pricesBody = `{
  "success": true,
  "currency": "eur",
  "data": [
    {"value": 49, "origin": "BCN", "destination": "MAD", "gate": "Kiwi.com",
     "depart_date": "2025-07-01", "number_of_changes": 0, "trip_class": 0,
     "distance": 484, "found_at": "2025-06-17T10:22:11", "actual": true}
  ]
}`

func writeConfig(t *testing.T, baseURL, dir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`
travelpayouts:
  base_url: %s
  token: test-token
fetch:
  routes: [BCN-MAD]
snapshot:
  dir: %s
log:
  output: stderr
`, baseURL, dir)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// go test -v --run TestFetcherCommand
func TestFetcherCommand(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	var token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = r.Header.Get(travelpayouts.TokenHeader)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pricesBody))
	}))
	defer srv.Close()

	root := t.TempDir()
	var stdout bytes.Buffer
	cmd := commands.NewRootCmd(&stdout)
	cmd.SetArgs([]string{"--config", writeConfig(t, srv.URL, root), "--date", "20250617"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	require.Equal(t, "test-token", token)
	require.Contains(t, stdout.String(), "Kiwi.com")

	snap, err := snapshot.NewStore(root).Load("20250617")
	require.NoError(t, err)
	require.Len(t, snap.Rows, 1)
	require.Equal(t, "EUR", snap.Rows[0].Currency)
}

// go test -v --run TestFetcherCommandNoData
func TestFetcherCommandNoData(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cmd := commands.NewRootCmd(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", writeConfig(t, srv.URL, t.TempDir())})
	require.Error(t, cmd.ExecuteContext(context.Background()))
}

// go test -v --run TestFetcherCommandMissingToken
func TestFetcherCommandMissingToken(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("TRAVELPAYOUTS_TOKEN", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch:\n  routes: [BCN-MAD]\nlog:\n  output: stderr\n"), 0o644))

	cmd := commands.NewRootCmd(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path, "--snapshots-dir", t.TempDir()})
	require.ErrorIs(t, cmd.ExecuteContext(context.Background()), travelpayouts.ErrMissingToken)
}
