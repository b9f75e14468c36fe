package archive_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"flightsnap/internal/snapshot"
	"flightsnap/pkg/archive"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
	failOn  string
}

func (f *fakeUploader) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := aws.ToString(in.Key)
	if key == f.failOn {
		return nil, errors.New("access denied")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[key] = string(body)
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func publish(t *testing.T) *snapshot.Store {
	t.Helper()
	store := snapshot.NewStore(t.TempDir())
	_, err := store.Write(&snapshot.Snapshot{
		Date: "20250618",
		Rows: []snapshot.PriceRow{{
			Origin: "BCN", Destination: "MAD", Gate: "Kiwi.com",
			Price: decimal.RequireFromString("49.99"), Currency: "EUR",
			CollectedAt: time.Date(2025, 6, 18, 9, 0, 0, 0, time.UTC),
		}},
		Summary: &snapshot.Summary{SnapshotDate: "20250618", TotalFlights: 1},
	})
	require.NoError(t, err)
	return store
}

// go test -v --run TestArchiveSnapshot
func TestArchiveSnapshot(t *testing.T) {
	store := publish(t)
	up := &fakeUploader{objects: map[string]string{}, types: map[string]string{}}

	n, err := archive.NewS3Archiver(up, "prices", "snapshots").ArchiveSnapshot(context.Background(), store, "20250618")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.Contains(t, up.objects, "snapshots/20250618/all_routes.csv")
	require.Contains(t, up.objects, "snapshots/20250618/route_breakdown/bcn_mad_prices.csv")
	require.Contains(t, up.objects, "snapshots/20250618/snapshot_summary.json")
	require.Contains(t, up.objects["snapshots/20250618/all_routes.csv"], "Kiwi.com")
	require.Equal(t, "text/csv", up.types["snapshots/20250618/all_routes.csv"])
	require.Equal(t, "application/json", up.types["snapshots/20250618/snapshot_summary.json"])
}

// go test -v --run TestArchiveSnapshotErrors
func TestArchiveSnapshotErrors(t *testing.T) {
	store := publish(t)

	up := &fakeUploader{objects: map[string]string{}, types: map[string]string{}, failOn: "snap/20250618/route_breakdown/bcn_mad_prices.csv"}
	n, err := archive.NewS3Archiver(up, "prices", "snap").ArchiveSnapshot(context.Background(), store, "20250618")
	require.Error(t, err)
	require.Equal(t, 1, n)

	_, err = archive.NewS3Archiver(up, "prices", "snap").ArchiveSnapshot(context.Background(), store, "20250101")
	require.ErrorIs(t, err, snapshot.ErrNotFound)
}
