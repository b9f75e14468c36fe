package fetcher

import (
	"context"

	"flightsnap/internal/snapshot"
)

// feedRoutes streams routes into ch for the workers and closes it.
// It stops early when ctx is done and returns ctx's error.
func feedRoutes(ctx context.Context, routes []snapshot.Route, ch chan<- snapshot.Route) error {
	defer close(ch) // Ensure workers can exit cleanly

	for _, route := range routes {
		select {
		case ch <- route:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
