package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"flightsnap/config"
	"flightsnap/internal/snapshot"
	"flightsnap/pkg/travelpayouts"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoData is returned when a run collected no rows; nothing is published.
var ErrNoData = errors.New("no price data collected")

// AnyOTA marks a route that returned no rows when no OTAs are configured.
const AnyOTA = "*"

// PriceSource returns the offers of one route.
type PriceSource interface {
	LatestPrices(ctx context.Context, q travelpayouts.Query) ([]travelpayouts.Price, error)
}

// HistorySink receives the rows of every published snapshot.
type HistorySink interface {
	SavePrices(ctx context.Context, rows []snapshot.PriceRow) (int, error)
}

// Archiver copies a published snapshot elsewhere.
type Archiver interface {
	ArchiveSnapshot(ctx context.Context, store *snapshot.Store, date string) (int, error)
}

type Fetcher struct {
	cfg    *config.Config
	source PriceSource
	store  *snapshot.Store
	logger *zap.Logger

	sink     HistorySink
	archiver Archiver
	now      func() time.Time
	date     string
}

type Option func(*Fetcher)

func WithHistorySink(s HistorySink) Option { return func(f *Fetcher) { f.sink = s } }

func WithArchiver(a Archiver) Option { return func(f *Fetcher) { f.archiver = a } }

// WithClock overrides the collection clock.
func WithClock(now func() time.Time) Option { return func(f *Fetcher) { f.now = now } }

// WithDate publishes under date instead of the collection day.
func WithDate(date string) Option { return func(f *Fetcher) { f.date = date } }

func New(cfg *config.Config, source PriceSource, store *snapshot.Store, logger *zap.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		cfg:    cfg,
		source: source,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Result describes a completed run.
type Result struct {
	RunID           string
	Dir             string
	Snapshot        *snapshot.Snapshot
	FailedRoutes    []snapshot.FailedRoute
	MissingPairs    []snapshot.MissingPair
	Skipped         int
	HistoryInserted int
	Archived        int
}

type failureLog struct {
	mu     sync.Mutex
	errors map[snapshot.Route]error
}

func (l *failureLog) add(route snapshot.Route, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.errors[route]; !ok {
		l.errors[route] = err
	}
}

func (l *failureLog) has(route snapshot.Route) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.errors[route]
	return ok
}

// Run fetches every configured route and publishes one snapshot. A failed
// route is logged and recorded in the summary; it never fails the run.
// Run returns ErrNoData when no route produced rows.
func (f *Fetcher) Run(ctx context.Context) (*Result, error) {
	collectedAt := f.now()
	date := f.date
	if date == "" {
		date = snapshot.DateKey(collectedAt)
	}
	if _, err := snapshot.ParseDate(date); err != nil {
		return nil, err
	}

	res := &Result{RunID: uuid.NewString()}
	log := f.logger.With(zap.String("snapshot_date", date), zap.String("run_id", res.RunID))

	routes := f.cfg.Fetch.Routes
	log.Info("starting price collection",
		zap.Int("routes", len(routes)),
		zap.Strings("otas", f.cfg.Fetch.OTAs),
		zap.Int("concurrency", f.cfg.Fetch.Concurrency))

	runCtx, cancel := context.WithTimeout(ctx, f.cfg.Fetch.RunTimeout)
	defer cancel()

	rows := NewRowStore()
	failures := &failureLog{errors: make(map[snapshot.Route]error)}
	var skipped int
	var skippedMu sync.Mutex

	routeCh := make(chan snapshot.Route)
	go func() {
		if err := feedRoutes(runCtx, routes, routeCh); err != nil {
			log.Warn("route feed interrupted", zap.Error(err))
		}
	}()

	workers := min(max(f.cfg.Fetch.Concurrency, 1), len(routes))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for route := range routeCh {
				n, err := f.fetchRoute(runCtx, route, collectedAt, date, rows, log)
				if err != nil {
					log.Warn("failed to fetch prices", zap.String("route", route.String()), zap.Error(err))
					failures.add(route, err)
					continue
				}
				skippedMu.Lock()
				skipped += n
				skippedMu.Unlock()
			}
		}()
	}
	wg.Wait()
	log.Info("collection finished",
		zap.Int("rows", rows.CountAll()),
		zap.Int("skipped", skipped))

	// routes never handed to a worker before the deadline
	for _, route := range routes {
		if !rows.Seen(route) && !failures.has(route) {
			err := runCtx.Err()
			if err == nil {
				err = errors.New("route was not fetched")
			}
			failures.add(route, fmt.Errorf("run deadline: %w", err))
		}
	}

	all := f.collect(routes, rows)
	res.Skipped = skipped
	res.FailedRoutes = failedRoutes(routes, failures)
	res.MissingPairs = f.missingPairs(routes, rows, failures)

	if len(all) == 0 {
		log.Error("no price data collected, snapshot not published",
			zap.Int("failed_routes", len(res.FailedRoutes)))
		return res, fmt.Errorf("%w: %d of %d routes failed", ErrNoData, len(res.FailedRoutes), len(routes))
	}

	summary := snapshot.BuildSummary(snapshot.SummaryInput{
		Date:          date,
		RunID:         res.RunID,
		CollectedAt:   collectedAt,
		Currency:      strings.ToUpper(f.cfg.Travelpayouts.Currency),
		RoutesCovered: len(routes),
		FailedRoutes:  res.FailedRoutes,
		MissingPairs:  res.MissingPairs,
	}, all)
	res.Snapshot = &snapshot.Snapshot{Date: date, Rows: all, Summary: summary}

	dir, err := f.store.Write(res.Snapshot)
	if err != nil {
		return res, fmt.Errorf("publish snapshot: %w", err)
	}
	res.Dir = dir
	log.Info("snapshot published",
		zap.String("dir", dir),
		zap.Int("rows", len(all)),
		zap.Int("routes_with_data", summary.RoutesWithData),
		zap.Int("failed_routes", len(res.FailedRoutes)),
		zap.Int("missing_pairs", len(res.MissingPairs)))

	// history and archive are best effort: the CSV snapshot is the contract
	if f.sink != nil {
		sinkCtx, cancel := contextWithOptionalTimeout(ctx, f.cfg.History.Timeout)
		n, err := f.sink.SavePrices(sinkCtx, all)
		cancel()
		if err != nil {
			log.Warn("failed to save price history", zap.Error(err))
		} else {
			res.HistoryInserted = n
			log.Info("price history saved", zap.Int("inserted", n))
		}
	}
	if f.archiver != nil {
		archiveCtx, cancel := contextWithOptionalTimeout(ctx, f.cfg.Archive.Timeout)
		n, err := f.archiver.ArchiveSnapshot(archiveCtx, f.store, date)
		cancel()
		res.Archived = n
		if err != nil {
			log.Warn("failed to archive snapshot", zap.Int("uploaded", n), zap.Error(err))
		} else {
			log.Info("snapshot archived", zap.Int("objects", n))
		}
	}

	return res, nil
}

// fetchRoute queries one route and stores its kept rows. It returns the
// number of offers skipped as invalid.
func (f *Fetcher) fetchRoute(ctx context.Context, route snapshot.Route, collectedAt time.Time, date string, store *RowStore, log *zap.Logger) (int, error) {
	tp := f.cfg.Travelpayouts

	// Context with timeout for safety
	reqCtx, cancel := contextWithOptionalTimeout(ctx, tp.Timeout)
	prices, err := f.source.LatestPrices(reqCtx, travelpayouts.Query{
		Origin:           route.Origin,
		Destination:      route.Destination,
		Currency:         tp.Currency,
		Limit:            tp.Limit,
		Sorting:          travelpayouts.Sorting(tp.Sorting),
		ShowToAffiliates: tp.ShowToAffiliates,
	})
	cancel()
	if err != nil {
		return 0, err
	}

	kept := make([]snapshot.PriceRow, 0, len(prices))
	skipped := 0
	for _, p := range prices {
		if !f.keepGate(p.Gate) {
			continue
		}
		row, err := ToPriceRow(route, p, collectedAt, date)
		if err != nil {
			log.Warn("skipping invalid offer", zap.String("route", route.String()), zap.Error(err))
			skipped++
			continue
		}
		kept = append(kept, row)
	}
	store.Add(route, kept...)

	log.Info("fetched route",
		zap.String("route", route.String()),
		zap.Int("offers", len(prices)),
		zap.Int("rows", len(kept)))
	return skipped, nil
}

func (f *Fetcher) keepGate(gate string) bool {
	if len(f.cfg.Fetch.OTAs) == 0 {
		return true
	}
	for _, ota := range f.cfg.Fetch.OTAs {
		if strings.EqualFold(ota, gate) {
			return true
		}
	}
	return false
}

// collect returns rows in configured route order, cheapest first per route.
func (f *Fetcher) collect(routes []snapshot.Route, store *RowStore) []snapshot.PriceRow {
	var all []snapshot.PriceRow
	for _, route := range routes {
		rows := store.GetByRoute(route)
		sort.SliceStable(rows, func(i, j int) bool {
			if c := rows[i].Price.Cmp(rows[j].Price); c != 0 {
				return c < 0
			}
			if rows[i].Gate != rows[j].Gate {
				return rows[i].Gate < rows[j].Gate
			}
			return rows[i].DepartDate < rows[j].DepartDate
		})
		all = append(all, rows...)
	}
	return all
}

func failedRoutes(routes []snapshot.Route, failures *failureLog) []snapshot.FailedRoute {
	var out []snapshot.FailedRoute
	for _, route := range routes {
		if err, ok := failures.errors[route]; ok {
			out = append(out, snapshot.FailedRoute{Route: route.String(), Error: err.Error()})
		}
	}
	return out
}

func (f *Fetcher) missingPairs(routes []snapshot.Route, store *RowStore, failures *failureLog) []snapshot.MissingPair {
	var out []snapshot.MissingPair
	for _, route := range routes {
		if failures.has(route) {
			continue
		}
		rows := store.GetByRoute(route)
		if len(f.cfg.Fetch.OTAs) == 0 {
			if len(rows) == 0 {
				out = append(out, snapshot.MissingPair{Route: route.String(), OTA: AnyOTA})
			}
			continue
		}
		for _, ota := range f.cfg.Fetch.OTAs {
			found := false
			for _, r := range rows {
				if strings.EqualFold(r.Gate, ota) {
					found = true
					break
				}
			}
			if !found {
				out = append(out, snapshot.MissingPair{Route: route.String(), OTA: ota})
			}
		}
	}
	return out
}

func contextWithOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
