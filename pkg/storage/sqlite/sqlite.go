package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"flightsnap/internal/snapshot"

	_ "modernc.org/sqlite"
)

// DB is a local price history in a single SQLite file.
type DB struct {
	sql *sql.DB
}

func Open(ctx context.Context, dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)
	sqldb.SetConnMaxLifetime(0)

	db := &DB{sql: sqldb}
	if err := db.migrate(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_record (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			snapshot_date TEXT NOT NULL,
			origin TEXT NOT NULL,
			destination TEXT NOT NULL,
			gate TEXT NOT NULL,
			depart_date TEXT NOT NULL DEFAULT '',
			return_date TEXT NOT NULL DEFAULT '',
			price TEXT NOT NULL,
			currency TEXT NOT NULL,
			number_of_changes INTEGER NOT NULL DEFAULT 0,
			trip_class INTEGER NOT NULL DEFAULT 0,
			collected_at INTEGER NOT NULL,
			recorded_at INTEGER NOT NULL,
			UNIQUE (snapshot_date, origin, destination, gate, depart_date)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_price_record_route ON price_record (origin, destination);`,
	}
	for _, s := range stmts {
		if _, err := d.sql.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// SavePrices inserts rows in one transaction, skipping rows already stored
// for the same snapshot date, route, gate and departure date.
func (d *DB) SavePrices(ctx context.Context, rows []snapshot.PriceRow) (int, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO price_record
		(snapshot_date, origin, destination, gate, depart_date, return_date, price, currency,
		 number_of_changes, trip_class, collected_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	inserted := 0
	for _, r := range rows {
		res, err := stmt.ExecContext(ctx,
			r.SnapshotDate, r.Origin, r.Destination, r.Gate, r.DepartDate, r.ReturnDate,
			r.Price.String(), r.Currency, r.NumberOfChanges, r.TripClass,
			r.CollectedAt.Unix(), now,
		)
		if err != nil {
			return 0, fmt.Errorf("insert %s %s: %w", r.Route(), r.Gate, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// Count returns the number of stored rows for a snapshot date.
func (d *DB) Count(ctx context.Context, date string) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM price_record WHERE snapshot_date = ?`, date).Scan(&n)
	return n, err
}
