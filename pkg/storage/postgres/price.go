package postgres

import (
	"context"
	"fmt"

	"flightsnap/internal/snapshot"

	"gorm.io/gorm/clause"
)

// InsertPrices stores records, skipping those already present for the same
// snapshot date, route, gate and departure date. It returns the number of
// inserted rows.
func (p *PostgresClient) InsertPrices(ctx context.Context, records []*PriceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "snapshot_date"},
			{Name: "origin"},
			{Name: "destination"},
			{Name: "gate"},
			{Name: "depart_date"},
		},
		DoNothing: true,
	}).CreateInBatches(records, 500)

	if tx.Error != nil {
		return 0, tx.Error
	}
	return int(tx.RowsAffected), nil
}

// SavePrices implements the history sink over InsertPrices.
func (p *PostgresClient) SavePrices(ctx context.Context, rows []snapshot.PriceRow) (int, error) {
	records := make([]*PriceRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, ToPriceRecord(r))
	}
	n, err := p.InsertPrices(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("insert prices: %w", err)
	}
	return n, nil
}

// Count returns the number of stored records for a snapshot date.
func (p *PostgresClient) Count(ctx context.Context, date string) (int, error) {
	var n int64
	err := p.DB.WithContext(ctx).
		Model(&PriceRecord{}).
		Where("snapshot_date = ?", date).
		Count(&n).Error
	return int(n), err
}

// ToPriceRecord converts a snapshot row into a PriceRecord for DB insertion.
func ToPriceRecord(r snapshot.PriceRow) *PriceRecord {
	rec := &PriceRecord{
		SnapshotDate:    r.SnapshotDate,
		Origin:          r.Origin,
		Destination:     r.Destination,
		Gate:            r.Gate,
		DepartDate:      r.DepartDate,
		ReturnDate:      r.ReturnDate,
		Price:           r.Price,
		Currency:        r.Currency,
		NumberOfChanges: r.NumberOfChanges,
		TripClass:       r.TripClass,
		Distance:        r.Distance,
		Duration:        r.Duration,
		CollectedAt:     r.CollectedAt,
	}
	if !r.FoundAt.IsZero() {
		foundAt := r.FoundAt
		rec.FoundAt = &foundAt
	}
	return rec
}
