package postgres

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is one observed offer stored in the price history.
type PriceRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	SnapshotDate string `gorm:"type:varchar(8);not null;index:idx_price_snapshot_date;index:idx_price_record_key,unique"`
	Origin       string `gorm:"type:char(3);not null;index:idx_price_route;index:idx_price_record_key,unique"`
	Destination  string `gorm:"type:char(3);not null;index:idx_price_route;index:idx_price_record_key,unique"`
	Gate         string `gorm:"type:text;not null;index:idx_price_record_key,unique"`
	DepartDate   string `gorm:"type:varchar(10);not null;default:'';index:idx_price_record_key,unique"`

	ReturnDate string `gorm:"type:varchar(10);not null;default:''"`

	Price    decimal.Decimal `gorm:"type:numeric;not null"`
	Currency string          `gorm:"type:char(3);not null"`

	NumberOfChanges int `gorm:"not null;default:0"`
	TripClass       int `gorm:"not null;default:0"`
	Distance        int `gorm:"not null;default:0"`
	Duration        int `gorm:"not null;default:0"`

	FoundAt     *time.Time
	CollectedAt time.Time `gorm:"not null;index:idx_price_collected_at"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (PriceRecord) TableName() string {
	return "price_record"
}
