package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExchangeRate struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	From      string          `gorm:"column:from_currency;size:3;not null;uniqueIndex:idx_rate_pair" json:"from"`
	To        string          `gorm:"column:to_currency;size:3;not null;uniqueIndex:idx_rate_pair" json:"to"`
	Rate      decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"rate"`
	Source    string          `gorm:"size:20;not null" json:"source"` // api | fallback | manual
	FetchedAt time.Time       `json:"fetched_at"`
}
