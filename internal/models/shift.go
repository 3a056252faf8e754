package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ShiftStatus string

const (
	ShiftOpen   ShiftStatus = "open"
	ShiftClosed ShiftStatus = "closed"
)

// Shift accumulates a cashier's running totals between open and close.
type Shift struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	CashierID      uint             `gorm:"index;not null" json:"cashier_id"`
	Status         ShiftStatus      `gorm:"size:10;not null;index" json:"status"`
	OpenedAt       time.Time        `gorm:"not null" json:"opened_at"`
	ClosedAt       *time.Time       `json:"closed_at"`
	OpeningCash    decimal.Decimal  `gorm:"type:decimal(14,2);not null;default:0" json:"opening_cash"`
	ClosingCash    *decimal.Decimal `gorm:"type:decimal(14,2)" json:"closing_cash"`
	ExpectedCash   *decimal.Decimal `gorm:"type:decimal(14,2)" json:"expected_cash"`
	CashDifference *decimal.Decimal `gorm:"type:decimal(14,2)" json:"cash_difference"`
	TotalSales     decimal.Decimal  `gorm:"type:decimal(14,2);not null;default:0" json:"total_sales"`
	TotalCash      decimal.Decimal  `gorm:"type:decimal(14,2);not null;default:0" json:"total_cash"`
	TotalCard      decimal.Decimal  `gorm:"type:decimal(14,2);not null;default:0" json:"total_card"`
	TotalReturns   decimal.Decimal  `gorm:"type:decimal(14,2);not null;default:0" json:"total_returns"`
	CashRefunds    decimal.Decimal  `gorm:"type:decimal(14,2);not null;default:0" json:"cash_refunds"`
	SalesCount     int              `gorm:"not null;default:0" json:"sales_count"`
	Notes          string           `gorm:"size:500" json:"notes"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}
