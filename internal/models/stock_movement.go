package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementIn  MovementType = "in"
	MovementOut MovementType = "out"
)

// StockMovement is an append-only ledger row. Stock is never stored on Product.
type StockMovement struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ProductID     uint            `gorm:"index;not null" json:"product_id"`
	Type          MovementType    `gorm:"size:3;not null" json:"type"`
	Quantity      decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"quantity"`
	Date          time.Time       `gorm:"index;not null" json:"date"`
	Reason        string          `gorm:"size:255" json:"reason"`
	ReferenceType string          `gorm:"size:30;index" json:"reference_type"` // sale, return, import, manual
	ReferenceID   uint            `json:"reference_id"`
	CreatedBy     uint            `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ProductStock is the materialized balance kept next to the ledger so that
// deductions can be guarded with a conditional update.
type ProductStock struct {
	ProductID uint            `gorm:"primaryKey;autoIncrement:false" json:"product_id"`
	Quantity  decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"quantity"`
	UpdatedAt time.Time       `json:"updated_at"`
}
