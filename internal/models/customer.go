package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Customer struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Name           string          `gorm:"size:150;not null" json:"name"`
	Phone          *string         `gorm:"size:50;uniqueIndex" json:"phone"` // nil when unknown
	Email          string          `gorm:"size:100" json:"email"`
	Address        string          `gorm:"size:255" json:"address"`
	LoyaltyPoints  int64           `gorm:"not null;default:0" json:"loyalty_points"`
	TotalPurchases decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_purchases"`
	LastPurchaseAt *time.Time      `json:"last_purchase_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CustomerPurchase is one loyalty-earning purchase (or its negative on return).
type CustomerPurchase struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CustomerID   uint            `gorm:"index;not null" json:"customer_id"`
	SaleID       uint            `gorm:"index;not null" json:"sale_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	PointsEarned int64           `gorm:"not null" json:"points_earned"`
	Date         time.Time       `gorm:"index;not null" json:"date"`
	CreatedAt    time.Time       `json:"created_at"`
}
