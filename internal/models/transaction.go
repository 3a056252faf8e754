package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

const (
	CategorySales       = "sales"
	CategorySalesReturn = "sales_return"
)

// Transaction is a financial bookkeeping entry in any currency.
type Transaction struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Type          TransactionType `gorm:"size:10;not null;index" json:"type"`
	Amount        decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Currency      string          `gorm:"size:3;not null" json:"currency"`
	Category      string          `gorm:"size:50;not null;index" json:"category"`
	Date          time.Time       `gorm:"index;not null" json:"date"`
	SupplierID    *uint           `gorm:"index" json:"supplier_id"`
	CustomerID    *uint           `gorm:"index" json:"customer_id"`
	Description   string          `gorm:"size:255" json:"description"`
	ReferenceType string          `gorm:"size:30" json:"reference_type"`
	ReferenceID   uint            `json:"reference_id"`
	CreatedBy     uint            `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
