package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentCash  PaymentType = "cash"
	PaymentCard  PaymentType = "card"
	PaymentMixed PaymentType = "mixed"
)

type SaleStatus string

const (
	SaleCompleted         SaleStatus = "completed"
	SalePartiallyReturned SaleStatus = "partially_returned"
	SaleReturned          SaleStatus = "returned"
)

type Sale struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	InvoiceNumber  string          `gorm:"size:40;uniqueIndex;not null" json:"invoice_number"`
	IdempotencyKey *string         `gorm:"size:64;uniqueIndex" json:"idempotency_key,omitempty"`
	ShiftID        uint            `gorm:"index;not null" json:"shift_id"`
	CustomerID     *uint           `gorm:"index" json:"customer_id"`
	Customer       *Customer       `json:"customer,omitempty"`
	CashierID      uint            `gorm:"index;not null" json:"cashier_id"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"discount_amount"`
	TaxRate        decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"tax_amount"`
	Total          decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total"`
	PaymentType    PaymentType     `gorm:"size:10;not null" json:"payment_type"`
	CashAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"cash_amount"`
	CardAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"card_amount"`
	ChangeDue      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"change_due"`
	Currency       string          `gorm:"size:3;not null" json:"currency"`
	Status         SaleStatus      `gorm:"size:20;not null;index" json:"status"`
	Items          []SaleItem      `gorm:"foreignKey:SaleID" json:"items"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type SaleItem struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	SaleID           uint            `gorm:"index;not null" json:"sale_id"`
	ProductID        uint            `gorm:"index;not null" json:"product_id"`
	ProductName      string          `gorm:"size:150;not null" json:"product_name"`
	Quantity         decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"unit_price"`
	LineTotal        decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"line_total"`
	ReturnedQuantity decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"returned_quantity"`
}

type Payment struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	SaleID    uint            `gorm:"index;not null" json:"sale_id"`
	Method    PaymentType     `gorm:"size:10;not null" json:"method"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Currency  string          `gorm:"size:3;not null" json:"currency"`
	Date      time.Time       `gorm:"index;not null" json:"date"`
	CreatedAt time.Time       `json:"created_at"`
}

type Return struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	SaleID       uint            `gorm:"index;not null" json:"sale_id"`
	ShiftID      *uint           `gorm:"index" json:"shift_id"`
	Reason       string          `gorm:"size:255" json:"reason"`
	Total        decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total"`
	RefundMethod PaymentType     `gorm:"size:10;not null" json:"refund_method"`
	Items        []ReturnItem    `gorm:"foreignKey:ReturnID" json:"items"`
	CreatedBy    uint            `json:"created_by"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
}

type ReturnItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ReturnID   uint            `gorm:"index;not null" json:"return_id"`
	SaleItemID uint            `gorm:"index;not null" json:"sale_item_id"`
	ProductID  uint            `gorm:"not null" json:"product_id"`
	Quantity   decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"unit_price"`
	LineTotal  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"line_total"`
}

// InvoiceCounter holds the last allocated invoice sequence of a month (YYYYMM).
type InvoiceCounter struct {
	Period    string `gorm:"primaryKey;size:6"`
	LastSeq   int    `gorm:"not null"`
	UpdatedAt time.Time
}
