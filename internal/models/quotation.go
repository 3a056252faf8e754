package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type QuotationStatus string

const (
	QuotationDraft    QuotationStatus = "draft"
	QuotationSent     QuotationStatus = "sent"
	QuotationAccepted QuotationStatus = "accepted"
	QuotationExpired  QuotationStatus = "expired"
)

type Quotation struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Number       string          `gorm:"size:40;uniqueIndex;not null" json:"number"`
	CustomerID   *uint           `gorm:"index" json:"customer_id"`
	CustomerName string          `gorm:"size:150" json:"customer_name"`
	ValidUntil   time.Time       `json:"valid_until"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"subtotal"`
	Discount     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"discount"`
	TaxRate      decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate"`
	TaxAmount    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"tax_amount"`
	Total        decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total"`
	Currency     string          `gorm:"size:3;not null" json:"currency"`
	Status       QuotationStatus `gorm:"size:10;not null" json:"status"`
	Notes        string          `gorm:"size:500" json:"notes"`
	Items        []QuotationItem `gorm:"foreignKey:QuotationID" json:"items"`
	CreatedBy    uint            `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type QuotationItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	QuotationID uint            `gorm:"index;not null" json:"quotation_id"`
	ProductID   *uint           `json:"product_id"`
	Description string          `gorm:"size:255;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"line_total"`
}
