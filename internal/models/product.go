package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"size:150;not null" json:"name"`
	SKU             string          `gorm:"size:50;uniqueIndex;not null" json:"sku"`
	Barcode         string          `gorm:"size:64;index" json:"barcode"`
	Category        string          `gorm:"size:100;index" json:"category"`
	Unit            string          `gorm:"size:20;not null;default:'pcs'" json:"unit"` // pcs, kg, box ...
	PurchasePrice   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"purchase_price"`
	SalePrice       decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"sale_price"`
	MinSaleQuantity decimal.Decimal `gorm:"type:decimal(14,3);not null;default:1" json:"min_sale_quantity"`
	MinStockLevel   decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"min_stock_level"`
	Active          bool            `gorm:"not null;default:true" json:"active"`
	Suppliers       []Supplier      `gorm:"many2many:product_suppliers" json:"suppliers,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
