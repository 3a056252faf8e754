package products

import (
	"fmt"
	"strings"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/audit"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Input struct {
	Name            *string          `json:"name"`
	SKU             *string          `json:"sku"`
	Barcode         *string          `json:"barcode"`
	Category        *string          `json:"category"`
	Unit            *string          `json:"unit"`
	PurchasePrice   *decimal.Decimal `json:"purchase_price"`
	SalePrice       *decimal.Decimal `json:"sale_price"`
	MinSaleQuantity *decimal.Decimal `json:"min_sale_quantity"`
	MinStockLevel   *decimal.Decimal `json:"min_stock_level"`
	Active          *bool            `json:"active"`
	SupplierIDs     *[]uint          `json:"supplier_ids"`
}

func (in Input) apply(p *models.Product) error {
	text := func(dst *string, v *string, field string, required bool) error {
		if v == nil {
			return nil
		}
		s := strings.TrimSpace(*v)
		if required && s == "" {
			return apperr.Validation("%s cannot be empty", field)
		}
		*dst = s
		return nil
	}
	if err := text(&p.Name, in.Name, "name", true); err != nil {
		return err
	}
	if err := text(&p.SKU, in.SKU, "sku", true); err != nil {
		return err
	}
	_ = text(&p.Barcode, in.Barcode, "barcode", false)
	_ = text(&p.Category, in.Category, "category", false)
	if err := text(&p.Unit, in.Unit, "unit", true); err != nil {
		return err
	}

	nonNegative := func(dst *decimal.Decimal, v *decimal.Decimal, field string) error {
		if v == nil {
			return nil
		}
		if v.IsNegative() {
			return apperr.Validation("%s cannot be negative", field)
		}
		*dst = *v
		return nil
	}
	if err := nonNegative(&p.PurchasePrice, in.PurchasePrice, "purchase_price"); err != nil {
		return err
	}
	if err := nonNegative(&p.SalePrice, in.SalePrice, "sale_price"); err != nil {
		return err
	}
	if err := nonNegative(&p.MinStockLevel, in.MinStockLevel, "min_stock_level"); err != nil {
		return err
	}
	if in.MinSaleQuantity != nil {
		if !in.MinSaleQuantity.IsPositive() {
			return apperr.Validation("min_sale_quantity must be greater than zero")
		}
		p.MinSaleQuantity = *in.MinSaleQuantity
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	return nil
}

func setSuppliers(tx *gorm.DB, p *models.Product, ids []uint) error {
	suppliers := make([]models.Supplier, 0, len(ids))
	if len(ids) > 0 {
		if err := tx.Where("id IN ?", ids).Find(&suppliers).Error; err != nil {
			return err
		}
		if len(suppliers) != len(ids) {
			return apperr.Validation("unknown supplier in supplier_ids")
		}
	}
	return tx.Model(p).Association("Suppliers").Replace(suppliers)
}

// CreateTx inserts a product inside the caller's transaction.
func CreateTx(tx *gorm.DB, sess auth.Session, in Input) (*models.Product, error) {
	if in.Name == nil || in.SKU == nil {
		return nil, apperr.Validation("name and sku are required")
	}
	p := models.Product{Unit: "pcs", MinSaleQuantity: decimal.NewFromInt(1), Active: true}
	if err := in.apply(&p); err != nil {
		return nil, err
	}
	if err := tx.Omit("Suppliers").Create(&p).Error; err != nil {
		return nil, apperr.FromDB(err, fmt.Sprintf("product with sku %s", p.SKU))
	}
	if in.SupplierIDs != nil {
		if err := setSuppliers(tx, &p, *in.SupplierIDs); err != nil {
			return nil, err
		}
	}
	err := audit.WriteLog(tx, audit.LogOptions{
		Session:     sess,
		EntityType:  "product",
		EntityID:    p.ID,
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("Product added: %s (%s)", p.Name, p.SKU),
		After:       p,
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func Create(db *gorm.DB, sess auth.Session, in Input) (*models.Product, error) {
	var p *models.Product
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		p, err = CreateTx(tx, sess, in)
		return err
	})
	return p, err
}

// UpdateTx changes a product inside the caller's transaction.
func UpdateTx(tx *gorm.DB, sess auth.Session, id uint, in Input) (*models.Product, error) {
	var p models.Product
	if err := tx.First(&p, id).Error; err != nil {
		return nil, apperr.FromDB(err, "product")
	}
	before := p
	if err := in.apply(&p); err != nil {
		return nil, err
	}
	if err := tx.Omit("Suppliers").Save(&p).Error; err != nil {
		return nil, apperr.FromDB(err, fmt.Sprintf("product with sku %s", p.SKU))
	}
	if in.SupplierIDs != nil {
		if err := setSuppliers(tx, &p, *in.SupplierIDs); err != nil {
			return nil, err
		}
	}
	err := audit.WriteLog(tx, audit.LogOptions{
		Session:     sess,
		EntityType:  "product",
		EntityID:    p.ID,
		Action:      models.AuditActionUpdate,
		Description: fmt.Sprintf("Product updated: %s (%s)", p.Name, p.SKU),
		Before:      before,
		After:       p,
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func Update(db *gorm.DB, sess auth.Session, id uint, in Input) (*models.Product, error) {
	var p *models.Product
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		p, err = UpdateTx(tx, sess, id, in)
		return err
	})
	return p, err
}

// Delete removes a product that never moved. Products with stock history
// must be deactivated instead.
func Delete(db *gorm.DB, sess auth.Session, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, id).Error; err != nil {
			return apperr.FromDB(err, "product")
		}
		var moved int64
		if err := tx.Model(&models.StockMovement{}).Where("product_id = ?", id).Count(&moved).Error; err != nil {
			return err
		}
		if moved > 0 {
			return apperr.Conflict("product has stock history, deactivate it instead")
		}
		if err := tx.Model(&p).Association("Suppliers").Clear(); err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductStock{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&p).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Session:     sess,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Product deleted: %s (%s)", p.Name, p.SKU),
			Before:      p,
		})
	})
}

type Filter struct {
	Query      string
	Category   string
	SupplierID uint
	OnlyActive bool
}

// List searches name, sku and barcode.
func List(db *gorm.DB, f Filter) ([]models.Product, error) {
	q := db.Model(&models.Product{}).Preload("Suppliers")
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ? OR barcode = ?", like, like, s)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.OnlyActive {
		q = q.Where("active = ?", true)
	}
	if f.SupplierID > 0 {
		q = q.Where("id IN (?)", db.Table("product_suppliers").Select("product_id").Where("supplier_id = ?", f.SupplierID))
	}
	var list []models.Product
	err := q.Order("name asc").Find(&list).Error
	return list, err
}
