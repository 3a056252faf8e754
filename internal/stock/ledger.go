package stock

import (
	"errors"
	"fmt"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/models"

	"github.com/op/go-logging"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var log = logging.MustGetLogger("stock")

// Entry is one movement to append to the ledger.
type Entry struct {
	ProductID     uint
	Type          models.MovementType
	Quantity      decimal.Decimal
	Date          time.Time
	Reason        string
	ReferenceType string
	ReferenceID   uint
	CreatedBy     uint

	// AllowNegative lets an out movement take the balance below zero
	// (manual corrections only).
	AllowNegative bool
}

// Fold sums a movement history: in quantities minus out quantities.
func Fold(movements []models.StockMovement) decimal.Decimal {
	total := decimal.Zero
	for _, m := range movements {
		switch m.Type {
		case models.MovementIn:
			total = total.Add(m.Quantity)
		case models.MovementOut:
			total = total.Sub(m.Quantity)
		}
	}
	return total
}

// AddStockMovement appends a ledger row and moves the materialized balance in
// the same transaction. Out movements only succeed when enough stock is left.
func AddStockMovement(db *gorm.DB, e Entry) (*models.StockMovement, error) {
	if e.ProductID == 0 {
		return nil, apperr.Validation("product_id is required")
	}
	if e.Type != models.MovementIn && e.Type != models.MovementOut {
		return nil, apperr.Validation("movement type must be in or out")
	}
	if !e.Quantity.IsPositive() {
		return nil, apperr.Validation("quantity must be greater than zero")
	}
	if e.Date.IsZero() {
		e.Date = time.Now()
	}

	var mv *models.StockMovement
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := ensureBalanceRow(tx, e.ProductID); err != nil {
			return err
		}

		if err := applyToBalance(tx, e); err != nil {
			return err
		}

		mv = &models.StockMovement{
			ProductID:     e.ProductID,
			Type:          e.Type,
			Quantity:      e.Quantity,
			Date:          e.Date,
			Reason:        e.Reason,
			ReferenceType: e.ReferenceType,
			ReferenceID:   e.ReferenceID,
			CreatedBy:     e.CreatedBy,
		}
		return tx.Create(mv).Error
	})
	if err != nil {
		return nil, err
	}
	return mv, nil
}

func ensureBalanceRow(tx *gorm.DB, productID uint) error {
	var product models.Product
	if err := tx.Select("id").First(&product, productID).Error; err != nil {
		return apperr.FromDB(err, fmt.Sprintf("product %d", productID))
	}
	row := models.ProductStock{ProductID: productID, Quantity: decimal.Zero}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func applyToBalance(tx *gorm.DB, e Entry) error {
	q := tx.Model(&models.ProductStock{}).Where("product_id = ?", e.ProductID)

	if e.Type == models.MovementIn {
		return q.Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", e.Quantity),
			"updated_at": time.Now(),
		}).Error
	}

	if !e.AllowNegative {
		q = q.Where("quantity >= ?", e.Quantity)
	}
	res := q.Updates(map[string]any{
		"quantity":   gorm.Expr("quantity - ?", e.Quantity),
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		available, _ := currentBalance(tx, e.ProductID)
		return apperr.New(apperr.ErrInsufficientStock,
			"product %d: requested %s, available %s", e.ProductID, e.Quantity.String(), available.String())
	}
	return nil
}

func currentBalance(db *gorm.DB, productID uint) (decimal.Decimal, error) {
	var row models.ProductStock
	err := db.Where("product_id = ?", productID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return row.Quantity, nil
}

// GetProductStock folds the whole movement history of a product.
func GetProductStock(db *gorm.DB, productID uint) (decimal.Decimal, error) {
	var movements []models.StockMovement
	if err := db.Where("product_id = ?", productID).Find(&movements).Error; err != nil {
		return decimal.Zero, err
	}
	return Fold(movements), nil
}

// AvailableStock reads the materialized balance used for checkout guards.
func AvailableStock(db *gorm.DB, productID uint) (decimal.Decimal, error) {
	return currentBalance(db, productID)
}

type Balance struct {
	ProductID     uint            `json:"product_id"`
	ProductName   string          `json:"product_name"`
	SKU           string          `json:"sku"`
	Unit          string          `json:"unit"`
	Quantity      decimal.Decimal `json:"quantity"`
	MinStockLevel decimal.Decimal `json:"min_stock_level"`
	LowStock      bool            `json:"low_stock"`
}

// Balances lists every active product with its balance.
func Balances(db *gorm.DB, onlyLow bool) ([]Balance, error) {
	var products []models.Product
	if err := db.Where("active = ?", true).Order("name asc").Find(&products).Error; err != nil {
		return nil, err
	}
	var rows []models.ProductStock
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	byProduct := make(map[uint]decimal.Decimal, len(rows))
	for _, r := range rows {
		byProduct[r.ProductID] = r.Quantity
	}

	out := make([]Balance, 0, len(products))
	for _, p := range products {
		qty := byProduct[p.ID]
		low := qty.LessThan(p.MinStockLevel)
		if onlyLow && !low {
			continue
		}
		out = append(out, Balance{
			ProductID:     p.ID,
			ProductName:   p.Name,
			SKU:           p.SKU,
			Unit:          p.Unit,
			Quantity:      qty,
			MinStockLevel: p.MinStockLevel,
			LowStock:      low,
		})
	}
	return out, nil
}

type ReconcileResult struct {
	ProductID    uint            `json:"product_id"`
	Ledger       decimal.Decimal `json:"ledger"`
	Materialized decimal.Decimal `json:"materialized"`
	Drift        decimal.Decimal `json:"drift"`
	Repaired     bool            `json:"repaired"`
}

// Reconcile rewrites the materialized balance from the ledger when they differ.
func Reconcile(db *gorm.DB, productID uint) (*ReconcileResult, error) {
	var res *ReconcileResult
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := ensureBalanceRow(tx, productID); err != nil {
			return err
		}
		ledger, err := GetProductStock(tx, productID)
		if err != nil {
			return err
		}
		materialized, err := currentBalance(tx, productID)
		if err != nil {
			return err
		}

		res = &ReconcileResult{
			ProductID:    productID,
			Ledger:       ledger,
			Materialized: materialized,
			Drift:        materialized.Sub(ledger),
		}
		if res.Drift.IsZero() {
			return nil
		}

		log.Warningf("stock drift on product %d: ledger=%s materialized=%s", productID, ledger, materialized)
		res.Repaired = true
		return tx.Model(&models.ProductStock{}).Where("product_id = ?", productID).
			Updates(map[string]any{"quantity": ledger, "updated_at": time.Now()}).Error
	})
	return res, err
}
