package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// undoRule describes how one entity type is reverted. Only master data is
// restored; running totals (loyalty, purchases, stock) belong to the ledgers
// and are left as they are.
type undoRule struct {
	newModel func() any
	columns  []string
	// history reports why the row cannot be removed, "" when it can.
	history func(tx *gorm.DB, id uint) (string, error)
	// detach clears join rows before the entity is removed.
	detach func(tx *gorm.DB, id uint) error
}

// Ledger rows (sales, returns, movements) are corrected with new entries,
// never undone.
var undoable = map[string]undoRule{
	"supplier": {
		newModel: func() any { return &models.Supplier{} },
		columns:  []string{"name", "phone", "email", "address", "tax_number", "notes"},
		history: func(tx *gorm.DB, id uint) (string, error) {
			return countRefs(tx, "supplier has %d transactions", &models.Transaction{}, "supplier_id = ?", id)
		},
		detach: func(tx *gorm.DB, id uint) error {
			return tx.Exec("DELETE FROM product_suppliers WHERE supplier_id = ?", id).Error
		},
	},
	"customer": {
		newModel: func() any { return &models.Customer{} },
		columns:  []string{"name", "phone", "email", "address"},
		history: func(tx *gorm.DB, id uint) (string, error) {
			if why, err := countRefs(tx, "customer has %d sales", &models.Sale{}, "customer_id = ?", id); why != "" || err != nil {
				return why, err
			}
			if why, err := countRefs(tx, "customer has %d purchases", &models.CustomerPurchase{}, "customer_id = ?", id); why != "" || err != nil {
				return why, err
			}
			return countRefs(tx, "customer has %d transactions", &models.Transaction{}, "customer_id = ?", id)
		},
	},
	"product": {
		newModel: func() any { return &models.Product{} },
		columns: []string{"name", "sku", "barcode", "category", "unit", "purchase_price",
			"sale_price", "min_sale_quantity", "min_stock_level", "active"},
		history: func(tx *gorm.DB, id uint) (string, error) {
			if why, err := countRefs(tx, "product has %d stock movements", &models.StockMovement{}, "product_id = ?", id); why != "" || err != nil {
				return why, err
			}
			return countRefs(tx, "product was sold %d times", &models.SaleItem{}, "product_id = ?", id)
		},
		detach: func(tx *gorm.DB, id uint) error {
			if err := tx.Exec("DELETE FROM product_suppliers WHERE product_id = ?", id).Error; err != nil {
				return err
			}
			return tx.Where("product_id = ?", id).Delete(&models.ProductStock{}).Error
		},
	},
	"transaction": {
		newModel: func() any { return &models.Transaction{} },
		columns:  []string{"type", "amount", "currency", "category", "date", "supplier_id", "customer_id", "description"},
		history: func(tx *gorm.DB, id uint) (string, error) {
			var t models.Transaction
			if err := tx.Select("reference_type").First(&t, id).Error; err != nil {
				return "", apperr.FromDB(err, "transaction")
			}
			if t.ReferenceType == "sale" || t.ReferenceType == "return" {
				return "POS transactions are corrected with a return", nil
			}
			return "", nil
		},
	},
}

func countRefs(tx *gorm.DB, msg string, model any, where string, id uint) (string, error) {
	var n int64
	if err := tx.Model(model).Where(where, id).Count(&n).Error; err != nil {
		return "", err
	}
	if n > 0 {
		return fmt.Sprintf(msg, n), nil
	}
	return "", nil
}

func IsUndoable(entityType string) bool {
	_, ok := undoable[entityType]
	return ok
}

// UndoLog reverts the change recorded by a log row and records the undo.
func UndoLog(db *gorm.DB, logID uint, s auth.Session) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var entry models.AuditLog
		if err := tx.First(&entry, logID).Error; err != nil {
			return apperr.FromDB(err, "log")
		}
		if entry.IsUndone {
			return apperr.Conflict("this change was already undone")
		}
		rule, ok := undoable[entry.EntityType]
		if !ok {
			return apperr.Validation("%s changes cannot be undone", entry.EntityType)
		}

		switch entry.Action {
		case models.AuditActionCreate:
			if err := tx.First(rule.newModel(), entry.EntityID).Error; err != nil {
				return apperr.FromDB(err, entry.EntityType)
			}
			why, err := rule.history(tx, entry.EntityID)
			if err != nil {
				return err
			}
			if why != "" {
				return apperr.Conflict("cannot undo creation: %s", why)
			}
			if rule.detach != nil {
				if err := rule.detach(tx, entry.EntityID); err != nil {
					return err
				}
			}
			if err := tx.Delete(rule.newModel(), entry.EntityID).Error; err != nil {
				return fmt.Errorf("entity not deleted: %w", err)
			}

		case models.AuditActionUpdate:
			m := rule.newModel()
			if err := json.Unmarshal([]byte(entry.BeforeData), m); err != nil {
				return fmt.Errorf("before data unreadable: %w", err)
			}
			if entry.EntityType == "transaction" {
				why, err := rule.history(tx, entry.EntityID)
				if err != nil {
					return err
				}
				if why != "" {
					return apperr.Conflict("cannot undo: %s", why)
				}
			}
			if err := tx.First(rule.newModel(), entry.EntityID).Error; err != nil {
				return apperr.FromDB(err, entry.EntityType)
			}
			err := tx.Model(rule.newModel()).Where("id = ?", entry.EntityID).
				Select(rule.columns).Omit(clause.Associations).Updates(m).Error
			if err != nil {
				return apperr.FromDB(err, entry.EntityType)
			}

		case models.AuditActionDelete:
			m := rule.newModel()
			if err := json.Unmarshal([]byte(entry.BeforeData), m); err != nil {
				return fmt.Errorf("deleted data unreadable: %w", err)
			}
			if err := tx.Create(m).Error; err != nil {
				return apperr.FromDB(err, entry.EntityType)
			}

		default:
			return apperr.Validation("%s actions cannot be undone", entry.Action)
		}

		now := time.Now()
		entry.IsUndone = true
		entry.UndoneBy = &s.UserID
		entry.UndoneAt = &now
		if err := tx.Save(&entry).Error; err != nil {
			return fmt.Errorf("log not updated: %w", err)
		}

		undo := models.AuditLog{
			UserID:      s.UserID,
			UserName:    s.UserName,
			EntityType:  entry.EntityType,
			EntityID:    entry.EntityID,
			Action:      models.AuditActionUndo,
			Description: fmt.Sprintf("Undone: %s", entry.Description),
			BeforeData:  entry.AfterData,
			AfterData:   entry.BeforeData,
			Undone:      true,
		}
		return tx.Create(&undo).Error
	})
}
