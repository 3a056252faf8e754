package suppliers

import (
	"fmt"
	"strings"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/audit"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Input struct {
	Name      *string `json:"name"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Address   *string `json:"address"`
	TaxNumber *string `json:"tax_number"`
	Notes     *string `json:"notes"`
}

func (in Input) apply(s *models.Supplier) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return apperr.Validation("name cannot be empty")
		}
		s.Name = name
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&s.Phone, in.Phone)
	set(&s.Email, in.Email)
	set(&s.Address, in.Address)
	set(&s.TaxNumber, in.TaxNumber)
	set(&s.Notes, in.Notes)
	return nil
}

func Create(db *gorm.DB, sess auth.Session, in Input) (*models.Supplier, error) {
	if in.Name == nil {
		return nil, apperr.Validation("name is required")
	}
	var s models.Supplier
	if err := in.apply(&s); err != nil {
		return nil, err
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&s).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Session:     sess,
			EntityType:  "supplier",
			EntityID:    s.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Supplier added: %s", s.Name),
			After:       s,
		})
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func Update(db *gorm.DB, sess auth.Session, id uint, in Input) (*models.Supplier, error) {
	var s models.Supplier
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&s, id).Error; err != nil {
			return apperr.FromDB(err, "supplier")
		}
		before := s
		if err := in.apply(&s); err != nil {
			return err
		}
		if err := tx.Save(&s).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Session:     sess,
			EntityType:  "supplier",
			EntityID:    s.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Supplier updated: %s", s.Name),
			Before:      before,
			After:       s,
		})
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete removes a supplier that has no bookkeeping entries. Product links
// are dropped with it.
func Delete(db *gorm.DB, sess auth.Session, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var s models.Supplier
		if err := tx.First(&s, id).Error; err != nil {
			return apperr.FromDB(err, "supplier")
		}

		var linked int64
		if err := tx.Model(&models.Transaction{}).Where("supplier_id = ?", id).Count(&linked).Error; err != nil {
			return err
		}
		if linked > 0 {
			return apperr.Conflict("supplier has %d transactions and cannot be deleted", linked)
		}

		if err := tx.Exec("DELETE FROM product_suppliers WHERE supplier_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&s).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Session:     sess,
			EntityType:  "supplier",
			EntityID:    s.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Supplier deleted: %s", s.Name),
			Before:      s,
		})
	})
}

// CurrencyTotals sums a supplier's entries in one currency.
type CurrencyTotals struct {
	Currency string          `json:"currency"`
	Paid     decimal.Decimal `json:"paid"`     // expenses
	Received decimal.Decimal `json:"received"` // income (refunds, credits)
	Net      decimal.Decimal `json:"net"`
}

type Statement struct {
	Supplier     models.Supplier      `json:"supplier"`
	From         *time.Time           `json:"from,omitempty"`
	To           *time.Time           `json:"to,omitempty"`
	Transactions []models.Transaction `json:"transactions"`
	Totals       []CurrencyTotals     `json:"totals"`
}

// GetStatement lists the transactions booked against a supplier. Bounds are
// optional; to is exclusive.
func GetStatement(db *gorm.DB, id uint, from, to *time.Time) (*Statement, error) {
	var s models.Supplier
	if err := db.First(&s, id).Error; err != nil {
		return nil, apperr.FromDB(err, "supplier")
	}

	q := db.Where("supplier_id = ?", id)
	if from != nil {
		q = q.Where("date >= ?", *from)
	}
	if to != nil {
		q = q.Where("date < ?", *to)
	}
	var txs []models.Transaction
	if err := q.Order("date asc, id asc").Find(&txs).Error; err != nil {
		return nil, err
	}

	byCurrency := map[string]*CurrencyTotals{}
	var order []string
	for _, t := range txs {
		ct, ok := byCurrency[t.Currency]
		if !ok {
			ct = &CurrencyTotals{Currency: t.Currency}
			byCurrency[t.Currency] = ct
			order = append(order, t.Currency)
		}
		if t.Type == models.TransactionExpense {
			ct.Paid = ct.Paid.Add(t.Amount)
		} else {
			ct.Received = ct.Received.Add(t.Amount)
		}
	}
	totals := make([]CurrencyTotals, 0, len(order))
	for _, cur := range order {
		ct := byCurrency[cur]
		ct.Net = ct.Received.Sub(ct.Paid)
		totals = append(totals, *ct)
	}

	return &Statement{Supplier: s, From: from, To: to, Transactions: txs, Totals: totals}, nil
}
