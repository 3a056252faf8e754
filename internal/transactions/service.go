package transactions

import (
	"fmt"
	"strings"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/audit"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"

	"github.com/op/go-logging"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var log = logging.MustGetLogger("transactions")

type Input struct {
	Type        *models.TransactionType `json:"type"`
	Amount      *decimal.Decimal        `json:"amount"`
	Currency    *string                 `json:"currency"`
	Category    *string                 `json:"category"`
	Date        *string                 `json:"date"` // YYYY-MM-DD
	SupplierID  *uint                   `json:"supplier_id"`
	CustomerID  *uint                   `json:"customer_id"`
	Description *string                 `json:"description"`
}

func (in Input) apply(t *models.Transaction) error {
	if in.Type != nil {
		if *in.Type != models.TransactionIncome && *in.Type != models.TransactionExpense {
			return apperr.Validation("type must be income or expense")
		}
		t.Type = *in.Type
	}
	if in.Amount != nil {
		if !in.Amount.IsPositive() {
			return apperr.Validation("amount must be greater than zero")
		}
		t.Amount = *in.Amount
	}
	if in.Currency != nil {
		cur := strings.ToUpper(strings.TrimSpace(*in.Currency))
		if len(cur) != 3 {
			return apperr.Validation("currency must be a 3 letter code")
		}
		t.Currency = cur
	}
	if in.Category != nil {
		cat := strings.TrimSpace(*in.Category)
		if cat == "" {
			return apperr.Validation("category cannot be empty")
		}
		if cat == models.CategorySales || cat == models.CategorySalesReturn {
			return apperr.Validation("category %s is reserved for the POS", cat)
		}
		t.Category = cat
	}
	if in.Date != nil {
		d, err := time.Parse("2006-01-02", *in.Date)
		if err != nil {
			return apperr.Validation("date must be YYYY-MM-DD")
		}
		t.Date = d
	}
	if in.SupplierID != nil {
		t.SupplierID = nilIfZero(*in.SupplierID)
	}
	if in.CustomerID != nil {
		t.CustomerID = nilIfZero(*in.CustomerID)
	}
	if in.Description != nil {
		t.Description = strings.TrimSpace(*in.Description)
	}
	return nil
}

func nilIfZero(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

func checkParties(tx *gorm.DB, t *models.Transaction) error {
	if t.SupplierID != nil {
		var n int64
		if err := tx.Model(&models.Supplier{}).Where("id = ?", *t.SupplierID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return apperr.Validation("supplier %d does not exist", *t.SupplierID)
		}
	}
	if t.CustomerID != nil {
		var n int64
		if err := tx.Model(&models.Customer{}).Where("id = ?", *t.CustomerID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return apperr.Validation("customer %d does not exist", *t.CustomerID)
		}
	}
	return nil
}

// Service books manual transactions and announces every change on the hub.
type Service struct {
	DB  *gorm.DB
	Hub *Hub
}

func (s *Service) Create(sess auth.Session, in Input) (*models.Transaction, error) {
	if in.Type == nil || in.Amount == nil || in.Currency == nil || in.Category == nil {
		return nil, apperr.Validation("type, amount, currency and category are required")
	}
	t := models.Transaction{Date: time.Now(), CreatedBy: sess.UserID, ReferenceType: "manual"}
	if err := in.apply(&t); err != nil {
		return nil, err
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := checkParties(tx, &t); err != nil {
			return err
		}
		if err := tx.Create(&t).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Session:     sess,
			EntityType:  "transaction",
			EntityID:    t.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("%s %s %s (%s)", t.Type, t.Amount, t.Currency, t.Category),
			After:       t,
		})
	})
	if err != nil {
		return nil, err
	}
	s.Hub.Publish(Event{Kind: EventCreated, Transaction: t})
	return &t, nil
}

func editable(t models.Transaction) error {
	if t.ReferenceType == "sale" || t.ReferenceType == "return" {
		return apperr.Conflict("POS transactions are corrected with a return, not edited")
	}
	return nil
}

func (s *Service) Update(sess auth.Session, id uint, in Input) (*models.Transaction, error) {
	var t models.Transaction
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&t, id).Error; err != nil {
			return apperr.FromDB(err, "transaction")
		}
		if err := editable(t); err != nil {
			return err
		}
		before := t
		if err := in.apply(&t); err != nil {
			return err
		}
		if err := checkParties(tx, &t); err != nil {
			return err
		}
		if err := tx.Save(&t).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Session:     sess,
			EntityType:  "transaction",
			EntityID:    t.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Transaction #%d updated", t.ID),
			Before:      before,
			After:       t,
		})
	})
	if err != nil {
		return nil, err
	}
	s.Hub.Publish(Event{Kind: EventUpdated, Transaction: t})
	return &t, nil
}

func (s *Service) Delete(sess auth.Session, id uint) error {
	var t models.Transaction
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&t, id).Error; err != nil {
			return apperr.FromDB(err, "transaction")
		}
		if err := editable(t); err != nil {
			return err
		}
		if err := tx.Delete(&t).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Session:     sess,
			EntityType:  "transaction",
			EntityID:    t.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Transaction #%d deleted: %s %s %s", t.ID, t.Type, t.Amount, t.Currency),
			Before:      t,
		})
	})
	if err != nil {
		return err
	}
	s.Hub.Publish(Event{Kind: EventDeleted, Transaction: t})
	return nil
}

type Filter struct {
	Type       models.TransactionType
	Category   string
	Currency   string
	SupplierID uint
	CustomerID uint
	From       *time.Time
	To         *time.Time // exclusive
	Limit      int
	Offset     int
}

func List(db *gorm.DB, f Filter) ([]models.Transaction, int64, error) {
	q := db.Model(&models.Transaction{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Currency != "" {
		q = q.Where("currency = ?", strings.ToUpper(f.Currency))
	}
	if f.SupplierID > 0 {
		q = q.Where("supplier_id = ?", f.SupplierID)
	}
	if f.CustomerID > 0 {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.From != nil {
		q = q.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("date < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var list []models.Transaction
	err := q.Order("date desc, id desc").Limit(limit).Offset(f.Offset).Find(&list).Error
	return list, total, err
}
