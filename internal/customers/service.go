package customers

import (
	"fmt"
	"strings"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/audit"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"

	"gorm.io/gorm"
)

type Input struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
}

func (in Input) apply(c *models.Customer) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return apperr.Validation("name cannot be empty")
		}
		c.Name = name
	}
	if in.Phone != nil {
		c.Phone = normalizePhone(*in.Phone)
	}
	if in.Email != nil {
		c.Email = strings.TrimSpace(*in.Email)
	}
	if in.Address != nil {
		c.Address = strings.TrimSpace(*in.Address)
	}
	return nil
}

// normalizePhone strips spaces and dashes; an empty phone is stored as NULL
// so the unique index only covers known numbers.
func normalizePhone(p string) *string {
	p = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(p))
	if p == "" {
		return nil
	}
	return &p
}

// CreateTx inserts a customer inside the caller's transaction. A phone that is
// already taken is a conflict.
func CreateTx(tx *gorm.DB, sess auth.Session, in Input) (*models.Customer, error) {
	if in.Name == nil {
		return nil, apperr.Validation("customer name is required")
	}
	var c models.Customer
	if err := in.apply(&c); err != nil {
		return nil, err
	}
	if err := tx.Create(&c).Error; err != nil {
		return nil, apperr.FromDB(err, "customer with this phone")
	}
	err := audit.WriteLog(tx, audit.LogOptions{
		Session:     sess,
		EntityType:  "customer",
		EntityID:    c.ID,
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("Customer added: %s", c.Name),
		After:       c,
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func Create(db *gorm.DB, sess auth.Session, in Input) (*models.Customer, error) {
	var c *models.Customer
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		c, err = CreateTx(tx, sess, in)
		return err
	})
	return c, err
}

func Update(db *gorm.DB, sess auth.Session, id uint, in Input) (*models.Customer, error) {
	var c models.Customer
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&c, id).Error; err != nil {
			return apperr.FromDB(err, "customer")
		}
		before := c
		if err := in.apply(&c); err != nil {
			return err
		}
		if err := tx.Save(&c).Error; err != nil {
			return apperr.FromDB(err, "customer with this phone")
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Session:     sess,
			EntityType:  "customer",
			EntityID:    c.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Customer updated: %s", c.Name),
			Before:      before,
			After:       c,
		})
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete removes a customer with no sales. Customers with history are kept
// for the books.
func Delete(db *gorm.DB, sess auth.Session, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var c models.Customer
		if err := tx.First(&c, id).Error; err != nil {
			return apperr.FromDB(err, "customer")
		}
		var sales int64
		if err := tx.Model(&models.Sale{}).Where("customer_id = ?", id).Count(&sales).Error; err != nil {
			return err
		}
		if sales > 0 {
			return apperr.Conflict("customer has %d sales and cannot be deleted", sales)
		}
		if err := tx.Delete(&c).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Session:     sess,
			EntityType:  "customer",
			EntityID:    c.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Customer deleted: %s", c.Name),
			Before:      c,
		})
	})
}

// Search matches name (case-insensitive) or phone fragments.
func Search(db *gorm.DB, term string, limit int) ([]models.Customer, error) {
	q := db.Model(&models.Customer{})
	if term = strings.TrimSpace(term); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(name) LIKE ? OR phone LIKE ?", like, like)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var list []models.Customer
	err := q.Order("name asc").Limit(limit).Find(&list).Error
	return list, err
}

type History struct {
	Customer  models.Customer           `json:"customer"`
	Purchases []models.CustomerPurchase `json:"purchases"`
	Sales     []models.Sale             `json:"sales"`
}

func GetHistory(db *gorm.DB, id uint) (*History, error) {
	var h History
	if err := db.First(&h.Customer, id).Error; err != nil {
		return nil, apperr.FromDB(err, "customer")
	}
	if err := db.Where("customer_id = ?", id).Order("date desc, id desc").Find(&h.Purchases).Error; err != nil {
		return nil, err
	}
	if err := db.Where("customer_id = ?", id).Order("created_at desc").Find(&h.Sales).Error; err != nil {
		return nil, err
	}
	return &h, nil
}
