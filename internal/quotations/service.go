package quotations

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/audit"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"
	"tradepos-backend/internal/pos"

	"github.com/google/uuid"
	"github.com/op/go-logging"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var log = logging.MustGetLogger("quotations")

type ItemInput struct {
	ProductID   *uint            `json:"product_id"`
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"` // product price when empty
}

type Input struct {
	CustomerID      *uint            `json:"customer_id"`
	CustomerName    string           `json:"customer_name"`
	ValidDays       int              `json:"valid_days"`
	Items           []ItemInput      `json:"items"`
	DiscountAmount  decimal.Decimal  `json:"discount_amount"`
	DiscountPercent decimal.Decimal  `json:"discount_percent"`
	TaxRate         *decimal.Decimal `json:"tax_rate"`
	Currency        string           `json:"currency"`
	Notes           string           `json:"notes"`
}

const defaultValidDays = 14

// NewNumber builds QUO-YYYYMMDD-XXXX with four characters of a random uuid.
func NewNumber(now time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "QUO-" + now.Format("20060102") + "-" + id[:4]
}

// Defaults holds what a quotation falls back to when the request is silent.
type Defaults struct {
	TaxRate  decimal.Decimal
	Currency string
}

func Create(db *gorm.DB, sess auth.Session, def Defaults, in Input) (*models.Quotation, error) {
	if len(in.Items) == 0 {
		return nil, apperr.Validation("a quotation needs at least one item")
	}
	now := time.Now()
	days := in.ValidDays
	if days <= 0 {
		days = defaultValidDays
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = def.Currency
	}
	if len(currency) != 3 {
		return nil, apperr.Validation("currency must be a 3 letter code")
	}
	rate := def.TaxRate
	if in.TaxRate != nil {
		rate = *in.TaxRate
	}

	q := models.Quotation{
		CustomerID: in.CustomerID,
		ValidUntil: now.AddDate(0, 0, days),
		TaxRate:    rate,
		Currency:   currency,
		Status:     models.QuotationDraft,
		Notes:      strings.TrimSpace(in.Notes),
		CreatedBy:  sess.UserID,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		name, err := customerName(tx, in)
		if err != nil {
			return err
		}
		q.CustomerName = name

		lines := make([]pos.PricedLine, 0, len(in.Items))
		for i, it := range in.Items {
			item, err := buildItem(tx, i, it)
			if err != nil {
				return err
			}
			q.Items = append(q.Items, item)
			lines = append(lines, pos.PricedLine{Quantity: item.Quantity, UnitPrice: item.UnitPrice})
		}

		totals, err := pos.CalculateTotals(lines, in.DiscountAmount, in.DiscountPercent, rate)
		if err != nil {
			return err
		}
		q.Subtotal, q.Discount, q.TaxAmount, q.Total = totals.Subtotal, totals.Discount, totals.Tax, totals.Total

		// four random characters can collide within a day
		for attempt := 0; ; attempt++ {
			q.Number = NewNumber(now)
			err = tx.Transaction(func(sp *gorm.DB) error { return sp.Create(&q).Error })
			if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) || attempt == 4 {
				break
			}
			q.ID = 0
			for i := range q.Items {
				q.Items[i].ID, q.Items[i].QuotationID = 0, 0
			}
		}
		if err != nil {
			return err
		}

		return audit.WriteLog(tx, audit.LogOptions{
			Session:     sess,
			EntityType:  "quotation",
			EntityID:    q.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Quotation %s: %s %s", q.Number, q.Total.StringFixed(2), q.Currency),
			After:       q,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Infof("quotation %s created by user %d", q.Number, sess.UserID)
	return &q, nil
}

func customerName(tx *gorm.DB, in Input) (string, error) {
	if in.CustomerID == nil {
		return strings.TrimSpace(in.CustomerName), nil
	}
	var c models.Customer
	if err := tx.Select("id", "name").First(&c, *in.CustomerID).Error; err != nil {
		return "", apperr.FromDB(err, "customer")
	}
	if n := strings.TrimSpace(in.CustomerName); n != "" {
		return n, nil
	}
	return c.Name, nil
}

func buildItem(tx *gorm.DB, i int, it ItemInput) (models.QuotationItem, error) {
	item := models.QuotationItem{
		ProductID:   it.ProductID,
		Description: strings.TrimSpace(it.Description),
		Quantity:    it.Quantity,
	}
	if !it.Quantity.IsPositive() {
		return item, apperr.Validation("item %d: quantity must be greater than zero", i+1)
	}
	if it.ProductID != nil {
		var p models.Product
		if err := tx.First(&p, *it.ProductID).Error; err != nil {
			return item, apperr.FromDB(err, fmt.Sprintf("product %d", *it.ProductID))
		}
		if item.Description == "" {
			item.Description = p.Name
		}
		item.UnitPrice = p.SalePrice
	}
	if it.UnitPrice != nil {
		if it.UnitPrice.IsNegative() {
			return item, apperr.Validation("item %d: price cannot be negative", i+1)
		}
		item.UnitPrice = *it.UnitPrice
	} else if it.ProductID == nil {
		return item, apperr.Validation("item %d: free text items need a price", i+1)
	}
	if item.Description == "" {
		return item, apperr.Validation("item %d: description is required", i+1)
	}
	item.LineTotal = pos.PricedLine{Quantity: item.Quantity, UnitPrice: item.UnitPrice}.Total()
	return item, nil
}

var transitions = map[models.QuotationStatus][]models.QuotationStatus{
	models.QuotationDraft: {models.QuotationSent, models.QuotationAccepted, models.QuotationExpired},
	models.QuotationSent:  {models.QuotationAccepted, models.QuotationExpired},
}

func CanMove(from, to models.QuotationStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// UpdateStatus moves a quotation forward. Accepted and expired are final.
// Accepting does not touch stock; the goods are sold through the POS.
func UpdateStatus(db *gorm.DB, sess auth.Session, id uint, to models.QuotationStatus) (*models.Quotation, error) {
	var q models.Quotation
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&q, id).Error; err != nil {
			return apperr.FromDB(err, "quotation")
		}
		if q.Status == to {
			return nil
		}
		if !CanMove(q.Status, to) {
			return apperr.Conflict("quotation %s cannot go from %s to %s", q.Number, q.Status, to)
		}
		if to == models.QuotationAccepted && q.ValidUntil.Before(time.Now()) {
			return apperr.Conflict("quotation %s expired on %s", q.Number, q.ValidUntil.Format("2006-01-02"))
		}
		before := q
		res := tx.Model(&models.Quotation{}).Where("id = ? AND status = ?", q.ID, q.Status).Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("quotation %s changed in the meantime", q.Number)
		}
		q.Status = to
		return audit.WriteLog(tx, audit.LogOptions{
			Session:     sess,
			EntityType:  "quotation",
			EntityID:    q.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Quotation %s marked %s", q.Number, to),
			Before:      before,
			After:       q,
		})
	})
	if err != nil {
		return nil, err
	}
	return Get(db, id)
}

// ExpireOverdue marks open quotations past their validity as expired.
func ExpireOverdue(db *gorm.DB, now time.Time) (int64, error) {
	res := db.Model(&models.Quotation{}).
		Where("status IN ? AND valid_until < ?", []models.QuotationStatus{models.QuotationDraft, models.QuotationSent}, now).
		Update("status", models.QuotationExpired)
	return res.RowsAffected, res.Error
}

func Get(db *gorm.DB, id uint) (*models.Quotation, error) {
	var q models.Quotation
	if err := db.Preload("Items").First(&q, id).Error; err != nil {
		return nil, apperr.FromDB(err, "quotation")
	}
	return &q, nil
}

type Filter struct {
	Status     models.QuotationStatus
	CustomerID uint
	Query      string
}

func List(db *gorm.DB, f Filter) ([]models.Quotation, error) {
	if n, err := ExpireOverdue(db, time.Now()); err != nil {
		log.Warningf("expire quotations: %v", err)
	} else if n > 0 {
		log.Infof("%d quotations expired", n)
	}

	q := db.Model(&models.Quotation{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CustomerID > 0 {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(number) LIKE ? OR LOWER(customer_name) LIKE ?", like, like)
	}
	var list []models.Quotation
	err := q.Order("created_at desc, id desc").Find(&list).Error
	return list, err
}
