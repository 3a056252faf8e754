package pos

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/audit"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/customers"
	"tradepos-backend/internal/invoice"
	"tradepos-backend/internal/models"
	"tradepos-backend/internal/outbox"
	"tradepos-backend/internal/shifts"
	"tradepos-backend/internal/stock"
	"tradepos-backend/internal/transactions"

	"github.com/op/go-logging"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var log = logging.MustGetLogger("pos")

type CartLine struct {
	ProductID uint            `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	// admins only
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type CheckoutRequest struct {
	Lines           []CartLine       `json:"lines"`
	CustomerID      *uint            `json:"customer_id"`
	NewCustomer     *customers.Input `json:"new_customer"`
	DiscountAmount  decimal.Decimal  `json:"discount_amount"`
	DiscountPercent decimal.Decimal  `json:"discount_percent"`
	TaxRate         *decimal.Decimal `json:"tax_rate"`
	CashAmount      decimal.Decimal  `json:"cash_amount"`
	CardAmount      decimal.Decimal  `json:"card_amount"`
	Currency        string           `json:"currency"`
	IdempotencyKey  string           `json:"idempotency_key"`
}

// Service runs checkouts and returns. Every side effect of one operation
// commits or rolls back together.
type Service struct {
	DB       *gorm.DB
	Hub      *transactions.Hub
	TaxRate  decimal.Decimal
	Currency string
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type saleEvent struct {
	SaleID        uint            `json:"sale_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    *uint           `json:"customer_id,omitempty"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	Items         []eventItem     `json:"items"`
	At            time.Time       `json:"at"`
}

type eventItem struct {
	ProductID uint            `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// Checkout records a sale. When the idempotency key was seen before the
// stored sale is returned with replayed=true and nothing is written.
func (s *Service) Checkout(sess auth.Session, req CheckoutRequest) (sale *models.Sale, replayed bool, err error) {
	key := strings.TrimSpace(req.IdempotencyKey)
	if len(key) > 64 {
		return nil, false, apperr.Validation("idempotency key is too long")
	}

	var income models.Transaction
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if key != "" {
			existing, err := findByKey(tx, key)
			if err != nil {
				return err
			}
			if existing != nil {
				sale, replayed = existing, true
				return nil
			}
		}
		var err error
		sale, income, err = s.checkout(tx, sess, req, key)
		return err
	})

	// a concurrent request with the same key won the insert
	if err != nil && key != "" && errors.Is(err, gorm.ErrDuplicatedKey) {
		if existing, ferr := findByKey(s.DB, key); ferr == nil && existing != nil {
			return existing, true, nil
		}
	}
	if err != nil {
		return nil, false, err
	}
	if !replayed {
		s.Hub.Publish(transactions.Event{Kind: transactions.EventCreated, Transaction: income})
		log.Infof("sale %s completed: %s %s by user %d", sale.InvoiceNumber, sale.Total.StringFixed(2), sale.Currency, sess.UserID)
	}
	return sale, replayed, nil
}

func findByKey(db *gorm.DB, key string) (*models.Sale, error) {
	var sale models.Sale
	err := db.Preload("Items").Preload("Customer").Where("idempotency_key = ?", key).Take(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

type pricedProduct struct {
	product  models.Product
	quantity decimal.Decimal
	price    decimal.Decimal
}

func (s *Service) checkout(tx *gorm.DB, sess auth.Session, req CheckoutRequest, key string) (*models.Sale, models.Transaction, error) {
	var income models.Transaction
	now := s.now()

	shift, err := shifts.OpenShiftFor(tx, sess.UserID)
	if err != nil {
		return nil, income, err
	}

	lines, err := validateLines(tx, sess, req.Lines)
	if err != nil {
		return nil, income, err
	}

	taxRate := s.TaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	priced := make([]PricedLine, len(lines))
	for i, l := range lines {
		priced[i] = PricedLine{Quantity: l.quantity, UnitPrice: l.price}
	}
	totals, err := CalculateTotals(priced, req.DiscountAmount, req.DiscountPercent, taxRate)
	if err != nil {
		return nil, income, err
	}
	split, err := SplitPayment(totals.Total, req.CashAmount, req.CardAmount)
	if err != nil {
		return nil, income, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.Currency
	}
	if len(currency) != 3 {
		return nil, income, apperr.Validation("currency must be a 3 letter code")
	}

	customerID, err := resolveCustomer(tx, sess, req)
	if err != nil {
		return nil, income, err
	}

	number, err := invoice.Generate(tx, now)
	if err != nil {
		return nil, income, fmt.Errorf("invoice number: %w", err)
	}

	sale := models.Sale{
		InvoiceNumber:  number,
		ShiftID:        shift.ID,
		CustomerID:     customerID,
		CashierID:      sess.UserID,
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.Discount,
		TaxRate:        totals.TaxRate,
		TaxAmount:      totals.Tax,
		Total:          totals.Total,
		PaymentType:    split.Type,
		CashAmount:     req.CashAmount,
		CardAmount:     req.CardAmount,
		ChangeDue:      split.Change,
		Currency:       currency,
		Status:         models.SaleCompleted,
		CreatedAt:      now,
	}
	if key != "" {
		sale.IdempotencyKey = &key
	}
	for _, l := range lines {
		sale.Items = append(sale.Items, models.SaleItem{
			ProductID:   l.product.ID,
			ProductName: l.product.Name,
			Quantity:    l.quantity,
			UnitPrice:   l.price,
			LineTotal:   PricedLine{Quantity: l.quantity, UnitPrice: l.price}.Total(),
		})
	}
	if err := tx.Create(&sale).Error; err != nil {
		return nil, income, err
	}

	for _, it := range sale.Items {
		_, err := stock.AddStockMovement(tx, stock.Entry{
			ProductID:     it.ProductID,
			Type:          models.MovementOut,
			Quantity:      it.Quantity,
			Date:          now,
			Reason:        "sale " + sale.InvoiceNumber,
			ReferenceType: "sale",
			ReferenceID:   sale.ID,
			CreatedBy:     sess.UserID,
		})
		if err != nil {
			return nil, income, err
		}
	}

	for _, p := range []struct {
		method models.PaymentType
		amount decimal.Decimal
	}{{models.PaymentCash, split.CashIn}, {models.PaymentCard, split.CardIn}} {
		if !p.amount.IsPositive() {
			continue
		}
		pay := models.Payment{SaleID: sale.ID, Method: p.method, Amount: p.amount, Currency: currency, Date: now}
		if err := tx.Create(&pay).Error; err != nil {
			return nil, income, err
		}
	}

	income = models.Transaction{
		Type:          models.TransactionIncome,
		Amount:        sale.Total,
		Currency:      currency,
		Category:      models.CategorySales,
		Date:          now,
		CustomerID:    customerID,
		Description:   "Sale " + sale.InvoiceNumber,
		ReferenceType: "sale",
		ReferenceID:   sale.ID,
		CreatedBy:     sess.UserID,
	}
	if err := tx.Create(&income).Error; err != nil {
		return nil, income, err
	}

	if customerID != nil {
		if _, err := customers.RecordPurchase(tx, *customerID, sale.ID, sale.Total, now); err != nil {
			return nil, income, err
		}
	}

	if err := shifts.AddSale(tx, shift.ID, sale.Total, split.CashIn, split.CardIn); err != nil {
		return nil, income, err
	}

	err = audit.WriteLog(tx, audit.LogOptions{
		Session:     sess,
		EntityType:  "sale",
		EntityID:    sale.ID,
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("Sale %s: %s %s", sale.InvoiceNumber, sale.Total.StringFixed(2), currency),
		After:       sale,
	})
	if err != nil {
		return nil, income, err
	}

	ev := saleEvent{SaleID: sale.ID, InvoiceNumber: sale.InvoiceNumber, CustomerID: customerID, Total: sale.Total, Currency: currency, At: now}
	for _, it := range sale.Items {
		ev.Items = append(ev.Items, eventItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	if err := outbox.Enqueue(tx, outbox.TopicSaleCompleted, ev); err != nil {
		return nil, income, err
	}

	if customerID != nil {
		var c models.Customer
		if err := tx.First(&c, *customerID).Error; err == nil {
			sale.Customer = &c
		}
	}
	return &sale, income, nil
}

func validateLines(tx *gorm.DB, sess auth.Session, cart []CartLine) ([]pricedProduct, error) {
	if len(cart) == 0 {
		return nil, apperr.Validation("the cart is empty")
	}
	out := make([]pricedProduct, 0, len(cart))
	for i, l := range cart {
		if !l.Quantity.IsPositive() {
			return nil, apperr.Validation("line %d: quantity must be greater than zero", i+1)
		}
		var p models.Product
		if err := tx.First(&p, l.ProductID).Error; err != nil {
			return nil, apperr.FromDB(err, fmt.Sprintf("product %d", l.ProductID))
		}
		if !p.Active {
			return nil, apperr.Validation("%s is not on sale", p.Name)
		}
		if l.Quantity.LessThan(p.MinSaleQuantity) {
			return nil, apperr.Validation("%s: minimum sale quantity is %s", p.Name, p.MinSaleQuantity.String())
		}
		price := p.SalePrice
		if l.UnitPrice != nil && !l.UnitPrice.Equal(p.SalePrice) {
			if sess.Role != models.RoleAdmin {
				return nil, apperr.New(apperr.ErrForbidden, "only admins can change prices at checkout")
			}
			if l.UnitPrice.IsNegative() {
				return nil, apperr.Validation("%s: price cannot be negative", p.Name)
			}
			price = *l.UnitPrice
		}
		out = append(out, pricedProduct{product: p, quantity: l.Quantity, price: price})
	}
	return out, nil
}

func resolveCustomer(tx *gorm.DB, sess auth.Session, req CheckoutRequest) (*uint, error) {
	if req.NewCustomer != nil {
		c, err := customers.CreateTx(tx, sess, *req.NewCustomer)
		if err != nil {
			return nil, err
		}
		return &c.ID, nil
	}
	if req.CustomerID == nil || *req.CustomerID == 0 {
		return nil, nil
	}
	var n int64
	if err := tx.Model(&models.Customer{}).Where("id = ?", *req.CustomerID).Count(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperr.NotFound("customer %d not found", *req.CustomerID)
	}
	return req.CustomerID, nil
}
