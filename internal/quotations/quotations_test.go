package quotations

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/documents"
	"tradepos-backend/internal/models"
	"tradepos-backend/internal/testdb"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	sess = auth.Session{UserID: 1, UserName: "Admin", Role: models.RoleAdmin}
	def  = Defaults{TaxRate: d("14"), Currency: "EGP"}
)

func TestNewNumber(t *testing.T) {
	n := NewNumber(time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^QUO-20260502-[0-9A-F]{4}$`), n)
}

func TestCreatePricesItems(t *testing.T) {
	db := testdb.New(t)
	p := models.Product{Name: "Tea 500g", SKU: "TEA", SalePrice: d("80"), Active: true}
	require.NoError(t, db.Create(&p).Error)
	c := models.Customer{Name: "Nile Traders"}
	require.NoError(t, db.Create(&c).Error)

	fee := d("40")
	q, err := Create(db, sess, def, Input{
		CustomerID: &c.ID,
		Items: []ItemInput{
			{ProductID: &p.ID, Quantity: d("5")},
			{Description: "Delivery", Quantity: d("1"), UnitPrice: &fee},
		},
		DiscountAmount: d("40"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Nile Traders", q.CustomerName)
	assert.Equal(t, models.QuotationDraft, q.Status)
	require.Len(t, q.Items, 2)
	assert.Equal(t, "Tea 500g", q.Items[0].Description)
	assert.True(t, d("400").Equal(q.Items[0].LineTotal))
	// 440 - 40 = 400, + 14% = 456
	assert.True(t, d("440").Equal(q.Subtotal))
	assert.True(t, d("456").Equal(q.Total))
	assert.True(t, q.ValidUntil.After(time.Now().AddDate(0, 0, 13)))

	got, err := Get(db, q.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)

	var movements int64
	require.NoError(t, db.Model(&models.StockMovement{}).Count(&movements).Error)
	assert.Zero(t, movements)
}

func TestCreateValidation(t *testing.T) {
	db := testdb.New(t)

	_, err := Create(db, sess, def, Input{})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = Create(db, sess, def, Input{Items: []ItemInput{{Description: "Setup", Quantity: d("1")}}})
	assert.True(t, errors.Is(err, apperr.ErrValidation), "free text without price: %v", err)

	missing := uint(404)
	_, err = Create(db, sess, def, Input{Items: []ItemInput{{ProductID: &missing, Quantity: d("1")}}})
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "got %v", err)

	price := d("10")
	_, err = Create(db, sess, def, Input{Currency: "EURO", Items: []ItemInput{{Description: "x", Quantity: d("1"), UnitPrice: &price}}})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestStatusTransitions(t *testing.T) {
	db := testdb.New(t)
	price := d("100")
	q, err := Create(db, sess, def, Input{CustomerName: "Walk-in", Items: []ItemInput{{Description: "Pallet", Quantity: d("2"), UnitPrice: &price}}})
	require.NoError(t, err)

	q, err = UpdateStatus(db, sess, q.ID, models.QuotationSent)
	require.NoError(t, err)
	assert.Equal(t, models.QuotationSent, q.Status)

	_, err = UpdateStatus(db, sess, q.ID, models.QuotationDraft)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	q, err = UpdateStatus(db, sess, q.ID, models.QuotationAccepted)
	require.NoError(t, err)
	_, err = UpdateStatus(db, sess, q.ID, models.QuotationExpired)
	assert.True(t, errors.Is(err, apperr.ErrConflict), "accepted is final")

	assert.True(t, CanMove(models.QuotationDraft, models.QuotationExpired))
	assert.False(t, CanMove(models.QuotationExpired, models.QuotationSent))
}

func TestListExpiresOverdue(t *testing.T) {
	db := testdb.New(t)
	price := d("10")
	q, err := Create(db, sess, def, Input{Items: []ItemInput{{Description: "Sample", Quantity: d("1"), UnitPrice: &price}}})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Quotation{}).Where("id = ?", q.ID).
		Update("valid_until", time.Now().AddDate(0, 0, -1)).Error)

	list, err := List(db, Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.QuotationExpired, list[0].Status)

	_, err = UpdateStatus(db, sess, q.ID, models.QuotationAccepted)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestQuotationPDF(t *testing.T) {
	db := testdb.New(t)
	price := d("12.5")
	q, err := Create(db, sess, def, Input{CustomerName: "Delta Market", Notes: "Prices exclude delivery",
		Items: []ItemInput{{Description: "Flour 25kg", Quantity: d("4"), UnitPrice: &price}}})
	require.NoError(t, err)

	r := documents.NewRenderer(documents.Company{Name: "Trade POS"}, "", "", "EGP")
	pdf, err := r.Quotation(*q)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}
