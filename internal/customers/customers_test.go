package customers

import (
	"errors"
	"testing"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"
	"tradepos-backend/internal/testdb"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cashier = auth.Session{UserID: 2, UserName: "Cashier", Role: models.RoleCashier}

func str(s string) *string { return &s }

func TestCalculateLoyaltyPoints(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"0", 0},
		{"-50", 0},
		{"9.99", 0},
		{"10", 1},
		{"99", 9},
		{"100", 10},
		{"1234.56", 123},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CalculateLoyaltyPoints(decimal.RequireFromString(tt.amount)), tt.amount)
	}
}

func TestCreateNormalizesPhoneAndRejectsDuplicates(t *testing.T) {
	db := testdb.New(t)

	c, err := Create(db, cashier, Input{Name: str("Omar"), Phone: str("010 1234-5678")})
	require.NoError(t, err)
	require.NotNil(t, c.Phone)
	assert.Equal(t, "01012345678", *c.Phone)

	_, err = Create(db, cashier, Input{Name: str("Other Omar"), Phone: str("01012345678")})
	assert.True(t, errors.Is(err, apperr.ErrConflict), "got %v", err)

	// customers without a phone do not collide
	_, err = Create(db, cashier, Input{Name: str("Walk-in A"), Phone: str(" ")})
	require.NoError(t, err)
	_, err = Create(db, cashier, Input{Name: str("Walk-in B")})
	require.NoError(t, err)
}

func TestSearchByNameOrPhone(t *testing.T) {
	db := testdb.New(t)
	for _, in := range []Input{
		{Name: str("Mona Hassan"), Phone: str("0111")},
		{Name: str("Karim Adel"), Phone: str("0122")},
		{Name: str("Hassan Ali"), Phone: str("0133")},
	} {
		_, err := Create(db, cashier, in)
		require.NoError(t, err)
	}

	list, err := Search(db, "hassan", 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = Search(db, "0122", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Karim Adel", list[0].Name)
}

func TestPurchaseAndReversal(t *testing.T) {
	db := testdb.New(t)
	c, err := Create(db, cashier, Input{Name: str("Salma")})
	require.NoError(t, err)

	now := time.Now()
	points, err := RecordPurchase(db, c.ID, 1, decimal.RequireFromString("255.50"), now)
	require.NoError(t, err)
	assert.Equal(t, int64(25), points)

	var got models.Customer
	require.NoError(t, db.First(&got, c.ID).Error)
	assert.Equal(t, int64(25), got.LoyaltyPoints)
	assert.True(t, decimal.RequireFromString("255.5").Equal(got.TotalPurchases))
	require.NotNil(t, got.LastPurchaseAt)

	// refunding more than was bought stops at zero
	require.NoError(t, ReversePurchase(db, c.ID, 1, decimal.RequireFromString("300"), now))
	require.NoError(t, db.First(&got, c.ID).Error)
	assert.Equal(t, int64(0), got.LoyaltyPoints)
	assert.True(t, got.TotalPurchases.IsZero())

	h, err := GetHistory(db, c.ID)
	require.NoError(t, err)
	assert.Len(t, h.Purchases, 2)
}

func TestReversalInPiecesReturnsAllPoints(t *testing.T) {
	db := testdb.New(t)
	c, err := Create(db, cashier, Input{Name: str("Karim")})
	require.NoError(t, err)

	now := time.Now()
	points, err := RecordPurchase(db, c.ID, 7, decimal.RequireFromString("136.80"), now)
	require.NoError(t, err)
	require.Equal(t, int64(13), points)

	// another sale must not be touched by refunds on sale 7
	_, err = RecordPurchase(db, c.ID, 8, decimal.RequireFromString("50"), now)
	require.NoError(t, err)

	want := []int64{14, 9, 5}
	for i, left := range want {
		require.NoError(t, ReversePurchase(db, c.ID, 7, decimal.RequireFromString("45.60"), now))
		var got models.Customer
		require.NoError(t, db.First(&got, c.ID).Error)
		assert.Equal(t, left, got.LoyaltyPoints, "after refund %d", i+1)
	}
}

func TestDeleteRefusedWithSales(t *testing.T) {
	db := testdb.New(t)
	c, err := Create(db, cashier, Input{Name: str("Youssef")})
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Sale{
		InvoiceNumber: "INV-20260101-0001-0000", ShiftID: 1, CustomerID: &c.ID, CashierID: 2,
		Subtotal: decimal.NewFromInt(10), Total: decimal.NewFromInt(10),
		PaymentType: models.PaymentCash, Currency: "EGP", Status: models.SaleCompleted,
	}).Error)

	err = Delete(db, cashier, c.ID)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}
