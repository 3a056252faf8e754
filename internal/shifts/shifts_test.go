package shifts

import (
	"errors"
	"testing"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"
	"tradepos-backend/internal/testdb"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	mai   = auth.Session{UserID: 10, UserName: "Mai", Role: models.RoleCashier}
	omar  = auth.Session{UserID: 11, UserName: "Omar", Role: models.RoleCashier}
	admin = auth.Session{UserID: 1, UserName: "Admin", Role: models.RoleAdmin}
)

func TestOneOpenShiftPerCashier(t *testing.T) {
	db := testdb.New(t)

	_, err := OpenShiftFor(db, mai.UserID)
	assert.True(t, errors.Is(err, apperr.ErrNoOpenShift))

	_, err = Open(db, mai, d("500"), "")
	require.NoError(t, err)
	_, err = Open(db, mai, d("100"), "")
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	// another cashier is independent
	_, err = Open(db, omar, d("0"), "")
	require.NoError(t, err)

	_, err = Open(db, admin, d("-1"), "")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestCloseComputesExpectedCash(t *testing.T) {
	db := testdb.New(t)
	s, err := Open(db, mai, d("500"), "morning")
	require.NoError(t, err)

	// two sales: 300 cash, 200 card; one cash refund of 50 and a card refund of 20
	require.NoError(t, AddSale(db, s.ID, d("300"), d("300"), d("0")))
	require.NoError(t, AddSale(db, s.ID, d("200"), d("0"), d("200")))
	require.NoError(t, AddReturn(db, s.ID, d("50"), models.PaymentCash))
	require.NoError(t, AddReturn(db, s.ID, d("20"), models.PaymentCard))

	_, err = Close(db, omar, s.ID, d("740"), "")
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	closed, err := Close(db, mai, s.ID, d("740"), "short by 10")
	require.NoError(t, err)
	require.NotNil(t, closed.ExpectedCash)
	assert.True(t, d("750").Equal(*closed.ExpectedCash), "500 + 300 - 50")
	assert.True(t, d("-10").Equal(*closed.CashDifference))
	assert.Equal(t, "morning\nshort by 10", closed.Notes)

	var stored models.Shift
	require.NoError(t, db.First(&stored, s.ID).Error)
	assert.Equal(t, models.ShiftClosed, stored.Status)
	assert.Equal(t, 2, stored.SalesCount)
	assert.True(t, d("500").Equal(stored.TotalSales))
	assert.True(t, d("70").Equal(stored.TotalReturns))
	assert.True(t, d("750").Equal(*stored.ExpectedCash))

	_, err = Close(db, mai, s.ID, d("740"), "")
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	err = AddSale(db, s.ID, d("1"), d("1"), d("0"))
	assert.True(t, errors.Is(err, apperr.ErrNoOpenShift), "closed shifts take no sales")

	_, err = Open(db, mai, d("750"), "")
	require.NoError(t, err, "a new shift can be opened after close")
}

func TestExpectedCash(t *testing.T) {
	s := models.Shift{OpeningCash: d("100"), TotalCash: d("40.5"), TotalCard: d("999"), CashRefunds: d("0.5")}
	assert.True(t, d("140").Equal(ExpectedCash(s)))
}
