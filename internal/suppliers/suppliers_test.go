package suppliers

import (
	"errors"
	"testing"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/audit"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"
	"tradepos-backend/internal/testdb"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = auth.Session{UserID: 1, UserName: "Admin", Role: models.RoleAdmin}

func str(s string) *string { return &s }

func TestCreateRequiresName(t *testing.T) {
	db := testdb.New(t)

	_, err := Create(db, admin, Input{Phone: str("123")})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = Create(db, admin, Input{Name: str("   ")})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestUpdateIsAuditedAndUndoable(t *testing.T) {
	db := testdb.New(t)

	s, err := Create(db, admin, Input{Name: str(" Nile Trading "), Phone: str("0100")})
	require.NoError(t, err)
	assert.Equal(t, "Nile Trading", s.Name)

	_, err = Update(db, admin, s.ID, Input{Name: str("Nile Trading Co")})
	require.NoError(t, err)

	var entry models.AuditLog
	require.NoError(t, db.Where("entity_type = ? AND action = ?", "supplier", models.AuditActionUpdate).First(&entry).Error)
	require.NoError(t, audit.UndoLog(db, entry.ID, admin))

	var got models.Supplier
	require.NoError(t, db.First(&got, s.ID).Error)
	assert.Equal(t, "Nile Trading", got.Name)
	assert.Equal(t, "0100", got.Phone)
}

func TestDeleteRefusedWithTransactions(t *testing.T) {
	db := testdb.New(t)
	s, err := Create(db, admin, Input{Name: str("Delta Supply")})
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Transaction{
		Type: models.TransactionExpense, Amount: decimal.NewFromInt(100), Currency: "EGP",
		Category: "purchases", Date: time.Now(), SupplierID: &s.ID,
	}).Error)

	err = Delete(db, admin, s.ID)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	err = Delete(db, admin, 999)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestStatementTotalsPerCurrency(t *testing.T) {
	db := testdb.New(t)
	s, err := Create(db, admin, Input{Name: str("Gulf Imports")})
	require.NoError(t, err)

	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rows := []models.Transaction{
		{Type: models.TransactionExpense, Amount: decimal.NewFromInt(1000), Currency: "EGP", Category: "purchases", Date: day},
		{Type: models.TransactionExpense, Amount: decimal.NewFromInt(250), Currency: "EGP", Category: "purchases", Date: day.AddDate(0, 0, 1)},
		{Type: models.TransactionIncome, Amount: decimal.NewFromInt(100), Currency: "EGP", Category: "refund", Date: day.AddDate(0, 0, 2)},
		{Type: models.TransactionExpense, Amount: decimal.NewFromInt(40), Currency: "USD", Category: "purchases", Date: day},
		{Type: models.TransactionExpense, Amount: decimal.NewFromInt(5), Currency: "USD", Category: "purchases", Date: day.AddDate(0, 1, 0)},
	}
	for i := range rows {
		rows[i].SupplierID = &s.ID
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	to := day.AddDate(0, 0, 20)
	st, err := GetStatement(db, s.ID, nil, &to)
	require.NoError(t, err)
	require.Len(t, st.Transactions, 4)
	require.Len(t, st.Totals, 2)

	egp := st.Totals[0]
	assert.Equal(t, "EGP", egp.Currency)
	assert.True(t, decimal.NewFromInt(1250).Equal(egp.Paid))
	assert.True(t, decimal.NewFromInt(100).Equal(egp.Received))
	assert.True(t, decimal.NewFromInt(-1150).Equal(egp.Net))

	usd := st.Totals[1]
	assert.True(t, decimal.NewFromInt(40).Equal(usd.Paid))
}
