package transactions

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

func input(typ models.TransactionType, amount, cur, cat, date string) Input {
	a := decimal.RequireFromString(amount)
	return Input{Type: &typ, Amount: &a, Currency: &cur, Category: &cat, Date: &date}
}

func TestCreateValidates(t *testing.T) {
	svc := &Service{DB: testdb.New(t), Hub: NewHub()}

	_, err := svc.Create(admin, Input{})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.Create(admin, input("transfer", "10", "EGP", "rent", "2026-10-01"))
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.Create(admin, input(models.TransactionExpense, "0", "EGP", "rent", "2026-10-01"))
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.Create(admin, input(models.TransactionExpense, "10", "EGYPT", "rent", "2026-10-01"))
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.Create(admin, input(models.TransactionIncome, "10", "EGP", models.CategorySales, "2026-10-01"))
	assert.True(t, errors.Is(err, apperr.ErrValidation), "sales category is reserved")

	in := input(models.TransactionExpense, "10", "egp", "rent", "2026-10-01")
	missing := uint(42)
	in.SupplierID = &missing
	_, err = svc.Create(admin, in)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	tr, err := svc.Create(admin, input(models.TransactionExpense, "10", "egp", "rent", "2026-10-01"))
	require.NoError(t, err)
	assert.Equal(t, "EGP", tr.Currency)
}

func TestChangesReachSubscribers(t *testing.T) {
	hub := NewHub()
	svc := &Service{DB: testdb.New(t), Hub: hub}

	events, cancel := hub.Subscribe()
	defer cancel()
	assert.Equal(t, 1, hub.Subscribers())

	tr, err := svc.Create(admin, input(models.TransactionIncome, "250", "USD", "consulting", "2026-10-02"))
	require.NoError(t, err)
	desc := "October"
	_, err = svc.Update(admin, tr.ID, Input{Description: &desc})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(admin, tr.ID))

	var kinds []EventKind
	for i := 0; i < 3; i++ {
		select {
		case ev := <-events:
			kinds = append(kinds, ev.Kind)
			assert.Equal(t, tr.ID, ev.Transaction.ID)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
	assert.Equal(t, []EventKind{EventCreated, EventUpdated, EventDeleted}, kinds)

	cancel()
	assert.Equal(t, 0, hub.Subscribers())
	_, open := <-events
	assert.False(t, open)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(Event{Kind: EventCreated})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestPOSTransactionsAreNotEditable(t *testing.T) {
	db := testdb.New(t)
	svc := &Service{DB: db, Hub: NewHub()}

	sale := models.Transaction{Type: models.TransactionIncome, Amount: decimal.NewFromInt(100), Currency: "EGP",
		Category: models.CategorySales, Date: time.Now(), ReferenceType: "sale", ReferenceID: 1}
	require.NoError(t, db.Create(&sale).Error)

	err := svc.Delete(admin, sale.ID)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestListFiltersAndDeleteUndo(t *testing.T) {
	db := testdb.New(t)
	svc := &Service{DB: db, Hub: NewHub()}

	for _, in := range []Input{
		input(models.TransactionExpense, "100", "EGP", "rent", "2026-09-30"),
		input(models.TransactionExpense, "50", "EGP", "utilities", "2026-10-01"),
		input(models.TransactionIncome, "20", "USD", "consulting", "2026-10-05"),
	} {
		_, err := svc.Create(admin, in)
		require.NoError(t, err)
	}

	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	list, total, err := List(db, Filter{From: &from})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)

	list, _, err = List(db, Filter{Type: models.TransactionExpense, Currency: "egp"})
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, svc.Delete(admin, list[0].ID))
	var entry models.AuditLog
	require.NoError(t, db.Where("entity_type = ? AND action = ?", "transaction", models.AuditActionDelete).First(&entry).Error)
	require.NoError(t, audit.UndoLog(db, entry.ID, admin))

	_, total, err = List(db, Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}
