package audit

import (
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

var admin = auth.Session{UserID: 1, UserName: "Owner", Role: models.RoleAdmin}

func TestUndoCreateDeletesEntity(t *testing.T) {
	db := testdb.New(t)

	sup := models.Supplier{Name: "Nile Foods"}
	require.NoError(t, db.Create(&sup).Error)
	require.NoError(t, WriteLog(db, LogOptions{
		Session: admin, EntityType: "supplier", EntityID: sup.ID,
		Action: models.AuditActionCreate, Description: "supplier created", After: sup,
	}))

	var entry models.AuditLog
	require.NoError(t, db.Where("entity_type = ?", "supplier").First(&entry).Error)

	require.NoError(t, UndoLog(db, entry.ID, admin))

	var count int64
	db.Model(&models.Supplier{}).Count(&count)
	assert.Zero(t, count)

	require.NoError(t, db.First(&entry, entry.ID).Error)
	assert.True(t, entry.IsUndone)

	err := UndoLog(db, entry.ID, admin)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestUndoUpdateRestoresBefore(t *testing.T) {
	db := testdb.New(t)

	sup := models.Supplier{Name: "Old name", Phone: "123"}
	require.NoError(t, db.Create(&sup).Error)
	before := sup

	sup.Name = "New name"
	require.NoError(t, db.Save(&sup).Error)
	require.NoError(t, WriteLog(db, LogOptions{
		Session: admin, EntityType: "supplier", EntityID: sup.ID,
		Action: models.AuditActionUpdate, Before: before, After: sup,
	}))

	var entry models.AuditLog
	require.NoError(t, db.Last(&entry).Error)
	require.NoError(t, UndoLog(db, entry.ID, admin))

	var got models.Supplier
	require.NoError(t, db.First(&got, sup.ID).Error)
	assert.Equal(t, "Old name", got.Name)
}

func TestLedgerEntriesAreNotUndoable(t *testing.T) {
	db := testdb.New(t)
	require.NoError(t, WriteLog(db, LogOptions{
		Session: admin, EntityType: "sale", EntityID: 9, Action: models.AuditActionCreate,
	}))
	var entry models.AuditLog
	require.NoError(t, db.Last(&entry).Error)

	assert.ErrorIs(t, UndoLog(db, entry.ID, admin), apperr.ErrValidation)
	assert.False(t, IsUndoable("stock_movement"))
	assert.True(t, IsUndoable("product"))
}

func TestUndoCreateRefusedWhenHistoryExists(t *testing.T) {
	db := testdb.New(t)

	sup := models.Supplier{Name: "Delta Oils"}
	require.NoError(t, db.Create(&sup).Error)
	require.NoError(t, WriteLog(db, LogOptions{
		Session: admin, EntityType: "supplier", EntityID: sup.ID, Action: models.AuditActionCreate, After: sup,
	}))
	var entry models.AuditLog
	require.NoError(t, db.Last(&entry).Error)

	require.NoError(t, db.Create(&models.Transaction{
		Type: models.TransactionExpense, Amount: decimal.NewFromInt(90), Currency: "EGP",
		Category: "purchases", Date: time.Now(), SupplierID: &sup.ID,
	}).Error)

	assert.ErrorIs(t, UndoLog(db, entry.ID, admin), apperr.ErrConflict)

	var count int64
	db.Model(&models.Supplier{}).Count(&count)
	assert.Equal(t, int64(1), count)
	require.NoError(t, db.First(&entry, entry.ID).Error)
	assert.False(t, entry.IsUndone)
}

func TestUndoUpdateLeavesRunningTotals(t *testing.T) {
	db := testdb.New(t)

	c := models.Customer{Name: "Salma", Email: "s@example.com"}
	require.NoError(t, db.Create(&c).Error)
	before := c
	c.Name = "Salma Adel"
	require.NoError(t, db.Save(&c).Error)
	require.NoError(t, WriteLog(db, LogOptions{
		Session: admin, EntityType: "customer", EntityID: c.ID, Action: models.AuditActionUpdate, Before: before, After: c,
	}))
	var entry models.AuditLog
	require.NoError(t, db.Last(&entry).Error)

	// a purchase lands after the edit
	require.NoError(t, db.Model(&c).Updates(map[string]any{
		"loyalty_points": 12, "total_purchases": decimal.NewFromInt(120),
	}).Error)

	require.NoError(t, UndoLog(db, entry.ID, admin))

	var got models.Customer
	require.NoError(t, db.First(&got, c.ID).Error)
	assert.Equal(t, "Salma", got.Name)
	assert.Equal(t, int64(12), got.LoyaltyPoints)
	assert.True(t, decimal.NewFromInt(120).Equal(got.TotalPurchases))
}
