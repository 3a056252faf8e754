package stock

import (
	"math/rand"
	"testing"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/models"
	"tradepos-backend/internal/testdb"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedProduct(t *testing.T, db *gorm.DB, sku string) models.Product {
	t.Helper()
	p := models.Product{Name: "Product " + sku, SKU: sku, Unit: "pcs", SalePrice: d("10"), MinSaleQuantity: d("1"), Active: true}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestFoldIsOrderIndependent(t *testing.T) {
	movements := []models.StockMovement{
		{Type: models.MovementIn, Quantity: d("10")},
		{Type: models.MovementOut, Quantity: d("3.5")},
		{Type: models.MovementIn, Quantity: d("0.25")},
		{Type: models.MovementOut, Quantity: d("1")},
		{Type: models.MovementIn, Quantity: d("7")},
	}
	want := d("12.75")

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.StockMovement(nil), movements...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.True(t, want.Equal(Fold(shuffled)), "got %s", Fold(shuffled))
	}

	assert.True(t, Fold(nil).IsZero())
}

func TestAddStockMovementKeepsLedgerAndBalanceInStep(t *testing.T) {
	db := testdb.New(t)
	p := seedProduct(t, db, "A1")

	steps := []Entry{
		{ProductID: p.ID, Type: models.MovementIn, Quantity: d("20")},
		{ProductID: p.ID, Type: models.MovementOut, Quantity: d("5")},
		{ProductID: p.ID, Type: models.MovementIn, Quantity: d("2.5")},
		{ProductID: p.ID, Type: models.MovementOut, Quantity: d("7.5")},
	}
	for _, e := range steps {
		_, err := AddStockMovement(db, e)
		require.NoError(t, err)
	}

	ledger, err := GetProductStock(db, p.ID)
	require.NoError(t, err)
	available, err := AvailableStock(db, p.ID)
	require.NoError(t, err)

	assert.True(t, d("10").Equal(ledger), "ledger %s", ledger)
	assert.True(t, ledger.Equal(available), "available %s", available)
}

func TestOutMovementCannotOversell(t *testing.T) {
	db := testdb.New(t)
	p := seedProduct(t, db, "B1")

	_, err := AddStockMovement(db, Entry{ProductID: p.ID, Type: models.MovementIn, Quantity: d("3")})
	require.NoError(t, err)

	_, err = AddStockMovement(db, Entry{ProductID: p.ID, Type: models.MovementOut, Quantity: d("4")})
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)

	var count int64
	db.Model(&models.StockMovement{}).Where("product_id = ?", p.ID).Count(&count)
	assert.Equal(t, int64(1), count, "rejected movement must not reach the ledger")

	_, err = AddStockMovement(db, Entry{ProductID: p.ID, Type: models.MovementOut, Quantity: d("4"), AllowNegative: true})
	require.NoError(t, err)
	ledger, _ := GetProductStock(db, p.ID)
	assert.True(t, d("-1").Equal(ledger))
}

func TestAddStockMovementValidation(t *testing.T) {
	db := testdb.New(t)
	p := seedProduct(t, db, "C1")

	tests := []struct {
		name string
		e    Entry
		kind error
	}{
		{"zero quantity", Entry{ProductID: p.ID, Type: models.MovementIn, Quantity: decimal.Zero}, apperr.ErrValidation},
		{"negative quantity", Entry{ProductID: p.ID, Type: models.MovementIn, Quantity: d("-1")}, apperr.ErrValidation},
		{"bad type", Entry{ProductID: p.ID, Type: "sideways", Quantity: d("1")}, apperr.ErrValidation},
		{"missing product", Entry{ProductID: 999, Type: models.MovementIn, Quantity: d("1")}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AddStockMovement(db, tt.e)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestReconcileRepairsDrift(t *testing.T) {
	db := testdb.New(t)
	p := seedProduct(t, db, "D1")
	_, err := AddStockMovement(db, Entry{ProductID: p.ID, Type: models.MovementIn, Quantity: d("8")})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.ProductStock{}).Where("product_id = ?", p.ID).Update("quantity", d("5")).Error)

	res, err := Reconcile(db, p.ID)
	require.NoError(t, err)
	assert.True(t, res.Repaired)
	assert.True(t, d("-3").Equal(res.Drift))

	available, _ := AvailableStock(db, p.ID)
	assert.True(t, d("8").Equal(available))

	res, err = Reconcile(db, p.ID)
	require.NoError(t, err)
	assert.False(t, res.Repaired)
}

func TestBalancesFlagsLowStock(t *testing.T) {
	db := testdb.New(t)
	low := seedProduct(t, db, "L1")
	require.NoError(t, db.Model(&low).Update("min_stock_level", d("5")).Error)
	ok := seedProduct(t, db, "L2")

	_, err := AddStockMovement(db, Entry{ProductID: low.ID, Type: models.MovementIn, Quantity: d("2")})
	require.NoError(t, err)
	_, err = AddStockMovement(db, Entry{ProductID: ok.ID, Type: models.MovementIn, Quantity: d("2")})
	require.NoError(t, err)

	all, err := Balances(db, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyLow, err := Balances(db, true)
	require.NoError(t, err)
	require.Len(t, onlyLow, 1)
	assert.Equal(t, low.ID, onlyLow[0].ProductID)
}
