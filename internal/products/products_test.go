package products

import (
	"bytes"
	"errors"
	"testing"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"
	"tradepos-backend/internal/stock"
	"tradepos-backend/internal/testdb"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var keeper = auth.Session{UserID: 3, UserName: "Stock", Role: models.RoleStock}

func str(s string) *string { return &s }

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCreateValidates(t *testing.T) {
	db := testdb.New(t)

	_, err := Create(db, keeper, Input{Name: str("Rice")})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = Create(db, keeper, Input{Name: str("Rice"), SKU: str("R1"), SalePrice: dec("-1")})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = Create(db, keeper, Input{Name: str("Rice"), SKU: str("R1"), MinSaleQuantity: dec("0")})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	p, err := Create(db, keeper, Input{Name: str("Rice"), SKU: str("R1"), SalePrice: dec("30")})
	require.NoError(t, err)
	assert.Equal(t, "pcs", p.Unit)
	assert.True(t, decimal.NewFromInt(1).Equal(p.MinSaleQuantity))
	assert.True(t, p.Active)

	_, err = Create(db, keeper, Input{Name: str("Rice again"), SKU: str("R1")})
	assert.True(t, errors.Is(err, apperr.ErrConflict), "got %v", err)
}

func TestSupplierLinks(t *testing.T) {
	db := testdb.New(t)
	s1 := models.Supplier{Name: "One"}
	s2 := models.Supplier{Name: "Two"}
	require.NoError(t, db.Create(&s1).Error)
	require.NoError(t, db.Create(&s2).Error)

	p, err := Create(db, keeper, Input{Name: str("Tea"), SKU: str("T1"), SupplierIDs: &[]uint{s1.ID, s2.ID}})
	require.NoError(t, err)

	list, err := List(db, Filter{SupplierID: s2.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Suppliers, 2)

	_, err = Update(db, keeper, p.ID, Input{SupplierIDs: &[]uint{s1.ID}})
	require.NoError(t, err)
	list, err = List(db, Filter{SupplierID: s2.ID})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = Update(db, keeper, p.ID, Input{SupplierIDs: &[]uint{999}})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestDeleteRefusedAfterMovement(t *testing.T) {
	db := testdb.New(t)
	p, err := Create(db, keeper, Input{Name: str("Oil"), SKU: str("O1")})
	require.NoError(t, err)

	_, err = stock.AddStockMovement(db, stock.Entry{ProductID: p.ID, Type: models.MovementIn, Quantity: decimal.NewFromInt(3)})
	require.NoError(t, err)

	err = Delete(db, keeper, p.ID)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func catalog(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportXLSXUpsertsBySKU(t *testing.T) {
	db := testdb.New(t)

	header := []any{"SKU", "Name", "Category", "Unit", "PurchasePrice", "SalePrice", "MinSaleQuantity", "InitialStock"}
	first := catalog(t, [][]any{
		header,
		{"S-1", "Sugar 1kg", "Grocery", "pcs", "20", "25", "1", "100"},
		{"S-2", "Flour", "Grocery", "kg", "10", "12.5", "0.5", "40"},
		{},
		{"", "No sku", "", "", "", "", "", ""},
		{"S-3", "Salt", "Grocery", "pcs", "x", "3", "", ""},
	})

	res, err := ImportXLSX(db, keeper, first)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 5, res.Errors[0].Row)
	assert.Equal(t, "S-3", res.Errors[1].SKU)

	var flour models.Product
	require.NoError(t, db.Where("sku = ?", "S-2").First(&flour).Error)
	qty, err := stock.GetProductStock(db, flour.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(40).Equal(qty))

	second := catalog(t, [][]any{
		header,
		{"S-2", "Flour (fine)", "Grocery", "kg", "10", "13", "0.5", "40"},
	})
	res, err = ImportXLSX(db, keeper, second)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	require.NoError(t, db.First(&flour, flour.ID).Error)
	assert.Equal(t, "Flour (fine)", flour.Name)
	qty, err = stock.GetProductStock(db, flour.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(40).Equal(qty), "re-import must not add stock again")
}

func TestImportXLSXRequiresHeader(t *testing.T) {
	db := testdb.New(t)
	buf := catalog(t, [][]any{{"Code", "Title"}, {"A", "B"}})

	_, err := ImportXLSX(db, keeper, buf)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
