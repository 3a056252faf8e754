package products

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"
	"tradepos-backend/internal/stock"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ImportColumns is the expected header row of a catalog sheet.
var ImportColumns = []string{"SKU", "Name", "Category", "Unit", "PurchasePrice", "SalePrice", "MinSaleQuantity", "InitialStock"}

type RowError struct {
	Row   int    `json:"row"` // 1-based sheet row
	SKU   string `json:"sku"`
	Error string `json:"error"`
}

type ImportResult struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Skipped int        `json:"skipped"`
	Errors  []RowError `json:"errors"`
}

type importRow struct {
	SKU             string
	Name            string
	Category        string
	Unit            string
	PurchasePrice   decimal.Decimal
	SalePrice       decimal.Decimal
	MinSaleQuantity decimal.Decimal
	InitialStock    decimal.Decimal
}

// ImportXLSX reads the first sheet and upserts products by SKU. Initial stock
// is booked as an "in" movement for new products only, so importing the same
// file twice does not double the stock. Bad rows are reported and skipped.
func ImportXLSX(db *gorm.DB, sess auth.Session, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Validation("excel file could not be read: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Validation("excel file has no sheet")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Validation("sheet could not be read: %v", err)
	}
	if len(rows) == 0 {
		return nil, apperr.Validation("excel file is empty")
	}

	cols, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	res := &ImportResult{Errors: []RowError{}}
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			res.Skipped++
			continue
		}
		parsed, err := parseRow(row, cols)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: i + 1, SKU: cell(row, cols, "SKU"), Error: err.Error()})
			continue
		}

		var created bool
		err = db.Transaction(func(tx *gorm.DB) error {
			var err error
			created, err = upsertRow(tx, sess, parsed)
			return err
		})
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: i + 1, SKU: parsed.SKU, Error: err.Error()})
			continue
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	log.Infof("catalog import: %d created, %d updated, %d errors", res.Created, res.Updated, len(res.Errors))
	return res, nil
}

func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", ""))] = i
	}
	out := make(map[string]int, len(ImportColumns))
	for _, col := range ImportColumns {
		i, ok := idx[strings.ToLower(col)]
		if !ok {
			if col == "InitialStock" || col == "Category" || col == "MinSaleQuantity" || col == "PurchasePrice" {
				continue
			}
			return nil, apperr.Validation("missing column %s (expected %s)", col, strings.Join(ImportColumns, ", "))
		}
		out[col] = i
	}
	return out, nil
}

func cell(row []string, cols map[string]int, col string) string {
	i, ok := cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseRow(row []string, cols map[string]int) (importRow, error) {
	r := importRow{
		SKU:      cell(row, cols, "SKU"),
		Name:     cell(row, cols, "Name"),
		Category: cell(row, cols, "Category"),
		Unit:     cell(row, cols, "Unit"),
	}
	if r.SKU == "" || r.Name == "" {
		return r, fmt.Errorf("sku and name are required")
	}
	if r.Unit == "" {
		r.Unit = "pcs"
	}

	num := func(col string, def decimal.Decimal) (decimal.Decimal, error) {
		v := strings.ReplaceAll(cell(row, cols, col), ",", "")
		if v == "" {
			return def, nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return def, fmt.Errorf("%s %q is not a number", col, v)
		}
		if d.IsNegative() {
			return def, fmt.Errorf("%s cannot be negative", col)
		}
		return d, nil
	}

	var err error
	if r.PurchasePrice, err = num("PurchasePrice", decimal.Zero); err != nil {
		return r, err
	}
	if r.SalePrice, err = num("SalePrice", decimal.Zero); err != nil {
		return r, err
	}
	if r.MinSaleQuantity, err = num("MinSaleQuantity", decimal.NewFromInt(1)); err != nil {
		return r, err
	}
	if !r.MinSaleQuantity.IsPositive() {
		r.MinSaleQuantity = decimal.NewFromInt(1)
	}
	if r.InitialStock, err = num("InitialStock", decimal.Zero); err != nil {
		return r, err
	}
	return r, nil
}

func upsertRow(tx *gorm.DB, sess auth.Session, r importRow) (bool, error) {
	in := Input{
		Name:            &r.Name,
		SKU:             &r.SKU,
		Category:        &r.Category,
		Unit:            &r.Unit,
		PurchasePrice:   &r.PurchasePrice,
		SalePrice:       &r.SalePrice,
		MinSaleQuantity: &r.MinSaleQuantity,
	}

	var existing models.Product
	err := tx.Where("sku = ?", r.SKU).Take(&existing).Error
	if err == nil {
		_, err := UpdateTx(tx, sess, existing.ID, in)
		return false, err
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	p, err := CreateTx(tx, sess, in)
	if err != nil {
		return false, err
	}
	if r.InitialStock.IsPositive() {
		_, err = stock.AddStockMovement(tx, stock.Entry{
			ProductID:     p.ID,
			Type:          models.MovementIn,
			Quantity:      r.InitialStock,
			Date:          time.Now(),
			Reason:        "initial stock (catalog import)",
			ReferenceType: "import",
			CreatedBy:     sess.UserID,
		})
		if err != nil {
			return false, err
		}
	}
	return true, nil
}
