package documents

import (
	"bytes"
	"testing"
	"time"

	"tradepos-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func renderer() *Renderer {
	return NewRenderer(Company{Name: "Trade POS", Address: "Cairo", Phone: "+20 100"}, "", "", "EGP")
}

func sampleSale(items int) models.Sale {
	cid := uint(1)
	phone := "0100"
	s := models.Sale{
		ID:             1,
		InvoiceNumber:  "INV-20261015-0001-1AB2",
		CustomerID:     &cid,
		Customer:       &models.Customer{ID: 1, Name: "Café Ahmed", Phone: &phone},
		Subtotal:       d("0"),
		DiscountAmount: d("5"),
		TaxRate:        d("14"),
		PaymentType:    models.PaymentMixed,
		CashAmount:     d("100"),
		CardAmount:     d("50"),
		Currency:       "EGP",
		Status:         models.SaleCompleted,
		CreatedAt:      time.Date(2026, 10, 15, 10, 30, 0, 0, time.UTC),
	}
	for i := 0; i < items; i++ {
		line := d("12.5").Mul(decimal.NewFromInt(int64(i + 1)))
		s.Items = append(s.Items, models.SaleItem{ProductName: "Item", Quantity: decimal.NewFromInt(int64(i + 1)), UnitPrice: d("12.5"), LineTotal: line})
		s.Subtotal = s.Subtotal.Add(line)
	}
	s.TaxAmount = s.Subtotal.Sub(s.DiscountAmount).Mul(d("0.14")).Round(2)
	s.Total = s.Subtotal.Sub(s.DiscountAmount).Add(s.TaxAmount)
	return s
}

func assertPDF(t *testing.T, out []byte, err error) {
	t.Helper()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "not a pdf")
	assert.Greater(t, len(out), 500)
}

func TestSaleDocuments(t *testing.T) {
	r := renderer()

	out, err := r.SaleInvoice(sampleSale(3))
	assertPDF(t, out, err)

	// enough lines to spill onto a second page
	out, err = r.SaleInvoice(sampleSale(40))
	assertPDF(t, out, err)

	out, err = r.ThermalReceipt(sampleSale(5))
	assertPDF(t, out, err)
}

func TestThermalReceiptGrowsWithLines(t *testing.T) {
	r := renderer()
	short, err := r.ThermalReceipt(sampleSale(1))
	require.NoError(t, err)
	long, err := r.ThermalReceipt(sampleSale(30))
	require.NoError(t, err)
	assert.Greater(t, len(long), len(short))
}

func TestFinanceDocuments(t *testing.T) {
	r := renderer()

	out, err := r.TransactionReceipt(models.Transaction{
		ID: 7, Type: models.TransactionExpense, Amount: d("1500"), Currency: "USD",
		Category: "rent", Date: time.Now(), Description: "October rent",
	})
	assertPDF(t, out, err)

	out, err = r.Quotation(models.Quotation{
		Number: "QUO-20261015-AB12", CustomerName: "Nile Hotels", ValidUntil: time.Now().AddDate(0, 0, 14),
		Subtotal: d("200"), TaxRate: d("14"), TaxAmount: d("28"), Total: d("228"), Currency: "EGP",
		Items: []models.QuotationItem{{Description: "Rice 25kg", Quantity: d("2"), UnitPrice: d("100"), LineTotal: d("200")}},
		Notes: "Delivery within 3 days",
	})
	assertPDF(t, out, err)

	expected := d("950")
	out, err = r.ShiftReport(models.Shift{ID: 3, Status: models.ShiftClosed, OpenedAt: time.Now(), OpeningCash: d("500"), ExpectedCash: &expected}, "Mai")
	assertPDF(t, out, err)

	rows := make([][]string, 0, 80)
	for i := 0; i < 80; i++ {
		rows = append(rows, []string{"category", "1,000.00", "0.00"})
	}
	out, err = r.FinancialReport(Report{
		Title:    "FINANCIAL REPORT",
		From:     time.Now().AddDate(0, -1, 0),
		To:       time.Now(),
		Summary:  [][2]string{{"Income", "1,000.00"}, {"Expense", "0.00"}},
		Sections: []Section{{Title: "By category", Columns: []string{"Category", "Income", "Expense"}, Rows: rows}, {Title: "Empty"}},
	})
	assertPDF(t, out, err)
}

func TestMissingFontAndLogoFallBack(t *testing.T) {
	r := NewRenderer(Company{Name: "X"}, "/nonexistent/font.ttf", "/nonexistent/logo.png", "EGP")
	assert.Empty(t, r.FontPath)
	assert.Empty(t, r.LogoPath)

	out, err := r.ThermalReceipt(sampleSale(2))
	assertPDF(t, out, err)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "1,234.50", money(d("1234.5")))
	assert.Equal(t, "3", qty(d("3.0000")))
}
