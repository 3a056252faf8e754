package documents

import (
	"fmt"
	"strings"
	"time"

	"tradepos-backend/internal/models"

	"github.com/shopspring/decimal"
)

func (r *Renderer) TransactionReceipt(t models.Transaction) ([]byte, error) {
	d := r.a5()
	title := "RECEIPT"
	if t.Type == models.TransactionExpense {
		title = "PAYMENT VOUCHER"
	}
	r.header(d, title)

	d.field("No", fmt.Sprintf("TRX-%06d", t.ID))
	d.field("Date", day(t.Date))
	d.field("Type", string(t.Type))
	d.field("Category", t.Category)
	if t.Description != "" {
		d.field("Description", t.Description)
	}
	if t.ReferenceType != "" {
		d.field("Reference", fmt.Sprintf("%s #%d", t.ReferenceType, t.ReferenceID))
	}
	d.Ln(4)
	d.font("B", 16)
	d.text(0, 10, money(t.Amount)+" "+t.Currency, "1", 1, "C")
	d.Ln(14)
	d.font("", 9)
	d.text(60, 5, "Signature", "T", 0, "C")

	return d.bytes()
}

func (r *Renderer) Quotation(q models.Quotation) ([]byte, error) {
	d := r.a5()
	r.header(d, "QUOTATION")

	d.field("Quotation no", q.Number)
	d.field("Date", day(q.CreatedAt))
	d.field("Valid until", day(q.ValidUntil))
	if q.CustomerName != "" {
		d.field("Customer", q.CustomerName)
	}
	d.Ln(3)

	rows := make([][]string, 0, len(q.Items))
	for _, it := range q.Items {
		rows = append(rows, []string{it.Description, qty(it.Quantity), money(it.UnitPrice), money(it.LineTotal)})
	}
	d.table([]column{
		{"Description", 62, "L"},
		{"Qty", 18, "R"},
		{"Price", 24, "R"},
		{"Total", 24, "R"},
	}, rows)

	d.Ln(2)
	d.total("Subtotal", money(q.Subtotal), false)
	if !q.Discount.IsZero() {
		d.total("Discount", "-"+money(q.Discount), false)
	}
	d.total(fmt.Sprintf("Tax (%s%%)", q.TaxRate.String()), money(q.TaxAmount), false)
	d.total("Total "+q.Currency, money(q.Total), true)

	if strings.TrimSpace(q.Notes) != "" {
		d.Ln(4)
		d.font("", 8)
		d.MultiCell(0, 4, d.tr(q.Notes), "", "L", false)
	}
	return d.bytes()
}

func (r *Renderer) ShiftReport(s models.Shift, cashier string) ([]byte, error) {
	d := r.a5()
	r.header(d, fmt.Sprintf("SHIFT #%d", s.ID))

	d.field("Cashier", cashier)
	d.field("Opened", stamp(s.OpenedAt))
	if s.ClosedAt != nil {
		d.field("Closed", stamp(*s.ClosedAt))
	}
	d.field("Status", string(s.Status))
	d.Ln(3)

	opt := func(v *decimal.Decimal) string {
		if v == nil {
			return "-"
		}
		return money(*v)
	}
	d.table([]column{{"", 80, "L"}, {r.Currency, 48, "R"}}, [][]string{
		{"Opening cash", money(s.OpeningCash)},
		{"Sales count", fmt.Sprint(s.SalesCount)},
		{"Total sales", money(s.TotalSales)},
		{"Cash sales", money(s.TotalCash)},
		{"Card sales", money(s.TotalCard)},
		{"Returns", money(s.TotalReturns)},
		{"Cash refunds", money(s.CashRefunds)},
		{"Expected cash", opt(s.ExpectedCash)},
		{"Counted cash", opt(s.ClosingCash)},
		{"Difference", opt(s.CashDifference)},
	})
	if s.Notes != "" {
		d.Ln(3)
		d.font("", 8)
		d.MultiCell(0, 4, d.tr(s.Notes), "", "L", false)
	}
	return d.bytes()
}

// Section is a titled table in a report.
type Section struct {
	Title   string
	Columns []string
	Rows    [][]string
}

type Report struct {
	Title    string
	From     time.Time
	To       time.Time
	Summary  [][2]string
	Sections []Section
}

// FinancialReport prints the summary block and then every section; long
// sections continue on new pages.
func (r *Renderer) FinancialReport(rep Report) ([]byte, error) {
	d := r.a5()
	r.header(d, rep.Title)
	d.field("Period", fmt.Sprintf("%s - %s", day(rep.From), day(rep.To)))
	d.field("Printed", stamp(time.Now()))
	d.Ln(2)

	for _, kv := range rep.Summary {
		d.total(kv[0], kv[1], false)
	}

	for _, sec := range rep.Sections {
		d.Ln(4)
		d.font("B", 10)
		d.text(0, 6, sec.Title, "", 1, "L")
		if len(sec.Rows) == 0 {
			d.font("", 8)
			d.text(0, 5, "no entries", "", 1, "L")
			continue
		}
		width := 128.0 / float64(len(sec.Columns))
		cols := make([]column, len(sec.Columns))
		for i, title := range sec.Columns {
			align := "R"
			if i == 0 {
				align = "L"
			}
			cols[i] = column{title: title, width: width, align: align}
		}
		d.table(cols, sec.Rows)
	}
	return d.bytes()
}
