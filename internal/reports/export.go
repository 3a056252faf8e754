package reports

import (
	"bytes"
	"fmt"

	"tradepos-backend/internal/currency"
	"tradepos-backend/internal/documents"

	"github.com/xuri/excelize/v2"
)

// Document turns the report into printable sections.
func (f *Financial) Document() documents.Report {
	sys := f.SystemCurrency
	rep := documents.Report{
		Title: "FINANCIAL REPORT",
		From:  f.From,
		To:    f.To.AddDate(0, 0, -1),
		Summary: [][2]string{
			{"Income", currency.FormatCurrency(f.Income, sys)},
			{"Expense", currency.FormatCurrency(f.Expense, sys)},
			{"Net", currency.FormatCurrency(f.Net, sys)},
			{"Sales", fmt.Sprintf("%d / %s", f.SalesCount, currency.FormatCurrency(f.SalesTotal, sys))},
			{"Returns", fmt.Sprintf("%d / %s", f.ReturnsCount, currency.FormatCurrency(f.ReturnsTotal, sys))},
		},
	}
	if len(f.Unconverted) > 0 {
		rep.Summary = append(rep.Summary, [2]string{"No rate for", fmt.Sprint(f.Unconverted)})
	}

	byCur := documents.Section{Title: "By currency", Columns: []string{"Currency", "Income", "Expense", "Net"}}
	for _, c := range f.ByCurrency {
		byCur.Rows = append(byCur.Rows, []string{c.Currency,
			currency.FormatCurrency(c.Income, ""), currency.FormatCurrency(c.Expense, ""), currency.FormatCurrency(c.Net, "")})
	}

	byCat := documents.Section{Title: "By category", Columns: []string{"Category", "Type", "Amount", sys}}
	for _, c := range f.ByCategory {
		byCat.Rows = append(byCat.Rows, []string{c.Category, string(c.Type),
			currency.FormatCurrency(c.Amount, c.Currency), currency.FormatCurrency(c.Converted, "")})
	}

	topSec := documents.Section{Title: "Top products", Columns: []string{"Product", "Quantity", "Revenue " + sys}}
	for _, p := range f.TopProducts {
		topSec.Rows = append(topSec.Rows, []string{p.Name, p.Quantity.String(), currency.FormatCurrency(p.Revenue, "")})
	}

	rep.Sections = []documents.Section{byCur, byCat, topSec}
	return rep
}

// XLSX writes the report as a workbook with one sheet per section.
func (f *Financial) XLSX() ([]byte, error) {
	x := excelize.NewFile()
	defer x.Close()

	const summary = "Summary"
	if err := x.SetSheetName("Sheet1", summary); err != nil {
		return nil, err
	}
	bold, err := x.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	rows := [][]any{
		{"Period", f.From.Format("2006-01-02"), f.To.AddDate(0, 0, -1).Format("2006-01-02")},
		{"Currency", f.SystemCurrency},
		{"Income", f.Income.InexactFloat64()},
		{"Expense", f.Expense.InexactFloat64()},
		{"Net", f.Net.InexactFloat64()},
		{"Sales count", f.SalesCount},
		{"Sales total", f.SalesTotal.InexactFloat64()},
		{"Returns count", f.ReturnsCount},
		{"Returns total", f.ReturnsTotal.InexactFloat64()},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := x.SetSheetRow(summary, cell, &r); err != nil {
			return nil, err
		}
	}
	if err := x.SetColStyle(summary, "A", bold); err != nil {
		return nil, err
	}

	sheets := []struct {
		name   string
		header []any
		rows   [][]any
	}{
		{name: "By currency", header: []any{"Currency", "Income", "Expense", "Net"}},
		{name: "By category", header: []any{"Type", "Category", "Currency", "Amount", "Converted", "Count"}},
		{name: "Top products", header: []any{"Product ID", "Product", "Quantity", "Revenue"}},
	}
	for _, c := range f.ByCurrency {
		sheets[0].rows = append(sheets[0].rows, []any{c.Currency, c.Income.InexactFloat64(), c.Expense.InexactFloat64(), c.Net.InexactFloat64()})
	}
	for _, c := range f.ByCategory {
		sheets[1].rows = append(sheets[1].rows, []any{string(c.Type), c.Category, c.Currency, c.Amount.InexactFloat64(), c.Converted.InexactFloat64(), c.Count})
	}
	for _, p := range f.TopProducts {
		sheets[2].rows = append(sheets[2].rows, []any{p.ProductID, p.Name, p.Quantity.InexactFloat64(), p.Revenue.InexactFloat64()})
	}

	for _, s := range sheets {
		if _, err := x.NewSheet(s.name); err != nil {
			return nil, err
		}
		if err := x.SetSheetRow(s.name, "A1", &s.header); err != nil {
			return nil, err
		}
		if err := x.SetRowStyle(s.name, 1, 1, bold); err != nil {
			return nil, err
		}
		for i, r := range s.rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			if err := x.SetSheetRow(s.name, cell, &r); err != nil {
				return nil, err
			}
		}
	}

	buf, err := x.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}
