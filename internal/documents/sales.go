package documents

import (
	"bytes"
	"fmt"

	"tradepos-backend/internal/models"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
)

// SaleInvoice is the A5 invoice with a QR code of the number and total.
func (r *Renderer) SaleInvoice(s models.Sale) ([]byte, error) {
	d := r.a5()
	r.header(d, "INVOICE")

	d.field("Invoice no", s.InvoiceNumber)
	d.field("Date", stamp(s.CreatedAt))
	if s.Customer != nil {
		d.field("Customer", s.Customer.Name)
		if s.Customer.Phone != nil {
			d.field("Phone", *s.Customer.Phone)
		}
	}
	d.field("Payment", string(s.PaymentType))
	d.Ln(3)

	r.saleLines(d, s)

	d.Ln(2)
	d.total("Subtotal", money(s.Subtotal), false)
	if !s.DiscountAmount.IsZero() {
		d.total("Discount", "-"+money(s.DiscountAmount), false)
	}
	d.total(fmt.Sprintf("Tax (%s%%)", s.TaxRate.String()), money(s.TaxAmount), false)
	d.total("Total "+s.Currency, money(s.Total), true)
	if s.Status != models.SaleCompleted {
		d.total("Status", string(s.Status), false)
	}

	png, err := qrcode.Encode(fmt.Sprintf("%s|%s %s", s.InvoiceNumber, s.Total.StringFixed(2), s.Currency), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("invoice qr code: %w", err)
	}
	d.RegisterImageOptionsReader("qr", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
	y := d.GetY() + 4
	if y > 170 {
		d.AddPage()
		y = 20
	}
	d.ImageOptions("qr", 10, y, 28, 28, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	return d.bytes()
}

func (r *Renderer) saleLines(d *doc, s models.Sale) {
	rows := make([][]string, 0, len(s.Items))
	for _, it := range s.Items {
		rows = append(rows, []string{it.ProductName, qty(it.Quantity), money(it.UnitPrice), money(it.LineTotal)})
	}
	d.table([]column{
		{"Item", 62, "L"},
		{"Qty", 18, "R"},
		{"Price", 24, "R"},
		{"Total", 24, "R"},
	}, rows)
}

const (
	thermalWidth  = 80.0
	thermalMargin = 4.0
	thermalLine   = 4.0
)

// ThermalReceipt renders an 80 mm roll receipt. The page is as tall as its
// content.
func (r *Renderer) ThermalReceipt(s models.Sale) ([]byte, error) {
	lines := 14 + 2*len(s.Items)
	if !s.DiscountAmount.IsZero() {
		lines++
	}
	if s.CustomerID != nil {
		lines++
	}
	height := 2*thermalMargin + float64(lines)*thermalLine + 8

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: thermalWidth, Ht: height},
	})
	pdf.SetMargins(thermalMargin, thermalMargin, thermalMargin)
	pdf.SetAutoPageBreak(false, 0)
	d := r.newDoc(pdf)
	d.AddPage()

	w := thermalWidth - 2*thermalMargin
	d.font("B", 10)
	d.text(w, 5, r.Company.Name, "", 1, "C")
	d.font("", 7)
	if r.Company.Phone != "" {
		d.text(w, thermalLine, r.Company.Phone, "", 1, "C")
	}
	d.text(w, thermalLine, s.InvoiceNumber, "", 1, "C")
	d.text(w, thermalLine, stamp(s.CreatedAt), "", 1, "C")
	if s.Customer != nil {
		d.text(w, thermalLine, s.Customer.Name, "", 1, "C")
	}
	d.text(w, thermalLine, "--------------------------------------------", "", 1, "C")

	for _, it := range s.Items {
		d.text(w, thermalLine, it.ProductName, "", 1, "L")
		d.text(w*0.6, thermalLine, fmt.Sprintf("  %s x %s", qty(it.Quantity), money(it.UnitPrice)), "", 0, "L")
		d.text(w*0.4, thermalLine, money(it.LineTotal), "", 1, "R")
	}
	d.text(w, thermalLine, "--------------------------------------------", "", 1, "C")

	row := func(label, value string) {
		d.text(w*0.6, thermalLine, label, "", 0, "L")
		d.text(w*0.4, thermalLine, value, "", 1, "R")
	}
	row("Subtotal", money(s.Subtotal))
	if !s.DiscountAmount.IsZero() {
		row("Discount", "-"+money(s.DiscountAmount))
	}
	row("Tax", money(s.TaxAmount))
	d.font("B", 8)
	row("TOTAL "+s.Currency, money(s.Total))
	d.font("", 7)
	if !s.CashAmount.IsZero() {
		row("Cash", money(s.CashAmount))
	}
	if !s.CardAmount.IsZero() {
		row("Card", money(s.CardAmount))
	}
	row("Change", money(s.ChangeDue))
	d.Ln(2)
	d.text(w, thermalLine, "Thank you", "", 1, "C")

	return d.bytes()
}
