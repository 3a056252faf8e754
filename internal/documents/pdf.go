// Package documents renders the printable PDFs: quotations, receipts,
// invoices, shift and financial reports.
package documents

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"tradepos-backend/internal/currency"

	"github.com/go-pdf/fpdf"
	"github.com/op/go-logging"
	"github.com/shopspring/decimal"
)

var log = logging.MustGetLogger("documents")

const coreFont = "Helvetica"

type Company struct {
	Name    string
	Address string
	Phone   string
}

// Renderer holds the branding shared by every document. FontPath may point
// to a UTF-8 TTF (for Arabic text); without it the core Helvetica is used.
type Renderer struct {
	Company  Company
	FontPath string
	LogoPath string
	Currency string
}

func NewRenderer(c Company, fontPath, logoPath, currency string) *Renderer {
	r := &Renderer{Company: c, Currency: currency}
	if fontPath != "" {
		if _, err := os.Stat(fontPath); err == nil {
			r.FontPath = fontPath
		} else {
			log.Warningf("PDF font %s not readable, using %s: %v", fontPath, coreFont, err)
		}
	}
	if logoPath != "" {
		if _, err := os.Stat(logoPath); err == nil {
			r.LogoPath = logoPath
		} else {
			log.Warningf("PDF logo %s not readable, printing without logo: %v", logoPath, err)
		}
	}
	return r
}

// doc wraps fpdf with the chosen font and a text translator for core fonts.
type doc struct {
	*fpdf.Fpdf
	family string
	tr     func(string) string
}

func (r *Renderer) newDoc(pdf *fpdf.Fpdf) *doc {
	d := &doc{Fpdf: pdf, family: coreFont, tr: func(s string) string { return s }}
	if r.FontPath != "" {
		pdf.AddUTF8Font("body", "", r.FontPath)
		pdf.AddUTF8Font("body", "B", r.FontPath)
		d.family = "body"
	} else {
		d.tr = pdf.UnicodeTranslatorFromDescriptor("")
	}
	return d
}

func (r *Renderer) a5() *doc {
	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AliasNbPages("")
	d := r.newDoc(pdf)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		d.font("", 7)
		pdf.CellFormat(0, 4, fmt.Sprintf("%d / {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	return d
}

func (d *doc) font(style string, size float64) {
	d.SetFont(d.family, style, size)
}

func (d *doc) text(w, h float64, s, border string, ln int, align string) {
	d.CellFormat(w, h, d.tr(s), border, ln, align, false, 0, "")
}

func (d *doc) fill(w, h float64, s, border string, ln int, align string) {
	d.CellFormat(w, h, d.tr(s), border, ln, align, true, 0, "")
}

func (d *doc) bytes() ([]byte, error) {
	if d.Err() {
		return nil, d.Error()
	}
	var buf bytes.Buffer
	if err := d.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// header prints logo, company block and the document title.
func (r *Renderer) header(d *doc, title string) {
	d.AddPage()
	if r.LogoPath != "" {
		d.ImageOptions(r.LogoPath, 10, 8, 0, 14, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
		d.SetX(30)
	}
	d.font("B", 12)
	d.text(0, 6, r.Company.Name, "", 1, "R")
	d.font("", 8)
	if r.Company.Address != "" {
		d.text(0, 4, r.Company.Address, "", 1, "R")
	}
	if r.Company.Phone != "" {
		d.text(0, 4, r.Company.Phone, "", 1, "R")
	}
	d.Ln(4)
	d.font("B", 14)
	d.text(0, 8, title, "B", 1, "L")
	d.Ln(3)
}

func (d *doc) field(label, value string) {
	d.font("B", 9)
	d.text(32, 5, label, "", 0, "L")
	d.font("", 9)
	d.text(0, 5, value, "", 1, "L")
}

type column struct {
	title string
	width float64
	align string
}

func (d *doc) table(cols []column, rows [][]string) {
	d.SetFillColor(230, 230, 230)
	d.font("B", 8)
	for _, c := range cols {
		d.fill(c.width, 6, c.title, "1", 0, c.align)
	}
	d.Ln(-1)
	d.font("", 8)
	for _, row := range rows {
		for i, c := range cols {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			d.text(c.width, 5.5, v, "1", 0, c.align)
		}
		d.Ln(-1)
	}
}

func (d *doc) total(label, value string, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	d.font(style, 9)
	d.text(98, 5.5, label, "", 0, "R")
	d.text(30, 5.5, value, "", 1, "R")
}

func money(v decimal.Decimal) string {
	return currency.FormatCurrency(v, "")
}

func qty(v decimal.Decimal) string {
	return v.Round(3).String()
}

func day(t time.Time) string {
	return t.Format("2006-01-02")
}

func stamp(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}
