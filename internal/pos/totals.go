package pos

import (
	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type PricedLine struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

func (l PricedLine) Total() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice).Round(2)
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Taxable  decimal.Decimal `json:"taxable"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// CalculateTotals prices a cart. The discount is either a fixed amount or a
// percentage of the subtotal, never both; tax applies after the discount.
func CalculateTotals(lines []PricedLine, discountAmount, discountPercent, taxRate decimal.Decimal) (Totals, error) {
	t := Totals{TaxRate: taxRate}
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.Total())
	}

	switch {
	case discountAmount.IsNegative() || discountPercent.IsNegative():
		return t, apperr.Validation("discount cannot be negative")
	case discountAmount.IsPositive() && discountPercent.IsPositive():
		return t, apperr.Validation("give a discount amount or a percentage, not both")
	case discountPercent.GreaterThan(hundred):
		return t, apperr.Validation("discount percentage cannot exceed 100")
	case discountPercent.IsPositive():
		t.Discount = t.Subtotal.Mul(discountPercent).Div(hundred).Round(2)
	default:
		t.Discount = discountAmount.Round(2)
	}
	if t.Discount.GreaterThan(t.Subtotal) {
		return t, apperr.Validation("discount %s is more than the subtotal %s", t.Discount.StringFixed(2), t.Subtotal.StringFixed(2))
	}

	if taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
		return t, apperr.Validation("tax rate must be between 0 and 100")
	}
	t.Taxable = t.Subtotal.Sub(t.Discount)
	t.Tax = t.Taxable.Mul(taxRate).Div(hundred).Round(2)
	t.Total = t.Taxable.Add(t.Tax)
	return t, nil
}

type Split struct {
	Type   models.PaymentType `json:"type"`
	CashIn decimal.Decimal    `json:"cash_in"` // cash kept after change
	CardIn decimal.Decimal    `json:"card_in"`
	Change decimal.Decimal    `json:"change"`
}

// SplitPayment checks that cash and card cover the total. Card is charged
// exactly, only cash can be over-tendered.
func SplitPayment(total, cash, card decimal.Decimal) (Split, error) {
	if cash.IsNegative() || card.IsNegative() {
		return Split{}, apperr.Validation("payment amounts cannot be negative")
	}
	if card.GreaterThan(total) {
		return Split{}, apperr.Validation("card amount cannot exceed the total")
	}
	if cash.Add(card).LessThan(total) {
		return Split{}, apperr.Validation("payment %s does not cover the total %s",
			cash.Add(card).StringFixed(2), total.StringFixed(2))
	}

	s := Split{CardIn: card, CashIn: total.Sub(card)}
	s.Change = cash.Sub(s.CashIn)
	switch {
	case card.IsPositive() && s.CashIn.IsPositive():
		s.Type = models.PaymentMixed
	case card.IsPositive():
		s.Type = models.PaymentCard
	default:
		s.Type = models.PaymentCash
	}
	return s, nil
}
