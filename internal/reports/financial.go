package reports

import (
	"sort"
	"strings"
	"time"

	"tradepos-backend/internal/currency"
	"tradepos-backend/internal/models"

	"github.com/op/go-logging"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var log = logging.MustGetLogger("reports")

// Builder aggregates bookkeeping data. Rates returns the conversion table
// used for system currency totals.
type Builder struct {
	DB     *gorm.DB
	Rates  func() ([]currency.Rate, error)
	System string
}

type CurrencyTotals struct {
	Currency string          `json:"currency"`
	Income   decimal.Decimal `json:"income"`
	Expense  decimal.Decimal `json:"expense"`
	Net      decimal.Decimal `json:"net"`
}

type CategoryTotal struct {
	Type      models.TransactionType `json:"type"`
	Category  string                 `json:"category"`
	Currency  string                 `json:"currency"`
	Amount    decimal.Decimal        `json:"amount"`
	Converted decimal.Decimal        `json:"converted"`
	Count     int                    `json:"count"`
}

type ProductTotal struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"` // net of returns
	Revenue   decimal.Decimal `json:"revenue"`  // system currency
}

type Financial struct {
	From           time.Time        `json:"from"`
	To             time.Time        `json:"to"` // exclusive
	SystemCurrency string           `json:"system_currency"`
	ByCurrency     []CurrencyTotals `json:"by_currency"`
	ByCategory     []CategoryTotal  `json:"by_category"`
	Income         decimal.Decimal  `json:"income"`
	Expense        decimal.Decimal  `json:"expense"`
	Net            decimal.Decimal  `json:"net"`
	// currencies that had no rate to the system currency; their amounts are
	// counted unconverted
	Unconverted  []string        `json:"unconverted,omitempty"`
	SalesCount   int64           `json:"sales_count"`
	SalesTotal   decimal.Decimal `json:"sales_total"`
	ReturnsCount int64           `json:"returns_count"`
	ReturnsTotal decimal.Decimal `json:"returns_total"`
	TopProducts  []ProductTotal  `json:"top_products"`
}

type converter struct {
	rates   []currency.Rate
	system  string
	missing map[string]bool
}

func newConverter(rates []currency.Rate, system string) *converter {
	return &converter{rates: currency.Expand(rates), system: strings.ToUpper(system), missing: map[string]bool{}}
}

func (c *converter) convert(amount decimal.Decimal, from string) decimal.Decimal {
	from = strings.ToUpper(from)
	if from == c.system {
		return amount
	}
	for _, r := range c.rates {
		if strings.EqualFold(r.From, from) && strings.EqualFold(r.To, c.system) {
			return amount.Mul(r.Rate).Round(2)
		}
	}
	c.missing[from] = true
	return amount
}

func (c *converter) unconverted() []string {
	out := make([]string, 0, len(c.missing))
	for code := range c.missing {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Financial builds the report for [from, to). top limits the product list.
func (b *Builder) Financial(from, to time.Time, top int) (*Financial, error) {
	rates, err := b.Rates()
	if err != nil {
		return nil, err
	}
	conv := newConverter(rates, b.System)
	rep := &Financial{From: from, To: to, SystemCurrency: conv.system}

	var txs []models.Transaction
	err = b.DB.Select("id", "type", "amount", "currency", "category").
		Where("date >= ? AND date < ?", from, to).Find(&txs).Error
	if err != nil {
		return nil, err
	}

	perCurrency := map[string]*CurrencyTotals{}
	type catKey struct {
		typ      models.TransactionType
		category string
		currency string
	}
	perCategory := map[catKey]*CategoryTotal{}
	for _, t := range txs {
		cur := strings.ToUpper(t.Currency)
		ct := perCurrency[cur]
		if ct == nil {
			ct = &CurrencyTotals{Currency: cur}
			perCurrency[cur] = ct
		}
		converted := conv.convert(t.Amount, cur)
		if t.Type == models.TransactionIncome {
			ct.Income = ct.Income.Add(t.Amount)
			rep.Income = rep.Income.Add(converted)
		} else {
			ct.Expense = ct.Expense.Add(t.Amount)
			rep.Expense = rep.Expense.Add(converted)
		}

		k := catKey{t.Type, t.Category, cur}
		cat := perCategory[k]
		if cat == nil {
			cat = &CategoryTotal{Type: t.Type, Category: t.Category, Currency: cur}
			perCategory[k] = cat
		}
		cat.Amount = cat.Amount.Add(t.Amount)
		cat.Converted = cat.Converted.Add(converted)
		cat.Count++
	}
	rep.Net = rep.Income.Sub(rep.Expense)

	for _, ct := range perCurrency {
		ct.Net = ct.Income.Sub(ct.Expense)
		rep.ByCurrency = append(rep.ByCurrency, *ct)
	}
	sort.Slice(rep.ByCurrency, func(i, j int) bool { return rep.ByCurrency[i].Currency < rep.ByCurrency[j].Currency })
	for _, cat := range perCategory {
		rep.ByCategory = append(rep.ByCategory, *cat)
	}
	sort.Slice(rep.ByCategory, func(i, j int) bool {
		x, y := rep.ByCategory[i], rep.ByCategory[j]
		if x.Type != y.Type {
			return x.Type == models.TransactionIncome
		}
		if !x.Converted.Equal(y.Converted) {
			return x.Converted.GreaterThan(y.Converted)
		}
		return x.Category+x.Currency < y.Category+y.Currency
	})

	if err := b.salesFigures(rep, conv, top); err != nil {
		return nil, err
	}
	rep.Unconverted = conv.unconverted()
	if len(rep.Unconverted) > 0 {
		log.Warningf("report %s..%s: no rate to %s for %v", from.Format("2006-01-02"), to.Format("2006-01-02"), conv.system, rep.Unconverted)
	}
	return rep, nil
}

func (b *Builder) salesFigures(rep *Financial, conv *converter, top int) error {
	var sales []models.Sale
	err := b.DB.Select("id", "total", "currency").
		Where("created_at >= ? AND created_at < ?", rep.From, rep.To).Find(&sales).Error
	if err != nil {
		return err
	}
	currencyOf := make(map[uint]string, len(sales))
	for _, s := range sales {
		currencyOf[s.ID] = s.Currency
		rep.SalesTotal = rep.SalesTotal.Add(conv.convert(s.Total, s.Currency))
	}
	rep.SalesCount = int64(len(sales))

	var returns []models.Return
	err = b.DB.Select("id", "sale_id", "total").
		Where("created_at >= ? AND created_at < ?", rep.From, rep.To).Find(&returns).Error
	if err != nil {
		return err
	}
	if err := b.fillCurrencies(currencyOf, returns); err != nil {
		return err
	}
	for _, r := range returns {
		rep.ReturnsTotal = rep.ReturnsTotal.Add(conv.convert(r.Total, currencyOf[r.SaleID]))
	}
	rep.ReturnsCount = int64(len(returns))

	if top <= 0 || len(sales) == 0 {
		return nil
	}
	var items []models.SaleItem
	err = b.DB.Where("sale_id IN (?)",
		b.DB.Model(&models.Sale{}).Select("id").Where("created_at >= ? AND created_at < ?", rep.From, rep.To)).
		Find(&items).Error
	if err != nil {
		return err
	}
	perProduct := map[uint]*ProductTotal{}
	for _, it := range items {
		net := it.Quantity.Sub(it.ReturnedQuantity)
		if !net.IsPositive() {
			continue
		}
		p := perProduct[it.ProductID]
		if p == nil {
			p = &ProductTotal{ProductID: it.ProductID, Name: it.ProductName}
			perProduct[it.ProductID] = p
		}
		p.Quantity = p.Quantity.Add(net)
		p.Revenue = p.Revenue.Add(conv.convert(net.Mul(it.UnitPrice).Round(2), currencyOf[it.SaleID]))
	}
	for _, p := range perProduct {
		rep.TopProducts = append(rep.TopProducts, *p)
	}
	sort.Slice(rep.TopProducts, func(i, j int) bool {
		x, y := rep.TopProducts[i], rep.TopProducts[j]
		if !x.Revenue.Equal(y.Revenue) {
			return x.Revenue.GreaterThan(y.Revenue)
		}
		return x.ProductID < y.ProductID
	})
	if len(rep.TopProducts) > top {
		rep.TopProducts = rep.TopProducts[:top]
	}
	return nil
}

// fillCurrencies looks up the currency of sales returned in the period but
// sold before it.
func (b *Builder) fillCurrencies(currencyOf map[uint]string, returns []models.Return) error {
	var ids []uint
	for _, r := range returns {
		if _, ok := currencyOf[r.SaleID]; !ok {
			ids = append(ids, r.SaleID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	var older []models.Sale
	if err := b.DB.Select("id", "currency").Where("id IN ?", ids).Find(&older).Error; err != nil {
		return err
	}
	for _, s := range older {
		currencyOf[s.ID] = s.Currency
	}
	return nil
}
