package reports

import (
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/models"

	"github.com/shopspring/decimal"
)

type ChartPoint struct {
	Label string          `json:"label"` // bucket start, YYYY-MM-DD
	Cash  decimal.Decimal `json:"cash"`
	Card  decimal.Decimal `json:"card"`
	Total decimal.Decimal `json:"total"`
}

type Chart struct {
	Period string          `json:"period"` // daily | weekly | monthly
	From   string          `json:"from"`
	To     string          `json:"to"`
	Points []ChartPoint    `json:"points"`
	Cash   decimal.Decimal `json:"cash"`
	Card   decimal.Decimal `json:"card"`
	Total  decimal.Decimal `json:"total"`
}

func bucketStart(t time.Time, period string) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch period {
	case "weekly":
		// weeks start on Monday
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case "monthly":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	}
	return day
}

func step(t time.Time, period string) time.Time {
	switch period {
	case "weekly":
		return t.AddDate(0, 0, 7)
	case "monthly":
		return t.AddDate(0, 1, 0)
	}
	return t.AddDate(0, 0, 1)
}

// SalesChart buckets sale payments, in the system currency, over the last
// count days, weeks or months ending at now. Empty buckets are kept.
func (b *Builder) SalesChart(period string, count int, now time.Time) (*Chart, error) {
	switch period {
	case "daily", "weekly", "monthly":
	case "":
		period = "daily"
	default:
		return nil, apperr.Validation("period must be daily, weekly or monthly")
	}
	if count <= 0 {
		switch period {
		case "weekly":
			count = 8
		case "monthly":
			count = 12
		default:
			count = 7
		}
	}
	if count > 366 {
		return nil, apperr.Validation("count is too large")
	}

	end := step(bucketStart(now, period), period)
	start := bucketStart(now, period)
	for i := 1; i < count; i++ {
		switch period {
		case "weekly":
			start = start.AddDate(0, 0, -7)
		case "monthly":
			start = start.AddDate(0, -1, 0)
		default:
			start = start.AddDate(0, 0, -1)
		}
	}

	rates, err := b.Rates()
	if err != nil {
		return nil, err
	}
	conv := newConverter(rates, b.System)

	var pays []models.Payment
	err = b.DB.Select("id", "method", "amount", "currency", "date").
		Where("date >= ? AND date < ?", start, end).Find(&pays).Error
	if err != nil {
		return nil, err
	}

	chart := &Chart{Period: period, From: start.Format("2006-01-02"), To: end.AddDate(0, 0, -1).Format("2006-01-02")}
	index := map[string]int{}
	for t := start; t.Before(end); t = step(t, period) {
		label := t.Format("2006-01-02")
		index[label] = len(chart.Points)
		chart.Points = append(chart.Points, ChartPoint{Label: label})
	}

	for _, p := range pays {
		i, ok := index[bucketStart(p.Date.In(now.Location()), period).Format("2006-01-02")]
		if !ok {
			continue
		}
		amount := conv.convert(p.Amount, p.Currency)
		pt := &chart.Points[i]
		if p.Method == models.PaymentCard {
			pt.Card = pt.Card.Add(amount)
			chart.Card = chart.Card.Add(amount)
		} else {
			pt.Cash = pt.Cash.Add(amount)
			chart.Cash = chart.Cash.Add(amount)
		}
		pt.Total = pt.Total.Add(amount)
		chart.Total = chart.Total.Add(amount)
	}
	return chart, nil
}
