package currency

import (
	"context"
	"net/http"
	"time"

	"tradepos-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	DB      *gorm.DB
	Client  *http.Client
	APIURL  string
	Base    string
	Targets []string
}

// Expand adds inverse and cross rates derived from base rates so that reports
// can convert between any two known currencies.
func Expand(rates []Rate) []Rate {
	out := append([]Rate(nil), rates...)
	seen := make(map[[2]string]bool, len(rates))
	for _, r := range rates {
		seen[[2]string{r.From, r.To}] = true
	}
	add := func(from, to string, rate decimal.Decimal) {
		k := [2]string{from, to}
		if from == to || seen[k] || rate.IsZero() {
			return
		}
		seen[k] = true
		out = append(out, Rate{From: from, To: to, Rate: rate})
	}

	for _, r := range rates {
		add(r.To, r.From, decimal.NewFromInt(1).DivRound(r.Rate, 8))
	}
	for _, a := range rates {
		for _, b := range rates {
			if a.From == b.From && a.To != b.To {
				// a.To -> b.To through the shared base
				add(a.To, b.To, b.Rate.DivRound(a.Rate, 8))
			}
		}
	}
	return out
}

// Refresh fetches rates and stores them. Rows an operator set by hand are
// never replaced. When the fetch fails the stored rates stay as they are;
// fallback rates are only written into an empty table, with source
// "fallback" so the UI can tell.
func (s *Service) Refresh(ctx context.Context) ([]Rate, error) {
	rates, ok := FetchRates(ctx, s.Client, s.APIURL, s.Base, s.Targets)
	source := "api"
	if !ok {
		var stored int64
		if err := s.DB.Model(&models.ExchangeRate{}).Count(&stored).Error; err != nil {
			return nil, err
		}
		if stored > 0 {
			log.Warning("rate fetch failed, keeping stored rates")
			return s.Current()
		}
		source = "fallback"
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var manual []models.ExchangeRate
		if err := tx.Where("source = ?", "manual").Find(&manual).Error; err != nil {
			return err
		}
		pinned := make(map[[2]string]bool, len(manual))
		for _, m := range manual {
			pinned[[2]string{m.From, m.To}] = true
		}

		now := time.Now()
		rows := make([]models.ExchangeRate, 0, len(rates))
		for _, r := range rates {
			if pinned[[2]string{r.From, r.To}] {
				continue
			}
			rows = append(rows, models.ExchangeRate{From: r.From, To: r.To, Rate: r.Rate, Source: source, FetchedAt: now})
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "from_currency"}, {Name: "to_currency"}},
			DoUpdates: clause.AssignmentColumns([]string{"rate", "source", "fetched_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Current()
}

// SetManual stores an operator supplied rate.
func (s *Service) SetManual(from, to string, rate decimal.Decimal) error {
	row := models.ExchangeRate{From: from, To: to, Rate: rate, Source: "manual", FetchedAt: time.Now()}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "from_currency"}, {Name: "to_currency"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "source", "fetched_at"}),
	}).Create(&row).Error
}

// Current returns stored rates, or the fallback set when none are stored.
func (s *Service) Current() ([]Rate, error) {
	var rows []models.ExchangeRate
	if err := s.DB.Order("from_currency, to_currency").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return append([]Rate(nil), FallbackRates...), nil
	}
	rates := make([]Rate, 0, len(rows))
	for _, r := range rows {
		rates = append(rates, Rate{From: r.From, To: r.To, Rate: r.Rate})
	}
	return rates, nil
}

// Rows returns the stored rate rows with their source and time.
func (s *Service) Rows() ([]models.ExchangeRate, error) {
	var rows []models.ExchangeRate
	err := s.DB.Order("from_currency, to_currency").Find(&rows).Error
	return rows, err
}
