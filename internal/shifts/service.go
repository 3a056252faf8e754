package shifts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/audit"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpectedCash is what the drawer should hold at close.
func ExpectedCash(s models.Shift) decimal.Decimal {
	return s.OpeningCash.Add(s.TotalCash).Sub(s.CashRefunds)
}

// OpenShiftFor returns the cashier's open shift or ErrNoOpenShift.
func OpenShiftFor(db *gorm.DB, cashierID uint) (*models.Shift, error) {
	var s models.Shift
	err := db.Where("cashier_id = ? AND status = ?", cashierID, models.ShiftOpen).
		Order("opened_at desc").Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.ErrNoOpenShift, "open a shift before selling")
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func Open(db *gorm.DB, sess auth.Session, openingCash decimal.Decimal, notes string) (*models.Shift, error) {
	if openingCash.IsNegative() {
		return nil, apperr.Validation("opening cash cannot be negative")
	}
	var s models.Shift
	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := OpenShiftFor(tx, sess.UserID)
		if err == nil {
			return apperr.Conflict("you already have an open shift")
		}
		if !errors.Is(err, apperr.ErrNoOpenShift) {
			return err
		}

		s = models.Shift{
			CashierID:   sess.UserID,
			Status:      models.ShiftOpen,
			OpenedAt:    time.Now(),
			OpeningCash: openingCash,
			Notes:       strings.TrimSpace(notes),
		}
		if err := tx.Create(&s).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Session:     sess,
			EntityType:  "shift",
			EntityID:    s.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Shift opened with %s", openingCash.StringFixed(2)),
			After:       s,
		})
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Close records the counted cash. Only the shift's cashier or an admin can
// close it.
func Close(db *gorm.DB, sess auth.Session, shiftID uint, counted decimal.Decimal, notes string) (*models.Shift, error) {
	if counted.IsNegative() {
		return nil, apperr.Validation("closing cash cannot be negative")
	}
	var s models.Shift
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&s, shiftID).Error; err != nil {
			return apperr.FromDB(err, "shift")
		}
		if s.CashierID != sess.UserID && sess.Role != models.RoleAdmin {
			return apperr.New(apperr.ErrForbidden, "this shift belongs to another cashier")
		}
		if s.Status != models.ShiftOpen {
			return apperr.Conflict("shift is already closed")
		}
		before := s

		now := time.Now()
		expected := ExpectedCash(s)
		diff := counted.Sub(expected)
		s.Status = models.ShiftClosed
		s.ClosedAt = &now
		s.ClosingCash = &counted
		s.ExpectedCash = &expected
		s.CashDifference = &diff
		if n := strings.TrimSpace(notes); n != "" {
			if s.Notes != "" {
				s.Notes += "\n"
			}
			s.Notes += n
		}

		res := tx.Model(&models.Shift{}).
			Where("id = ? AND status = ?", s.ID, models.ShiftOpen).
			Updates(map[string]any{
				"status":          s.Status,
				"closed_at":       now,
				"closing_cash":    counted,
				"expected_cash":   expected,
				"cash_difference": diff,
				"notes":           s.Notes,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("shift is already closed")
		}
		if !diff.IsZero() {
			log.Warningf("shift %d closed with cash difference %s", s.ID, diff.StringFixed(2))
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Session:     sess,
			EntityType:  "shift",
			EntityID:    s.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Shift closed: expected %s, counted %s", expected.StringFixed(2), counted.StringFixed(2)),
			Before:      before,
			After:       s,
		})
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AddSale moves the running totals of a shift. cashIn is the cash kept after
// change.
func AddSale(tx *gorm.DB, shiftID uint, total, cashIn, cardIn decimal.Decimal) error {
	return bump(tx, shiftID, map[string]any{
		"total_sales": gorm.Expr("total_sales + ?", total),
		"total_cash":  gorm.Expr("total_cash + ?", cashIn),
		"total_card":  gorm.Expr("total_card + ?", cardIn),
		"sales_count": gorm.Expr("sales_count + 1"),
	})
}

// AddReturn books a refund on the shift it was paid out from.
func AddReturn(tx *gorm.DB, shiftID uint, total decimal.Decimal, method models.PaymentType) error {
	fields := map[string]any{"total_returns": gorm.Expr("total_returns + ?", total)}
	if method == models.PaymentCash {
		fields["cash_refunds"] = gorm.Expr("cash_refunds + ?", total)
	}
	return bump(tx, shiftID, fields)
}

func bump(tx *gorm.DB, shiftID uint, fields map[string]any) error {
	fields["updated_at"] = time.Now()
	res := tx.Model(&models.Shift{}).Where("id = ? AND status = ?", shiftID, models.ShiftOpen).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.ErrNoOpenShift, "shift %d is not open", shiftID)
	}
	return nil
}

type Filter struct {
	CashierID uint
	Status    models.ShiftStatus
	From      *time.Time
	To        *time.Time
}

func List(db *gorm.DB, f Filter) ([]models.Shift, error) {
	q := db.Model(&models.Shift{})
	if f.CashierID > 0 {
		q = q.Where("cashier_id = ?", f.CashierID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("opened_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("opened_at < ?", *f.To)
	}
	var list []models.Shift
	err := q.Order("opened_at desc").Find(&list).Error
	return list, err
}
