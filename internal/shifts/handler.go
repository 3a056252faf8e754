package shifts

import (
	"fmt"
	"strconv"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/documents"
	"tradepos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/op/go-logging"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var log = logging.MustGetLogger("shifts")

type OpenRequest struct {
	OpeningCash decimal.Decimal `json:"opening_cash"`
	Notes       string          `json:"notes"`
}

type CloseRequest struct {
	ClosingCash decimal.Decimal `json:"closing_cash"`
	Notes       string          `json:"notes"`
}

func idParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid shift id")
	}
	return uint(id), nil
}

// loadVisible fetches a shift the session may see: cashiers only their own.
func loadVisible(db *gorm.DB, c *fiber.Ctx) (*models.Shift, error) {
	id, err := idParam(c)
	if err != nil {
		return nil, err
	}
	sess, err := auth.CurrentSession(c)
	if err != nil {
		return nil, err
	}
	var s models.Shift
	if err := db.First(&s, id).Error; err != nil {
		return nil, apperr.HTTP(apperr.FromDB(err, "shift"))
	}
	if sess.Role == models.RoleCashier && s.CashierID != sess.UserID {
		return nil, fiber.NewError(fiber.StatusForbidden, "this shift belongs to another cashier")
	}
	return &s, nil
}

// POST /api/shifts/open
func OpenHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body OpenRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		sess, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}
		s, err := Open(db, sess, body.OpeningCash, body.Notes)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.Status(fiber.StatusCreated).JSON(s)
	}
}

// GET /api/shifts/current
func CurrentHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}
		s, err := OpenShiftFor(db, sess.UserID)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(fiber.Map{"shift": s, "expected_cash": ExpectedCash(*s)})
	}
}

// POST /api/shifts/:id/close
func CloseHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		var body CloseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		sess, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}
		s, err := Close(db, sess, id, body.ClosingCash, body.Notes)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(s)
	}
}

// GET /api/shifts?cashier_id=&status=&from=&to=
func ListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}
		f := Filter{
			CashierID: uint(c.QueryInt("cashier_id")),
			Status:    models.ShiftStatus(c.Query("status")),
		}
		if sess.Role == models.RoleCashier {
			f.CashierID = sess.UserID
		}
		if v := c.Query("from"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid from date")
			}
			f.From = &t
		}
		if v := c.Query("to"); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid to date")
			}
			t = t.AddDate(0, 0, 1)
			f.To = &t
		}
		list, err := List(db, f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list shifts")
		}
		return c.JSON(list)
	}
}

// GET /api/shifts/:id
func GetHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := loadVisible(db, c)
		if err != nil {
			return err
		}
		return c.JSON(s)
	}
}

// GET /api/shifts/:id/report.pdf
func ReportHandler(db *gorm.DB, r *documents.Renderer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := loadVisible(db, c)
		if err != nil {
			return err
		}
		var cashier models.User
		name := fmt.Sprintf("#%d", s.CashierID)
		if err := db.Select("id", "name").First(&cashier, s.CashierID).Error; err == nil {
			name = cashier.Name
		}
		pdf, err := r.ShiftReport(*s, name)
		if err != nil {
			log.Errorf("shift %d report: %v", s.ID, err)
			return fiber.NewError(fiber.StatusInternalServerError, "report could not be rendered")
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=shift-%d.pdf", s.ID))
		return c.Send(pdf)
	}
}
