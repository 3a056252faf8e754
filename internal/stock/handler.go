package stock

import (
	"fmt"
	"strconv"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/audit"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateMovementRequest struct {
	ProductID     uint                `json:"product_id"`
	Type          models.MovementType `json:"type"`
	Quantity      decimal.Decimal     `json:"quantity"`
	Date          string              `json:"date"` // "2025-12-09", empty = now
	Reason        string              `json:"reason"`
	AllowNegative bool                `json:"allow_negative"` // admin only
}

func productIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}
	return uint(id), nil
}

// POST /api/stock/movements
func CreateMovementHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateMovementRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		s, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}
		if body.AllowNegative && s.Role != models.RoleAdmin {
			return fiber.NewError(fiber.StatusForbidden, "only admins can take stock below zero")
		}

		date := time.Now()
		if body.Date != "" {
			d, err := time.Parse("2006-01-02", body.Date)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
			}
			date = d
		}

		var mv *models.StockMovement
		err = db.Transaction(func(tx *gorm.DB) error {
			var err error
			mv, err = AddStockMovement(tx, Entry{
				ProductID:     body.ProductID,
				Type:          body.Type,
				Quantity:      body.Quantity,
				Date:          date,
				Reason:        body.Reason,
				ReferenceType: "manual",
				CreatedBy:     s.UserID,
				AllowNegative: body.AllowNegative,
			})
			if err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Session:     s,
				EntityType:  "stock_movement",
				EntityID:    mv.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Stock %s: product %d x %s", mv.Type, mv.ProductID, mv.Quantity),
				After:       mv,
			})
		})
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.Status(fiber.StatusCreated).JSON(mv)
	}
}

// GET /api/stock/movements?product_id=1&from=2025-01-01&to=2025-01-31
func ListMovementsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := db.Model(&models.StockMovement{})
		if pid := c.QueryInt("product_id"); pid > 0 {
			dbq = dbq.Where("product_id = ?", pid)
		}
		if v := c.Query("type"); v != "" {
			dbq = dbq.Where("type = ?", v)
		}
		if v := c.Query("from"); v != "" {
			from, err := time.Parse("2006-01-02", v)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid from date")
			}
			dbq = dbq.Where("date >= ?", from)
		}
		if v := c.Query("to"); v != "" {
			to, err := time.Parse("2006-01-02", v)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid to date")
			}
			dbq = dbq.Where("date < ?", to.AddDate(0, 0, 1))
		}

		var movements []models.StockMovement
		if err := dbq.Order("date DESC, id DESC").Find(&movements).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list movements")
		}
		return c.JSON(movements)
	}
}

// GET /api/stock/products/:id
func GetProductStockHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := productIDParam(c)
		if err != nil {
			return err
		}
		ledger, err := GetProductStock(db, id)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not read stock")
		}
		available, err := AvailableStock(db, id)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not read stock")
		}
		return c.JSON(fiber.Map{
			"product_id": id,
			"quantity":   ledger,
			"available":  available,
		})
	}
}

// GET /api/stock/balances?low=true
func ListBalancesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		balances, err := Balances(db, c.QueryBool("low"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list balances")
		}
		return c.JSON(balances)
	}
}

// POST /api/stock/products/:id/reconcile
func ReconcileHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := productIDParam(c)
		if err != nil {
			return err
		}
		res, err := Reconcile(db, id)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(res)
	}
}
