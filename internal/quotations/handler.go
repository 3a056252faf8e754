package quotations

import (
	"strconv"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/documents"
	"tradepos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func idParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid quotation id")
	}
	return uint(id), nil
}

// GET /api/quotations?status=&customer_id=&q=
func ListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := List(db, Filter{
			Status:     models.QuotationStatus(c.Query("status")),
			CustomerID: uint(c.QueryInt("customer_id")),
			Query:      c.Query("q"),
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list quotations")
		}
		return c.JSON(list)
	}
}

// GET /api/quotations/:id
func GetHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		q, err := Get(db, id)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(q)
	}
}

// POST /api/quotations
func CreateHandler(db *gorm.DB, def Defaults) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body Input
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		sess, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}
		q, err := Create(db, sess, def, body)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.Status(fiber.StatusCreated).JSON(q)
	}
}

// PUT /api/quotations/:id/status {"status": "sent"}
func UpdateStatusHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		var body struct {
			Status models.QuotationStatus `json:"status"`
		}
		if err := c.BodyParser(&body); err != nil || body.Status == "" {
			return fiber.NewError(fiber.StatusBadRequest, "status is required")
		}
		sess, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}
		q, err := UpdateStatus(db, sess, id, body.Status)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(q)
	}
}

// GET /api/quotations/:id/pdf
func PDFHandler(db *gorm.DB, r *documents.Renderer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		q, err := Get(db, id)
		if err != nil {
			return apperr.HTTP(err)
		}
		pdf, err := r.Quotation(*q)
		if err != nil {
			log.Errorf("quotation %s pdf: %v", q.Number, err)
			return fiber.NewError(fiber.StatusInternalServerError, "quotation could not be rendered")
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, "inline; filename="+q.Number+".pdf")
		return c.Send(pdf)
	}
}
