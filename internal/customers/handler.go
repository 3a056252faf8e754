package customers

import (
	"strconv"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func idParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid customer id")
	}
	return uint(id), nil
}

// GET /api/customers?q=ahmed&limit=20
func ListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := Search(db, c.Query("q"), c.QueryInt("limit"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list customers")
		}
		return c.JSON(list)
	}
}

// GET /api/customers/:id
func GetHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		var cu models.Customer
		if err := db.First(&cu, id).Error; err != nil {
			return apperr.HTTP(apperr.FromDB(err, "customer"))
		}
		return c.JSON(cu)
	}
}

// GET /api/customers/:id/history
func HistoryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		h, err := GetHistory(db, id)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(h)
	}
}

// POST /api/customers
func CreateHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body Input
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		sess, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}
		cu, err := Create(db, sess, body)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.Status(fiber.StatusCreated).JSON(cu)
	}
}

// PUT /api/customers/:id
func UpdateHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		var body Input
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		sess, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}
		cu, err := Update(db, sess, id, body)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(cu)
	}
}

// DELETE /api/customers/:id
func DeleteHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		sess, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}
		if err := Delete(db, sess, id); err != nil {
			return apperr.HTTP(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
