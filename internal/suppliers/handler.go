package suppliers

import (
	"strconv"
	"strings"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func idParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid supplier id")
	}
	return uint(id), nil
}

func dateQuery(c *fiber.Ctx, key string, addDay bool) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+key+" date")
	}
	if addDay {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}

// GET /api/suppliers?q=
func ListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Model(&models.Supplier{})
		if s := strings.TrimSpace(c.Query("q")); s != "" {
			like := "%" + strings.ToLower(s) + "%"
			q = q.Where("LOWER(name) LIKE ? OR phone LIKE ?", like, like)
		}
		var list []models.Supplier
		if err := q.Order("name asc").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list suppliers")
		}
		return c.JSON(list)
	}
}

// GET /api/suppliers/:id
func GetHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		var s models.Supplier
		if err := db.First(&s, id).Error; err != nil {
			return apperr.HTTP(apperr.FromDB(err, "supplier"))
		}
		return c.JSON(s)
	}
}

// POST /api/suppliers
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
		s, err := Create(db, sess, body)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.Status(fiber.StatusCreated).JSON(s)
	}
}

// PUT /api/suppliers/:id
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
		s, err := Update(db, sess, id, body)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(s)
	}
}

// DELETE /api/suppliers/:id
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

// GET /api/suppliers/:id/statement?from=2025-01-01&to=2025-01-31
func StatementHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		from, err := dateQuery(c, "from", false)
		if err != nil {
			return err
		}
		to, err := dateQuery(c, "to", true)
		if err != nil {
			return err
		}
		st, err := GetStatement(db, id, from, to)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(st)
	}
}
