package products

import (
	"strconv"
	"strings"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/op/go-logging"
	"gorm.io/gorm"
)

var log = logging.MustGetLogger("products")

func idParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}
	return uint(id), nil
}

// GET /api/products?q=&category=&supplier_id=&active=true
func ListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := List(db, Filter{
			Query:      c.Query("q"),
			Category:   c.Query("category"),
			SupplierID: uint(c.QueryInt("supplier_id")),
			OnlyActive: c.QueryBool("active"),
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list products")
		}
		return c.JSON(list)
	}
}

// GET /api/products/:id
func GetHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}
		var p models.Product
		if err := db.Preload("Suppliers").First(&p, id).Error; err != nil {
			return apperr.HTTP(apperr.FromDB(err, "product"))
		}
		return c.JSON(p)
	}
}

// POST /api/products
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
		p, err := Create(db, sess, body)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/products/:id
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
		p, err := Update(db, sess, id, body)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(p)
	}
}

// DELETE /api/products/:id
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

// POST /api/products/import (multipart, field "file", .xlsx)
func ImportHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file could not be uploaded: "+err.Error())
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "only .xlsx files can be imported")
		}
		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "file could not be opened")
		}
		defer file.Close()

		res, err := ImportXLSX(db, sess, file)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(res)
	}
}
