package invoice

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// GET /api/invoices/next
func PeekNextHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"next_invoice_number": Peek(db, time.Now())})
	}
}

// GET /api/invoices/validate?number=INV-...
func ValidateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		number := c.Query("number")
		if number == "" {
			return fiber.NewError(fiber.StatusBadRequest, "number is required")
		}
		resp := fiber.Map{
			"number":   number,
			"valid":    Validate(number),
			"fallback": IsFallback(number),
		}
		if parts, err := Parse(number); err == nil {
			resp["date"] = parts.Date.Format("2006-01-02")
			resp["sequence"] = parts.Sequence
		}
		return c.JSON(resp)
	}
}
