package outbox

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// GET /api/outbox/pending?limit=50
func PendingHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 50)
		if limit <= 0 || limit > 500 {
			limit = 50
		}
		list, err := Pending(db, limit)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list pending events")
		}
		return c.JSON(list)
	}
}
