package audit

import (
	"strconv"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// GET /api/audit-logs?entity_type=product&entity_id=1&user_id=2
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := db.Model(&models.AuditLog{})

		if v := c.QueryInt("user_id"); v > 0 {
			dbq = dbq.Where("user_id = ?", v)
		}
		if v := c.Query("entity_type"); v != "" {
			dbq = dbq.Where("entity_type = ?", v)
		}
		if v := c.QueryInt("entity_id"); v > 0 {
			dbq = dbq.Where("entity_id = ?", v)
		}

		limit := c.QueryInt("limit", 200)
		if limit <= 0 || limit > 1000 {
			limit = 200
		}

		var logs []models.AuditLog
		if err := dbq.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list audit logs")
		}
		return c.JSON(logs)
	}
}

// POST /api/audit-logs/:id/undo
func UndoAuditLogHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logID, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil || logID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid log id")
		}

		s, err := auth.CurrentSession(c)
		if err != nil {
			return err
		}

		if err := UndoLog(db, uint(logID), s); err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(fiber.Map{"message": "change undone"})
	}
}
