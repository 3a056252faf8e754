package audit

import (
	"encoding/json"
	"fmt"

	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"

	"gorm.io/gorm"
)

type LogOptions struct {
	Session     auth.Session
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog appends an audit row. Pass the business transaction as db so the
// entry commits or rolls back together with the change it describes.
func WriteLog(db *gorm.DB, opts LogOptions) error {
	entry := models.AuditLog{
		UserID:      opts.Session.UserID,
		UserName:    opts.Session.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  toJSON(opts.Before),
		AfterData:   toJSON(opts.After),
	}

	if err := db.Create(&entry).Error; err != nil {
		return fmt.Errorf("audit log not saved: %w", err)
	}
	return nil
}

func toJSON(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
