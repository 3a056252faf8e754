package users

import (
	"fmt"
	"strings"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/audit"
	"tradepos-backend/internal/auth"
	"tradepos-backend/internal/models"

	"gorm.io/gorm"
)

type CreateInput struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"`
}

type UpdateInput struct {
	Name   *string          `json:"name"`
	Role   *models.UserRole `json:"role"`
	Active *bool            `json:"active"`
}

func Create(db *gorm.DB, sess auth.Session, in CreateInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" {
		return nil, apperr.Validation("name and email are required")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, apperr.Validation("email is not valid")
	}
	if !in.Role.Valid() {
		return nil, apperr.Validation("unknown role %q", in.Role)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := models.User{Name: in.Name, Email: in.Email, PasswordHash: hash, Role: in.Role, Active: true}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&u).Error; err != nil {
			return apperr.FromDB(err, "user with this email")
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Session:     sess,
			EntityType:  "user",
			EntityID:    u.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("User added: %s (%s)", u.Email, u.Role),
			After:       u,
		})
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func List(db *gorm.DB) ([]models.User, error) {
	var list []models.User
	err := db.Order("name asc").Find(&list).Error
	return list, err
}

// Update changes name, role or active flag. The last active admin can be
// neither demoted nor disabled.
func Update(db *gorm.DB, sess auth.Session, id uint, in UpdateInput) (*models.User, error) {
	var u models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&u, id).Error; err != nil {
			return apperr.FromDB(err, "user")
		}
		before := u

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperr.Validation("name cannot be empty")
			}
			u.Name = name
		}
		if in.Role != nil {
			if !in.Role.Valid() {
				return apperr.Validation("unknown role %q", *in.Role)
			}
			u.Role = *in.Role
		}
		if in.Active != nil {
			u.Active = *in.Active
		}

		losesAdmin := before.Role == models.RoleAdmin && before.Active &&
			(u.Role != models.RoleAdmin || !u.Active)
		if losesAdmin {
			var admins int64
			if err := tx.Model(&models.User{}).
				Where("role = ? AND active = ? AND id <> ?", models.RoleAdmin, true, u.ID).
				Count(&admins).Error; err != nil {
				return err
			}
			if admins == 0 {
				return apperr.Conflict("the last active admin cannot be demoted or disabled")
			}
		}

		if err := tx.Save(&u).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Session:     sess,
			EntityType:  "user",
			EntityID:    u.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("User updated: %s", u.Email),
			Before:      before,
			After:       u,
		})
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func ResetPassword(db *gorm.DB, sess auth.Session, id uint, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, id).Error; err != nil {
			return apperr.FromDB(err, "user")
		}
		if err := tx.Model(&u).Update("password_hash", hash).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Session:     sess,
			EntityType:  "user",
			EntityID:    u.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Password reset: %s", u.Email),
		})
	})
}
