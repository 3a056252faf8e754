package auth

import (
	"errors"
	"strings"
	"time"

	"tradepos-backend/internal/apperr"
	"tradepos-backend/internal/config"
	"tradepos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/op/go-logging"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var log = logging.MustGetLogger("auth")

type RegisterAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

var errBadCredentials = errors.New("wrong email or password")

// BootstrapAdmin creates the first admin. It refuses once any admin exists.
func BootstrapAdmin(db *gorm.DB, name, email, password string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return nil, apperr.Validation("name, email and password are required")
	}

	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.New(apperr.ErrForbidden, "an admin already exists")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Active:       true,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return &user, nil
}

// Authenticate checks the credentials of an active user.
func Authenticate(db *gorm.DB, email, password string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, errBadCredentials
	}
	if !user.Active {
		return nil, errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errBadCredentials
	}
	return &user, nil
}

func HashPassword(password string) (string, error) {
	if len(password) < 6 {
		return "", apperr.Validation("password must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// POST /api/auth/register-admin
func RegisterAdminHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		user, err := BootstrapAdmin(db, body.Name, body.Email, body.Password)
		if err != nil {
			return apperr.HTTP(err)
		}
		log.Infof("first admin registered: %s", user.Email)

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		})
	}
}

// POST /api/auth/login
func LoginHandler(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		user, err := Authenticate(db, body.Email, body.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		token, err := GenerateToken(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour, user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  user,
		})
	}
}

// GET /api/auth/me
func MeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := CurrentSession(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := db.First(&user, s.UserID).Error; err != nil {
			// profile row gone, answer from the token
			return c.JSON(fiber.Map{
				"id":   s.UserID,
				"name": s.UserName,
				"role": s.Role,
			})
		}
		return c.JSON(user)
	}
}
