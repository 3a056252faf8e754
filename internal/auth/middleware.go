package auth

import (
	"strings"

	"tradepos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const CtxSessionKey = "session"

// Session is the signed-in user a request acts for.
type Session struct {
	UserID   uint
	UserName string
	Role     models.UserRole
}

func JWTMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := ""
		authHeader := c.Get("Authorization")
		switch {
		case authHeader != "":
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return fiber.NewError(fiber.StatusUnauthorized, "Authorization must be 'Bearer <token>'")
			}
			token = parts[1]
		case c.Get(fiber.HeaderAccept) == "text/event-stream" && c.Query("access_token") != "":
			// EventSource cannot set headers
			token = c.Query("access_token")
		default:
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		claims, err := ParseToken(secret, token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(CtxSessionKey, Session{
			UserID:   claims.UserID,
			UserName: claims.Name,
			Role:     claims.Role,
		})
		return c.Next()
	}
}

// CurrentSession returns the session stored by JWTMiddleware.
func CurrentSession(c *fiber.Ctx) (Session, error) {
	s, ok := c.Locals(CtxSessionKey).(Session)
	if !ok {
		return Session{}, fiber.NewError(fiber.StatusUnauthorized, "no session")
	}
	return s, nil
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := CurrentSession(c)
		if err != nil {
			return err
		}
		for _, r := range allowedRoles {
			if r == s.Role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "you are not allowed to do this")
	}
}

func RequirePermission(perm Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := CurrentSession(c)
		if err != nil {
			return err
		}
		if !Can(s.Role, perm) {
			return fiber.NewError(fiber.StatusForbidden, "you are not allowed to do this")
		}
		return c.Next()
	}
}
