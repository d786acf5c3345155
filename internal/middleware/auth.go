package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/belajaryuk/roadmap-api/internal/config"
	"github.com/belajaryuk/roadmap-api/internal/services"
	"github.com/belajaryuk/roadmap-api/internal/types"
)

const userIDKey = "userID"

// AuthUser validates the session cookie and attaches the user id to the
// request context. Requests without a valid session get 401.
func AuthUser(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !services.IsAuthorizerInitialized() {
			if err := services.InitAuthorizer(cfg, c.Protocol(), c.Hostname()); err != nil {
				return &types.CustomError{
					Code:    fiber.StatusServiceUnavailable,
					Message: fmt.Sprintf("Authorizer unavailable: %v", err),
					Type:    "authentication",
				}
			}
		}

		session := c.Cookies("cookie_session")
		if session == "" {
			return &types.CustomError{
				Code:    fiber.StatusUnauthorized,
				Message: "Session cookie \"cookie_session\" not found",
				Type:    "authentication",
			}
		}

		user, err := services.ValidateSession(session, []string{"user"})
		if err != nil {
			return &types.CustomError{
				Code:    fiber.StatusUnauthorized,
				Message: fmt.Sprintf("Invalid session: %v", err),
				Type:    "authentication",
			}
		}

		c.Locals(userIDKey, user.ID)
		return c.Next()
	}
}

// UserID returns the authenticated user id set by AuthUser, or "" when the
// route ran without it.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}
