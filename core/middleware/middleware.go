package middleware

import (
	"net/http"
	"strings"

	"healthtrack-api/core/controller"
	"healthtrack-api/core/errors"
	"healthtrack-api/core/utils"

	"github.com/labstack/echo/v4"
)

// ContextUserIDKey is where AuthMiddleware stores the authenticated user id
// on the echo context.
const ContextUserIDKey = "user_id"

type Middleware struct{}

func NewMiddleware() *Middleware {
	return &Middleware{}
}

// AuthMiddleware rejects requests that do not carry a valid bearer token and
// stores the authenticated user id on the echo context for handlers.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get("Authorization")
			if header == "" {
				return controller.NewErrorResponse(http.StatusUnauthorized,
					errors.ErrMissingAuthorizationHeader, "missing authorization header")
			}

			token := strings.TrimPrefix(header, "Bearer ")
			if token == header {
				return controller.NewErrorResponse(http.StatusUnauthorized,
					errors.ErrInvalidTokenFormat, "authorization header must be a bearer token")
			}

			claims, err := utils.ValidateAndParseToken(token)
			if err != nil {
				return controller.NewErrorResponse(http.StatusUnauthorized,
					errors.CodeOf(err), "invalid or expired token")
			}

			ctx.Set(ContextUserIDKey, claims.UserID)
			return next(ctx)
		}
	}
}
