package echoapi

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func requestIDMiddleware() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString})
}

// staffMiddleware only lets through admin tokens of staff users. Must run after jwtMiddleware.
func staffMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		usr, err := getContextUser(ctx)
		if err != nil {
			return err
		}
		if claims.IsAdmin() && usr.IsStaff {
			return next(ctx)
		}
		return errHttpForbidden
	}
}
