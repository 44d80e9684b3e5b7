package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
	"github.com/capitalizelearning/CapitalizeWebsite/core/auth"
)

const (
	contextClaimsKey = "claims"
	contextUserKey   = "user"
	contextTokenKey  = "token"

	authScheme = "Bearer"
)

var errMissingToken = core.NewAuthenticationError("missing or malformed jwt")

// jwtMiddleware authenticates the request bearer token and stores its claims & user in the context.
func jwtMiddleware(tokens *auth.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token := bearerToken(ctx)
			if token == "" {
				return errMissingToken
			}
			claims, err := tokens.ParseClaims(token)
			if err != nil {
				return err
			}
			usr, err := tokens.Resolve(ctx.Request().Context(), claims)
			if err != nil {
				return err
			}

			ctx.Set(contextTokenKey, token)
			ctx.Set(contextClaimsKey, claims)
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

func bearerToken(ctx echo.Context) string {
	header := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > len(authScheme)+1 && strings.EqualFold(header[:len(authScheme)], authScheme) && header[len(authScheme)] == ' ' {
		return strings.TrimSpace(header[len(authScheme)+1:])
	}
	return ""
}

func getContextClaims(ctx echo.Context) (*auth.Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*auth.Claims); ok {
		return claims, nil
	}
	return nil, errMissingToken
}

func getContextUser(ctx echo.Context) (account.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(account.User); ok {
		return usr, nil
	}
	return account.User{}, errMissingToken
}
