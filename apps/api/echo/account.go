package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
	"github.com/capitalizelearning/CapitalizeWebsite/core/auth"
)

const grantTypePassword = "password"

var errInvalidGrantType = core.NewValidationError(nil, core.FieldError{Field: "grant_type", Error: "unsupported grant type"})

type accountApi struct {
	service  *account.Service
	tokens   *auth.TokenService
	validate *validator.Validate
}

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := accountApi{
		service:  deps.AccountSvc,
		tokens:   deps.TokenSvc,
		validate: deps.Validate,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)
	ag.POST("/register", api.register)
	ag.POST("/set-password", api.setPassword)
	ag.POST("/waitlist", api.joinWaitingList)

	// authed endpoints
	ag.POST("/token-refresh", api.refreshToken, jwt)
	ag.GET("/profile", api.profile, jwt)
	ag.GET("/preferences", api.preferences, jwt)
	ag.PUT("/preferences", api.updatePreferences, jwt)

	// staff endpoints
	ag.GET("/waitlist", api.queryWaitingList, jwt, staffMiddleware)
	ag.POST("/waitlist/:id/promote", api.promote, jwt, staffMiddleware)
	ag.POST("/waitlist/:id/resend-invite", api.resendInvite, jwt, staffMiddleware)
}

func tokenResponse(ctx echo.Context, token string, expiresAt time.Time) error {
	return ctx.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(time.Until(expiresAt).Round(time.Second).Seconds()),
		TokenType:   authScheme,
	})
}

func (api *accountApi) login(ctx echo.Context) error {
	data := new(LoginRequest)
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding login data")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	if data.GrantType != grantTypePassword {
		return errInvalidGrantType
	}

	usr, err := api.service.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return err
	}
	token, exp, err := api.tokens.Encode(usr)
	if err != nil {
		return errors.Wrap(err, "encoding token")
	}
	return tokenResponse(ctx, token, exp)
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, _ := ctx.Get(contextTokenKey).(string)
	newToken, exp, err := api.tokens.Refresh(ctx.Request().Context(), token)
	if err != nil {
		return err
	}
	return tokenResponse(ctx, newToken, exp)
}

func (api *accountApi) register(ctx echo.Context) error {
	data := new(account.NewUser)
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding user data")
	}
	data.Clean()
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	usr, err := api.service.Register(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *accountApi) setPassword(ctx echo.Context) error {
	data := new(account.SetPassword)
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding password data")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	if _, err := api.service.SetPasswordWithToken(ctx.Request().Context(), *data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "password set"})
}

func (api *accountApi) profile(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, account.NewUserProfile(usr))
}

func (api *accountApi) preferences(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	prefs, err := api.service.GetPreferences(ctx.Request().Context(), usr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prefs)
}

func (api *accountApi) updatePreferences(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	data := new(account.UpdatePreferences)
	if err = ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding preferences data")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	prefs, err := api.service.UpdatePreferences(ctx.Request().Context(), usr.ID, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prefs)
}

func (api *accountApi) joinWaitingList(ctx echo.Context) error {
	data := new(account.JoinWaitingList)
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding waiting list data")
	}
	data.Clean()
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	_, created, err := api.service.JoinWaitingList(ctx.Request().Context(), data.Email)
	if err != nil {
		return err
	}
	if !created {
		return ctx.JSON(http.StatusOK, MessageResponse{Message: "already on list"})
	}
	return ctx.JSON(http.StatusCreated, MessageResponse{Message: "added to waiting list"})
}

func (api *accountApi) queryWaitingList(ctx echo.Context) error {
	ord := new(Ordering)
	ord.Bind(ctx)

	entries, err := api.service.QueryWaitingList(ctx.Request().Context(), ord.Orderings)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *accountApi) promote(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	data := new(account.Promote)
	if ctx.Request().ContentLength != 0 {
		if err = ctx.Bind(data); err != nil {
			return errors.Wrap(err, "binding promote data")
		}
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	prof, sent, err := api.service.Promote(ctx.Request().Context(), id, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, PromoteResponse{Profile: prof, InviteSent: sent})
}

func (api *accountApi) resendInvite(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	sent, err := api.service.ResendInvite(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, InviteResponse{InviteSent: sent})
}
