package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
)

var (
	errHttpForbidden = core.ErrPermissionDenied
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// clientError maps a core error to its status code and response body.
// ok is false for server errors.
func clientError(err error, translator ut.Translator) (code int, body interface{}, ok bool) {
	switch cause := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if herr, isHTTP := cause.Internal.(*echo.HTTPError); isHTTP {
			cause = herr
		}
		return cause.Code, cause.Message, cause.Code < http.StatusInternalServerError
	case validator.ValidationErrors:
		fields := make(map[string]string, len(cause))
		for _, fe := range cause {
			fields[fe.Field()] = fe.Translate(translator)
		}
		return http.StatusBadRequest, fields, true
	case *core.ValidationError:
		if len(cause.Fields) == 0 {
			return http.StatusBadRequest, cause.Error(), true
		}
		fields := make(map[string]string, len(cause.Fields))
		for _, fe := range cause.Fields {
			fields[fe.Field] = fe.Error
		}
		return http.StatusBadRequest, fields, true
	case *core.AuthenticationError:
		return http.StatusUnauthorized, cause.Error(), true
	case *core.PermissionError:
		return http.StatusForbidden, cause.Error(), true
	case *core.NotFoundError:
		return http.StatusNotFound, cause.Error(), true
	case *core.ConflictError:
		return http.StatusConflict, cause.Error(), true
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), false
}

// newAppHTTPErrorHandler returns the echo.HTTPErrorHandler rendering core errors as `{"error": ...}` bodies
// (or a field -> message map for validation errors). Server errors are logged with the request's user,
// and signalShutdown is called when one of them is a core shutdown error.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body, ok := clientError(err, translator)
		if code == http.StatusUnauthorized {
			ctx.Response().Header().Set(echo.HeaderWWWAuthenticate, authScheme)
		}

		if !ok {
			msg := http.StatusText(code)
			usr, _ := ctx.Get(contextUserKey).(account.User)
			logger.Error(msg, errors.Wrap(err, msg), map[string]interface{}{
				"method":     ctx.Request().Method,
				"path":       ctx.Path(),
				"request_id": ctx.Response().Header().Get(echo.HeaderXRequestID),
			}, usr)

			if core.IsShutdown(err) {
				signalShutdown()
			}
			if ctx.Echo().Debug {
				body = err.Error()
			}
		}
		if s, isStr := body.(string); isStr {
			body = echo.Map{"error": s}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, body)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
