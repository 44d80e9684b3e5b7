package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/lesson"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=field,-other` ("-" for descending).
func (ord *Ordering) Bind(ctx echo.Context) {
	if val := ctx.QueryParam(orderingParam); val != "" {
		ord.Orderings = core.ParseOrdering(val)
	}
}

// paramID returns the positive int path param `name`; anything else is a 404.
func paramID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

type (
	LoginRequest struct {
		Username  string `form:"username" validate:"required"`
		Password  string `form:"password" validate:"required"`
		GrantType string `form:"grant_type" validate:"required"`
	}

	TokenResponse struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}

	PromoteResponse struct {
		Profile    interface{} `json:"profile"`
		InviteSent bool        `json:"invite_sent"`
	}

	InviteResponse struct {
		InviteSent bool `json:"invite_sent"`
	}
)

// QuizDetail is the staff view of a quiz, correct answers included.
type QuizDetail struct {
	Quiz      lesson.Quiz           `json:"quiz"`
	Questions []lesson.QuizQuestion `json:"questions"`
}
