package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/lesson"
)

const mediaFormField = "file"

type lessonApi struct {
	service  *lesson.Service
	validate *validator.Validate
}

func registerLessonAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := lessonApi{
		service:  deps.LessonSvc,
		validate: deps.Validate,
	}

	lg := g.Group("/lessons", jwt)
	lg.GET("", api.queryContents)
	lg.POST("", api.createContent, staffMiddleware)
	lg.GET("/:content_id", api.retrieveContent)
	lg.PUT("/:content_id", api.updateContent, staffMiddleware)
	lg.DELETE("/:content_id", api.destroyContent, staffMiddleware)
	lg.POST("/:content_id/media", api.uploadMedia, staffMiddleware)
	lg.GET("/:content_id/quizzes", api.queryQuizzes)
	lg.POST("/:content_id/quizzes", api.createQuiz, staffMiddleware)

	// student endpoints
	lg.GET("/quizzes/:quiz_id", api.quizOverview)
	lg.GET("/quizzes/:quiz_id/:question_id", api.retrieveStudentQuestion)
	lg.POST("/quizzes/:quiz_id/:question_id", api.submitAnswer)

	// management endpoints
	mg := lg.Group("/quizzes/manage/:quiz_id", staffMiddleware)
	mg.GET("", api.retrieveQuiz)
	mg.PUT("", api.updateQuiz)
	mg.DELETE("", api.destroyQuiz)
	mg.POST("", api.addQuestion)
	mg.GET("/:question_id", api.retrieveQuestion)
	mg.PUT("/:question_id", api.updateQuestion)
	mg.DELETE("/:question_id", api.destroyQuestion)
}

// Content

func (api *lessonApi) createContent(ctx echo.Context) error {
	data := new(lesson.NewContent)
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding content data")
	}
	data.Clean()
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	cnt, err := api.service.CreateContent(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cnt)
}

func (api *lessonApi) queryContents(ctx echo.Context) error {
	contents, err := api.service.QueryContents(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, contents)
}

func (api *lessonApi) retrieveContent(ctx echo.Context) error {
	id, err := paramID(ctx, "content_id")
	if err != nil {
		return err
	}
	cnt, err := api.service.GetContent(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cnt)
}

func (api *lessonApi) updateContent(ctx echo.Context) error {
	id, err := paramID(ctx, "content_id")
	if err != nil {
		return err
	}
	data := new(lesson.UpdateContent)
	if err = ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding content data")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	cnt, err := api.service.UpdateContent(ctx.Request().Context(), id, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cnt)
}

func (api *lessonApi) destroyContent(ctx echo.Context) error {
	id, err := paramID(ctx, "content_id")
	if err != nil {
		return err
	}
	if err = api.service.DeleteContent(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *lessonApi) uploadMedia(ctx echo.Context) error {
	id, err := paramID(ctx, "content_id")
	if err != nil {
		return err
	}
	fh, err := ctx.FormFile(mediaFormField)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: mediaFormField, Error: "this field is required"})
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer file.Close()

	contentType := fh.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	cnt, err := api.service.UploadMedia(ctx.Request().Context(), id, fh.Filename, contentType, file)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cnt)
}

// Quizzes

func (api *lessonApi) createQuiz(ctx echo.Context) error {
	contentID, err := paramID(ctx, "content_id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	data := new(lesson.NewQuiz)
	if err = ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding quiz data")
	}
	data.Clean()
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	quiz, err := api.service.CreateQuiz(ctx.Request().Context(), contentID, usr.ID, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, quiz)
}

func (api *lessonApi) queryQuizzes(ctx echo.Context) error {
	contentID, err := paramID(ctx, "content_id")
	if err != nil {
		return err
	}
	quizzes, err := api.service.QueryQuizzes(ctx.Request().Context(), contentID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, quizzes)
}

func (api *lessonApi) retrieveQuiz(ctx echo.Context) error {
	id, err := paramID(ctx, "quiz_id")
	if err != nil {
		return err
	}
	quiz, err := api.service.GetQuiz(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	questions, err := api.service.QueryQuestions(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, QuizDetail{Quiz: quiz, Questions: questions})
}

func (api *lessonApi) updateQuiz(ctx echo.Context) error {
	id, err := paramID(ctx, "quiz_id")
	if err != nil {
		return err
	}
	data := new(lesson.UpdateQuiz)
	if err = ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding quiz data")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	quiz, err := api.service.UpdateQuiz(ctx.Request().Context(), id, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, quiz)
}

func (api *lessonApi) destroyQuiz(ctx echo.Context) error {
	id, err := paramID(ctx, "quiz_id")
	if err != nil {
		return err
	}
	if err = api.service.DeleteQuiz(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *lessonApi) quizOverview(ctx echo.Context) error {
	id, err := paramID(ctx, "quiz_id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	overview, err := api.service.QuizOverview(ctx.Request().Context(), id, usr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, overview)
}

// Questions

func questionIDs(ctx echo.Context) (quizID, questionID int, err error) {
	if quizID, err = paramID(ctx, "quiz_id"); err != nil {
		return 0, 0, err
	}
	if questionID, err = paramID(ctx, "question_id"); err != nil {
		return 0, 0, err
	}
	return quizID, questionID, nil
}

func (api *lessonApi) addQuestion(ctx echo.Context) error {
	quizID, err := paramID(ctx, "quiz_id")
	if err != nil {
		return err
	}
	data := new(lesson.NewQuestion)
	if err = ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding question data")
	}
	data.Clean()
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	q, err := api.service.AddQuestion(ctx.Request().Context(), quizID, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *lessonApi) retrieveQuestion(ctx echo.Context) error {
	quizID, questionID, err := questionIDs(ctx)
	if err != nil {
		return err
	}
	q, err := api.service.GetQuestion(ctx.Request().Context(), quizID, questionID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *lessonApi) updateQuestion(ctx echo.Context) error {
	quizID, questionID, err := questionIDs(ctx)
	if err != nil {
		return err
	}
	data := new(lesson.UpdateQuestion)
	if err = ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding question data")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	q, err := api.service.UpdateQuestion(ctx.Request().Context(), quizID, questionID, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *lessonApi) destroyQuestion(ctx echo.Context) error {
	quizID, questionID, err := questionIDs(ctx)
	if err != nil {
		return err
	}
	if err = api.service.DeleteQuestion(ctx.Request().Context(), quizID, questionID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *lessonApi) retrieveStudentQuestion(ctx echo.Context) error {
	quizID, questionID, err := questionIDs(ctx)
	if err != nil {
		return err
	}
	q, err := api.service.GetQuestion(ctx.Request().Context(), quizID, questionID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, q.StudentView())
}

func (api *lessonApi) submitAnswer(ctx echo.Context) error {
	quizID, questionID, err := questionIDs(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	data := new(lesson.SubmitAnswer)
	if err = ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding answer data")
	}

	res, err := api.service.SubmitAnswer(ctx.Request().Context(), quizID, questionID, usr.ID, data.SelectedIndex)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}
