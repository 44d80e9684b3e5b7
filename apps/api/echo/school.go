package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/school"
)

type schoolApi struct {
	service  *school.Service
	validate *validator.Validate
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := schoolApi{
		service:  deps.SchoolSvc,
		validate: deps.Validate,
	}

	ig := g.Group("/institutions", jwt)
	ig.GET("", api.queryInstitutions)
	ig.POST("", api.createInstitution, staffMiddleware)
	ig.GET("/:id", api.retrieveInstitution)

	cg := g.Group("/classes", jwt)
	cg.GET("", api.queryClasses)
	cg.POST("", api.createClass, staffMiddleware)
	cg.GET("/:id", api.retrieveClass)
	cg.GET("/:id/enrollments", api.queryClassEnrollments, staffMiddleware)
	cg.POST("/:id/enrollments", api.enroll, staffMiddleware)

	g.GET("/enrollments", api.queryOwnEnrollments, jwt)
}

func (api *schoolApi) createInstitution(ctx echo.Context) error {
	data := new(school.NewInstitution)
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding institution data")
	}
	data.Clean()
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	inst, err := api.service.CreateInstitution(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, inst)
}

func (api *schoolApi) queryInstitutions(ctx echo.Context) error {
	insts, err := api.service.QueryInstitutions(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, insts)
}

func (api *schoolApi) retrieveInstitution(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	inst, err := api.service.GetInstitution(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (api *schoolApi) createClass(ctx echo.Context) error {
	data := new(school.NewClass)
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding class data")
	}
	data.Clean()
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	cls, err := api.service.CreateClass(ctx.Request().Context(), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cls)
}

// queryClasses accepts `?institution=<id>&instructor=<id>`.
func (api *schoolApi) queryClasses(ctx echo.Context) error {
	var filter school.ClassFilter
	var err error
	if v := ctx.QueryParam("institution"); v != "" {
		if filter.InstitutionID, err = strconv.Atoi(v); err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "institution", Error: "must be an integer"})
		}
	}
	if v := ctx.QueryParam("instructor"); v != "" {
		if filter.InstructorID, err = strconv.Atoi(v); err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "instructor", Error: "must be an integer"})
		}
	}

	classes, err := api.service.QueryClasses(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *schoolApi) retrieveClass(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	cls, err := api.service.GetClass(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *schoolApi) enroll(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	data := new(school.NewEnrollment)
	if err = ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding enrollment data")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	enr, err := api.service.Enroll(ctx.Request().Context(), id, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *schoolApi) queryClassEnrollments(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	enrollments, err := api.service.QueryClassEnrollments(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *schoolApi) queryOwnEnrollments(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	enrollments, err := api.service.QueryStudentEnrollments(ctx.Request().Context(), usr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enrollments)
}
