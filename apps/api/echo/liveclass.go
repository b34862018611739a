package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/course"
	"github.com/darasa-app/darasa/core/liveclass"
)

type liveClassApi struct {
	svc      *liveclass.Service
	validate *validator.Validate
}

func registerLiveClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := liveClassApi{
		svc:      deps.LiveClassSvc,
		validate: deps.Validate,
	}

	lg := g.Group("/live-classes")

	// un-authed endpoints
	lg.GET("", api.query)

	// authed endpoints
	ag := lg.Group("", jwt)
	ag.POST("", api.schedule, instructorMiddleware())
	ag.GET("/:id", api.retrieve)
	ag.POST("/:id/start", api.start, instructorMiddleware())
	ag.POST("/:id/end", api.end, instructorMiddleware())
	ag.POST("/:id/cancel", api.cancel, instructorMiddleware())
}

func trapLiveClassErr(err error, msg string) error {
	switch errors.Cause(err) {
	case liveclass.ErrNotFound, course.ErrNotFound:
		return errHttpNotFound
	case course.ErrNotCourseInstructor:
		return errHttpForbidden
	case liveclass.ErrInvalidTransition:
		return core.NewValidationError(liveclass.ErrInvalidTransition)
	}
	return errors.Wrap(err, msg)
}

// Handlers

func (api *liveClassApi) schedule(ctx echo.Context) error {
	var data liveclass.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	// admins may schedule for any course
	instructorID := claims.Subject
	if claims.IsAdmin {
		instructorID = ""
	}

	sess, err := api.svc.Schedule(ctx.Request().Context(), instructorID, data)
	if err != nil {
		return trapLiveClassErr(err, "scheduling live session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *liveClassApi) query(ctx echo.Context) error {
	filter := new(liveclass.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []liveclass.Session{})
	}

	sessions, err := api.svc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying live sessions")
	}
	if sessions == nil {
		sessions = []liveclass.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *liveClassApi) retrieve(ctx echo.Context) error {
	sess, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapLiveClassErr(err, "finding live session by ID")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *liveClassApi) start(ctx echo.Context) error {
	sess, err := api.svc.Start(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapLiveClassErr(err, "starting live session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *liveClassApi) end(ctx echo.Context) error {
	sess, err := api.svc.End(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapLiveClassErr(err, "ending live session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *liveClassApi) cancel(ctx echo.Context) error {
	sess, err := api.svc.Cancel(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapLiveClassErr(err, "cancelling live session")
	}
	return ctx.JSON(http.StatusOK, sess)
}
