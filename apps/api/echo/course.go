package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/course"
)

type courseApi struct {
	svc      *course.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{
		svc:      deps.CourseSvc,
		conf:     deps.Conf,
		validate: deps.Validate,
	}

	cg := g.Group("/courses")

	// un-authed endpoints
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.GET("/:id/reviews", api.queryReviews)

	// authed endpoints
	ag := cg.Group("", jwt)
	ag.POST("", api.create, instructorMiddleware())
	ag.POST("/:id/publish", api.publish, instructorMiddleware())
	ag.POST("/:id/enroll", api.enroll)
	ag.DELETE("/:id/enroll", api.unenroll)
	ag.POST("/:id/reviews", api.addReview)
}

// trapCourseErr maps course domain errors to HTTP errors.
func trapCourseErr(err error, msg string) error {
	switch errors.Cause(err) {
	case course.ErrNotFound, course.ErrEnrollmentNotFound, course.ErrReviewNotFound:
		return errHttpNotFound
	case course.ErrNotCourseInstructor:
		return errHttpForbidden
	case course.ErrNotPublished, course.ErrPaymentRequired, course.ErrAlreadyEnrolled,
		course.ErrNotEnrolled, course.ErrAlreadyReviewed:
		return core.NewValidationError(errors.Cause(err))
	}
	return errors.Wrap(err, msg)
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return trapCourseErr(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) publish(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	// admins may publish any course
	instructorID := claims.Subject
	if claims.IsAdmin {
		instructorID = ""
	}

	crs, err := api.svc.Publish(ctx.Request().Context(), ctx.Param("id"), instructorID)
	if err != nil {
		return trapCourseErr(err, "publishing course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.Filter(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return trapCourseErr(err, "finding course by ID")
	}

	rating, count, err := api.svc.Rating(ctx.Request().Context(), crs.ID)
	if err != nil {
		return trapCourseErr(err, "computing course rating")
	}
	return ctx.JSON(http.StatusOK, CourseDetailResponse{
		Course:      crs,
		Rating:      rating,
		ReviewCount: count,
	})
}

func (api *courseApi) enroll(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return trapCourseErr(err, "enrolling user")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) unenroll(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.Unenroll(ctx.Request().Context(), ctx.Param("id"), claims.Subject); err != nil {
		return trapCourseErr(err, "unenrolling user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) addReview(ctx echo.Context) error {
	var data course.NewReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rev, err := api.svc.AddReview(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data)
	if err != nil {
		return trapCourseErr(err, "adding review")
	}
	return ctx.JSON(http.StatusCreated, rev)
}

func (api *courseApi) queryReviews(ctx echo.Context) error {
	if _, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return trapCourseErr(err, "finding course by ID")
	}

	revs, err := api.svc.Reviews(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying reviews")
	}
	if revs == nil {
		revs = []course.Review{}
	}
	return ctx.JSON(http.StatusOK, revs)
}

type CourseDetailResponse struct {
	course.Course
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}
