package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/course"
	"github.com/darasa-app/darasa/core/payment"
)

type paymentApi struct {
	svc      *payment.Service
	validate *validator.Validate
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := paymentApi{
		svc:      deps.PaymentSvc,
		validate: deps.Validate,
	}

	pg := g.Group("/payments", jwt)
	pg.POST("", api.create)
	pg.GET("", api.query)
	pg.POST("/:id/confirm", api.confirm, adminMiddleware())
}

func trapPaymentErr(err error, msg string) error {
	switch errors.Cause(err) {
	case payment.ErrNotFound, course.ErrNotFound:
		return errHttpNotFound
	case payment.ErrInvalidStatus, payment.ErrFreeCourse, course.ErrNotPublished:
		return core.NewValidationError(errors.Cause(err))
	}
	return errors.Wrap(err, msg)
}

// Handlers

func (api *paymentApi) create(ctx echo.Context) error {
	var data payment.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	pmt, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return trapPaymentErr(err, "creating payment")
	}
	return ctx.JSON(http.StatusCreated, pmt)
}

func (api *paymentApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	pmts, err := api.svc.QueryByUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if pmts == nil {
		pmts = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, pmts)
}

func (api *paymentApi) confirm(ctx echo.Context) error {
	var data ConfirmPaymentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ConfirmPaymentRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	pmt, err := api.svc.Confirm(ctx.Request().Context(), ctx.Param("id"), data.ProviderRef)
	if err != nil {
		return trapPaymentErr(err, "confirming payment")
	}
	return ctx.JSON(http.StatusOK, pmt)
}

type ConfirmPaymentRequest struct {
	ProviderRef string `json:"provider_ref" validate:"required"`
}
