package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-app/darasa/core/notification"
)

type notificationApi struct {
	svc *notification.Service
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := notificationApi{svc: deps.NotifSvc}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.query)
	ng.GET("/unread-count", api.unreadCount)
	ng.POST("/:id/read", api.markRead)
	ng.POST("/read-all", api.markAllRead)
}

func trapNotificationErr(err error, msg string) error {
	switch errors.Cause(err) {
	case notification.ErrNotFound:
		return errHttpNotFound
	case notification.ErrNotOwner:
		// do not reveal other users' notifications
		return errHttpNotFound
	}
	return errors.Wrap(err, msg)
}

// Handlers

func (api *notificationApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	notifs, err := api.svc.QueryByUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationApi) unreadCount(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	cnt, err := api.svc.UnreadCount(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, UnreadCountResponse{Count: cnt})
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	notif, err := api.svc.MarkRead(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return trapNotificationErr(err, "marking notification read")
	}
	return ctx.JSON(http.StatusOK, notif)
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.MarkAllRead(ctx.Request().Context(), claims.Subject); err != nil {
		return errors.Wrap(err, "marking all notifications read")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}
