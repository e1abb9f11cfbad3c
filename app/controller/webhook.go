package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/factory"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/mapper"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/provider"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/service"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/types"
)

// WebhookController receives provider notifications. Protocol errors are answered
// with 200 and flagged so the provider stops redelivering; transient errors return
// 503 so it retries.
type WebhookController struct {
	reconciler *service.Reconciler
	logger     logrus.FieldLogger
}

func NewWebhookController(reconciler *service.Reconciler) *WebhookController {
	return &WebhookController{
		reconciler: reconciler,
		logger:     factory.NewModuleLogger("webhooks-controller"),
	}
}

func (c *WebhookController) PreCheck(ctx echo.Context) error {
	return c.handle(ctx, provider.NotificationPreCheck)
}

func (c *WebhookController) Completed(ctx echo.Context) error {
	return c.handle(ctx, provider.NotificationCompleted)
}

func (c *WebhookController) handle(ctx echo.Context, kind provider.NotificationKind) error {
	req, err := types.NewProviderNotificationRequestFromContext(ctx, string(kind))
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	outcome, err := c.reconciler.HandleProviderNotification(ctx.Request().Context(), req)
	if err != nil {
		if service.IsProtocolError(err) {
			factory.LoggerWithContext(c.logger, ctx).WithError(err).WithField("provider", req.GetProvider()).Warn("Provider notification flagged")
			resp := mapper.NotificationOutcomeToProto(outcome)
			resp.Flagged = true
			return ctx.JSON(http.StatusOK, resp)
		}
		return writeServiceError(ctx, c.logger, err, "Handle provider notification")
	}

	return ctx.JSON(http.StatusOK, mapper.NotificationOutcomeToProto(outcome))
}
