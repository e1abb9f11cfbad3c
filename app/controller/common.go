package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/factory"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/service"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/types"
)

func writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}

// writeServiceError maps service sentinels onto HTTP statuses. Anything unmapped is
// logged with its cause and hidden behind a 500.
func writeServiceError(ctx echo.Context, logger logrus.FieldLogger, err error, action string) error {
	statusCode := errorStatusCode(err)
	if statusCode == http.StatusInternalServerError {
		factory.LoggerWithContext(logger, ctx).WithError(err).Error(action + " failed")
		return writeError(ctx, statusCode, "internal server error")
	}
	if statusCode == http.StatusServiceUnavailable {
		factory.LoggerWithContext(logger, ctx).WithError(err).Warn(action + " timed out")
		return writeError(ctx, statusCode, "service temporarily unavailable")
	}
	return writeError(ctx, statusCode, err.Error())
}

func errorStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrStoreTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidPromoCode):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPurchaseNotFound), errors.Is(err, service.ErrWithdrawNotFound), errors.Is(err, service.ErrProviderUnsupported):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateActivePurchase),
		errors.Is(err, service.ErrItemAlreadyOwned),
		errors.Is(err, service.ErrPromoCodeAlreadyExists),
		errors.Is(err, service.ErrInvalidStatus):
		return http.StatusConflict
	case errors.Is(err, service.ErrItemNotPurchasable), errors.Is(err, service.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNotificationRejected):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
