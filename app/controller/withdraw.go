package controller

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/factory"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/mapper"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/service"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/types"
)

type WithdrawController struct {
	withdrawals *service.WithdrawService
	logger      logrus.FieldLogger
}

func NewWithdrawController(withdrawals *service.WithdrawService) *WithdrawController {
	return &WithdrawController{
		withdrawals: withdrawals,
		logger:      factory.NewModuleLogger("withdrawals-controller"),
	}
}

func (c *WithdrawController) CreateWithdrawRequest(ctx echo.Context) error {
	req, err := types.NewCreateWithdrawRequestRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.withdrawals.CreateWithdrawRequest(ctx.Request().Context(), req)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Create withdraw request")
	}

	return ctx.JSON(http.StatusCreated, &types.WithdrawRequestResponse{WithdrawRequest: mapper.WithdrawRequestToProto(item)})
}

func (c *WithdrawController) GetWithdrawRequest(ctx echo.Context) error {
	req, err := types.NewGetWithdrawRequestRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.withdrawals.GetWithdrawRequest(ctx.Request().Context(), req.GetId())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Get withdraw request")
	}

	return ctx.JSON(http.StatusOK, &types.WithdrawRequestResponse{WithdrawRequest: mapper.WithdrawRequestToProto(item)})
}

func (c *WithdrawController) ListWithdrawRequests(ctx echo.Context) error {
	req, err := types.NewListWithdrawRequestsRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.withdrawals.ListWithdrawRequests(ctx.Request().Context(), req)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "List withdraw requests")
	}

	return ctx.JSON(http.StatusOK, &types.ListWithdrawRequestsResponse{WithdrawRequests: mapper.WithdrawRequestsToProto(items)})
}

func (c *WithdrawController) Approve(ctx echo.Context) error {
	return c.process(ctx, "Approve withdraw request", func(ctx context.Context, req *types.ProcessWithdrawRequest) (*entity.WithdrawRequest, error) {
		return c.withdrawals.Approve(ctx, req)
	})
}

func (c *WithdrawController) Reject(ctx echo.Context) error {
	return c.process(ctx, "Reject withdraw request", func(ctx context.Context, req *types.ProcessWithdrawRequest) (*entity.WithdrawRequest, error) {
		return c.withdrawals.Reject(ctx, req)
	})
}

func (c *WithdrawController) Complete(ctx echo.Context) error {
	return c.process(ctx, "Complete withdraw request", func(ctx context.Context, req *types.ProcessWithdrawRequest) (*entity.WithdrawRequest, error) {
		return c.withdrawals.Complete(ctx, req)
	})
}

func (c *WithdrawController) process(
	ctx echo.Context,
	action string,
	apply func(context.Context, *types.ProcessWithdrawRequest) (*entity.WithdrawRequest, error),
) error {
	req, err := types.NewProcessWithdrawRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := apply(ctx.Request().Context(), req)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, action)
	}

	return ctx.JSON(http.StatusOK, &types.WithdrawRequestResponse{WithdrawRequest: mapper.WithdrawRequestToProto(item)})
}
