package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/factory"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/mapper"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/service"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/types"
)

type PurchaseController struct {
	purchases *service.PurchaseService
	logger    logrus.FieldLogger
}

func NewPurchaseController(purchases *service.PurchaseService) *PurchaseController {
	return &PurchaseController{
		purchases: purchases,
		logger:    factory.NewModuleLogger("purchases-controller"),
	}
}

func (c *PurchaseController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PurchaseController) CreatePurchaseIntent(ctx echo.Context) error {
	req, err := types.NewCreatePurchaseIntentRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	intent, err := c.purchases.CreatePurchaseIntent(ctx.Request().Context(), req)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Create purchase intent")
	}

	return ctx.JSON(http.StatusCreated, mapper.PurchaseIntentToProto(intent))
}

func (c *PurchaseController) GetPurchase(ctx echo.Context) error {
	req, err := types.NewGetPurchaseRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.purchases.GetPurchase(ctx.Request().Context(), req.GetId())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Get purchase")
	}

	return ctx.JSON(http.StatusOK, &types.PurchaseResponse{Purchase: mapper.PurchaseToProto(item)})
}

func (c *PurchaseController) ListPurchases(ctx echo.Context) error {
	req, err := types.NewListPurchasesRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.purchases.ListPurchases(ctx.Request().Context(), req)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "List purchases")
	}

	return ctx.JSON(http.StatusOK, &types.ListPurchasesResponse{Purchases: mapper.PurchasesToProto(items)})
}
