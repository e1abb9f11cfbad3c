package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/factory"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/mapper"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/service"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/types"
)

type PromoCodeController struct {
	ledger *service.PromoLedger
	logger logrus.FieldLogger
}

func NewPromoCodeController(ledger *service.PromoLedger) *PromoCodeController {
	return &PromoCodeController{
		ledger: ledger,
		logger: factory.NewModuleLogger("promocodes-controller"),
	}
}

// ValidatePromoCode answers 200 with valid=false and a reason for any code that
// cannot be applied.
func (c *PromoCodeController) ValidatePromoCode(ctx echo.Context) error {
	req, err := types.NewValidatePromoCodeRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	promo, err := c.ledger.Validate(ctx.Request().Context(), req.GetCode(), entity.ItemType(req.GetItemType()), req.GetItemId())
	if err != nil {
		if errors.Is(err, service.ErrInvalidPromoCode) {
			return ctx.JSON(http.StatusOK, &types.ValidatePromoCodeResponse{Valid: false, Code: req.GetCode(), Reason: err.Error()})
		}
		return writeServiceError(ctx, c.logger, err, "Validate promo code")
	}

	return ctx.JSON(http.StatusOK, mapper.ValidPromoCodeToProto(promo))
}

func (c *PromoCodeController) CreatePromoCode(ctx echo.Context) error {
	req, err := types.NewCreatePromoCodeRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.ledger.CreatePromoCode(ctx.Request().Context(), req)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Create promo code")
	}

	return ctx.JSON(http.StatusCreated, &types.PromoCodeResponse{PromoCode: mapper.PromoCodeToProto(item)})
}

func (c *PromoCodeController) GetPromoCode(ctx echo.Context) error {
	req, err := types.NewPromoCodeRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.ledger.GetPromoCode(ctx.Request().Context(), req.GetCode())
	if err != nil {
		if errors.Is(err, service.ErrPromoCodeNotFound) {
			return writeError(ctx, http.StatusNotFound, "promo code not found")
		}
		return writeServiceError(ctx, c.logger, err, "Get promo code")
	}

	return ctx.JSON(http.StatusOK, &types.PromoCodeResponse{PromoCode: mapper.PromoCodeToProto(item)})
}

func (c *PromoCodeController) DeactivatePromoCode(ctx echo.Context) error {
	req, err := types.NewPromoCodeRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.ledger.DeactivatePromoCode(ctx.Request().Context(), req.GetCode())
	if err != nil {
		if errors.Is(err, service.ErrPromoCodeNotFound) {
			return writeError(ctx, http.StatusNotFound, "promo code not found")
		}
		return writeServiceError(ctx, c.logger, err, "Deactivate promo code")
	}

	return ctx.JSON(http.StatusOK, &types.PromoCodeResponse{PromoCode: mapper.PromoCodeToProto(item)})
}

func (c *PromoCodeController) ListPromoCodes(ctx echo.Context) error {
	req, err := types.NewListPromoCodesRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.ledger.ListPromoCodes(ctx.Request().Context(), req)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "List promo codes")
	}

	return ctx.JSON(http.StatusOK, &types.ListPromoCodesResponse{PromoCodes: mapper.PromoCodesToProto(items)})
}
