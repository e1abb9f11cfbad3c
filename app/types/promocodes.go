package types

import (
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
)

func NewValidatePromoCodeRequestFromContext(ctx echo.Context) (*ValidatePromoCodeRequest, error) {
	var body ValidatePromoCodeRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Code = entity.NormalizePromoCode(body.Code)
	body.ItemType = strings.ToLower(strings.TrimSpace(body.ItemType))

	return &body, nil
}

func (r *ValidatePromoCodeRequest) Validate() error {
	if r.GetCode() == "" {
		return errors.New("code is required")
	}
	if r.GetItemType() != "" {
		if _, ok := entity.ParseItemType(r.GetItemType()); !ok {
			return errors.New("item_type must be lesson or course")
		}
	}
	return nil
}

func NewCreatePromoCodeRequestFromContext(ctx echo.Context) (*CreatePromoCodeRequest, error) {
	var body CreatePromoCodeRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Code = entity.NormalizePromoCode(body.Code)
	body.ItemType = strings.ToLower(strings.TrimSpace(body.ItemType))
	body.ExpiresAt = strings.TrimSpace(body.ExpiresAt)

	return &body, nil
}

// Validate checks shape only; limits that depend on configuration are enforced by the service.
func (r *CreatePromoCodeRequest) Validate() error {
	if r.GetCode() == "" {
		return errors.New("code is required")
	}
	hasPercent := r.GetDiscountPercent() != 0
	hasAmount := r.GetDiscountAmount() != 0
	if hasPercent == hasAmount {
		return errors.New("exactly one of discount_percent or discount_amount is required")
	}
	if r.GetDiscountPercent() < 0 || r.GetDiscountAmount() < 0 {
		return errors.New("discount must be > 0")
	}
	if r.GetMaxUses() < 0 {
		return errors.New("max_uses must be >= 0")
	}
	if r.GetItemType() != "" {
		if _, ok := entity.ParseItemType(r.GetItemType()); !ok {
			return errors.New("item_type must be lesson or course")
		}
	}
	if r.GetExpiresAt() != "" {
		if _, err := time.Parse(time.RFC3339, r.GetExpiresAt()); err != nil {
			return errors.New("expires_at must be RFC3339")
		}
	}
	return nil
}

func NewPromoCodeRequestFromContext(ctx echo.Context) (*PromoCodeRequest, error) {
	return &PromoCodeRequest{Code: entity.NormalizePromoCode(ctx.Param("code"))}, nil
}

func (r *PromoCodeRequest) Validate() error {
	if r.GetCode() == "" {
		return errors.New("code is required")
	}
	return nil
}

func NewListPromoCodesRequestFromContext(ctx echo.Context) (*ListPromoCodesRequest, error) {
	limit, offset, err := parsePaging(ctx)
	if err != nil {
		return nil, err
	}

	activeOnly := false
	switch strings.ToLower(strings.TrimSpace(ctx.QueryParam("active"))) {
	case "", "0", "false":
	case "1", "true":
		activeOnly = true
	default:
		return nil, errors.New("invalid active flag")
	}

	return &ListPromoCodesRequest{ActiveOnly: activeOnly, Limit: limit, Offset: offset}, nil
}

func (r *ListPromoCodesRequest) Validate() error {
	return validatePaging(&r.Limit, r.Offset)
}
