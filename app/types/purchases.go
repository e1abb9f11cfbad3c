package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
)

func NewCreatePurchaseIntentRequestFromContext(ctx echo.Context) (*CreatePurchaseIntentRequest, error) {
	var body CreatePurchaseIntentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.BuyerId = strings.TrimSpace(body.BuyerId)
	body.ItemType = strings.ToLower(strings.TrimSpace(body.ItemType))
	body.PromoCode = entity.NormalizePromoCode(body.PromoCode)

	return &body, nil
}

func (r *CreatePurchaseIntentRequest) Validate() error {
	if strings.TrimSpace(r.GetBuyerId()) == "" {
		return errors.New("buyer_id is required")
	}
	if r.GetItemId() == 0 {
		return errors.New("item_id is required")
	}
	if _, ok := entity.ParseItemType(r.GetItemType()); !ok {
		return errors.New("item_type must be lesson or course")
	}
	return nil
}

func NewGetPurchaseRequestFromContext(ctx echo.Context) (*GetPurchaseRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}
	return &GetPurchaseRequest{Id: id}, nil
}

func (r *GetPurchaseRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid purchase id")
	}
	return nil
}

func NewListPurchasesRequestFromContext(ctx echo.Context) (*ListPurchasesRequest, error) {
	limit, offset, err := parsePaging(ctx)
	if err != nil {
		return nil, err
	}

	return &ListPurchasesRequest{
		BuyerId: strings.TrimSpace(ctx.QueryParam("buyer_id")),
		State:   strings.ToUpper(strings.TrimSpace(ctx.QueryParam("state"))),
		Limit:   limit,
		Offset:  offset,
	}, nil
}

func (r *ListPurchasesRequest) Validate() error {
	if err := validatePaging(&r.Limit, r.Offset); err != nil {
		return err
	}
	if r.GetState() != "" {
		if _, ok := entity.ParsePurchaseState(r.GetState()); !ok {
			return errors.New("invalid state")
		}
	}
	return nil
}
