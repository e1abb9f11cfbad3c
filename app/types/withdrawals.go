package types

import (
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
)

func NewCreateWithdrawRequestRequestFromContext(ctx echo.Context) (*CreateWithdrawRequestRequest, error) {
	var body CreateWithdrawRequestRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Notes = strings.TrimSpace(body.Notes)
	body.RequestedBy = strings.TrimSpace(body.RequestedBy)

	return &body, nil
}

func (r *CreateWithdrawRequestRequest) Validate() error {
	if r.GetAmount() <= 0 {
		return errors.New("amount must be > 0")
	}
	return nil
}

func NewGetWithdrawRequestRequestFromContext(ctx echo.Context) (*GetWithdrawRequestRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}
	return &GetWithdrawRequestRequest{Id: id}, nil
}

func (r *GetWithdrawRequestRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid withdraw request id")
	}
	return nil
}

func NewProcessWithdrawRequestFromContext(ctx echo.Context) (*ProcessWithdrawRequest, error) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return nil, err
	}

	var body ProcessWithdrawRequest
	if err = ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.Id = id
	body.Notes = strings.TrimSpace(body.Notes)
	body.ProcessedBy = strings.TrimSpace(body.ProcessedBy)

	return &body, nil
}

func (r *ProcessWithdrawRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid withdraw request id")
	}
	return nil
}

func NewListWithdrawRequestsRequestFromContext(ctx echo.Context) (*ListWithdrawRequestsRequest, error) {
	limit, offset, err := parsePaging(ctx)
	if err != nil {
		return nil, err
	}

	return &ListWithdrawRequestsRequest{
		Status: strings.ToUpper(strings.TrimSpace(ctx.QueryParam("status"))),
		Limit:  limit,
		Offset: offset,
	}, nil
}

func (r *ListWithdrawRequestsRequest) Validate() error {
	if err := validatePaging(&r.Limit, r.Offset); err != nil {
		return err
	}
	if r.GetStatus() != "" {
		if _, ok := entity.ParseWithdrawStatus(r.GetStatus()); !ok {
			return errors.New("invalid status")
		}
	}
	return nil
}
