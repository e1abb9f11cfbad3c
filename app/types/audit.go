package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
)

func NewListAuditEntriesRequestFromContext(ctx echo.Context) (*ListAuditEntriesRequest, error) {
	limit, err := parseInt32Query(ctx, "limit", defaultListLimit)
	if err != nil {
		return nil, err
	}
	return &ListAuditEntriesRequest{
		SubjectType: strings.ToLower(strings.TrimSpace(ctx.Param("subjectType"))),
		SubjectId:   strings.TrimSpace(ctx.Param("subjectId")),
		Limit:       limit,
	}, nil
}

func (r *ListAuditEntriesRequest) Validate() error {
	switch r.GetSubjectType() {
	case entity.AuditSubjectPurchase, entity.AuditSubjectWithdraw, entity.AuditSubjectNotification:
	default:
		return errors.New("invalid subject type")
	}
	if r.GetSubjectId() == "" {
		return errors.New("subject id is required")
	}
	return validatePaging(&r.Limit, 0)
}
