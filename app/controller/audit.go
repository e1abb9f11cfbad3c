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

type AuditController struct {
	audit  *service.AuditTrail
	logger logrus.FieldLogger
}

func NewAuditController(audit *service.AuditTrail) *AuditController {
	return &AuditController{
		audit:  audit,
		logger: factory.NewModuleLogger("audit-controller"),
	}
}

func (c *AuditController) ListEntries(ctx echo.Context) error {
	req, err := types.NewListAuditEntriesRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.audit.List(ctx.Request().Context(), req)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "List audit entries")
	}

	return ctx.JSON(http.StatusOK, &types.ListAuditEntriesResponse{Entries: mapper.AuditEntriesToProto(items)})
}
