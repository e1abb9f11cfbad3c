package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/factory"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/mapper"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/report"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/service"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/types"
)

type FinanceController struct {
	finance *service.FinanceAggregator
	logger  logrus.FieldLogger
}

func NewFinanceController(finance *service.FinanceAggregator) *FinanceController {
	return &FinanceController{
		finance: finance,
		logger:  factory.NewModuleLogger("finance-controller"),
	}
}

func (c *FinanceController) DailyRevenue(ctx echo.Context) error {
	req, err := types.NewDailyRevenueRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	day, _ := time.Parse(types.DateLayout, req.GetDate())
	summary, err := c.finance.DailyRevenue(ctx.Request().Context(), day)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Daily revenue")
	}

	return ctx.JSON(http.StatusOK, mapper.RevenueSummaryToProto(summary))
}

func (c *FinanceController) MonthlyRevenue(ctx echo.Context) error {
	req, err := types.NewMonthlyRevenueRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	summary, err := c.finance.MonthlyRevenue(ctx.Request().Context(), int(req.GetYear()), time.Month(req.GetMonth()))
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Monthly revenue")
	}

	return ctx.JSON(http.StatusOK, mapper.RevenueSummaryToProto(summary))
}

func (c *FinanceController) TopItems(ctx echo.Context) error {
	req, err := types.NewTopItemsRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.finance.TopItems(ctx.Request().Context(), int(req.GetDays()), req.GetLimit())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Top items")
	}

	return ctx.JSON(http.StatusOK, mapper.ItemRevenueToProto(items))
}

func (c *FinanceController) Balance(ctx echo.Context) error {
	balance, err := c.finance.WithdrawableBalance(ctx.Request().Context())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Withdrawable balance")
	}

	return ctx.JSON(http.StatusOK, mapper.BalanceToProto(balance))
}

// RevenueReport streams the XLSX workbook as an attachment.
func (c *FinanceController) RevenueReport(ctx echo.Context) error {
	req, err := types.NewRevenueReportRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	from, _ := time.Parse(types.DateLayout, req.GetFrom())
	to, _ := time.Parse(types.DateLayout, req.GetTo())
	data, content, err := c.finance.RevenueReport(ctx.Request().Context(), from, to)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Revenue report")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", data.FileName()))
	return ctx.Blob(http.StatusOK, report.ContentType, content)
}
