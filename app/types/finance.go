package types

import (
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const DateLayout = "2006-01-02"

func NewDailyRevenueRequestFromContext(ctx echo.Context) (*DailyRevenueRequest, error) {
	return &DailyRevenueRequest{Date: strings.TrimSpace(ctx.QueryParam("date"))}, nil
}

// Validate defaults an empty date to today in UTC.
func (r *DailyRevenueRequest) Validate() error {
	if r.Date == "" {
		r.Date = time.Now().UTC().Format(DateLayout)
	}
	if _, err := time.Parse(DateLayout, r.GetDate()); err != nil {
		return errors.New("date must be YYYY-MM-DD")
	}
	return nil
}

func NewMonthlyRevenueRequestFromContext(ctx echo.Context) (*MonthlyRevenueRequest, error) {
	now := time.Now().UTC()
	year, err := parseInt32Query(ctx, "year", int32(now.Year()))
	if err != nil {
		return nil, err
	}
	month, err := parseInt32Query(ctx, "month", int32(now.Month()))
	if err != nil {
		return nil, err
	}
	return &MonthlyRevenueRequest{Year: year, Month: month}, nil
}

func (r *MonthlyRevenueRequest) Validate() error {
	if r.GetYear() < 2000 || r.GetYear() > 9999 {
		return errors.New("year is out of range")
	}
	if r.GetMonth() < 1 || r.GetMonth() > 12 {
		return errors.New("month must be between 1 and 12")
	}
	return nil
}

func NewTopItemsRequestFromContext(ctx echo.Context) (*TopItemsRequest, error) {
	days, err := parseInt32Query(ctx, "days", 0)
	if err != nil {
		return nil, err
	}
	limit, err := parseInt32Query(ctx, "limit", 0)
	if err != nil {
		return nil, err
	}
	return &TopItemsRequest{Days: days, Limit: limit}, nil
}

func (r *TopItemsRequest) Validate() error {
	if r.GetDays() < 0 || r.GetDays() > 366 {
		return errors.New("days must be between 1 and 366")
	}
	if r.GetLimit() < 0 || r.GetLimit() > 100 {
		return errors.New("limit must be between 1 and 100")
	}
	return nil
}

func NewRevenueReportRequestFromContext(ctx echo.Context) (*RevenueReportRequest, error) {
	return &RevenueReportRequest{
		From: strings.TrimSpace(ctx.QueryParam("from")),
		To:   strings.TrimSpace(ctx.QueryParam("to")),
	}, nil
}

func (r *RevenueReportRequest) Validate() error {
	from, err := time.Parse(DateLayout, r.GetFrom())
	if err != nil {
		return errors.New("from must be YYYY-MM-DD")
	}
	to, err := time.Parse(DateLayout, r.GetTo())
	if err != nil {
		return errors.New("to must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return errors.New("to must not be before from")
	}
	if to.Sub(from) > 366*24*time.Hour {
		return errors.New("report range must not exceed one year")
	}
	return nil
}
