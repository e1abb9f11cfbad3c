package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/report"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/repository"
	"github.com/vibast-solutions/ms-go-lesson-payments/config"
)

type revenueRepository interface {
	RevenueBetween(ctx context.Context, from, to time.Time) (repository.RevenueTotals, error)
	DailyRevenue(ctx context.Context, from, to time.Time) ([]repository.DailyRevenueRow, error)
	TopItems(ctx context.Context, since, until time.Time, limit int32) ([]repository.ItemRevenueRow, error)
	SumCompleted(ctx context.Context) (int64, error)
}

type withdrawSumRepository interface {
	SumAmountByStatuses(ctx context.Context, statuses ...entity.WithdrawStatus) (int64, error)
}

type RevenueSummary struct {
	Period  string
	From    time.Time
	To      time.Time
	Count   int64
	Gross   int64
	Average decimal.Decimal
}

type Balance struct {
	CompletedRevenue    int64
	ReservedWithdrawals int64
	Withdrawable        int64
}

// FinanceAggregator derives every figure from COMPLETED purchases and reserving
// withdrawals on demand. It keeps no state of its own.
type FinanceAggregator struct {
	revenueRepo  revenueRepository
	withdrawRepo withdrawSumRepository
	cfg          config.FinanceConfig
	currency     string
	timeout      time.Duration
}

func NewFinanceAggregator(
	revenueRepo revenueRepository,
	withdrawRepo withdrawSumRepository,
	cfg config.FinanceConfig,
	providerCfg config.ProviderConfig,
	purchasesCfg config.PurchasesConfig,
) *FinanceAggregator {
	return &FinanceAggregator{
		revenueRepo:  revenueRepo,
		withdrawRepo: withdrawRepo,
		cfg:          cfg,
		currency:     providerCfg.Currency,
		timeout:      purchasesCfg.StoreTimeout,
	}
}

func (f *FinanceAggregator) DailyRevenue(ctx context.Context, day time.Time) (*RevenueSummary, error) {
	from := truncateDay(day)
	return f.revenueBetween(ctx, from.Format("2006-01-02"), from, from.AddDate(0, 0, 1))
}

func (f *FinanceAggregator) MonthlyRevenue(ctx context.Context, year int, month time.Month) (*RevenueSummary, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: invalid month", ErrInvalidRequest)
	}
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return f.revenueBetween(ctx, from.Format("2006-01"), from, from.AddDate(0, 1, 0))
}

func (f *FinanceAggregator) revenueBetween(ctx context.Context, period string, from, to time.Time) (*RevenueSummary, error) {
	ctx, cancel := storeContext(ctx, f.timeout)
	defer cancel()

	totals, err := f.revenueRepo.RevenueBetween(ctx, from, to)
	if err != nil {
		return nil, storeErr(err)
	}

	return &RevenueSummary{
		Period:  period,
		From:    from,
		To:      to,
		Count:   totals.Count,
		Gross:   totals.Gross,
		Average: averageOrderValue(totals.Gross, totals.Count),
	}, nil
}

func (f *FinanceAggregator) TopItems(ctx context.Context, days int, limit int32) ([]repository.ItemRevenueRow, error) {
	if days <= 0 {
		days = f.cfg.TopDefaultDays
	}
	if days <= 0 {
		days = 30
	}
	if limit <= 0 {
		limit = f.cfg.TopDefaultLimit
	}
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := storeContext(ctx, f.timeout)
	defer cancel()

	until := truncateDay(time.Now().UTC()).AddDate(0, 0, 1)
	items, err := f.revenueRepo.TopItems(ctx, until.AddDate(0, 0, -days), until, limit)
	return items, storeErr(err)
}

// WithdrawableBalance is completed revenue minus approved and completed withdrawals.
func (f *FinanceAggregator) WithdrawableBalance(ctx context.Context) (*Balance, error) {
	ctx, cancel := storeContext(ctx, f.timeout)
	defer cancel()

	revenue, err := f.revenueRepo.SumCompleted(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	reserved, err := f.withdrawRepo.SumAmountByStatuses(ctx, entity.WithdrawStatusApproved, entity.WithdrawStatusCompleted)
	if err != nil {
		return nil, storeErr(err)
	}

	return &Balance{
		CompletedRevenue:    revenue,
		ReservedWithdrawals: reserved,
		Withdrawable:        revenue - reserved,
	}, nil
}

// RevenueReport renders [from, to] inclusive of both days as an XLSX workbook.
func (f *FinanceAggregator) RevenueReport(ctx context.Context, from, to time.Time) (*report.RevenueReport, []byte, error) {
	from = truncateDay(from)
	end := truncateDay(to).AddDate(0, 0, 1)
	if !end.After(from) {
		return nil, nil, fmt.Errorf("%w: empty report range", ErrInvalidRequest)
	}

	limit := f.cfg.TopDefaultLimit
	if limit <= 0 {
		limit = 10
	}

	data, err := f.collectReport(ctx, from, end, limit)
	if err != nil {
		return nil, nil, err
	}
	data.To = truncateDay(to)

	content, err := report.BuildRevenueWorkbook(data)
	if err != nil {
		return nil, nil, err
	}
	return data, content, nil
}

func (f *FinanceAggregator) collectReport(ctx context.Context, from, end time.Time, limit int32) (*report.RevenueReport, error) {
	ctx, cancel := storeContext(ctx, f.timeout)
	defer cancel()

	rows, err := f.revenueRepo.DailyRevenue(ctx, from, end)
	if err != nil {
		return nil, storeErr(err)
	}
	top, err := f.revenueRepo.TopItems(ctx, from, end, limit)
	if err != nil {
		return nil, storeErr(err)
	}

	data := &report.RevenueReport{From: from, Currency: f.currency}
	for _, row := range rows {
		data.Days = append(data.Days, report.DayRow{
			Day:     row.Day,
			Count:   row.Count,
			Gross:   row.Gross,
			Average: averageOrderValue(row.Gross, row.Count).StringFixed(2),
		})
		data.Count += row.Count
		data.Gross += row.Gross
	}
	data.Average = averageOrderValue(data.Gross, data.Count).StringFixed(2)

	for _, item := range top {
		data.TopItems = append(data.TopItems, report.ItemRow{
			ItemType: string(item.ItemType),
			ItemID:   item.ItemID,
			Count:    item.Count,
			Gross:    item.Gross,
		})
	}
	return data, nil
}

func averageOrderValue(gross, count int64) decimal.Decimal {
	if count <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(gross).Div(decimal.NewFromInt(count)).Round(2)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
