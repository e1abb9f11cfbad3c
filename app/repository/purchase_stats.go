package repository

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
)

type RevenueTotals struct {
	Count int64
	Gross int64
}

type DailyRevenueRow struct {
	Day   time.Time
	Count int64
	Gross int64
}

type ItemRevenueRow struct {
	ItemType entity.ItemType
	ItemID   uint64
	Count    int64
	Gross    int64
}

// RevenueBetween aggregates COMPLETED purchases with completed_at in [from, to).
func (r *PurchaseRepository) RevenueBetween(ctx context.Context, from, to time.Time) (RevenueTotals, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(final_amount), 0)
		FROM purchases
		WHERE state = ? AND completed_at >= ? AND completed_at < ?
	`

	var totals RevenueTotals
	err := r.db.QueryRowContext(ctx, query, int32(entity.PurchaseStateCompleted), from, to).Scan(&totals.Count, &totals.Gross)
	return totals, err
}

func (r *PurchaseRepository) DailyRevenue(ctx context.Context, from, to time.Time) ([]DailyRevenueRow, error) {
	query := `
		SELECT DATE(completed_at) AS day, COUNT(*), COALESCE(SUM(final_amount), 0)
		FROM purchases
		WHERE state = ? AND completed_at >= ? AND completed_at < ?
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := r.db.QueryContext(ctx, query, int32(entity.PurchaseStateCompleted), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]DailyRevenueRow, 0)
	for rows.Next() {
		var row DailyRevenueRow
		if err := rows.Scan(&row.Day, &row.Count, &row.Gross); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// TopItems ranks items by COMPLETED revenue with completed_at in [since, until).
func (r *PurchaseRepository) TopItems(ctx context.Context, since, until time.Time, limit int32) ([]ItemRevenueRow, error) {
	query := `
		SELECT item_type, item_id, COUNT(*) AS sales, COALESCE(SUM(final_amount), 0) AS gross
		FROM purchases
		WHERE state = ? AND completed_at >= ? AND completed_at < ?
		GROUP BY item_type, item_id
		ORDER BY gross DESC, sales DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, int32(entity.PurchaseStateCompleted), since, until, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]ItemRevenueRow, 0)
	for rows.Next() {
		var row ItemRevenueRow
		var itemType string
		if err := rows.Scan(&itemType, &row.ItemID, &row.Count, &row.Gross); err != nil {
			return nil, err
		}
		row.ItemType = entity.ItemType(itemType)
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *PurchaseRepository) SumCompleted(ctx context.Context) (int64, error) {
	query := `SELECT COALESCE(SUM(final_amount), 0) FROM purchases WHERE state = ?`

	var total int64
	err := r.db.QueryRowContext(ctx, query, int32(entity.PurchaseStateCompleted)).Scan(&total)
	return total, err
}
