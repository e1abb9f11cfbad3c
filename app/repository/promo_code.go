package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
)

var (
	ErrPromoCodeNotFound      = errors.New("promo code not found")
	ErrPromoCodeAlreadyExists = errors.New("promo code already exists")
)

const promoCodeColumns = `id, code, discount_kind, discount_value, item_type,
			max_uses, current_uses, expires_at, active, created_at, updated_at`

type PromoCodeFilter struct {
	ActiveOnly bool
	Limit      int32
	Offset     int32
}

type PromoCodeRepository struct {
	db DBTX
}

func NewPromoCodeRepository(db DBTX) *PromoCodeRepository {
	return &PromoCodeRepository{db: db}
}

func (r *PromoCodeRepository) Create(ctx context.Context, promo *entity.PromoCode) error {
	query := `
		INSERT INTO promo_codes (
			code, discount_kind, discount_value, item_type,
			max_uses, current_uses, expires_at, active, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var itemType *string
	if promo.ItemType != nil {
		raw := string(*promo.ItemType)
		itemType = &raw
	}

	result, err := r.db.ExecContext(ctx, query,
		promo.Code,
		int32(promo.Discount.Kind()),
		promo.Discount.Value(),
		nullableStringValue(itemType),
		nullableInt32Value(promo.MaxUses),
		promo.CurrentUses,
		nullableTimeValue(promo.ExpiresAt),
		promo.Active,
		promo.CreatedAt,
		promo.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPromoCodeAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	promo.ID = uint64(id)
	return nil
}

func (r *PromoCodeRepository) FindByCode(ctx context.Context, code string) (*entity.PromoCode, error) {
	query := `SELECT ` + promoCodeColumns + ` FROM promo_codes WHERE code = ? LIMIT 1`

	promo := &entity.PromoCode{}
	if err := scanPromoCode(r.db.QueryRowContext(ctx, query, code), promo); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return promo, nil
}

func (r *PromoCodeRepository) List(ctx context.Context, filter PromoCodeFilter) ([]*entity.PromoCode, error) {
	query := `SELECT ` + promoCodeColumns + ` FROM promo_codes`
	args := make([]interface{}, 0, 3)
	if filter.ActiveOnly {
		query += " WHERE active = ?"
		args = append(args, true)
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.PromoCode, 0)
	for rows.Next() {
		item := &entity.PromoCode{}
		if err := scanPromoCode(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Consume is a single compare-and-increment against the usage ceiling that also marks
// the purchase as settled, so a use is counted at most once per purchase. It returns
// false when the code is unknown, already at max_uses, or the purchase was settled.
func (r *PromoCodeRepository) Consume(ctx context.Context, code string, purchaseID uint64, now time.Time) (bool, error) {
	query := `
		UPDATE promo_codes p
		JOIN purchases u ON u.promo_code = p.code
		SET p.current_uses = p.current_uses + 1, p.updated_at = ?, u.promo_settled_at = ?
		WHERE p.code = ? AND u.id = ? AND u.promo_settled_at IS NULL
			AND (p.max_uses IS NULL OR p.current_uses < p.max_uses)
	`

	result, err := r.db.ExecContext(ctx, query, now, now, code, purchaseID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *PromoCodeRepository) Deactivate(ctx context.Context, code string, now time.Time) (bool, error) {
	query := `UPDATE promo_codes SET active = ?, updated_at = ? WHERE code = ? AND active = ?`

	result, err := r.db.ExecContext(ctx, query, false, now, code, true)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

func (r *PromoCodeRepository) DeactivateExpired(ctx context.Context, now time.Time, limit int32) (int64, error) {
	query := `
		UPDATE promo_codes SET active = ?, updated_at = ?
		WHERE active = ? AND expires_at IS NOT NULL AND expires_at <= ?
		LIMIT ?
	`

	result, err := r.db.ExecContext(ctx, query, false, now, true, now, limit)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanPromoCode(scan rowScanner, promo *entity.PromoCode) error {
	var kind int32
	var value int64
	var itemType sql.NullString
	var maxUses sql.NullInt32
	var expiresAt sql.NullTime

	err := scan.Scan(
		&promo.ID,
		&promo.Code,
		&kind,
		&value,
		&itemType,
		&maxUses,
		&promo.CurrentUses,
		&expiresAt,
		&promo.Active,
		&promo.CreatedAt,
		&promo.UpdatedAt,
	)
	if err != nil {
		return err
	}

	discount, err := entity.NewDiscount(entity.DiscountKind(kind), value)
	if err != nil {
		return err
	}
	promo.Discount = discount
	if itemType.Valid {
		t := entity.ItemType(itemType.String)
		promo.ItemType = &t
	}
	promo.MaxUses = int32PtrFromNull(maxUses)
	promo.ExpiresAt = timePtrFromNull(expiresAt)
	return nil
}
