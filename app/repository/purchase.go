package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
)

var (
	ErrPurchaseNotFound      = errors.New("purchase not found")
	ErrPurchaseAlreadyExists = errors.New("purchase already exists")
	ErrPurchaseAlreadyActive = errors.New("active purchase already exists for item")
)

const purchaseColumns = `id, buyer_id, item_id, item_type, external_payment_id,
			base_amount, discount_amount, final_amount, currency, promo_code, promo_settled_at,
			state, failure_reason, provider_charge_id, completed_at, created_at, updated_at`

type PurchaseFilter struct {
	BuyerID  string
	HasState bool
	State    entity.PurchaseState
	Limit    int32
	Offset   int32
}

// PurchaseTransition moves a purchase from From to To only if it is still in From.
type PurchaseTransition struct {
	ID               uint64
	From             entity.PurchaseState
	To               entity.PurchaseState
	FailureReason    *string
	ProviderChargeID *string
	At               time.Time
}

type PurchaseRepository struct {
	db DBTX
}

func NewPurchaseRepository(db DBTX) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Create relies on uq_purchases_active_item so the duplicate-intent check and the
// insert are a single atomic statement.
func (r *PurchaseRepository) Create(ctx context.Context, purchase *entity.Purchase) error {
	query := `
		INSERT INTO purchases (
			buyer_id, item_id, item_type, external_payment_id,
			base_amount, discount_amount, final_amount, currency, promo_code,
			state, failure_reason, provider_charge_id, completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		purchase.BuyerID,
		purchase.ItemID,
		string(purchase.ItemType),
		purchase.ExternalPaymentID,
		purchase.BaseAmount,
		purchase.DiscountAmount,
		purchase.FinalAmount,
		purchase.Currency,
		nullableStringValue(purchase.PromoCode),
		int32(purchase.State),
		nullableStringValue(purchase.FailureReason),
		nullableStringValue(purchase.ProviderChargeID),
		nullableTimeValue(purchase.CompletedAt),
		purchase.CreatedAt,
		purchase.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err, "uq_purchases_active_item") {
			return ErrPurchaseAlreadyActive
		}
		if isDuplicateEntryError(err) {
			return ErrPurchaseAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	purchase.ID = uint64(id)
	return nil
}

// Transition is a compare-and-swap on state. It returns false when the purchase was no
// longer in the expected prior state.
func (r *PurchaseRepository) Transition(ctx context.Context, t PurchaseTransition) (bool, error) {
	var completedAt *time.Time
	if t.To == entity.PurchaseStateCompleted {
		at := t.At
		completedAt = &at
	}

	query := `
		UPDATE purchases SET
			state = ?,
			failure_reason = COALESCE(?, failure_reason),
			provider_charge_id = COALESCE(?, provider_charge_id),
			completed_at = COALESCE(?, completed_at),
			updated_at = ?
		WHERE id = ? AND state = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		int32(t.To),
		nullableStringValue(t.FailureReason),
		nullableStringValue(t.ProviderChargeID),
		nullableTimeValue(completedAt),
		t.At,
		t.ID,
		int32(t.From),
	)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

// SettlePromo marks the promo use of a purchase as settled without counting it. It
// returns false when the purchase was already settled.
func (r *PurchaseRepository) SettlePromo(ctx context.Context, id uint64, at time.Time) (bool, error) {
	query := `UPDATE purchases SET promo_settled_at = ? WHERE id = ? AND promo_settled_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

func (r *PurchaseRepository) FindByID(ctx context.Context, id uint64) (*entity.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = ?`

	purchase := &entity.Purchase{}
	if err := scanPurchase(r.db.QueryRowContext(ctx, query, id), purchase); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return purchase, nil
}

func (r *PurchaseRepository) FindByExternalPaymentID(ctx context.Context, externalPaymentID string) (*entity.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE external_payment_id = ? LIMIT 1`

	purchase := &entity.Purchase{}
	if err := scanPurchase(r.db.QueryRowContext(ctx, query, externalPaymentID), purchase); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return purchase, nil
}

func (r *PurchaseRepository) HasCompleted(ctx context.Context, buyerID string, itemType entity.ItemType, itemID uint64) (bool, error) {
	query := `
		SELECT 1 FROM purchases
		WHERE buyer_id = ? AND item_type = ? AND item_id = ? AND state = ?
		LIMIT 1
	`

	var found int
	err := r.db.QueryRowContext(ctx, query, buyerID, string(itemType), itemID, int32(entity.PurchaseStateCompleted)).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *PurchaseRepository) List(ctx context.Context, filter PurchaseFilter) ([]*entity.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases`

	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)

	if strings.TrimSpace(filter.BuyerID) != "" {
		conditions = append(conditions, "buyer_id = ?")
		args = append(args, filter.BuyerID)
	}
	if filter.HasState {
		conditions = append(conditions, "state = ?")
		args = append(args, int32(filter.State))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	return r.queryPurchases(ctx, query, args...)
}

func (r *PurchaseRepository) ListStaleCreated(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Purchase, error) {
	query := `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE state = ? AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`
	return r.queryPurchases(ctx, query, int32(entity.PurchaseStateCreated), cutoff, limit)
}

func (r *PurchaseRepository) queryPurchases(ctx context.Context, query string, args ...interface{}) ([]*entity.Purchase, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]*entity.Purchase, 0)
	for rows.Next() {
		item := &entity.Purchase{}
		if err := scanPurchase(rows, item); err != nil {
			return nil, err
		}
		purchases = append(purchases, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return purchases, nil
}

func scanPurchase(scan rowScanner, purchase *entity.Purchase) error {
	var itemType string
	var state int32
	var promoCode sql.NullString
	var promoSettledAt sql.NullTime
	var failureReason sql.NullString
	var providerChargeID sql.NullString
	var completedAt sql.NullTime

	err := scan.Scan(
		&purchase.ID,
		&purchase.BuyerID,
		&purchase.ItemID,
		&itemType,
		&purchase.ExternalPaymentID,
		&purchase.BaseAmount,
		&purchase.DiscountAmount,
		&purchase.FinalAmount,
		&purchase.Currency,
		&promoCode,
		&promoSettledAt,
		&state,
		&failureReason,
		&providerChargeID,
		&completedAt,
		&purchase.CreatedAt,
		&purchase.UpdatedAt,
	)
	if err != nil {
		return err
	}

	purchase.ItemType = entity.ItemType(itemType)
	purchase.State = entity.PurchaseState(state)
	purchase.PromoCode = stringPtrFromNull(promoCode)
	purchase.PromoSettledAt = timePtrFromNull(promoSettledAt)
	purchase.FailureReason = stringPtrFromNull(failureReason)
	purchase.ProviderChargeID = stringPtrFromNull(providerChargeID)
	purchase.CompletedAt = timePtrFromNull(completedAt)
	return nil
}
