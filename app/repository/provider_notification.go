package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
)

type ProviderNotificationRepository struct {
	db DBTX
}

func NewProviderNotificationRepository(db DBTX) *ProviderNotificationRepository {
	return &ProviderNotificationRepository{db: db}
}

func (r *ProviderNotificationRepository) Create(ctx context.Context, notification *entity.ProviderNotification) error {
	query := `
		INSERT INTO provider_notifications (
			purchase_id, provider, kind, external_payment_id, signature, payload_json, status, error, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableUint64Value(notification.PurchaseID),
		notification.Provider,
		notification.Kind,
		notification.ExternalPaymentID,
		notification.Signature,
		notification.PayloadJSON,
		notification.Status,
		nullableStringValue(notification.Error),
		notification.CreatedAt,
		notification.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	notification.ID = uint64(id)
	return nil
}
