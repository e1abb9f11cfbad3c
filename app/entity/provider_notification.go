package entity

import "time"

const (
	NotificationStatusProcessed int32 = 10
	NotificationStatusRejected  int32 = 20
	NotificationStatusFlagged   int32 = 30
)

type ProviderNotification struct {
	ID uint64

	PurchaseID *uint64

	Provider          string
	Kind              string
	ExternalPaymentID string
	Signature         string
	PayloadJSON       string
	Status            int32
	Error             *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
