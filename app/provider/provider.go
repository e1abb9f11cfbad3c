package provider

import (
	"context"
	"errors"
)

var (
	ErrInvalidSignature    = errors.New("invalid notification signature")
	ErrMalformedPayload    = errors.New("malformed notification payload")
	ErrUnknownNotification = errors.New("unknown notification type")
)

type NotificationKind string

const (
	NotificationPreCheck  NotificationKind = "pre_checkout"
	NotificationCompleted NotificationKind = "completed"
)

type InvoiceInput struct {
	ExternalPaymentID string
	Title             string
	Description       string
	Amount            int64
	Currency          string
}

// Invoice is what the caller hands to the provider to open a payment UI.
type Invoice struct {
	Provider    string
	Title       string
	Description string
	Currency    string
	Amount      int64
	Payload     string
}

type Notification struct {
	Kind              NotificationKind
	ExternalPaymentID string
	Amount            int64
	Currency          string
	ProviderChargeID  *string
	// Success is only meaningful for completion notices.
	Success       bool
	FailureReason string
}

type Provider interface {
	Code() string
	BuildInvoice(input *InvoiceInput) (*Invoice, error)
	VerifyAndParseNotification(ctx context.Context, payload []byte, signature string) (*Notification, error)
}
