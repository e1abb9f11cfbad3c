package entity

import "time"

const (
	AuditSubjectPurchase     = "purchase"
	AuditSubjectWithdraw     = "withdraw_request"
	AuditSubjectNotification = "provider_notification"
)

// AuditEntry is append-only.
type AuditEntry struct {
	ID uint64

	SubjectType string
	SubjectID   string

	Event     string
	FromState *string
	ToState   string
	Detail    *string

	CreatedAt time.Time
}
