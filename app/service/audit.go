package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/factory"
)

type auditEntryRepository interface {
	Create(ctx context.Context, entry *entity.AuditEntry) error
	ListBySubject(ctx context.Context, subjectType, subjectID string, limit int32) ([]*entity.AuditEntry, error)
}

type listAuditEntriesRequest interface {
	GetSubjectType() string
	GetSubjectId() string
	GetLimit() int32
}

// AuditTrail appends one entry per transition, accepted or rejected.
type AuditTrail struct {
	repo    auditEntryRepository
	timeout time.Duration
	logger  logrus.FieldLogger
}

func NewAuditTrail(repo auditEntryRepository, timeout time.Duration) *AuditTrail {
	return &AuditTrail{repo: repo, timeout: timeout, logger: factory.NewModuleLogger("audit")}
}

type auditRecord struct {
	SubjectType string
	SubjectID   string
	Event       string
	From        *string
	To          string
	Detail      string
}

// Record never fails the caller. A write error is logged with the full entry so it
// can be replayed from the logs.
func (a *AuditTrail) Record(ctx context.Context, rec auditRecord) {
	entry := &entity.AuditEntry{
		SubjectType: rec.SubjectType,
		SubjectID:   rec.SubjectID,
		Event:       rec.Event,
		FromState:   rec.From,
		ToState:     rec.To,
		Detail:      normalizeOptionalString(truncate(rec.Detail, 1024)),
		CreatedAt:   time.Now().UTC(),
	}

	if err := a.repo.Create(ctx, entry); err != nil {
		a.logger.WithError(err).WithFields(logrus.Fields{
			"subject_type": rec.SubjectType,
			"subject_id":   rec.SubjectID,
			"event":        rec.Event,
			"to_state":     rec.To,
		}).Error("Audit entry write failed")
	}
}

func (a *AuditTrail) List(ctx context.Context, req listAuditEntriesRequest) ([]*entity.AuditEntry, error) {
	subjectType := strings.TrimSpace(req.GetSubjectType())
	subjectID := strings.TrimSpace(req.GetSubjectId())
	if subjectType == "" || subjectID == "" {
		return nil, ErrInvalidRequest
	}

	limit := req.GetLimit()
	if limit <= 0 {
		limit = defaultListLimit
	}

	ctx, cancel := storeContext(ctx, a.timeout)
	defer cancel()

	entries, err := a.repo.ListBySubject(ctx, subjectType, subjectID, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return entries, nil
}

func purchaseTransitionRecord(purchase *entity.Purchase, event string, from *entity.PurchaseState, to entity.PurchaseState, detail string) auditRecord {
	var fromName *string
	if from != nil {
		fromName = stringPtr(from.String())
	}
	return auditRecord{
		SubjectType: entity.AuditSubjectPurchase,
		SubjectID:   purchaseSubjectID(purchase.ID),
		Event:       event,
		From:        fromName,
		To:          to.String(),
		Detail:      detail,
	}
}
