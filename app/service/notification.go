package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/alert"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/factory"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/provider"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/repository"
	"github.com/vibast-solutions/ms-go-lesson-payments/config"
)

const (
	eventPreCheckAccepted = "precheck_accepted"
	eventPreCheckRejected = "precheck_rejected"
	eventPurchaseComplete = "purchase_completed"
	eventPurchaseFailed   = "purchase_failed"
	eventProtocolPrefix   = "protocol_"
)

type providerNotificationRepository interface {
	Create(ctx context.Context, notification *entity.ProviderNotification) error
}

type alerter interface {
	Alert(ctx context.Context, alert alert.Alert) error
}

type providerNotificationRequest interface {
	GetProvider() string
	GetKind() string
	GetSignature() string
	GetPayload() string
}

// NotificationOutcome is the answer given to the provider. Accepted only carries a
// decision for pre-checks; completions are always acknowledged. Flagged means the
// notification was acknowledged but not applied.
type NotificationOutcome struct {
	Accepted bool
	Flagged  bool
	Reason   string
	Purchase *entity.Purchase
}

type CompletionNotice struct {
	ExternalPaymentID string
	Success           bool
	ProviderChargeID  *string
	FailureReason     string
}

// Reconciler applies provider notifications to purchases. Every entry point is safe
// to replay: transitions are compare-and-swap on the prior state and replays are
// answered from the stored state.
type Reconciler struct {
	purchaseRepo     purchaseRepository
	notificationRepo providerNotificationRepository
	promo            *PromoLedger
	audit            *AuditTrail
	alerter          alerter
	providerReg      *provider.Registry
	timeout          time.Duration
	logger           logrus.FieldLogger
}

func NewReconciler(
	purchaseRepo purchaseRepository,
	notificationRepo providerNotificationRepository,
	promo *PromoLedger,
	audit *AuditTrail,
	alerter alerter,
	providerReg *provider.Registry,
	cfg config.PurchasesConfig,
) *Reconciler {
	return &Reconciler{
		purchaseRepo:     purchaseRepo,
		notificationRepo: notificationRepo,
		promo:            promo,
		audit:            audit,
		alerter:          alerter,
		providerReg:      providerReg,
		timeout:          cfg.StoreTimeout,
		logger:           factory.NewModuleLogger("reconciler"),
	}
}

func (r *Reconciler) OnPreCheck(ctx context.Context, externalPaymentID string, reportedAmount int64, currency string) (*NotificationOutcome, error) {
	externalPaymentID = strings.TrimSpace(externalPaymentID)
	if externalPaymentID == "" {
		return nil, ErrInvalidRequest
	}

	ctx, cancel := storeContext(ctx, r.timeout)
	defer cancel()

	purchase, err := r.purchaseRepo.FindByExternalPaymentID(ctx, externalPaymentID)
	if err != nil {
		return nil, storeErr(err)
	}
	if purchase == nil {
		return r.unknownPayment(ctx, provider.NotificationPreCheck, externalPaymentID)
	}
	if purchase.State != entity.PurchaseStateCreated {
		return r.replayPreCheck(ctx, purchase)
	}

	now := time.Now().UTC()
	from := entity.PurchaseStateCreated

	if reason := preCheckMismatch(purchase, reportedAmount, currency); reason != "" {
		applied, err := r.purchaseRepo.Transition(ctx, repository.PurchaseTransition{
			ID:            purchase.ID,
			From:          entity.PurchaseStateCreated,
			To:            entity.PurchaseStateFailed,
			FailureReason: &reason,
			At:            now,
		})
		if err != nil {
			return nil, storeErr(err)
		}
		if !applied {
			return r.reloadAndReplayPreCheck(ctx, purchase.ID)
		}

		purchase.State = entity.PurchaseStateFailed
		purchase.FailureReason = &reason
		purchase.UpdatedAt = now

		detail := fmt.Sprintf("reported %d %s, expected %d %s", reportedAmount, strings.ToUpper(currency), purchase.FinalAmount, purchase.Currency)
		r.audit.Record(ctx, purchaseTransitionRecord(purchase, eventPreCheckRejected, &from, entity.PurchaseStateFailed, reason+": "+detail))
		r.escalate(ctx, alert.KindAmountMismatch, purchase, purchase.ExternalPaymentID, detail)

		return &NotificationOutcome{Accepted: false, Flagged: true, Reason: reason, Purchase: purchase}, ErrAmountMismatch
	}

	applied, err := r.purchaseRepo.Transition(ctx, repository.PurchaseTransition{
		ID:   purchase.ID,
		From: entity.PurchaseStateCreated,
		To:   entity.PurchaseStatePending,
		At:   now,
	})
	if err != nil {
		return nil, storeErr(err)
	}
	if !applied {
		return r.reloadAndReplayPreCheck(ctx, purchase.ID)
	}

	purchase.State = entity.PurchaseStatePending
	purchase.UpdatedAt = now
	r.audit.Record(ctx, purchaseTransitionRecord(purchase, eventPreCheckAccepted, &from, entity.PurchaseStatePending, ""))
	r.purchaseLogger(purchase).Info("Pre-check accepted")

	return &NotificationOutcome{Accepted: true, Purchase: purchase}, nil
}

// reloadAndReplayPreCheck handles a lost compare-and-swap. The record has left
// CREATED and never returns to it, so the stored state decides the answer.
func (r *Reconciler) reloadAndReplayPreCheck(ctx context.Context, id uint64) (*NotificationOutcome, error) {
	current, err := r.purchaseRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if current == nil || current.State == entity.PurchaseStateCreated {
		return nil, fmt.Errorf("purchase %d changed concurrently", id)
	}
	return r.replayPreCheck(ctx, current)
}

// replayPreCheck answers a pre-check for a purchase that already left CREATED with the
// decision the first pre-check got.
func (r *Reconciler) replayPreCheck(ctx context.Context, purchase *entity.Purchase) (*NotificationOutcome, error) {
	l := r.purchaseLogger(purchase)

	switch purchase.State {
	case entity.PurchaseStatePending, entity.PurchaseStateCompleted:
		l.Info("Pre-check replay accepted")
		return &NotificationOutcome{Accepted: true, Purchase: purchase}, nil
	case entity.PurchaseStateFailed:
		reason := derefString(purchase.FailureReason)
		if isPreCheckFailure(reason) {
			l.Info("Pre-check replay rejected")
			return &NotificationOutcome{Accepted: false, Flagged: true, Reason: reason, Purchase: purchase}, nil
		}
		// Failed after being accepted, so the original answer was accept.
		l.Info("Pre-check replay accepted for failed purchase")
		return &NotificationOutcome{Accepted: true, Purchase: purchase}, nil
	case entity.PurchaseStateCancelled:
		detail := "pre-check arrived after the intent expired"
		state := purchase.State
		r.audit.Record(ctx, purchaseTransitionRecord(purchase, eventProtocolPrefix+alert.KindLatePreCheck, &state, state, detail))
		r.escalate(ctx, alert.KindLatePreCheck, purchase, purchase.ExternalPaymentID, detail)
		return &NotificationOutcome{Accepted: false, Flagged: true, Reason: "cancelled", Purchase: purchase},
			fmt.Errorf("%w: purchase was cancelled", ErrUnknownPayment)
	default:
		return nil, fmt.Errorf("%w: purchase in unexpected state %s", ErrInvalidStatus, purchase.State)
	}
}

func (r *Reconciler) OnCompleted(ctx context.Context, notice CompletionNotice) (*NotificationOutcome, error) {
	externalPaymentID := strings.TrimSpace(notice.ExternalPaymentID)
	if externalPaymentID == "" {
		return nil, ErrInvalidRequest
	}

	ctx, cancel := storeContext(ctx, r.timeout)
	defer cancel()

	purchase, err := r.purchaseRepo.FindByExternalPaymentID(ctx, externalPaymentID)
	if err != nil {
		return nil, storeErr(err)
	}
	if purchase == nil {
		return r.unknownPayment(ctx, provider.NotificationCompleted, externalPaymentID)
	}

	return r.complete(ctx, purchase, notice, true)
}

func (r *Reconciler) complete(ctx context.Context, purchase *entity.Purchase, notice CompletionNotice, firstAttempt bool) (*NotificationOutcome, error) {
	l := r.purchaseLogger(purchase)

	switch purchase.State {
	case entity.PurchaseStatePending:
		return r.applyCompletion(ctx, purchase, notice, firstAttempt)
	case entity.PurchaseStateCompleted:
		if notice.Success {
			if purchase.PromoCode != nil && purchase.PromoSettledAt == nil {
				if err := r.settlePromo(ctx, purchase); err != nil {
					return nil, err
				}
				l.Info("Completion replay settled promo code")
				return &NotificationOutcome{Accepted: true, Purchase: purchase}, nil
			}
			l.Info("Completion replay ignored")
			return &NotificationOutcome{Accepted: true, Purchase: purchase}, nil
		}
	case entity.PurchaseStateFailed:
		if !notice.Success && derefString(purchase.FailureReason) == entity.FailureReasonProviderDeclined {
			l.Info("Failed completion replay ignored")
			return &NotificationOutcome{Accepted: true, Purchase: purchase}, nil
		}
	}

	detail := fmt.Sprintf("completion notice (success=%t) for purchase in state %s", notice.Success, purchase.State)
	state := purchase.State
	r.audit.Record(ctx, purchaseTransitionRecord(purchase, eventProtocolPrefix+alert.KindUnexpectedCompletion, &state, state, detail))
	r.escalate(ctx, alert.KindUnexpectedCompletion, purchase, purchase.ExternalPaymentID, detail)

	return &NotificationOutcome{Accepted: false, Flagged: true, Reason: "unexpected_completion", Purchase: purchase}, ErrUnexpectedCompletion
}

func (r *Reconciler) applyCompletion(ctx context.Context, purchase *entity.Purchase, notice CompletionNotice, firstAttempt bool) (*NotificationOutcome, error) {
	now := time.Now().UTC()
	transition := repository.PurchaseTransition{
		ID:               purchase.ID,
		From:             entity.PurchaseStatePending,
		To:               entity.PurchaseStateCompleted,
		ProviderChargeID: notice.ProviderChargeID,
		At:               now,
	}
	event := eventPurchaseComplete
	detail := ""
	if !notice.Success {
		reason := entity.FailureReasonProviderDeclined
		transition.To = entity.PurchaseStateFailed
		transition.FailureReason = &reason
		event = eventPurchaseFailed
		detail = strings.TrimSpace(notice.FailureReason)
	}

	applied, err := r.purchaseRepo.Transition(ctx, transition)
	if err != nil {
		return nil, storeErr(err)
	}
	if !applied {
		current, err := r.purchaseRepo.FindByID(ctx, purchase.ID)
		if err != nil {
			return nil, storeErr(err)
		}
		if current == nil || !firstAttempt {
			return nil, fmt.Errorf("purchase %d changed concurrently", purchase.ID)
		}
		return r.complete(ctx, current, notice, false)
	}

	from := entity.PurchaseStatePending
	purchase.State = transition.To
	purchase.FailureReason = transition.FailureReason
	if notice.ProviderChargeID != nil {
		purchase.ProviderChargeID = notice.ProviderChargeID
	}
	purchase.UpdatedAt = now
	if transition.To == entity.PurchaseStateCompleted {
		purchase.CompletedAt = &now
	}
	r.audit.Record(ctx, purchaseTransitionRecord(purchase, event, &from, transition.To, detail))

	l := r.purchaseLogger(purchase)
	if transition.To != entity.PurchaseStateCompleted {
		l.WithField("provider_reason", detail).Info("Purchase failed at provider")
		return &NotificationOutcome{Accepted: true, Purchase: purchase}, nil
	}

	l.Info("Purchase completed")
	if purchase.PromoCode != nil {
		// The purchase stays COMPLETED either way. A store failure is returned so the
		// provider redelivers and the replay settles the promo use.
		if err := r.settlePromo(ctx, purchase); err != nil {
			return nil, err
		}
	}
	return &NotificationOutcome{Accepted: true, Purchase: purchase}, nil
}

// settlePromo counts the promo use of a completed purchase exactly once. Losing the
// race for the last use is logged and settles the purchase without a use.
func (r *Reconciler) settlePromo(ctx context.Context, purchase *entity.Purchase) error {
	code := *purchase.PromoCode
	l := r.purchaseLogger(purchase).WithField("promo_code", code)

	consumed, err := r.promo.Consume(ctx, code, purchase.ID)
	if err != nil {
		l.WithError(err).Error("Promo code consume failed")
		return err
	}

	now := time.Now().UTC()
	if consumed {
		purchase.PromoSettledAt = &now
		l.Debug("Promo code consumed")
		return nil
	}

	settled, err := r.purchaseRepo.SettlePromo(ctx, purchase.ID, now)
	if err != nil {
		l.WithError(err).Error("Promo code settle failed")
		return storeErr(err)
	}
	if settled {
		l.Warn("Promo code usage limit reached before consume")
	}
	purchase.PromoSettledAt = &now
	return nil
}

func (r *Reconciler) unknownPayment(ctx context.Context, kind provider.NotificationKind, externalPaymentID string) (*NotificationOutcome, error) {
	detail := fmt.Sprintf("%s notice for unknown external payment id", kind)
	r.audit.Record(ctx, auditRecord{
		SubjectType: entity.AuditSubjectNotification,
		SubjectID:   externalPaymentID,
		Event:       eventProtocolPrefix + alert.KindUnknownPayment,
		To:          "FLAGGED",
		Detail:      detail,
	})
	r.escalate(ctx, alert.KindUnknownPayment, nil, externalPaymentID, detail)

	return &NotificationOutcome{Accepted: false, Flagged: true, Reason: "unknown_payment"}, ErrUnknownPayment
}

func (r *Reconciler) escalate(ctx context.Context, kind string, purchase *entity.Purchase, externalPaymentID, detail string) {
	a := alert.Alert{
		Kind:              kind,
		ExternalPaymentID: externalPaymentID,
		Detail:            detail,
		At:                time.Now().UTC(),
	}
	l := r.logger.WithFields(logrus.Fields{"alert_kind": kind, "external_payment_id": externalPaymentID})
	if purchase != nil {
		a.PurchaseID = purchase.ID
		a.State = purchase.State.String()
		l = l.WithField("purchase_id", purchase.ID)
	}

	l.WithField("detail", detail).Error("Provider notification diverged from purchase store")
	if err := r.alerter.Alert(context.WithoutCancel(ctx), a); err != nil {
		l.WithError(err).Error("Operator alert publish failed")
	}
}

// HandleProviderNotification verifies a signed webhook, applies it and stores it in
// the notification log.
func (r *Reconciler) HandleProviderNotification(ctx context.Context, req providerNotificationRequest) (*NotificationOutcome, error) {
	providerClient, err := r.providerReg.Get(req.GetProvider())
	if err != nil {
		return nil, ErrProviderUnsupported
	}

	payload := []byte(req.GetPayload())
	notification, err := providerClient.VerifyAndParseNotification(ctx, payload, req.GetSignature())
	if err != nil {
		r.logNotification(ctx, req, nil, nil, entity.NotificationStatusRejected, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrNotificationRejected, err)
	}

	expectedKind := provider.NotificationKind(strings.TrimSpace(req.GetKind()))
	if expectedKind != "" && notification.Kind != expectedKind {
		msg := fmt.Sprintf("notification type %s sent to %s endpoint", notification.Kind, expectedKind)
		r.logNotification(ctx, req, notification, nil, entity.NotificationStatusRejected, msg)
		return nil, fmt.Errorf("%w: %s", ErrNotificationRejected, msg)
	}

	var outcome *NotificationOutcome
	switch notification.Kind {
	case provider.NotificationPreCheck:
		outcome, err = r.OnPreCheck(ctx, notification.ExternalPaymentID, notification.Amount, notification.Currency)
	default:
		outcome, err = r.OnCompleted(ctx, CompletionNotice{
			ExternalPaymentID: notification.ExternalPaymentID,
			Success:           notification.Success,
			ProviderChargeID:  notification.ProviderChargeID,
			FailureReason:     notification.FailureReason,
		})
	}

	switch {
	case err == nil:
		r.logNotification(ctx, req, notification, outcome, entity.NotificationStatusProcessed, "")
	case IsProtocolError(err):
		r.logNotification(ctx, req, notification, outcome, entity.NotificationStatusFlagged, err.Error())
	}
	return outcome, err
}

func (r *Reconciler) logNotification(
	ctx context.Context,
	req providerNotificationRequest,
	notification *provider.Notification,
	outcome *NotificationOutcome,
	status int32,
	errText string,
) {
	now := time.Now().UTC()
	record := &entity.ProviderNotification{
		Provider:    strings.ToLower(strings.TrimSpace(req.GetProvider())),
		Kind:        strings.TrimSpace(req.GetKind()),
		Signature:   truncate(strings.TrimSpace(req.GetSignature()), 512),
		PayloadJSON: req.GetPayload(),
		Status:      status,
		Error:       normalizeOptionalString(truncate(errText, 1024)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if notification != nil {
		record.Kind = string(notification.Kind)
		record.ExternalPaymentID = notification.ExternalPaymentID
	}
	if outcome != nil && outcome.Purchase != nil {
		id := outcome.Purchase.ID
		record.PurchaseID = &id
	}

	storeCtx, cancel := storeContext(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.notificationRepo.Create(storeCtx, record); err != nil {
		r.logger.WithError(err).WithField("external_payment_id", record.ExternalPaymentID).Error("Provider notification log write failed")
	}
}

func (r *Reconciler) purchaseLogger(purchase *entity.Purchase) logrus.FieldLogger {
	return r.logger.WithFields(logrus.Fields{
		"purchase_id":         purchase.ID,
		"external_payment_id": purchase.ExternalPaymentID,
		"state":               purchase.State.String(),
	})
}

func preCheckMismatch(purchase *entity.Purchase, reportedAmount int64, currency string) string {
	if reportedAmount != purchase.FinalAmount {
		return entity.FailureReasonAmountMismatch
	}
	if currency = strings.TrimSpace(currency); currency != "" && !strings.EqualFold(currency, purchase.Currency) {
		return entity.FailureReasonCurrencyMismatch
	}
	return ""
}

func isPreCheckFailure(reason string) bool {
	return reason == entity.FailureReasonAmountMismatch || reason == entity.FailureReasonCurrencyMismatch
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

