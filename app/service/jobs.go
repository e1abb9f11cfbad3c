package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/locker"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/repository"
)

// sweepLocker keeps periodic sweeps to a single runner across instances.
type sweepLocker interface {
	Acquire(ctx context.Context, name string) (locker.ReleaseFunc, bool, error)
}

func runLocked(ctx context.Context, lock sweepLocker, name string, logger logrus.FieldLogger, fn func(context.Context) error) error {
	release, acquired, err := lock.Acquire(ctx, name)
	if err != nil {
		return err
	}
	if !acquired {
		logger.WithField("lock", name).Debug("Sweep skipped, lock held elsewhere")
		return nil
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.WithError(err).WithField("lock", name).Warn("Sweep lock release failed")
		}
	}()

	return fn(ctx)
}

// RunExpireCreatedBatch cancels intents left in CREATED past the intent timeout. The
// transition is the same compare-and-swap the reconciler uses, so an intent that a
// concurrent pre-check just moved to PENDING is left alone.
func (s *PurchaseService) RunExpireCreatedBatch(ctx context.Context) error {
	return runLocked(ctx, s.sweepLock, "sweep:purchases", s.logger, s.expireCreated)
}

func (s *PurchaseService) expireCreated(ctx context.Context) error {
	timeout := s.cfg.IntentTimeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	now := time.Now().UTC()

	listCtx, cancel := storeContext(ctx, s.cfg.StoreTimeout)
	items, err := s.purchaseRepo.ListStaleCreated(listCtx, now.Add(-timeout), s.batchSize())
	cancel()
	if err != nil {
		return storeErr(err)
	}

	var firstErr error
	for _, purchase := range items {
		if purchase == nil || purchase.State != entity.PurchaseStateCreated {
			continue
		}

		txCtx, cancel := storeContext(ctx, s.cfg.StoreTimeout)
		applied, err := s.purchaseRepo.Transition(txCtx, repository.PurchaseTransition{
			ID:   purchase.ID,
			From: entity.PurchaseStateCreated,
			To:   entity.PurchaseStateCancelled,
			At:   now,
		})
		cancel()
		if err != nil {
			firstErr = keepFirstErr(firstErr, storeErr(err))
			continue
		}
		if !applied {
			s.logger.WithField("purchase_id", purchase.ID).Debug("Purchase moved on before expiry, skipped")
			continue
		}

		from := entity.PurchaseStateCreated
		s.audit.Record(ctx, purchaseTransitionRecord(purchase, eventPurchaseExpired, &from, entity.PurchaseStateCancelled,
			fmt.Sprintf("no pre-check within %s", timeout)))
	}

	return firstErr
}

// RunExpirePromoCodesBatch deactivates codes whose expiry has passed.
func (l *PromoLedger) RunExpirePromoCodesBatch(ctx context.Context) error {
	return runLocked(ctx, l.sweepLock, "sweep:promocodes", l.logger, l.expirePromoCodes)
}

func (l *PromoLedger) expirePromoCodes(ctx context.Context) error {
	ctx, cancel := storeContext(ctx, l.timeout)
	defer cancel()

	affected, err := l.repo.DeactivateExpired(ctx, time.Now().UTC(), l.batch)
	if err != nil {
		return storeErr(err)
	}
	if affected > 0 {
		l.logger.WithField("deactivated", affected).Info("Expired promo codes deactivated")
	}
	return nil
}
