package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/factory"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/repository"
	"github.com/vibast-solutions/ms-go-lesson-payments/config"
)

type promoCodeRepository interface {
	Create(ctx context.Context, promo *entity.PromoCode) error
	FindByCode(ctx context.Context, code string) (*entity.PromoCode, error)
	List(ctx context.Context, filter repository.PromoCodeFilter) ([]*entity.PromoCode, error)
	Consume(ctx context.Context, code string, purchaseID uint64, now time.Time) (bool, error)
	Deactivate(ctx context.Context, code string, now time.Time) (bool, error)
	DeactivateExpired(ctx context.Context, now time.Time, limit int32) (int64, error)
}

type createPromoCodeRequest interface {
	GetCode() string
	GetDiscountPercent() int32
	GetDiscountAmount() int64
	GetItemType() string
	GetMaxUses() int32
	GetExpiresAt() string
}

type listPromoCodesRequest interface {
	GetActiveOnly() bool
	GetLimit() int32
	GetOffset() int32
}

// PromoLedger validates discount codes and consumes them atomically.
type PromoLedger struct {
	repo      promoCodeRepository
	cfg       config.PromoConfig
	timeout   time.Duration
	batch     int32
	sweepLock sweepLocker
	logger    logrus.FieldLogger
}

func NewPromoLedger(repo promoCodeRepository, cfg config.PromoConfig, purchasesCfg config.PurchasesConfig, sweepLock sweepLocker) *PromoLedger {
	batch := purchasesCfg.JobBatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &PromoLedger{
		repo:      repo,
		cfg:       cfg,
		timeout:   purchasesCfg.StoreTimeout,
		batch:     batch,
		sweepLock: sweepLock,
		logger:    factory.NewModuleLogger("promo-ledger"),
	}
}

// Validate looks the code up case-insensitively. itemType may be empty when the
// caller has no item in scope yet; itemID is only used for logging.
func (l *PromoLedger) Validate(ctx context.Context, code string, itemType entity.ItemType, itemID uint64) (*entity.PromoCode, error) {
	normalized := entity.NormalizePromoCode(code)
	if normalized == "" {
		return nil, ErrPromoCodeNotFound
	}

	ctx, cancel := storeContext(ctx, l.timeout)
	defer cancel()

	promo, err := l.repo.FindByCode(ctx, normalized)
	if err != nil {
		return nil, storeErr(err)
	}
	if promo == nil {
		return nil, ErrPromoCodeNotFound
	}

	switch {
	case !promo.Active:
		return nil, ErrPromoCodeInactive
	case promo.Expired(time.Now().UTC()):
		return nil, ErrPromoCodeExpired
	case promo.Exhausted():
		return nil, ErrPromoCodeExhausted
	case itemType != "" && promo.ItemType != nil && *promo.ItemType != itemType:
		l.logger.WithFields(logrus.Fields{
			"code":      normalized,
			"item_type": itemType,
			"item_id":   itemID,
		}).Debug("Promo code scoped to another item type")
		return nil, ErrPromoCodeNotApplicable
	}

	return promo, nil
}

// Consume counts one use of code for purchaseID. It returns false when the code is
// already at its usage ceiling or the use was already counted for that purchase.
func (l *PromoLedger) Consume(ctx context.Context, code string, purchaseID uint64) (bool, error) {
	ctx, cancel := storeContext(ctx, l.timeout)
	defer cancel()

	ok, err := l.repo.Consume(ctx, entity.NormalizePromoCode(code), purchaseID, time.Now().UTC())
	return ok, storeErr(err)
}

func (l *PromoLedger) ComputeDiscount(promo *entity.PromoCode, baseAmount int64) int64 {
	if promo == nil || promo.Discount == nil {
		return 0
	}
	return promo.Discount.Amount(baseAmount)
}

func (l *PromoLedger) CreatePromoCode(ctx context.Context, req createPromoCodeRequest) (*entity.PromoCode, error) {
	code := entity.NormalizePromoCode(req.GetCode())
	minLength := l.cfg.MinCodeLength
	if minLength <= 0 {
		minLength = 3
	}
	if len(code) < minLength {
		return nil, fmt.Errorf("%w: code must be at least %d characters", ErrInvalidRequest, minLength)
	}

	discount, err := l.discountFromRequest(req)
	if err != nil {
		return nil, err
	}

	promo := &entity.PromoCode{
		Code:     code,
		Discount: discount,
		Active:   true,
	}

	if raw := strings.TrimSpace(req.GetItemType()); raw != "" {
		itemType, ok := entity.ParseItemType(raw)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported item type", ErrInvalidRequest)
		}
		promo.ItemType = &itemType
	}

	if maxUses := req.GetMaxUses(); maxUses > 0 {
		if l.cfg.MaxUses > 0 && maxUses > l.cfg.MaxUses {
			return nil, fmt.Errorf("%w: max_uses must be <= %d", ErrInvalidRequest, l.cfg.MaxUses)
		}
		promo.MaxUses = &maxUses
	}

	now := time.Now().UTC()
	if raw := strings.TrimSpace(req.GetExpiresAt()); raw != "" {
		expiresAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: expires_at must be RFC3339", ErrInvalidRequest)
		}
		expiresAt = expiresAt.UTC()
		if !expiresAt.After(now) {
			return nil, fmt.Errorf("%w: expires_at must be in the future", ErrInvalidRequest)
		}
		promo.ExpiresAt = &expiresAt
	}
	promo.CreatedAt = now
	promo.UpdatedAt = now

	ctx, cancel := storeContext(ctx, l.timeout)
	defer cancel()

	if err := l.repo.Create(ctx, promo); err != nil {
		if errors.Is(err, repository.ErrPromoCodeAlreadyExists) {
			return nil, ErrPromoCodeAlreadyExists
		}
		return nil, storeErr(err)
	}

	l.logger.WithFields(logrus.Fields{"code": promo.Code, "kind": promo.Discount.Kind()}).Info("Promo code created")
	return promo, nil
}

func (l *PromoLedger) discountFromRequest(req createPromoCodeRequest) (entity.Discount, error) {
	percent := req.GetDiscountPercent()
	amount := req.GetDiscountAmount()
	if (percent != 0) == (amount != 0) {
		return nil, fmt.Errorf("%w: exactly one discount kind is required", ErrInvalidRequest)
	}

	if percent != 0 {
		maxPercent := l.cfg.MaxPercent
		if maxPercent <= 0 || maxPercent > 100 {
			maxPercent = 100
		}
		if percent < 0 || percent > maxPercent {
			return nil, fmt.Errorf("%w: discount_percent must be between 1 and %d", ErrInvalidRequest, maxPercent)
		}
		return entity.NewDiscount(entity.DiscountKindPercent, int64(percent))
	}

	discount, err := entity.NewDiscount(entity.DiscountKindFixed, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: discount_amount must be > 0", ErrInvalidRequest)
	}
	return discount, nil
}

func (l *PromoLedger) GetPromoCode(ctx context.Context, code string) (*entity.PromoCode, error) {
	ctx, cancel := storeContext(ctx, l.timeout)
	defer cancel()

	promo, err := l.repo.FindByCode(ctx, entity.NormalizePromoCode(code))
	if err != nil {
		return nil, storeErr(err)
	}
	if promo == nil {
		return nil, ErrPromoCodeNotFound
	}
	return promo, nil
}

func (l *PromoLedger) DeactivatePromoCode(ctx context.Context, code string) (*entity.PromoCode, error) {
	normalized := entity.NormalizePromoCode(code)

	ctx, cancel := storeContext(ctx, l.timeout)
	defer cancel()

	if _, err := l.repo.Deactivate(ctx, normalized, time.Now().UTC()); err != nil {
		return nil, storeErr(err)
	}

	promo, err := l.repo.FindByCode(ctx, normalized)
	if err != nil {
		return nil, storeErr(err)
	}
	if promo == nil {
		return nil, ErrPromoCodeNotFound
	}
	return promo, nil
}

func (l *PromoLedger) ListPromoCodes(ctx context.Context, req listPromoCodesRequest) ([]*entity.PromoCode, error) {
	limit := req.GetLimit()
	if limit <= 0 {
		limit = defaultListLimit
	}

	ctx, cancel := storeContext(ctx, l.timeout)
	defer cancel()

	items, err := l.repo.List(ctx, repository.PromoCodeFilter{
		ActiveOnly: req.GetActiveOnly(),
		Limit:      limit,
		Offset:     req.GetOffset(),
	})
	return items, storeErr(err)
}
