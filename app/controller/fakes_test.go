package controller

import (
	"context"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-lesson-payments/app/alert"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/locker"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/provider"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/repository"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/service"
	"github.com/vibast-solutions/ms-go-lesson-payments/config"
)

const controllerWebhookSecret = "whsec_controller"

var errTestStore = errors.New("connection refused")

type controllerPurchaseRepo struct {
	createFn         func(ctx context.Context, purchase *entity.Purchase) error
	transitionFn     func(ctx context.Context, t repository.PurchaseTransition) (bool, error)
	findByIDFn       func(ctx context.Context, id uint64) (*entity.Purchase, error)
	findByExternalFn func(ctx context.Context, externalPaymentID string) (*entity.Purchase, error)
	listFn           func(ctx context.Context, filter repository.PurchaseFilter) ([]*entity.Purchase, error)
	revenueFn        func(ctx context.Context, from, to time.Time) (repository.RevenueTotals, error)
	topItemsFn       func(ctx context.Context, since, until time.Time, limit int32) ([]repository.ItemRevenueRow, error)
	sumCompleted     int64
}

func (r *controllerPurchaseRepo) Create(ctx context.Context, purchase *entity.Purchase) error {
	if r.createFn != nil {
		return r.createFn(ctx, purchase)
	}
	return nil
}

func (r *controllerPurchaseRepo) Transition(ctx context.Context, t repository.PurchaseTransition) (bool, error) {
	if r.transitionFn != nil {
		return r.transitionFn(ctx, t)
	}
	return true, nil
}

func (r *controllerPurchaseRepo) SettlePromo(context.Context, uint64, time.Time) (bool, error) {
	return true, nil
}

func (r *controllerPurchaseRepo) FindByID(ctx context.Context, id uint64) (*entity.Purchase, error) {
	if r.findByIDFn != nil {
		return r.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (r *controllerPurchaseRepo) FindByExternalPaymentID(ctx context.Context, externalPaymentID string) (*entity.Purchase, error) {
	if r.findByExternalFn != nil {
		return r.findByExternalFn(ctx, externalPaymentID)
	}
	return nil, nil
}

func (r *controllerPurchaseRepo) HasCompleted(context.Context, string, entity.ItemType, uint64) (bool, error) {
	return false, nil
}

func (r *controllerPurchaseRepo) List(ctx context.Context, filter repository.PurchaseFilter) ([]*entity.Purchase, error) {
	if r.listFn != nil {
		return r.listFn(ctx, filter)
	}
	return []*entity.Purchase{}, nil
}

func (r *controllerPurchaseRepo) ListStaleCreated(context.Context, time.Time, int32) ([]*entity.Purchase, error) {
	return []*entity.Purchase{}, nil
}

func (r *controllerPurchaseRepo) RevenueBetween(ctx context.Context, from, to time.Time) (repository.RevenueTotals, error) {
	if r.revenueFn != nil {
		return r.revenueFn(ctx, from, to)
	}
	return repository.RevenueTotals{}, nil
}

func (r *controllerPurchaseRepo) DailyRevenue(context.Context, time.Time, time.Time) ([]repository.DailyRevenueRow, error) {
	return []repository.DailyRevenueRow{}, nil
}

func (r *controllerPurchaseRepo) TopItems(ctx context.Context, since, until time.Time, limit int32) ([]repository.ItemRevenueRow, error) {
	if r.topItemsFn != nil {
		return r.topItemsFn(ctx, since, until, limit)
	}
	return []repository.ItemRevenueRow{}, nil
}

func (r *controllerPurchaseRepo) SumCompleted(context.Context) (int64, error) {
	return r.sumCompleted, nil
}

type controllerCatalog struct{}

func (controllerCatalog) FindItem(_ context.Context, itemType entity.ItemType, id uint64) (*entity.CatalogItem, error) {
	if itemType == entity.ItemTypeLesson && id == 7 {
		return &entity.CatalogItem{ID: 7, Type: entity.ItemTypeLesson, Title: "Intro lesson", Price: 100, Active: true}, nil
	}
	return nil, nil
}

type controllerPromoRepo struct {
	createFn     func(ctx context.Context, promo *entity.PromoCode) error
	findByCodeFn func(ctx context.Context, code string) (*entity.PromoCode, error)
}

func (r *controllerPromoRepo) Create(ctx context.Context, promo *entity.PromoCode) error {
	if r.createFn != nil {
		return r.createFn(ctx, promo)
	}
	return nil
}

func (r *controllerPromoRepo) FindByCode(ctx context.Context, code string) (*entity.PromoCode, error) {
	if r.findByCodeFn != nil {
		return r.findByCodeFn(ctx, code)
	}
	return nil, nil
}

func (r *controllerPromoRepo) List(context.Context, repository.PromoCodeFilter) ([]*entity.PromoCode, error) {
	return []*entity.PromoCode{}, nil
}

func (r *controllerPromoRepo) Consume(context.Context, string, uint64, time.Time) (bool, error) {
	return true, nil
}

func (r *controllerPromoRepo) Deactivate(context.Context, string, time.Time) (bool, error) {
	return true, nil
}

func (r *controllerPromoRepo) DeactivateExpired(context.Context, time.Time, int32) (int64, error) {
	return 0, nil
}

type controllerWithdrawRepo struct {
	createFn     func(ctx context.Context, request *entity.WithdrawRequest) error
	findByIDFn   func(ctx context.Context, id uint64) (*entity.WithdrawRequest, error)
	transitionFn func(ctx context.Context, t repository.WithdrawTransition) (bool, error)
	sums         map[entity.WithdrawStatus]int64
}

func (r *controllerWithdrawRepo) Create(ctx context.Context, request *entity.WithdrawRequest) error {
	if r.createFn != nil {
		return r.createFn(ctx, request)
	}
	return nil
}

func (r *controllerWithdrawRepo) Transition(ctx context.Context, t repository.WithdrawTransition) (bool, error) {
	if r.transitionFn != nil {
		return r.transitionFn(ctx, t)
	}
	return true, nil
}

func (r *controllerWithdrawRepo) FindByID(ctx context.Context, id uint64) (*entity.WithdrawRequest, error) {
	if r.findByIDFn != nil {
		return r.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (r *controllerWithdrawRepo) List(context.Context, repository.WithdrawFilter) ([]*entity.WithdrawRequest, error) {
	return []*entity.WithdrawRequest{}, nil
}

func (r *controllerWithdrawRepo) SumAmountByStatuses(_ context.Context, statuses ...entity.WithdrawStatus) (int64, error) {
	var total int64
	for _, status := range statuses {
		total += r.sums[status]
	}
	return total, nil
}

type controllerAuditRepo struct {
	entries []*entity.AuditEntry
}

func (r *controllerAuditRepo) Create(_ context.Context, entry *entity.AuditEntry) error {
	entry.ID = uint64(len(r.entries) + 1)
	r.entries = append(r.entries, entry)
	return nil
}

func (r *controllerAuditRepo) ListBySubject(_ context.Context, subjectType, subjectID string, _ int32) ([]*entity.AuditEntry, error) {
	items := make([]*entity.AuditEntry, 0)
	for _, entry := range r.entries {
		if entry.SubjectType == subjectType && entry.SubjectID == subjectID {
			items = append(items, entry)
		}
	}
	return items, nil
}

type controllerNotificationRepo struct{}

func (controllerNotificationRepo) Create(context.Context, *entity.ProviderNotification) error {
	return nil
}

type controllerAlerter struct {
	alerts []alert.Alert
}

func (a *controllerAlerter) Alert(_ context.Context, item alert.Alert) error {
	a.alerts = append(a.alerts, item)
	return nil
}

type controllerFixture struct {
	purchases   *PurchaseController
	webhooks    *WebhookController
	promos      *PromoCodeController
	withdrawals *WithdrawController
	finance     *FinanceController
	audit       *AuditController
	auditRepo   *controllerAuditRepo
	alerts      *controllerAlerter
}

func newControllerFixture(purchaseRepo *controllerPurchaseRepo, promoRepo *controllerPromoRepo, withdrawRepo *controllerWithdrawRepo) *controllerFixture {
	if purchaseRepo == nil {
		purchaseRepo = &controllerPurchaseRepo{}
	}
	if promoRepo == nil {
		promoRepo = &controllerPromoRepo{}
	}
	if withdrawRepo == nil {
		withdrawRepo = &controllerWithdrawRepo{}
	}

	providerCfg := config.ProviderConfig{WebhookSecret: controllerWebhookSecret, SignatureTolerance: 5 * time.Minute, Currency: "XTR"}
	purchasesCfg := config.PurchasesConfig{IntentTimeout: 30 * time.Minute, StoreTimeout: time.Second, JobBatchSize: 100}
	registry := provider.NewRegistry(provider.NewStarsProvider(providerCfg))

	f := &controllerFixture{auditRepo: &controllerAuditRepo{}, alerts: &controllerAlerter{}}
	auditTrail := service.NewAuditTrail(f.auditRepo, purchasesCfg.StoreTimeout)
	ledger := service.NewPromoLedger(promoRepo, config.PromoConfig{MinCodeLength: 3, MaxUses: 1000, MaxPercent: 100}, purchasesCfg, locker.NoopLocker{})
	purchases := service.NewPurchaseService(purchaseRepo, controllerCatalog{}, ledger, auditTrail, registry, purchasesCfg, providerCfg, locker.NoopLocker{})
	reconciler := service.NewReconciler(purchaseRepo, controllerNotificationRepo{}, ledger, auditTrail, f.alerts, registry, purchasesCfg)
	finance := service.NewFinanceAggregator(purchaseRepo, withdrawRepo, config.FinanceConfig{TopDefaultDays: 30, TopDefaultLimit: 10}, providerCfg, purchasesCfg)
	withdrawals := service.NewWithdrawService(withdrawRepo, finance, auditTrail, config.WithdrawConfig{MinAmount: 10, MaxAmount: 50000}, purchasesCfg)

	f.purchases = NewPurchaseController(purchases)
	f.webhooks = NewWebhookController(reconciler)
	f.promos = NewPromoCodeController(ledger)
	f.withdrawals = NewWithdrawController(withdrawals)
	f.finance = NewFinanceController(finance)
	f.audit = NewAuditController(auditTrail)
	return f
}

func pendingPurchase(id uint64, externalPaymentID string, amount int64) *entity.Purchase {
	now := time.Now().UTC()
	return &entity.Purchase{
		ID:                id,
		BuyerID:           "buyer-1",
		ItemID:            7,
		ItemType:          entity.ItemTypeLesson,
		ExternalPaymentID: externalPaymentID,
		BaseAmount:        amount,
		FinalAmount:       amount,
		Currency:          "XTR",
		State:             entity.PurchaseStatePending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
