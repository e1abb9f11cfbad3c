package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-lesson-payments/app/alert"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/locker"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/provider"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/repository"
	"github.com/vibast-solutions/ms-go-lesson-payments/config"
)

const testWebhookSecret = "whsec_test"

type servicePurchaseRepo struct {
	mu        sync.Mutex
	purchases map[uint64]*entity.Purchase
	nextID    uint64
	err       error
	// afterListStale runs once the stale batch is read, outside the lock.
	afterListStale func()
}

func newServicePurchaseRepo() *servicePurchaseRepo {
	return &servicePurchaseRepo{purchases: map[uint64]*entity.Purchase{}, nextID: 1}
}

func (r *servicePurchaseRepo) Create(_ context.Context, purchase *entity.Purchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, item := range r.purchases {
		if item.ExternalPaymentID == purchase.ExternalPaymentID {
			return repository.ErrPurchaseAlreadyExists
		}
		if item.State.Active() && item.BuyerID == purchase.BuyerID && item.ItemType == purchase.ItemType && item.ItemID == purchase.ItemID {
			return repository.ErrPurchaseAlreadyActive
		}
	}
	purchase.ID = r.nextID
	r.nextID++
	copyItem := *purchase
	r.purchases[purchase.ID] = &copyItem
	return nil
}

func (r *servicePurchaseRepo) Transition(_ context.Context, t repository.PurchaseTransition) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	item, ok := r.purchases[t.ID]
	if !ok || item.State != t.From {
		return false, nil
	}
	item.State = t.To
	item.UpdatedAt = t.At
	if t.FailureReason != nil {
		reason := *t.FailureReason
		item.FailureReason = &reason
	}
	if t.ProviderChargeID != nil {
		chargeID := *t.ProviderChargeID
		item.ProviderChargeID = &chargeID
	}
	if t.To == entity.PurchaseStateCompleted {
		at := t.At
		item.CompletedAt = &at
	}
	return true, nil
}

func (r *servicePurchaseRepo) SettlePromo(_ context.Context, id uint64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	return r.settleLocked(id, at), nil
}

func (r *servicePurchaseRepo) settleLocked(id uint64, at time.Time) bool {
	item, ok := r.purchases[id]
	if !ok || item.PromoSettledAt != nil {
		return false
	}
	settled := at
	item.PromoSettledAt = &settled
	return true
}

func (r *servicePurchaseRepo) FindByID(_ context.Context, id uint64) (*entity.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	item, ok := r.purchases[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *servicePurchaseRepo) FindByExternalPaymentID(_ context.Context, externalPaymentID string) (*entity.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, item := range r.purchases {
		if item.ExternalPaymentID == externalPaymentID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *servicePurchaseRepo) HasCompleted(_ context.Context, buyerID string, itemType entity.ItemType, itemID uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.purchases {
		if item.State == entity.PurchaseStateCompleted && item.BuyerID == buyerID && item.ItemType == itemType && item.ItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

func (r *servicePurchaseRepo) List(_ context.Context, filter repository.PurchaseFilter) ([]*entity.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.Purchase, 0)
	for _, item := range r.purchases {
		if filter.BuyerID != "" && item.BuyerID != filter.BuyerID {
			continue
		}
		if filter.HasState && item.State != filter.State {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return paginate(items, filter.Limit, filter.Offset), nil
}

func (r *servicePurchaseRepo) ListStaleCreated(_ context.Context, cutoff time.Time, limit int32) ([]*entity.Purchase, error) {
	r.mu.Lock()
	if r.err != nil {
		r.mu.Unlock()
		return nil, r.err
	}
	items := make([]*entity.Purchase, 0)
	for _, item := range r.purchases {
		if item.State == entity.PurchaseStateCreated && item.CreatedAt.Before(cutoff) {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	r.mu.Unlock()

	if r.afterListStale != nil {
		r.afterListStale()
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return paginate(items, limit, 0), nil
}

// RevenueBetween and friends read the same map so finance tests follow purchases.
func (r *servicePurchaseRepo) RevenueBetween(_ context.Context, from, to time.Time) (repository.RevenueTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var totals repository.RevenueTotals
	for _, item := range r.completedLocked(from, to) {
		totals.Count++
		totals.Gross += item.FinalAmount
	}
	return totals, nil
}

func (r *servicePurchaseRepo) DailyRevenue(_ context.Context, from, to time.Time) ([]repository.DailyRevenueRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byDay := map[time.Time]*repository.DailyRevenueRow{}
	for _, item := range r.completedLocked(from, to) {
		day := truncateDay(*item.CompletedAt)
		row, ok := byDay[day]
		if !ok {
			row = &repository.DailyRevenueRow{Day: day}
			byDay[day] = row
		}
		row.Count++
		row.Gross += item.FinalAmount
	}
	rows := make([]repository.DailyRevenueRow, 0, len(byDay))
	for _, row := range byDay {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Day.Before(rows[j].Day) })
	return rows, nil
}

func (r *servicePurchaseRepo) TopItems(_ context.Context, since, until time.Time, limit int32) ([]repository.ItemRevenueRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	type key struct {
		itemType entity.ItemType
		itemID   uint64
	}
	byItem := map[key]*repository.ItemRevenueRow{}
	for _, item := range r.completedLocked(since, until) {
		k := key{item.ItemType, item.ItemID}
		row, ok := byItem[k]
		if !ok {
			row = &repository.ItemRevenueRow{ItemType: item.ItemType, ItemID: item.ItemID}
			byItem[k] = row
		}
		row.Count++
		row.Gross += item.FinalAmount
	}
	rows := make([]repository.ItemRevenueRow, 0, len(byItem))
	for _, row := range byItem {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Gross != rows[j].Gross {
			return rows[i].Gross > rows[j].Gross
		}
		return rows[i].ItemID < rows[j].ItemID
	})
	if limit > 0 && int(limit) < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r *servicePurchaseRepo) SumCompleted(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, item := range r.purchases {
		if item.State == entity.PurchaseStateCompleted {
			sum += item.FinalAmount
		}
	}
	return sum, nil
}

func (r *servicePurchaseRepo) completedLocked(from, to time.Time) []*entity.Purchase {
	items := make([]*entity.Purchase, 0)
	for _, item := range r.purchases {
		if item.State != entity.PurchaseStateCompleted || item.CompletedAt == nil {
			continue
		}
		if item.CompletedAt.Before(from) || !item.CompletedAt.Before(to) {
			continue
		}
		items = append(items, item)
	}
	return items
}

// seedCompleted stores a purchase that is already COMPLETED at completedAt.
func (r *servicePurchaseRepo) seedCompleted(itemType entity.ItemType, itemID uint64, amount int64, completedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at := completedAt.UTC()
	id := r.nextID
	r.nextID++
	r.purchases[id] = &entity.Purchase{
		ID:                id,
		BuyerID:           "seed",
		ItemID:            itemID,
		ItemType:          itemType,
		ExternalPaymentID: "pay_seed_" + purchaseSubjectID(id),
		BaseAmount:        amount,
		FinalAmount:       amount,
		Currency:          "XTR",
		State:             entity.PurchaseStateCompleted,
		CompletedAt:       &at,
		CreatedAt:         at,
		UpdatedAt:         at,
	}
}

// seedWithPromo stores a COMPLETED purchase that used code and is not yet settled.
func (r *servicePurchaseRepo) seedWithPromo(code string) uint64 {
	r.seedCompleted(entity.ItemTypeLesson, 7, 100, time.Now())
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID - 1
	promoCode := code
	r.purchases[id].PromoCode = &promoCode
	return id
}

func (r *servicePurchaseRepo) backdate(id uint64, created time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purchases[id].CreatedAt = created
}

func paginate[T any](items []T, limit, offset int32) []T {
	start := int(offset)
	if start > len(items) {
		return []T{}
	}
	items = items[start:]
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items
}

// servicePromoRepo settles purchases in the linked purchase repo on consume, the way
// the joined UPDATE does.
type servicePromoRepo struct {
	mu        sync.Mutex
	codes     map[string]*entity.PromoCode
	purchases *servicePurchaseRepo
	// consumeErrs are returned by the next Consume calls, one per call.
	consumeErrs []error
	expireErr   error
}

func newServicePromoRepo(purchases *servicePurchaseRepo) *servicePromoRepo {
	return &servicePromoRepo{codes: map[string]*entity.PromoCode{}, purchases: purchases}
}

func (r *servicePromoRepo) Create(_ context.Context, promo *entity.PromoCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codes[promo.Code]; ok {
		return repository.ErrPromoCodeAlreadyExists
	}
	promo.ID = uint64(len(r.codes) + 1)
	copyItem := *promo
	r.codes[promo.Code] = &copyItem
	return nil
}

func (r *servicePromoRepo) FindByCode(_ context.Context, code string) (*entity.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.codes[code]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *servicePromoRepo) List(_ context.Context, filter repository.PromoCodeFilter) ([]*entity.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.PromoCode, 0)
	for _, item := range r.codes {
		if filter.ActiveOnly && !item.Active {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Code < items[j].Code })
	return paginate(items, filter.Limit, filter.Offset), nil
}

func (r *servicePromoRepo) Consume(_ context.Context, code string, purchaseID uint64, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.consumeErrs) > 0 {
		err := r.consumeErrs[0]
		r.consumeErrs = r.consumeErrs[1:]
		return false, err
	}
	item, ok := r.codes[code]
	if !ok || item.Exhausted() {
		return false, nil
	}

	r.purchases.mu.Lock()
	settled := r.purchases.settleLocked(purchaseID, now)
	r.purchases.mu.Unlock()
	if !settled {
		return false, nil
	}
	item.CurrentUses++
	item.UpdatedAt = now
	return true, nil
}

func (r *servicePromoRepo) Deactivate(_ context.Context, code string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.codes[code]
	if !ok || !item.Active {
		return false, nil
	}
	item.Active = false
	item.UpdatedAt = now
	return true, nil
}

func (r *servicePromoRepo) DeactivateExpired(_ context.Context, now time.Time, _ int32) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.expireErr != nil {
		return 0, r.expireErr
	}
	var affected int64
	for _, item := range r.codes {
		if item.Active && item.Expired(now) {
			item.Active = false
			affected++
		}
	}
	return affected, nil
}

func (r *servicePromoRepo) uses(code string) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.codes[code].CurrentUses
}

type serviceAuditRepo struct {
	mu      sync.Mutex
	entries []*entity.AuditEntry
	err     error
	listErr error
}

func (r *serviceAuditRepo) Create(_ context.Context, entry *entity.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	entry.ID = uint64(len(r.entries) + 1)
	copyItem := *entry
	r.entries = append(r.entries, &copyItem)
	return nil
}

func (r *serviceAuditRepo) ListBySubject(_ context.Context, subjectType, subjectID string, limit int32) ([]*entity.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	items := make([]*entity.AuditEntry, 0)
	for _, entry := range r.entries {
		if entry.SubjectType == subjectType && entry.SubjectID == subjectID {
			copyItem := *entry
			items = append(items, &copyItem)
		}
	}
	return paginate(items, limit, 0), nil
}

func (r *serviceAuditRepo) events(subjectType, subjectID string) []string {
	items, _ := r.ListBySubject(context.Background(), subjectType, subjectID, 0)
	events := make([]string, 0, len(items))
	for _, item := range items {
		events = append(events, item.Event)
	}
	return events
}

type serviceNotificationRepo struct {
	mu    sync.Mutex
	items []*entity.ProviderNotification
}

func (r *serviceNotificationRepo) Create(_ context.Context, notification *entity.ProviderNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	notification.ID = uint64(len(r.items) + 1)
	copyItem := *notification
	r.items = append(r.items, &copyItem)
	return nil
}

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []alert.Alert
}

func (a *recordingAlerter) Alert(_ context.Context, al alert.Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, al)
	return nil
}

func (a *recordingAlerter) kinds() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	kinds := make([]string, 0, len(a.alerts))
	for _, al := range a.alerts {
		kinds = append(kinds, al.Kind)
	}
	return kinds
}

type serviceCatalog struct {
	items map[entity.ItemType]map[uint64]*entity.CatalogItem
}

func newServiceCatalog(items ...*entity.CatalogItem) *serviceCatalog {
	c := &serviceCatalog{items: map[entity.ItemType]map[uint64]*entity.CatalogItem{}}
	for _, item := range items {
		if c.items[item.Type] == nil {
			c.items[item.Type] = map[uint64]*entity.CatalogItem{}
		}
		c.items[item.Type][item.ID] = item
	}
	return c
}

func (c *serviceCatalog) FindItem(_ context.Context, itemType entity.ItemType, id uint64) (*entity.CatalogItem, error) {
	item, ok := c.items[itemType][id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

type serviceWithdrawRepo struct {
	mu       sync.Mutex
	requests map[uint64]*entity.WithdrawRequest
	nextID   uint64
	// beforeTransition runs under the lock ahead of the status check.
	beforeTransition func(item *entity.WithdrawRequest)
}

func newServiceWithdrawRepo() *serviceWithdrawRepo {
	return &serviceWithdrawRepo{requests: map[uint64]*entity.WithdrawRequest{}, nextID: 1}
}

func (r *serviceWithdrawRepo) Create(_ context.Context, request *entity.WithdrawRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	request.ID = r.nextID
	r.nextID++
	copyItem := *request
	r.requests[request.ID] = &copyItem
	return nil
}

func (r *serviceWithdrawRepo) Transition(_ context.Context, t repository.WithdrawTransition) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.requests[t.ID]
	if ok && r.beforeTransition != nil {
		r.beforeTransition(item)
	}
	if !ok || item.Status != t.From {
		return false, nil
	}
	item.Status = t.To
	if t.Notes != nil {
		item.Notes = t.Notes
	}
	if t.ProcessedBy != nil {
		item.ProcessedBy = t.ProcessedBy
	}
	at := t.At
	item.ProcessedAt = &at
	item.UpdatedAt = at
	return true, nil
}

func (r *serviceWithdrawRepo) FindByID(_ context.Context, id uint64) (*entity.WithdrawRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *serviceWithdrawRepo) List(_ context.Context, filter repository.WithdrawFilter) ([]*entity.WithdrawRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*entity.WithdrawRequest, 0)
	for _, item := range r.requests {
		if filter.HasStatus && item.Status != filter.Status {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return paginate(items, filter.Limit, filter.Offset), nil
}

func (r *serviceWithdrawRepo) SumAmountByStatuses(_ context.Context, statuses ...entity.WithdrawStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, item := range r.requests {
		for _, status := range statuses {
			if item.Status == status {
				sum += item.Amount
			}
		}
	}
	return sum, nil
}

type heldLocker struct{}

func (heldLocker) Acquire(context.Context, string) (locker.ReleaseFunc, bool, error) {
	return nil, false, nil
}

type serviceFixture struct {
	purchases     *servicePurchaseRepo
	promos        *servicePromoRepo
	audits        *serviceAuditRepo
	notifications *serviceNotificationRepo
	withdrawals   *serviceWithdrawRepo
	alerts        *recordingAlerter

	ledger     *PromoLedger
	auditTrail *AuditTrail
	purchase   *PurchaseService
	reconciler *Reconciler
	finance    *FinanceAggregator
	withdraw   *WithdrawService
}

func testConfig() *config.Config {
	return &config.Config{
		Provider: config.ProviderConfig{
			WebhookSecret:      testWebhookSecret,
			SignatureTolerance: 5 * time.Minute,
			Currency:           "XTR",
		},
		Purchases: config.PurchasesConfig{
			IntentTimeout: 30 * time.Minute,
			StoreTimeout:  time.Second,
			JobBatchSize:  100,
		},
		Promo:    config.PromoConfig{MinCodeLength: 3, MaxUses: 1000, MaxPercent: 100},
		Finance:  config.FinanceConfig{TopDefaultDays: 30, TopDefaultLimit: 10},
		Withdraw: config.WithdrawConfig{MinAmount: 10, MaxAmount: 50000},
	}
}

func newServiceFixture(catalogItems ...*entity.CatalogItem) *serviceFixture {
	cfg := testConfig()
	purchases := newServicePurchaseRepo()
	f := &serviceFixture{
		purchases:     purchases,
		promos:        newServicePromoRepo(purchases),
		audits:        &serviceAuditRepo{},
		notifications: &serviceNotificationRepo{},
		withdrawals:   newServiceWithdrawRepo(),
		alerts:        &recordingAlerter{},
	}
	if len(catalogItems) == 0 {
		catalogItems = []*entity.CatalogItem{
			{ID: 7, Type: entity.ItemTypeLesson, Title: "Intro lesson", Price: 100, Active: true},
			{ID: 3, Type: entity.ItemTypeCourse, Title: "Full course", Price: 1000, Active: true},
		}
	}

	registry := provider.NewRegistry(provider.NewStarsProvider(cfg.Provider))
	f.auditTrail = NewAuditTrail(f.audits, cfg.Purchases.StoreTimeout)
	f.ledger = NewPromoLedger(f.promos, cfg.Promo, cfg.Purchases, locker.NoopLocker{})
	f.purchase = NewPurchaseService(f.purchases, newServiceCatalog(catalogItems...), f.ledger, f.auditTrail, registry, cfg.Purchases, cfg.Provider, locker.NoopLocker{})
	f.reconciler = NewReconciler(f.purchases, f.notifications, f.ledger, f.auditTrail, f.alerts, registry, cfg.Purchases)
	f.finance = NewFinanceAggregator(f.purchases, f.withdrawals, cfg.Finance, cfg.Provider, cfg.Purchases)
	f.withdraw = NewWithdrawService(f.withdrawals, f.finance, f.auditTrail, cfg.Withdraw, cfg.Purchases)
	return f
}
