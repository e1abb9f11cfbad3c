package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/factory"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/provider"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/repository"
	"github.com/vibast-solutions/ms-go-lesson-payments/config"
)

const (
	eventPurchaseCreated = "purchase_created"
	eventPurchaseExpired = "purchase_expired"
)

const minFinalAmount int64 = 1

type createPurchaseIntentRequest interface {
	GetBuyerId() string
	GetItemId() uint64
	GetItemType() string
	GetPromoCode() string
}

type listPurchasesRequest interface {
	GetBuyerId() string
	GetState() string
	GetLimit() int32
	GetOffset() int32
}

type purchaseRepository interface {
	Create(ctx context.Context, purchase *entity.Purchase) error
	Transition(ctx context.Context, t repository.PurchaseTransition) (bool, error)
	SettlePromo(ctx context.Context, id uint64, at time.Time) (bool, error)
	FindByID(ctx context.Context, id uint64) (*entity.Purchase, error)
	FindByExternalPaymentID(ctx context.Context, externalPaymentID string) (*entity.Purchase, error)
	HasCompleted(ctx context.Context, buyerID string, itemType entity.ItemType, itemID uint64) (bool, error)
	List(ctx context.Context, filter repository.PurchaseFilter) ([]*entity.Purchase, error)
	ListStaleCreated(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Purchase, error)
}

type catalogReader interface {
	FindItem(ctx context.Context, itemType entity.ItemType, id uint64) (*entity.CatalogItem, error)
}

// PurchaseIntent is a freshly created purchase plus what the caller needs to open
// the provider's payment UI.
type PurchaseIntent struct {
	Purchase *entity.Purchase
	Invoice  *provider.Invoice
}

// PurchaseService is the payment orchestrator. It creates intents and expires the
// ones the provider never picked up.
type PurchaseService struct {
	purchaseRepo purchaseRepository
	catalog      catalogReader
	promo        *PromoLedger
	audit        *AuditTrail
	providerReg  *provider.Registry
	cfg          config.PurchasesConfig
	currency     string
	sweepLock    sweepLocker
	logger       logrus.FieldLogger
}

func NewPurchaseService(
	purchaseRepo purchaseRepository,
	catalog catalogReader,
	promo *PromoLedger,
	audit *AuditTrail,
	providerReg *provider.Registry,
	cfg config.PurchasesConfig,
	providerCfg config.ProviderConfig,
	sweepLock sweepLocker,
) *PurchaseService {
	currency := strings.ToUpper(strings.TrimSpace(providerCfg.Currency))
	if currency == "" {
		currency = "XTR"
	}

	return &PurchaseService{
		purchaseRepo: purchaseRepo,
		catalog:      catalog,
		promo:        promo,
		audit:        audit,
		providerReg:  providerReg,
		cfg:          cfg,
		currency:     currency,
		sweepLock:    sweepLock,
		logger:       factory.NewModuleLogger("purchase-service"),
	}
}

func (s *PurchaseService) CreatePurchaseIntent(ctx context.Context, req createPurchaseIntentRequest) (*PurchaseIntent, error) {
	buyerID := strings.TrimSpace(req.GetBuyerId())
	if buyerID == "" || req.GetItemId() == 0 {
		return nil, ErrInvalidRequest
	}
	itemType, ok := entity.ParseItemType(req.GetItemType())
	if !ok {
		return nil, fmt.Errorf("%w: unsupported item type", ErrInvalidRequest)
	}

	providerClient, err := s.providerReg.Default()
	if err != nil {
		return nil, ErrProviderUnsupported
	}

	storeCtx, cancel := storeContext(ctx, s.cfg.StoreTimeout)
	defer cancel()

	item, err := s.catalog.FindItem(storeCtx, itemType, req.GetItemId())
	if err != nil {
		return nil, storeErr(err)
	}
	if item == nil || !item.Active {
		return nil, ErrItemNotPurchasable
	}
	if item.Price <= 0 {
		return nil, fmt.Errorf("%w: item has no price", ErrItemNotPurchasable)
	}

	owned, err := s.purchaseRepo.HasCompleted(storeCtx, buyerID, itemType, item.ID)
	if err != nil {
		return nil, storeErr(err)
	}
	if owned {
		return nil, ErrItemAlreadyOwned
	}

	baseAmount := item.Price
	var discountAmount int64
	var promoCode *string
	if raw := entity.NormalizePromoCode(req.GetPromoCode()); raw != "" {
		promo, err := s.promo.Validate(ctx, raw, itemType, item.ID)
		if err != nil {
			return nil, err
		}
		discountAmount = s.promo.ComputeDiscount(promo, baseAmount)
		promoCode = &promo.Code
	}

	// Invoices need a positive amount, so the discount leaves at least minFinalAmount.
	if discountAmount > baseAmount-minFinalAmount {
		discountAmount = baseAmount - minFinalAmount
	}
	if discountAmount < 0 {
		discountAmount = 0
	}
	finalAmount := baseAmount - discountAmount

	now := time.Now().UTC()
	purchase := &entity.Purchase{
		BuyerID:           buyerID,
		ItemID:            item.ID,
		ItemType:          itemType,
		ExternalPaymentID: newExternalPaymentID(),
		BaseAmount:        baseAmount,
		DiscountAmount:    discountAmount,
		FinalAmount:       finalAmount,
		Currency:          s.currency,
		PromoCode:         promoCode,
		State:             entity.PurchaseStateCreated,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	invoice, err := providerClient.BuildInvoice(&provider.InvoiceInput{
		ExternalPaymentID: purchase.ExternalPaymentID,
		Title:             item.Title,
		Description:       fmt.Sprintf("%s #%d", itemType, item.ID),
		Amount:            finalAmount,
		Currency:          s.currency,
	})
	if err != nil {
		return nil, err
	}

	if err := s.purchaseRepo.Create(storeCtx, purchase); err != nil {
		switch {
		case errors.Is(err, repository.ErrPurchaseAlreadyActive):
			return nil, ErrDuplicateActivePurchase
		default:
			return nil, storeErr(err)
		}
	}

	s.audit.Record(ctx, purchaseTransitionRecord(purchase, eventPurchaseCreated, nil, entity.PurchaseStateCreated,
		fmt.Sprintf("base=%d discount=%d final=%d", baseAmount, discountAmount, finalAmount)))

	s.logger.WithFields(logrus.Fields{
		"purchase_id":         purchase.ID,
		"external_payment_id": purchase.ExternalPaymentID,
		"buyer_id":            buyerID,
		"item_type":           itemType,
		"item_id":             item.ID,
		"final_amount":        finalAmount,
	}).Info("Purchase intent created")

	return &PurchaseIntent{Purchase: purchase, Invoice: invoice}, nil
}

func (s *PurchaseService) GetPurchase(ctx context.Context, id uint64) (*entity.Purchase, error) {
	ctx, cancel := storeContext(ctx, s.cfg.StoreTimeout)
	defer cancel()

	purchase, err := s.purchaseRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if purchase == nil {
		return nil, ErrPurchaseNotFound
	}
	return purchase, nil
}

func (s *PurchaseService) ListPurchases(ctx context.Context, req listPurchasesRequest) ([]*entity.Purchase, error) {
	limit := req.GetLimit()
	if limit <= 0 {
		limit = defaultListLimit
	}

	filter := repository.PurchaseFilter{
		BuyerID: strings.TrimSpace(req.GetBuyerId()),
		Limit:   limit,
		Offset:  req.GetOffset(),
	}
	if raw := strings.TrimSpace(req.GetState()); raw != "" {
		state, ok := entity.ParsePurchaseState(raw)
		if !ok {
			return nil, fmt.Errorf("%w: invalid state", ErrInvalidRequest)
		}
		filter.HasState = true
		filter.State = state
	}

	ctx, cancel := storeContext(ctx, s.cfg.StoreTimeout)
	defer cancel()

	items, err := s.purchaseRepo.List(ctx, filter)
	return items, storeErr(err)
}

func (s *PurchaseService) batchSize() int32 {
	if s.cfg.JobBatchSize > 0 {
		return s.cfg.JobBatchSize
	}
	return defaultBatchSize
}

func newExternalPaymentID() string {
	return "pay_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func purchaseSubjectID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
