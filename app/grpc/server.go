package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/mapper"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/service"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server exposes the internal subset of the HTTP surface to trusted services.
// PreCheck and Complete take notifications the caller has already verified.
type Server struct {
	purchases   *service.PurchaseService
	reconciler  *service.Reconciler
	ledger      *service.PromoLedger
	withdrawals *service.WithdrawService
	finance     *service.FinanceAggregator
}

var _ PaymentsServiceServer = (*Server)(nil)

func NewServer(
	purchases *service.PurchaseService,
	reconciler *service.Reconciler,
	ledger *service.PromoLedger,
	withdrawals *service.WithdrawService,
	finance *service.FinanceAggregator,
) *Server {
	return &Server{
		purchases:   purchases,
		reconciler:  reconciler,
		ledger:      ledger,
		withdrawals: withdrawals,
		finance:     finance,
	}
}

func (s *Server) Health(_ context.Context, _ *types.HealthRequest) (*types.HealthResponse, error) {
	return &types.HealthResponse{Status: "ok"}, nil
}

func (s *Server) CreatePurchaseIntent(ctx context.Context, req *types.CreatePurchaseIntentRequest) (*types.CreatePurchaseIntentResponse, error) {
	req.BuyerId = strings.TrimSpace(req.GetBuyerId())
	req.ItemType = strings.ToLower(strings.TrimSpace(req.GetItemType()))
	req.PromoCode = entity.NormalizePromoCode(req.GetPromoCode())
	if err := req.Validate(); err != nil {
		loggerWithContext(ctx).WithError(err).Debug("Create purchase intent validation failed")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	intent, err := s.purchases.CreatePurchaseIntent(ctx, req)
	if err != nil {
		return nil, grpcError(ctx, err, "Create purchase intent")
	}

	return mapper.PurchaseIntentToProto(intent), nil
}

func (s *Server) GetPurchase(ctx context.Context, req *types.GetPurchaseRequest) (*types.PurchaseResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.purchases.GetPurchase(ctx, req.GetId())
	if err != nil {
		return nil, grpcError(ctx, err, "Get purchase")
	}

	return &types.PurchaseResponse{Purchase: mapper.PurchaseToProto(item)}, nil
}

func (s *Server) PreCheck(ctx context.Context, req *types.PreCheckRequest) (*types.NotificationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	outcome, err := s.reconciler.OnPreCheck(ctx, strings.TrimSpace(req.GetExternalPaymentId()), req.GetReportedAmount(), req.GetCurrency())
	return notificationResponse(ctx, outcome, err, "Pre-check")
}

func (s *Server) Complete(ctx context.Context, req *types.CompleteRequest) (*types.NotificationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	notice := service.CompletionNotice{
		ExternalPaymentID: strings.TrimSpace(req.GetExternalPaymentId()),
		Success:           !req.GetFailed(),
		FailureReason:     req.GetFailureReason(),
	}
	if chargeID := strings.TrimSpace(req.GetProviderChargeId()); chargeID != "" {
		notice.ProviderChargeID = &chargeID
	}

	outcome, err := s.reconciler.OnCompleted(ctx, notice)
	return notificationResponse(ctx, outcome, err, "Complete")
}

func (s *Server) ValidatePromoCode(ctx context.Context, req *types.ValidatePromoCodeRequest) (*types.ValidatePromoCodeResponse, error) {
	req.Code = entity.NormalizePromoCode(req.GetCode())
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	itemType, _ := entity.ParseItemType(req.GetItemType())

	promo, err := s.ledger.Validate(ctx, req.GetCode(), itemType, req.GetItemId())
	if err != nil {
		if errors.Is(err, service.ErrInvalidPromoCode) {
			return &types.ValidatePromoCodeResponse{Valid: false, Code: req.GetCode(), Reason: err.Error()}, nil
		}
		return nil, grpcError(ctx, err, "Validate promo code")
	}

	return mapper.ValidPromoCodeToProto(promo), nil
}

func (s *Server) CreateWithdrawRequest(ctx context.Context, req *types.CreateWithdrawRequestRequest) (*types.WithdrawRequestResponse, error) {
	req.Notes = strings.TrimSpace(req.GetNotes())
	req.RequestedBy = strings.TrimSpace(req.GetRequestedBy())
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.withdrawals.CreateWithdrawRequest(ctx, req)
	if err != nil {
		return nil, grpcError(ctx, err, "Create withdraw request")
	}

	return &types.WithdrawRequestResponse{WithdrawRequest: mapper.WithdrawRequestToProto(item)}, nil
}

func (s *Server) DailyRevenue(ctx context.Context, req *types.DailyRevenueRequest) (*types.RevenueResponse, error) {
	req.Date = strings.TrimSpace(req.GetDate())
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	day, _ := time.Parse(types.DateLayout, req.GetDate())
	summary, err := s.finance.DailyRevenue(ctx, day)
	if err != nil {
		return nil, grpcError(ctx, err, "Daily revenue")
	}

	return mapper.RevenueSummaryToProto(summary), nil
}

func (s *Server) MonthlyRevenue(ctx context.Context, req *types.MonthlyRevenueRequest) (*types.RevenueResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	summary, err := s.finance.MonthlyRevenue(ctx, int(req.GetYear()), time.Month(req.GetMonth()))
	if err != nil {
		return nil, grpcError(ctx, err, "Monthly revenue")
	}

	return mapper.RevenueSummaryToProto(summary), nil
}

// notificationResponse acknowledges protocol errors with a flagged response so the
// relaying caller does not retry them.
func notificationResponse(ctx context.Context, outcome *service.NotificationOutcome, err error, action string) (*types.NotificationResponse, error) {
	if err != nil {
		if service.IsProtocolError(err) {
			loggerWithContext(ctx).WithError(err).Warn(action + " flagged")
			resp := mapper.NotificationOutcomeToProto(outcome)
			resp.Flagged = true
			return resp, nil
		}
		return nil, grpcError(ctx, err, action)
	}
	return mapper.NotificationOutcomeToProto(outcome), nil
}

func grpcError(ctx context.Context, err error, action string) error {
	switch {
	case errors.Is(err, service.ErrStoreTimeout), errors.Is(err, context.DeadlineExceeded):
		loggerWithContext(ctx).WithError(err).Warn(action + " timed out")
		return status.Error(codes.Unavailable, "service temporarily unavailable")
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrInvalidPromoCode):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrPurchaseNotFound), errors.Is(err, service.ErrWithdrawNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrDuplicateActivePurchase), errors.Is(err, service.ErrPromoCodeAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, service.ErrItemAlreadyOwned),
		errors.Is(err, service.ErrItemNotPurchasable),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInsufficientBalance):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrNotificationRejected):
		return status.Error(codes.Unauthenticated, err.Error())
	default:
		loggerWithContext(ctx).WithError(err).Error(action + " failed")
		return status.Error(codes.Internal, "internal server error")
	}
}
