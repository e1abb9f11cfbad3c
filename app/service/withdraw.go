package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/factory"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/repository"
	"github.com/vibast-solutions/ms-go-lesson-payments/config"
)

const (
	eventWithdrawRequested = "withdraw_requested"
	eventWithdrawApproved  = "withdraw_approved"
	eventWithdrawRejected  = "withdraw_rejected"
	eventWithdrawCompleted = "withdraw_completed"
	eventWithdrawRefused   = "rejected_transition"
)

type withdrawRequestRepository interface {
	Create(ctx context.Context, request *entity.WithdrawRequest) error
	Transition(ctx context.Context, t repository.WithdrawTransition) (bool, error)
	FindByID(ctx context.Context, id uint64) (*entity.WithdrawRequest, error)
	List(ctx context.Context, filter repository.WithdrawFilter) ([]*entity.WithdrawRequest, error)
	SumAmountByStatuses(ctx context.Context, statuses ...entity.WithdrawStatus) (int64, error)
}

type balanceReader interface {
	WithdrawableBalance(ctx context.Context) (*Balance, error)
}

type createWithdrawRequestRequest interface {
	GetAmount() int64
	GetNotes() string
	GetRequestedBy() string
}

type processWithdrawRequest interface {
	GetId() uint64
	GetNotes() string
	GetProcessedBy() string
}

type listWithdrawRequestsRequest interface {
	GetStatus() string
	GetLimit() int32
	GetOffset() int32
}

// WithdrawService runs the manual payout workflow. Balance checks are check-then-act:
// two concurrent requests may both pass, and the operator gate on APPROVED→COMPLETED
// is where over-withdrawal gets caught.
type WithdrawService struct {
	repo     withdrawRequestRepository
	balances balanceReader
	audit    *AuditTrail
	cfg      config.WithdrawConfig
	timeout  time.Duration
	logger   logrus.FieldLogger
}

func NewWithdrawService(
	repo withdrawRequestRepository,
	balances balanceReader,
	audit *AuditTrail,
	cfg config.WithdrawConfig,
	purchasesCfg config.PurchasesConfig,
) *WithdrawService {
	return &WithdrawService{
		repo:     repo,
		balances: balances,
		audit:    audit,
		cfg:      cfg,
		timeout:  purchasesCfg.StoreTimeout,
		logger:   factory.NewModuleLogger("withdraw-service"),
	}
}

// CreateWithdrawRequest rejects the request when it, together with requests still
// pending, would exceed the withdrawable balance.
func (s *WithdrawService) CreateWithdrawRequest(ctx context.Context, req createWithdrawRequestRequest) (*entity.WithdrawRequest, error) {
	amount := req.GetAmount()
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be > 0", ErrInvalidRequest)
	}
	if s.cfg.MinAmount > 0 && amount < s.cfg.MinAmount {
		return nil, fmt.Errorf("%w: amount must be >= %d", ErrInvalidRequest, s.cfg.MinAmount)
	}
	if s.cfg.MaxAmount > 0 && amount > s.cfg.MaxAmount {
		return nil, fmt.Errorf("%w: amount must be <= %d", ErrInvalidRequest, s.cfg.MaxAmount)
	}

	balance, err := s.balances.WithdrawableBalance(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := storeContext(ctx, s.timeout)
	defer cancel()

	pending, err := s.repo.SumAmountByStatuses(ctx, entity.WithdrawStatusPending)
	if err != nil {
		return nil, storeErr(err)
	}
	if amount+pending > balance.Withdrawable {
		return nil, fmt.Errorf("%w: requested %d, available %d", ErrInsufficientBalance, amount, balance.Withdrawable-pending)
	}

	now := time.Now().UTC()
	request := &entity.WithdrawRequest{
		Amount:      amount,
		Status:      entity.WithdrawStatusPending,
		Notes:       normalizeOptionalString(req.GetNotes()),
		RequestedBy: normalizeOptionalString(req.GetRequestedBy()),
		RequestedAt: now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, storeErr(err)
	}

	s.audit.Record(ctx, withdrawTransitionRecord(request, eventWithdrawRequested, nil, entity.WithdrawStatusPending,
		fmt.Sprintf("amount=%d withdrawable=%d", amount, balance.Withdrawable)))
	s.logger.WithFields(logrus.Fields{"withdraw_id": request.ID, "amount": amount}).Info("Withdraw request created")

	return request, nil
}

func (s *WithdrawService) GetWithdrawRequest(ctx context.Context, id uint64) (*entity.WithdrawRequest, error) {
	ctx, cancel := storeContext(ctx, s.timeout)
	defer cancel()

	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if request == nil {
		return nil, ErrWithdrawNotFound
	}
	return request, nil
}

func (s *WithdrawService) ListWithdrawRequests(ctx context.Context, req listWithdrawRequestsRequest) ([]*entity.WithdrawRequest, error) {
	limit := req.GetLimit()
	if limit <= 0 {
		limit = defaultListLimit
	}

	filter := repository.WithdrawFilter{Limit: limit, Offset: req.GetOffset()}
	if raw := strings.TrimSpace(req.GetStatus()); raw != "" {
		status, ok := entity.ParseWithdrawStatus(raw)
		if !ok {
			return nil, fmt.Errorf("%w: invalid status", ErrInvalidRequest)
		}
		filter.HasStatus = true
		filter.Status = status
	}

	ctx, cancel := storeContext(ctx, s.timeout)
	defer cancel()

	items, err := s.repo.List(ctx, filter)
	return items, storeErr(err)
}

// Approve re-checks the balance. When it no longer covers the request, the request is
// rejected with a note and ErrInsufficientBalance is returned.
func (s *WithdrawService) Approve(ctx context.Context, req processWithdrawRequest) (*entity.WithdrawRequest, error) {
	request, err := s.GetWithdrawRequest(ctx, req.GetId())
	if err != nil {
		return nil, err
	}
	if request.Status != entity.WithdrawStatusPending {
		s.refuseTransition(ctx, request, request.Status, fmt.Sprintf("cannot approve %s request", request.Status))
		return nil, fmt.Errorf("%w: cannot approve %s request", ErrInvalidStatus, request.Status)
	}

	balance, err := s.balances.WithdrawableBalance(ctx)
	if err != nil {
		return nil, err
	}
	if request.Amount > balance.Withdrawable {
		note := fmt.Sprintf("auto-rejected: requested %d, withdrawable %d", request.Amount, balance.Withdrawable)
		if _, err := s.transition(ctx, request, entity.WithdrawStatusRejected, eventWithdrawRejected, note, req.GetProcessedBy()); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrInsufficientBalance, note)
	}

	return s.transition(ctx, request, entity.WithdrawStatusApproved, eventWithdrawApproved, req.GetNotes(), req.GetProcessedBy())
}

func (s *WithdrawService) Reject(ctx context.Context, req processWithdrawRequest) (*entity.WithdrawRequest, error) {
	request, err := s.GetWithdrawRequest(ctx, req.GetId())
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, request, entity.WithdrawStatusRejected, eventWithdrawRejected, req.GetNotes(), req.GetProcessedBy())
}

func (s *WithdrawService) Complete(ctx context.Context, req processWithdrawRequest) (*entity.WithdrawRequest, error) {
	request, err := s.GetWithdrawRequest(ctx, req.GetId())
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, request, entity.WithdrawStatusCompleted, eventWithdrawCompleted, req.GetNotes(), req.GetProcessedBy())
}

func (s *WithdrawService) transition(
	ctx context.Context,
	request *entity.WithdrawRequest,
	to entity.WithdrawStatus,
	event string,
	notes string,
	processedBy string,
) (*entity.WithdrawRequest, error) {
	ctx, cancel := storeContext(ctx, s.timeout)
	defer cancel()

	from := request.Status
	if !from.CanTransitionTo(to) {
		s.refuseTransition(ctx, request, from, fmt.Sprintf("%s to %s not allowed", from, to))
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatus, from, to)
	}

	now := time.Now().UTC()
	applied, err := s.repo.Transition(ctx, repository.WithdrawTransition{
		ID:          request.ID,
		From:        from,
		To:          to,
		Notes:       normalizeOptionalString(notes),
		ProcessedBy: normalizeOptionalString(processedBy),
		At:          now,
	})
	if err != nil {
		return nil, storeErr(err)
	}
	if !applied {
		s.refuseTransition(ctx, request, from, fmt.Sprintf("%s to %s lost to a concurrent change", from, to))
		return nil, fmt.Errorf("%w: request %d changed concurrently", ErrInvalidStatus, request.ID)
	}

	request.Status = to
	if n := normalizeOptionalString(notes); n != nil {
		request.Notes = n
	}
	if p := normalizeOptionalString(processedBy); p != nil {
		request.ProcessedBy = p
	}
	request.ProcessedAt = &now
	request.UpdatedAt = now

	s.audit.Record(ctx, withdrawTransitionRecord(request, event, &from, to, notes))
	s.logger.WithFields(logrus.Fields{
		"withdraw_id": request.ID,
		"from":        from.String(),
		"to":          to.String(),
	}).Info("Withdraw request transitioned")

	return request, nil
}

// refuseTransition audits a transition that was not applied. The entry keeps the
// status the request was read in.
func (s *WithdrawService) refuseTransition(ctx context.Context, request *entity.WithdrawRequest, status entity.WithdrawStatus, detail string) {
	s.audit.Record(ctx, withdrawTransitionRecord(request, eventWithdrawRefused, &status, status, detail))
	s.logger.WithFields(logrus.Fields{
		"withdraw_id": request.ID,
		"status":      status.String(),
	}).Warn("Withdraw transition refused")
}

func withdrawTransitionRecord(request *entity.WithdrawRequest, event string, from *entity.WithdrawStatus, to entity.WithdrawStatus, detail string) auditRecord {
	var fromName *string
	if from != nil {
		fromName = stringPtr(from.String())
	}
	return auditRecord{
		SubjectType: entity.AuditSubjectWithdraw,
		SubjectID:   strconv.FormatUint(request.ID, 10),
		Event:       event,
		From:        fromName,
		To:          to.String(),
		Detail:      detail,
	}
}
