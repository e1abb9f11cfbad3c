package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/provider"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/repository"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/service"
	"github.com/vibast-solutions/ms-go-lesson-payments/app/types"
)

func PurchaseToProto(item *entity.Purchase) *types.Purchase {
	if item == nil {
		return nil
	}

	return &types.Purchase{
		Id:                item.ID,
		BuyerId:           item.BuyerID,
		ItemId:            item.ItemID,
		ItemType:          string(item.ItemType),
		ExternalPaymentId: item.ExternalPaymentID,
		BaseAmount:        item.BaseAmount,
		DiscountAmount:    item.DiscountAmount,
		FinalAmount:       item.FinalAmount,
		Currency:          item.Currency,
		PromoCode:         derefString(item.PromoCode),
		State:             item.State.String(),
		FailureReason:     derefString(item.FailureReason),
		ProviderChargeId:  derefString(item.ProviderChargeID),
		CompletedAt:       formatOptionalTime(item.CompletedAt),
		CreatedAt:         formatTime(item.CreatedAt),
		UpdatedAt:         formatTime(item.UpdatedAt),
	}
}

func PurchasesToProto(items []*entity.Purchase) []*types.Purchase {
	result := make([]*types.Purchase, 0, len(items))
	for _, item := range items {
		result = append(result, PurchaseToProto(item))
	}
	return result
}

func InvoiceToProto(item *provider.Invoice) *types.Invoice {
	if item == nil {
		return nil
	}
	return &types.Invoice{
		Provider:    item.Provider,
		Title:       item.Title,
		Description: item.Description,
		Currency:    item.Currency,
		Amount:      item.Amount,
		Payload:     item.Payload,
	}
}

func PurchaseIntentToProto(intent *service.PurchaseIntent) *types.CreatePurchaseIntentResponse {
	if intent == nil || intent.Purchase == nil {
		return &types.CreatePurchaseIntentResponse{}
	}
	return &types.CreatePurchaseIntentResponse{
		PurchaseId:        intent.Purchase.ID,
		ExternalPaymentId: intent.Purchase.ExternalPaymentID,
		FinalAmount:       intent.Purchase.FinalAmount,
		Purchase:          PurchaseToProto(intent.Purchase),
		Invoice:           InvoiceToProto(intent.Invoice),
	}
}

func NotificationOutcomeToProto(outcome *service.NotificationOutcome) *types.NotificationResponse {
	if outcome == nil {
		return &types.NotificationResponse{}
	}
	resp := &types.NotificationResponse{
		Accepted: outcome.Accepted,
		Flagged:  outcome.Flagged,
		Reason:   outcome.Reason,
	}
	if outcome.Purchase != nil {
		resp.State = outcome.Purchase.State.String()
	}
	return resp
}

func PromoCodeToProto(item *entity.PromoCode) *types.PromoCode {
	if item == nil {
		return nil
	}

	resp := &types.PromoCode{
		Id:            item.ID,
		Code:          item.Code,
		MaxUses:       derefInt32(item.MaxUses),
		CurrentUses:   item.CurrentUses,
		RemainingUses: item.RemainingUses(),
		ExpiresAt:     formatOptionalTime(item.ExpiresAt),
		Active:        item.Active,
		CreatedAt:     formatTime(item.CreatedAt),
		UpdatedAt:     formatTime(item.UpdatedAt),
	}
	if item.ItemType != nil {
		resp.ItemType = string(*item.ItemType)
	}
	applyDiscount(item.Discount, &resp.DiscountPercent, &resp.DiscountAmount)
	return resp
}

func PromoCodesToProto(items []*entity.PromoCode) []*types.PromoCode {
	result := make([]*types.PromoCode, 0, len(items))
	for _, item := range items {
		result = append(result, PromoCodeToProto(item))
	}
	return result
}

func ValidPromoCodeToProto(item *entity.PromoCode) *types.ValidatePromoCodeResponse {
	if item == nil {
		return &types.ValidatePromoCodeResponse{}
	}
	resp := &types.ValidatePromoCodeResponse{Valid: true, Code: item.Code}
	applyDiscount(item.Discount, &resp.DiscountPercent, &resp.DiscountAmount)
	return resp
}

func WithdrawRequestToProto(item *entity.WithdrawRequest) *types.WithdrawRequest {
	if item == nil {
		return nil
	}
	return &types.WithdrawRequest{
		Id:          item.ID,
		Amount:      item.Amount,
		Status:      item.Status.String(),
		Notes:       derefString(item.Notes),
		RequestedBy: derefString(item.RequestedBy),
		ProcessedBy: derefString(item.ProcessedBy),
		RequestedAt: formatTime(item.RequestedAt),
		ProcessedAt: formatOptionalTime(item.ProcessedAt),
	}
}

func WithdrawRequestsToProto(items []*entity.WithdrawRequest) []*types.WithdrawRequest {
	result := make([]*types.WithdrawRequest, 0, len(items))
	for _, item := range items {
		result = append(result, WithdrawRequestToProto(item))
	}
	return result
}

func RevenueSummaryToProto(item *service.RevenueSummary) *types.RevenueResponse {
	if item == nil {
		return &types.RevenueResponse{AverageOrderValue: "0.00"}
	}
	return &types.RevenueResponse{
		Period:            item.Period,
		Count:             item.Count,
		Gross:             item.Gross,
		AverageOrderValue: item.Average.StringFixed(2),
	}
}

func ItemRevenueToProto(items []repository.ItemRevenueRow) *types.TopItemsResponse {
	result := make([]*types.ItemRevenue, 0, len(items))
	for _, item := range items {
		result = append(result, &types.ItemRevenue{
			ItemType: string(item.ItemType),
			ItemId:   item.ItemID,
			Count:    item.Count,
			Gross:    item.Gross,
		})
	}
	return &types.TopItemsResponse{Items: result}
}

func BalanceToProto(item *service.Balance) *types.BalanceResponse {
	if item == nil {
		return &types.BalanceResponse{}
	}
	return &types.BalanceResponse{
		CompletedRevenue:    item.CompletedRevenue,
		ReservedWithdrawals: item.ReservedWithdrawals,
		Withdrawable:        item.Withdrawable,
	}
}

func AuditEntriesToProto(items []*entity.AuditEntry) []*types.AuditEntry {
	result := make([]*types.AuditEntry, 0, len(items))
	for _, item := range items {
		result = append(result, &types.AuditEntry{
			Id:          item.ID,
			SubjectType: item.SubjectType,
			SubjectId:   item.SubjectID,
			Event:       item.Event,
			FromState:   derefString(item.FromState),
			ToState:     item.ToState,
			Detail:      derefString(item.Detail),
			CreatedAt:   formatTime(item.CreatedAt),
		})
	}
	return result
}

func applyDiscount(discount entity.Discount, percent *int32, amount *int64) {
	if discount == nil {
		return
	}
	switch discount.Kind() {
	case entity.DiscountKindPercent:
		*percent = int32(discount.Value())
	case entity.DiscountKindFixed:
		*amount = discount.Value()
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt32(v *int32) int32 {
	if v == nil {
		return 0
	}
	return *v
}
