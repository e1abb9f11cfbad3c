package types

// Messages exchanged over HTTP and gRPC. Getters are nil-safe so service request
// interfaces can be satisfied by either transport.

type HealthRequest struct{}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type Purchase struct {
	Id                uint64 `json:"id"`
	BuyerId           string `json:"buyer_id"`
	ItemId            uint64 `json:"item_id"`
	ItemType          string `json:"item_type"`
	ExternalPaymentId string `json:"external_payment_id"`
	BaseAmount        int64  `json:"base_amount"`
	DiscountAmount    int64  `json:"discount_amount"`
	FinalAmount       int64  `json:"final_amount"`
	Currency          string `json:"currency"`
	PromoCode         string `json:"promo_code,omitempty"`
	State             string `json:"state"`
	FailureReason     string `json:"failure_reason,omitempty"`
	ProviderChargeId  string `json:"provider_charge_id,omitempty"`
	CompletedAt       string `json:"completed_at,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

type Invoice struct {
	Provider    string `json:"provider"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Currency    string `json:"currency"`
	Amount      int64  `json:"amount"`
	Payload     string `json:"payload"`
}

type CreatePurchaseIntentRequest struct {
	BuyerId   string `json:"buyer_id"`
	ItemId    uint64 `json:"item_id"`
	ItemType  string `json:"item_type"`
	PromoCode string `json:"promo_code,omitempty"`
}

func (r *CreatePurchaseIntentRequest) GetBuyerId() string {
	if r == nil {
		return ""
	}
	return r.BuyerId
}

func (r *CreatePurchaseIntentRequest) GetItemId() uint64 {
	if r == nil {
		return 0
	}
	return r.ItemId
}

func (r *CreatePurchaseIntentRequest) GetItemType() string {
	if r == nil {
		return ""
	}
	return r.ItemType
}

func (r *CreatePurchaseIntentRequest) GetPromoCode() string {
	if r == nil {
		return ""
	}
	return r.PromoCode
}

type CreatePurchaseIntentResponse struct {
	PurchaseId        uint64    `json:"purchase_id"`
	ExternalPaymentId string    `json:"external_payment_id"`
	FinalAmount       int64     `json:"final_amount"`
	Purchase          *Purchase `json:"purchase"`
	Invoice           *Invoice  `json:"invoice"`
}

type GetPurchaseRequest struct {
	Id uint64 `json:"id"`
}

func (r *GetPurchaseRequest) GetId() uint64 {
	if r == nil {
		return 0
	}
	return r.Id
}

type PurchaseResponse struct {
	Purchase *Purchase `json:"purchase"`
}

type ListPurchasesRequest struct {
	BuyerId string `json:"buyer_id"`
	State   string `json:"state,omitempty"`
	Limit   int32  `json:"limit"`
	Offset  int32  `json:"offset"`
}

func (r *ListPurchasesRequest) GetBuyerId() string {
	if r == nil {
		return ""
	}
	return r.BuyerId
}

func (r *ListPurchasesRequest) GetState() string {
	if r == nil {
		return ""
	}
	return r.State
}

func (r *ListPurchasesRequest) GetLimit() int32 {
	if r == nil {
		return 0
	}
	return r.Limit
}

func (r *ListPurchasesRequest) GetOffset() int32 {
	if r == nil {
		return 0
	}
	return r.Offset
}

type ListPurchasesResponse struct {
	Purchases []*Purchase `json:"purchases"`
}

// ProviderNotificationRequest carries a raw, signed provider webhook.
type ProviderNotificationRequest struct {
	RequestId string `json:"request_id"`
	Provider  string `json:"provider"`
	Kind      string `json:"kind"`
	Signature string `json:"signature"`
	Payload   string `json:"payload"`
}

func (r *ProviderNotificationRequest) GetRequestId() string {
	if r == nil {
		return ""
	}
	return r.RequestId
}

func (r *ProviderNotificationRequest) GetProvider() string {
	if r == nil {
		return ""
	}
	return r.Provider
}

func (r *ProviderNotificationRequest) GetKind() string {
	if r == nil {
		return ""
	}
	return r.Kind
}

func (r *ProviderNotificationRequest) GetSignature() string {
	if r == nil {
		return ""
	}
	return r.Signature
}

func (r *ProviderNotificationRequest) GetPayload() string {
	if r == nil {
		return ""
	}
	return r.Payload
}

// PreCheckRequest is the already verified pre-check relayed by a trusted internal caller.
type PreCheckRequest struct {
	ExternalPaymentId string `json:"external_payment_id"`
	ReportedAmount    int64  `json:"reported_amount"`
	Currency          string `json:"currency,omitempty"`
}

func (r *PreCheckRequest) GetExternalPaymentId() string {
	if r == nil {
		return ""
	}
	return r.ExternalPaymentId
}

func (r *PreCheckRequest) GetReportedAmount() int64 {
	if r == nil {
		return 0
	}
	return r.ReportedAmount
}

func (r *PreCheckRequest) GetCurrency() string {
	if r == nil {
		return ""
	}
	return r.Currency
}

type CompleteRequest struct {
	ExternalPaymentId string `json:"external_payment_id"`
	ProviderChargeId  string `json:"provider_charge_id,omitempty"`
	Failed            bool   `json:"failed,omitempty"`
	FailureReason     string `json:"failure_reason,omitempty"`
}

func (r *CompleteRequest) GetExternalPaymentId() string {
	if r == nil {
		return ""
	}
	return r.ExternalPaymentId
}

func (r *CompleteRequest) GetProviderChargeId() string {
	if r == nil {
		return ""
	}
	return r.ProviderChargeId
}

func (r *CompleteRequest) GetFailed() bool {
	if r == nil {
		return false
	}
	return r.Failed
}

func (r *CompleteRequest) GetFailureReason() string {
	if r == nil {
		return ""
	}
	return r.FailureReason
}

// NotificationResponse is returned to the provider. Accepted answers pre-checks;
// Flagged marks a notification acknowledged without being applied.
type NotificationResponse struct {
	Accepted bool   `json:"accepted"`
	Flagged  bool   `json:"flagged,omitempty"`
	Reason   string `json:"reason,omitempty"`
	State    string `json:"state,omitempty"`
}

type PromoCode struct {
	Id              uint64 `json:"id"`
	Code            string `json:"code"`
	DiscountPercent int32  `json:"discount_percent,omitempty"`
	DiscountAmount  int64  `json:"discount_amount,omitempty"`
	ItemType        string `json:"item_type,omitempty"`
	MaxUses         int32  `json:"max_uses,omitempty"`
	CurrentUses     int32  `json:"current_uses"`
	RemainingUses   *int32 `json:"remaining_uses,omitempty"`
	ExpiresAt       string `json:"expires_at,omitempty"`
	Active          bool   `json:"active"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type ValidatePromoCodeRequest struct {
	Code     string `json:"code"`
	ItemType string `json:"item_type"`
	ItemId   uint64 `json:"item_id"`
}

func (r *ValidatePromoCodeRequest) GetCode() string {
	if r == nil {
		return ""
	}
	return r.Code
}

func (r *ValidatePromoCodeRequest) GetItemType() string {
	if r == nil {
		return ""
	}
	return r.ItemType
}

func (r *ValidatePromoCodeRequest) GetItemId() uint64 {
	if r == nil {
		return 0
	}
	return r.ItemId
}

type ValidatePromoCodeResponse struct {
	Valid           bool   `json:"valid"`
	Code            string `json:"code"`
	Reason          string `json:"reason,omitempty"`
	DiscountPercent int32  `json:"discount_percent,omitempty"`
	DiscountAmount  int64  `json:"discount_amount,omitempty"`
}

type CreatePromoCodeRequest struct {
	Code            string `json:"code"`
	DiscountPercent int32  `json:"discount_percent,omitempty"`
	DiscountAmount  int64  `json:"discount_amount,omitempty"`
	ItemType        string `json:"item_type,omitempty"`
	MaxUses         int32  `json:"max_uses,omitempty"`
	ExpiresAt       string `json:"expires_at,omitempty"`
}

func (r *CreatePromoCodeRequest) GetCode() string {
	if r == nil {
		return ""
	}
	return r.Code
}

func (r *CreatePromoCodeRequest) GetDiscountPercent() int32 {
	if r == nil {
		return 0
	}
	return r.DiscountPercent
}

func (r *CreatePromoCodeRequest) GetDiscountAmount() int64 {
	if r == nil {
		return 0
	}
	return r.DiscountAmount
}

func (r *CreatePromoCodeRequest) GetItemType() string {
	if r == nil {
		return ""
	}
	return r.ItemType
}

func (r *CreatePromoCodeRequest) GetMaxUses() int32 {
	if r == nil {
		return 0
	}
	return r.MaxUses
}

func (r *CreatePromoCodeRequest) GetExpiresAt() string {
	if r == nil {
		return ""
	}
	return r.ExpiresAt
}

type PromoCodeRequest struct {
	Code string `json:"code"`
}

func (r *PromoCodeRequest) GetCode() string {
	if r == nil {
		return ""
	}
	return r.Code
}

type ListPromoCodesRequest struct {
	ActiveOnly bool  `json:"active_only"`
	Limit      int32 `json:"limit"`
	Offset     int32 `json:"offset"`
}

func (r *ListPromoCodesRequest) GetActiveOnly() bool {
	if r == nil {
		return false
	}
	return r.ActiveOnly
}

func (r *ListPromoCodesRequest) GetLimit() int32 {
	if r == nil {
		return 0
	}
	return r.Limit
}

func (r *ListPromoCodesRequest) GetOffset() int32 {
	if r == nil {
		return 0
	}
	return r.Offset
}

type PromoCodeResponse struct {
	PromoCode *PromoCode `json:"promo_code"`
}

type ListPromoCodesResponse struct {
	PromoCodes []*PromoCode `json:"promo_codes"`
}

type WithdrawRequest struct {
	Id          uint64 `json:"id"`
	Amount      int64  `json:"amount"`
	Status      string `json:"status"`
	Notes       string `json:"notes,omitempty"`
	RequestedBy string `json:"requested_by,omitempty"`
	ProcessedBy string `json:"processed_by,omitempty"`
	RequestedAt string `json:"requested_at"`
	ProcessedAt string `json:"processed_at,omitempty"`
}

type CreateWithdrawRequestRequest struct {
	Amount      int64  `json:"amount"`
	Notes       string `json:"notes,omitempty"`
	RequestedBy string `json:"requested_by,omitempty"`
}

func (r *CreateWithdrawRequestRequest) GetAmount() int64 {
	if r == nil {
		return 0
	}
	return r.Amount
}

func (r *CreateWithdrawRequestRequest) GetNotes() string {
	if r == nil {
		return ""
	}
	return r.Notes
}

func (r *CreateWithdrawRequestRequest) GetRequestedBy() string {
	if r == nil {
		return ""
	}
	return r.RequestedBy
}

type GetWithdrawRequestRequest struct {
	Id uint64 `json:"id"`
}

func (r *GetWithdrawRequestRequest) GetId() uint64 {
	if r == nil {
		return 0
	}
	return r.Id
}

// ProcessWithdrawRequest drives approve, reject and complete.
type ProcessWithdrawRequest struct {
	Id          uint64 `json:"id"`
	Notes       string `json:"notes,omitempty"`
	ProcessedBy string `json:"processed_by,omitempty"`
}

func (r *ProcessWithdrawRequest) GetId() uint64 {
	if r == nil {
		return 0
	}
	return r.Id
}

func (r *ProcessWithdrawRequest) GetNotes() string {
	if r == nil {
		return ""
	}
	return r.Notes
}

func (r *ProcessWithdrawRequest) GetProcessedBy() string {
	if r == nil {
		return ""
	}
	return r.ProcessedBy
}

type ListWithdrawRequestsRequest struct {
	Status string `json:"status,omitempty"`
	Limit  int32  `json:"limit"`
	Offset int32  `json:"offset"`
}

func (r *ListWithdrawRequestsRequest) GetStatus() string {
	if r == nil {
		return ""
	}
	return r.Status
}

func (r *ListWithdrawRequestsRequest) GetLimit() int32 {
	if r == nil {
		return 0
	}
	return r.Limit
}

func (r *ListWithdrawRequestsRequest) GetOffset() int32 {
	if r == nil {
		return 0
	}
	return r.Offset
}

type WithdrawRequestResponse struct {
	WithdrawRequest *WithdrawRequest `json:"withdraw_request"`
}

type ListWithdrawRequestsResponse struct {
	WithdrawRequests []*WithdrawRequest `json:"withdraw_requests"`
}

type DailyRevenueRequest struct {
	Date string `json:"date"`
}

func (r *DailyRevenueRequest) GetDate() string {
	if r == nil {
		return ""
	}
	return r.Date
}

type MonthlyRevenueRequest struct {
	Year  int32 `json:"year"`
	Month int32 `json:"month"`
}

func (r *MonthlyRevenueRequest) GetYear() int32 {
	if r == nil {
		return 0
	}
	return r.Year
}

func (r *MonthlyRevenueRequest) GetMonth() int32 {
	if r == nil {
		return 0
	}
	return r.Month
}

type RevenueResponse struct {
	Period            string `json:"period"`
	Count             int64  `json:"count"`
	Gross             int64  `json:"gross"`
	AverageOrderValue string `json:"average_order_value"`
}

type TopItemsRequest struct {
	Days  int32 `json:"days"`
	Limit int32 `json:"limit"`
}

func (r *TopItemsRequest) GetDays() int32 {
	if r == nil {
		return 0
	}
	return r.Days
}

func (r *TopItemsRequest) GetLimit() int32 {
	if r == nil {
		return 0
	}
	return r.Limit
}

type ItemRevenue struct {
	ItemType string `json:"item_type"`
	ItemId   uint64 `json:"item_id"`
	Count    int64  `json:"count"`
	Gross    int64  `json:"gross"`
}

type TopItemsResponse struct {
	Items []*ItemRevenue `json:"items"`
}

type BalanceResponse struct {
	CompletedRevenue    int64 `json:"completed_revenue"`
	ReservedWithdrawals int64 `json:"reserved_withdrawals"`
	Withdrawable        int64 `json:"withdrawable"`
}

type RevenueReportRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (r *RevenueReportRequest) GetFrom() string {
	if r == nil {
		return ""
	}
	return r.From
}

func (r *RevenueReportRequest) GetTo() string {
	if r == nil {
		return ""
	}
	return r.To
}

type AuditEntry struct {
	Id          uint64 `json:"id"`
	SubjectType string `json:"subject_type"`
	SubjectId   string `json:"subject_id"`
	Event       string `json:"event"`
	FromState   string `json:"from_state,omitempty"`
	ToState     string `json:"to_state"`
	Detail      string `json:"detail,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type ListAuditEntriesRequest struct {
	SubjectType string `json:"subject_type"`
	SubjectId   string `json:"subject_id"`
	Limit       int32  `json:"limit"`
}

func (r *ListAuditEntriesRequest) GetSubjectType() string {
	if r == nil {
		return ""
	}
	return r.SubjectType
}

func (r *ListAuditEntriesRequest) GetSubjectId() string {
	if r == nil {
		return ""
	}
	return r.SubjectId
}

func (r *ListAuditEntriesRequest) GetLimit() int32 {
	if r == nil {
		return 0
	}
	return r.Limit
}

type ListAuditEntriesResponse struct {
	Entries []*AuditEntry `json:"entries"`
}
