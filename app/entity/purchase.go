package entity

import (
	"strings"
	"time"
)

type ItemType string

const (
	ItemTypeLesson ItemType = "lesson"
	ItemTypeCourse ItemType = "course"
)

func ParseItemType(raw string) (ItemType, bool) {
	switch ItemType(strings.ToLower(strings.TrimSpace(raw))) {
	case ItemTypeLesson:
		return ItemTypeLesson, true
	case ItemTypeCourse:
		return ItemTypeCourse, true
	default:
		return "", false
	}
}

type PurchaseState int32

const (
	PurchaseStateCreated   PurchaseState = 1
	PurchaseStatePending   PurchaseState = 2
	PurchaseStateCompleted PurchaseState = 10
	PurchaseStateFailed    PurchaseState = 20
	PurchaseStateCancelled PurchaseState = 30
)

// purchaseTransitions is the complete transition table. Terminal states have no entry.
var purchaseTransitions = map[PurchaseState][]PurchaseState{
	PurchaseStateCreated: {PurchaseStatePending, PurchaseStateCancelled, PurchaseStateFailed},
	PurchaseStatePending: {PurchaseStateCompleted, PurchaseStateFailed},
}

var purchaseStateNames = map[PurchaseState]string{
	PurchaseStateCreated:   "CREATED",
	PurchaseStatePending:   "PENDING",
	PurchaseStateCompleted: "COMPLETED",
	PurchaseStateFailed:    "FAILED",
	PurchaseStateCancelled: "CANCELLED",
}

func (s PurchaseState) String() string {
	if name, ok := purchaseStateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

func (s PurchaseState) Valid() bool {
	_, ok := purchaseStateNames[s]
	return ok
}

func (s PurchaseState) Terminal() bool {
	return s.Valid() && len(purchaseTransitions[s]) == 0
}

// Active reports whether the state still blocks a new intent for the same buyer and item.
func (s PurchaseState) Active() bool {
	return s == PurchaseStateCreated || s == PurchaseStatePending
}

func (s PurchaseState) CanTransitionTo(next PurchaseState) bool {
	for _, candidate := range purchaseTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

func ParsePurchaseState(raw string) (PurchaseState, bool) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	for state, name := range purchaseStateNames {
		if name == upper {
			return state, true
		}
	}
	return 0, false
}

const (
	FailureReasonAmountMismatch   = "amount_mismatch"
	FailureReasonCurrencyMismatch = "currency_mismatch"
	FailureReasonProviderDeclined = "provider_declined"
)

type Purchase struct {
	ID uint64

	BuyerID  string
	ItemID   uint64
	ItemType ItemType

	ExternalPaymentID string

	BaseAmount     int64
	DiscountAmount int64
	FinalAmount    int64
	Currency       string

	PromoCode *string
	// PromoSettledAt is set once the promo use for a completed purchase was counted
	// or refused at the usage ceiling.
	PromoSettledAt *time.Time

	State            PurchaseState
	FailureReason    *string
	ProviderChargeID *string

	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
