package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrItemNotPurchasable  = errors.New("item is not purchasable")
	ErrItemAlreadyOwned    = errors.New("item already owned")
	ErrPurchaseNotFound    = errors.New("purchase not found")
	ErrProviderUnsupported = errors.New("provider is not supported")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrStoreTimeout        = errors.New("store timeout")

	ErrDuplicateActivePurchase = errors.New("duplicate active purchase")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrWithdrawNotFound        = errors.New("withdraw request not found")
	ErrPromoCodeAlreadyExists  = errors.New("promo code already exists")

	// ErrNotificationRejected marks a provider notification that failed verification.
	ErrNotificationRejected = errors.New("notification rejected")
)

var (
	ErrInvalidPromoCode       = errors.New("invalid promo code")
	ErrPromoCodeNotFound      = fmt.Errorf("%w: not found", ErrInvalidPromoCode)
	ErrPromoCodeExpired       = fmt.Errorf("%w: expired", ErrInvalidPromoCode)
	ErrPromoCodeInactive      = fmt.Errorf("%w: inactive", ErrInvalidPromoCode)
	ErrPromoCodeExhausted     = fmt.Errorf("%w: exhausted", ErrInvalidPromoCode)
	ErrPromoCodeNotApplicable = fmt.Errorf("%w: not applicable", ErrInvalidPromoCode)
)

// Protocol errors mean the provider and the purchase store disagree. They are
// acknowledged to the provider but flagged for an operator.
var (
	ErrProtocolViolation    = errors.New("protocol violation")
	ErrUnknownPayment       = fmt.Errorf("%w: unknown payment", ErrProtocolViolation)
	ErrUnexpectedCompletion = fmt.Errorf("%w: unexpected completion", ErrProtocolViolation)
	ErrAmountMismatch       = fmt.Errorf("%w: amount mismatch", ErrProtocolViolation)
)

func IsProtocolError(err error) bool {
	return errors.Is(err, ErrProtocolViolation)
}
