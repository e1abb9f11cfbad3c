package entity

import (
	"errors"
	"strings"
	"time"
)

type DiscountKind int32

const (
	DiscountKindPercent DiscountKind = 1
	DiscountKindFixed   DiscountKind = 2
)

var ErrInvalidDiscount = errors.New("invalid discount")

// Discount is either a PercentDiscount or a FixedDiscount, never both.
type Discount interface {
	Kind() DiscountKind
	Value() int64
	// Amount returns the discount for baseAmount, never more than baseAmount.
	Amount(baseAmount int64) int64
}

type PercentDiscount struct {
	Percent int32
}

func (d PercentDiscount) Kind() DiscountKind { return DiscountKindPercent }

func (d PercentDiscount) Value() int64 { return int64(d.Percent) }

// Amount rounds down to the smallest currency unit.
func (d PercentDiscount) Amount(baseAmount int64) int64 {
	if baseAmount <= 0 || d.Percent <= 0 {
		return 0
	}
	return clampDiscount(baseAmount*int64(d.Percent)/100, baseAmount)
}

type FixedDiscount struct {
	Units int64
}

func (d FixedDiscount) Kind() DiscountKind { return DiscountKindFixed }

func (d FixedDiscount) Value() int64 { return d.Units }

func (d FixedDiscount) Amount(baseAmount int64) int64 {
	if baseAmount <= 0 || d.Units <= 0 {
		return 0
	}
	return clampDiscount(d.Units, baseAmount)
}

func clampDiscount(discount, baseAmount int64) int64 {
	if discount > baseAmount {
		return baseAmount
	}
	if discount < 0 {
		return 0
	}
	return discount
}

func NewDiscount(kind DiscountKind, value int64) (Discount, error) {
	if value <= 0 {
		return nil, ErrInvalidDiscount
	}
	switch kind {
	case DiscountKindPercent:
		if value > 100 {
			return nil, ErrInvalidDiscount
		}
		return PercentDiscount{Percent: int32(value)}, nil
	case DiscountKindFixed:
		return FixedDiscount{Units: value}, nil
	default:
		return nil, ErrInvalidDiscount
	}
}

type PromoCode struct {
	ID uint64

	Code     string
	Discount Discount

	// ItemType restricts the code to one kind of item when set.
	ItemType *ItemType

	MaxUses     *int32
	CurrentUses int32
	ExpiresAt   *time.Time
	Active      bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NormalizePromoCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func (p *PromoCode) Exhausted() bool {
	return p.MaxUses != nil && p.CurrentUses >= *p.MaxUses
}

func (p *PromoCode) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}

func (p *PromoCode) RemainingUses() *int32 {
	if p.MaxUses == nil {
		return nil
	}
	remaining := *p.MaxUses - p.CurrentUses
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}
