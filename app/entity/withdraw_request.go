package entity

import (
	"strings"
	"time"
)

type WithdrawStatus int32

const (
	WithdrawStatusPending   WithdrawStatus = 1
	WithdrawStatusApproved  WithdrawStatus = 2
	WithdrawStatusCompleted WithdrawStatus = 10
	WithdrawStatusRejected  WithdrawStatus = 20
)

var withdrawTransitions = map[WithdrawStatus][]WithdrawStatus{
	WithdrawStatusPending:  {WithdrawStatusApproved, WithdrawStatusRejected},
	WithdrawStatusApproved: {WithdrawStatusCompleted},
}

var withdrawStatusNames = map[WithdrawStatus]string{
	WithdrawStatusPending:   "PENDING",
	WithdrawStatusApproved:  "APPROVED",
	WithdrawStatusCompleted: "COMPLETED",
	WithdrawStatusRejected:  "REJECTED",
}

func (s WithdrawStatus) String() string {
	if name, ok := withdrawStatusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

func (s WithdrawStatus) CanTransitionTo(next WithdrawStatus) bool {
	for _, candidate := range withdrawTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Reserving reports whether the request is subtracted from the withdrawable balance.
func (s WithdrawStatus) Reserving() bool {
	return s == WithdrawStatusApproved || s == WithdrawStatusCompleted
}

func ParseWithdrawStatus(raw string) (WithdrawStatus, bool) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	for status, name := range withdrawStatusNames {
		if name == upper {
			return status, true
		}
	}
	return 0, false
}

type WithdrawRequest struct {
	ID uint64

	Amount int64
	Status WithdrawStatus
	Notes  *string

	RequestedBy *string
	ProcessedBy *string

	RequestedAt time.Time
	ProcessedAt *time.Time
	UpdatedAt   time.Time
}
