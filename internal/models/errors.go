package models

import "errors"

var (
	ErrInvalidAccountRef    = errors.New("invalid account reference")
	ErrInvalidWager         = errors.New("invalid wager")
	ErrAccountNotFound      = errors.New("account not found")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrOptimisticLock       = errors.New("optimistic lock failed")
	ErrBalanceOverflow      = errors.New("balance out of range")
	ErrPeriodAlreadySettled = errors.New("period already settled")
	ErrPeriodLocked         = errors.New("settlement already running for period")
)
