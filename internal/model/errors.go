package model

import "errors"

// Failure taxonomy surfaced to callers. Transport failures are absorbed
// wherever a documented fallback exists and otherwise mapped to one of these.
var (
	ErrInvalidChain        = errors.New("chain is not configured")
	ErrInvalidAmount       = errors.New("amount must be a non-negative integer")
	ErrNoRoute             = errors.New("no exchange has a pair for this token pair")
	ErrReservesUnavailable = errors.New("pool reserves unreadable or inconsistent")
	ErrEmptyPath           = errors.New("multi-hop path must contain at least one hop")
)
