package service

import "errors"

var (
	ErrNotFound = errors.New("lottery not found")
	ErrNotOwner = errors.New("you are not the owner of this lottery")

	// Arbitration outcomes of lifecycle races. Expected under concurrency,
	// callers treat them as control flow, not failures.
	ErrAlreadyDrawn     = errors.New("lottery has already been drawn")
	ErrLotteryCancelled = errors.New("lottery has been cancelled")
	ErrTooLateToCancel  = errors.New("lottery is already drawing, too late to cancel")

	ErrLotteryNotOpen = errors.New("lottery is not open")
	ErrNotYetDrawn    = errors.New("lottery has not been drawn yet")
	ErrTiersFrozen    = errors.New("prize tiers are frozen once drawing starts")
)
