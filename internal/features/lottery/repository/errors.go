package repository

import "errors"

var (
	ErrLotteryNotFound       = errors.New("lottery not found")
	ErrTierNotFound          = errors.New("prize tier not found")
	ErrResultNotFound        = errors.New("draw result not found")
	ErrStatusConflict        = errors.New("lottery status changed concurrently")
	ErrInsufficientInventory = errors.New("prize tier inventory exhausted")
	ErrAlreadyLocked         = errors.New("lottery is locked by another worker")
)
