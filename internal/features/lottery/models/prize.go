package models

import (
	"errors"
	"time"
)

var (
	ErrDuplicateTierName = errors.New("prize tier name must be unique within the lottery")
	ErrInvalidTierCount  = errors.New("prize tier count must be greater than 0")
)

// PrizeTier is a named prize with a finite inventory. Remaining is
// decremented only by the draw engine and never drops below zero.
type PrizeTier struct {
	ID        string `json:"id"`
	LotteryID string `json:"lottery_id"`
	Name      string `json:"name"`
	Order     int    `json:"order"` // draw order, 1-based
	Total     int    `json:"total"`
	Remaining int    `json:"remaining"`
}

// PrizeTierCreate represents data for adding a prize tier.
type PrizeTierCreate struct {
	Name  string `json:"name" binding:"required,min=1,max=100"`
	Count int    `json:"count" binding:"required,min=1"`
}

// TierResult holds the winners assigned to one tier of a draw.
type TierResult struct {
	TierID   string  `json:"tier_id"`
	TierName string  `json:"tier_name"`
	Winners  []int64 `json:"winners"`
}

// DrawResult is the immutable record of winners per tier for one lottery.
type DrawResult struct {
	LotteryID string       `json:"lottery_id"`
	Seed      int64        `json:"seed"`
	JoinCount int64        `json:"join_count"` // eligible pool size at draw time
	Tiers     []TierResult `json:"tiers"`
	DrawnAt   time.Time    `json:"drawn_at"`
}

// WinnerCount returns the total number of winners across all tiers.
func (r *DrawResult) WinnerCount() int {
	n := 0
	for _, t := range r.Tiers {
		n += len(t.Winners)
	}
	return n
}

// WinnerIDs returns every winning user id in tier order.
func (r *DrawResult) WinnerIDs() []int64 {
	ids := make([]int64, 0, r.WinnerCount())
	for _, t := range r.Tiers {
		ids = append(ids, t.Winners...)
	}
	return ids
}
