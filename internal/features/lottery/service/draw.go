package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"lottery-bot-backend/internal/features/lottery/models"
	"lottery-bot-backend/internal/features/lottery/repository"
	"lottery-bot-backend/internal/utils/random"
)

// DrawEngine selects winners for a lottery. The seed source is injectable so
// tests can pin the outcome; production uses the current time in nanoseconds.
type DrawEngine struct {
	repo   repository.LotteryRepository
	seedFn func() int64
}

func NewDrawEngine(repo repository.LotteryRepository) *DrawEngine {
	return &DrawEngine{
		repo:   repo,
		seedFn: func() int64 { return time.Now().UnixNano() },
	}
}

// Draw selects winners tier by tier without replacement and commits the
// result atomically. Tiers are drawn in ascending Order; a user wins at
// most one prize across all tiers. When the pool runs dry the remaining
// tiers receive empty winner lists and the lottery still completes.
func (d *DrawEngine) Draw(ctx context.Context, lottery *models.Lottery) (*models.DrawResult, error) {
	ids, joinCount, err := d.repo.ListEligible(ctx, lottery.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible participants: %w", err)
	}

	tiers, err := d.repo.GetTiers(ctx, lottery.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get prize tiers: %w", err)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Order < tiers[j].Order })

	// Set-backed storage has no stable iteration order; sort the pool so a
	// given seed always produces the same winners.
	pool := make([]int64, len(ids))
	copy(pool, ids)
	sort.Slice(pool, func(i, j int) bool { return pool[i] < pool[j] })

	seed := d.seedFn()
	rng := rand.New(rand.NewSource(seed))

	result := &models.DrawResult{
		LotteryID: lottery.ID,
		Seed:      seed,
		JoinCount: joinCount,
		Tiers:     make([]models.TierResult, 0, len(tiers)),
		DrawnAt:   time.Now().UTC(),
	}

	for i := range tiers {
		tier := &tiers[i]
		count := tier.Remaining
		if count > len(pool) {
			count = len(pool)
		}

		winners := make([]int64, 0, count)
		if count > 0 {
			random.Shuffle(pool, rng)
			winners = append(winners, pool[:count]...)
			pool = pool[count:]
			tier.Remaining -= count
		}

		result.Tiers = append(result.Tiers, models.TierResult{
			TierID:   tier.ID,
			TierName: tier.Name,
			Winners:  winners,
		})
	}

	if err := verifyDistinctWinners(result); err != nil {
		return nil, err
	}

	lottery.Status = models.LotteryStatusCompleted
	lottery.UpdatedAt = result.DrawnAt
	if err := d.repo.CommitDraw(ctx, lottery, result, tiers); err != nil {
		return nil, fmt.Errorf("failed to commit draw result: %w", err)
	}
	return result, nil
}

func verifyDistinctWinners(result *models.DrawResult) error {
	seen := make(map[int64]struct{})
	for _, tier := range result.Tiers {
		for _, id := range tier.Winners {
			if _, dup := seen[id]; dup {
				return fmt.Errorf("user %d selected twice in draw for lottery %s", id, result.LotteryID)
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}
