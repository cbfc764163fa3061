package repository

import (
	"context"
	"time"

	"lottery-bot-backend/internal/features/lottery/models"
)

// LotteryRepository is the durable store behind the draw engine: lottery
// documents, prize tiers, the participation ledger and draw results.
//
// Every participant write is an idempotent upsert keyed on (lottery, user),
// so retries after transient failures are always safe. CompareAndSwapStatus
// and CommitDraw are the two linearization points the lifecycle controller
// relies on.
type LotteryRepository interface {
	// Lotteries.
	Create(ctx context.Context, lottery *models.Lottery) error
	GetByID(ctx context.Context, id string) (*models.Lottery, error)
	GetByCreator(ctx context.Context, creatorID int64) ([]*models.Lottery, error)
	Update(ctx context.Context, lottery *models.Lottery) error
	// CompareAndSwapStatus atomically moves the lottery from one status to
	// another. Returns ErrStatusConflict when the current status is not
	// `from`; exactly one caller of a racing pair observes success.
	CompareAndSwapStatus(ctx context.Context, id string, from, to models.LotteryStatus) error
	// GetByStatus returns the ids of all lotteries currently in the status.
	GetByStatus(ctx context.Context, status models.LotteryStatus) ([]string, error)

	// Prize tiers. Mutations other than the draw commit are rejected by the
	// service layer once the lottery enters drawing.
	AddTier(ctx context.Context, tier *models.PrizeTier) error
	UpdateTier(ctx context.Context, tier *models.PrizeTier) error
	RemoveTier(ctx context.Context, lotteryID, tierID string) error
	GetTiers(ctx context.Context, lotteryID string) ([]models.PrizeTier, error)
	// DecrementRemaining atomically lowers a tier's remaining count,
	// returning ErrInsufficientInventory instead of ever going negative.
	DecrementRemaining(ctx context.Context, lotteryID, tierID string, n int) error

	// Participation ledger.
	UpsertParticipant(ctx context.Context, rec *models.ParticipationRecord) error
	GetParticipant(ctx context.Context, lotteryID string, userID int64) (*models.ParticipationRecord, error)
	CountEligible(ctx context.Context, lotteryID string) (int64, error)
	// ListEligible returns the eligible user ids together with the count
	// taken in the same atomic step, so callers get a consistent cut even
	// against concurrent upserts.
	ListEligible(ctx context.Context, lotteryID string) ([]int64, int64, error)
	GetParticipants(ctx context.Context, lotteryID string, filter models.ParticipantFilter, page, pageSize int) (*models.ParticipantPage, error)

	// Draw results.
	// CommitDraw persists the result, the decremented tiers and the
	// completed status in a single atomic step.
	CommitDraw(ctx context.Context, lottery *models.Lottery, result *models.DrawResult, tiers []models.PrizeTier) error
	GetDrawResult(ctx context.Context, lotteryID string) (*models.DrawResult, error)

	// Worker coordination and housekeeping.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) error
	ReleaseLock(ctx context.Context, key string) error
	// CleanupExpired removes completed and cancelled lotteries not updated
	// since the cutoff, with all their tiers, participants and results.
	CleanupExpired(ctx context.Context, cutoff time.Time) (int, error)
}
