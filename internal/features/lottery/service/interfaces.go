package service

import (
	"context"

	"lottery-bot-backend/internal/features/lottery/models"
)

// MembershipChecker answers whether a user currently belongs to a group.
// Implemented by the Telegram platform client.
type MembershipChecker interface {
	CheckMembership(ctx context.Context, userID, chatID int64) (bool, error)
}

// MessageSender delivers one text message to a chat or user.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// PlatformClient bundles everything the lottery core needs from the
// messaging platform.
type PlatformClient interface {
	MembershipChecker
	MessageSender
}

// DrawTrigger names the watcher that asked for a draw.
type DrawTrigger string

const (
	TriggerThreshold DrawTrigger = "threshold"
	TriggerDeadline  DrawTrigger = "deadline"
)

// LotteryService is the external surface of the lottery core, consumed by
// the HTTP delivery layer and the scheduler.
type LotteryService interface {
	Create(ctx context.Context, creatorID int64, input *models.LotteryCreate) (*models.LotteryResponse, error)
	Publish(ctx context.Context, userID int64, lotteryID string) error
	Cancel(ctx context.Context, userID int64, lotteryID string) error

	AddTier(ctx context.Context, userID int64, lotteryID string, input *models.PrizeTierCreate) (*models.PrizeTier, error)
	UpdateTier(ctx context.Context, userID int64, lotteryID, tierID string, input *models.PrizeTierCreate) (*models.PrizeTier, error)
	RemoveTier(ctx context.Context, userID int64, lotteryID, tierID string) error

	// RecordJoinEvent ingests one raw platform event. Fire-and-forget for
	// the caller: events against closed lotteries are dropped, not errors.
	RecordJoinEvent(ctx context.Context, lotteryID string, event *models.JoinEvent) error

	// RequestDraw feeds the single-draw gate. Both trigger watchers call it;
	// at most one caller per lottery ever commits a result.
	RequestDraw(ctx context.Context, lotteryID string, trigger DrawTrigger) error

	GetByID(ctx context.Context, lotteryID string) (*models.LotteryResponse, error)
	GetByCreator(ctx context.Context, creatorID int64) ([]*models.LotteryResponse, error)
	GetParticipants(ctx context.Context, lotteryID string, filter models.ParticipantFilter, page, pageSize int) (*models.ParticipantPage, error)
	GetDrawResult(ctx context.Context, lotteryID string) (*models.DrawResult, error)
}
