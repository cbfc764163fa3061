package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottery-bot-backend/internal/features/lottery/models"
	"lottery-bot-backend/internal/features/lottery/repository/memory"
)

type sentMessage struct {
	ChatID int64
	Text   string
}

// fakePlatform stands in for the Telegram client in tests.
type fakePlatform struct {
	mu            sync.Mutex
	members       map[int64]map[int64]bool // chatID -> userID -> member
	sent          []sentMessage
	sendErr       error
	membershipErr error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{members: make(map[int64]map[int64]bool)}
}

func (f *fakePlatform) setMember(userID, chatID int64, member bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members[chatID] == nil {
		f.members[chatID] = make(map[int64]bool)
	}
	f.members[chatID][userID] = member
}

func (f *fakePlatform) CheckMembership(ctx context.Context, userID, chatID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.membershipErr != nil {
		return false, f.membershipErr
	}
	return f.members[chatID][userID], nil
}

func (f *fakePlatform) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (f *fakePlatform) sentMessages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func newTestService(t *testing.T) (*lotteryService, *memory.Repository, *fakePlatform) {
	t.Helper()
	repo := memory.New()
	platform := newFakePlatform()
	svc := NewLotteryService(repo, platform, zerolog.Nop())
	return svc, repo, platform
}

func keywordCreate(keyword string, target int) *models.LotteryCreate {
	return &models.LotteryCreate{
		Title: "Weekly giveaway",
		Join: models.JoinConfig{
			Method:         models.JoinMethodKeyword,
			KeywordGroupID: 100,
			Keyword:        keyword,
		},
		Draw: models.DrawConfig{
			Method:            models.DrawMethodThreshold,
			ParticipantTarget: target,
		},
		Tiers: []models.PrizeTierCreate{
			{Name: "Gold", Count: 1},
		},
	}
}

func keywordEvent(userID int64, text string) *models.JoinEvent {
	return &models.JoinEvent{
		Kind:        models.EventGroupMessage,
		UserID:      userID,
		DisplayName: "user",
		GroupID:     100,
		Text:        text,
		SentAt:      time.Now().UTC(),
	}
}

const creatorID = int64(42)

func TestCreateFillsDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, creatorID, keywordCreate("join", 5))
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ID)
	assert.Len(t, resp.SN, 8)
	assert.Equal(t, models.LotteryStatusDraft, resp.Status)
	assert.Equal(t, models.DefaultWinnerTemplate, resp.Templates.Winner)
	require.Len(t, resp.Tiers, 1)
	assert.Equal(t, 1, resp.Tiers[0].Remaining)
}

func TestCreateRejectsInvalidConfig(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	input := keywordCreate("join", 5)
	input.Join.Keyword = ""
	_, err := svc.Create(ctx, creatorID, input)
	assert.ErrorIs(t, err, models.ErrInvalidJoinConfig)

	input = keywordCreate("join", 0)
	_, err = svc.Create(ctx, creatorID, input)
	assert.ErrorIs(t, err, models.ErrInvalidThreshold)

	input = keywordCreate("join", 5)
	input.Draw = models.DrawConfig{
		Method:   models.DrawMethodDeadline,
		DrawTime: time.Now().Add(-time.Hour),
	}
	_, err = svc.Create(ctx, creatorID, input)
	assert.ErrorIs(t, err, models.ErrDeadlineNotInFuture)

	input = keywordCreate("join", 5)
	input.Tiers = append(input.Tiers, models.PrizeTierCreate{Name: "Gold", Count: 2})
	_, err = svc.Create(ctx, creatorID, input)
	assert.ErrorIs(t, err, models.ErrDuplicateTierName)
}

func TestPublishRequiresTiersAndOwnership(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	input := keywordCreate("join", 5)
	input.Tiers = nil
	resp, err := svc.Create(ctx, creatorID, input)
	require.NoError(t, err)

	err = svc.Publish(ctx, creatorID, resp.ID)
	assert.ErrorIs(t, err, models.ErrNoPrizeTiers)

	_, err = svc.AddTier(ctx, creatorID, resp.ID, &models.PrizeTierCreate{Name: "Gold", Count: 1})
	require.NoError(t, err)

	err = svc.Publish(ctx, int64(999), resp.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, svc.Publish(ctx, creatorID, resp.ID))

	got, err := svc.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LotteryStatusOpen, got.Status)

	// Publishing an already-open lottery is a no-op.
	assert.NoError(t, svc.Publish(ctx, creatorID, resp.ID))
}

func TestThresholdDrawTriggersOnJoin(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.engine.seedFn = func() int64 { return 7 }
	ctx := context.Background()

	resp, err := svc.Create(ctx, creatorID, keywordCreate("join", 3))
	require.NoError(t, err)
	require.NoError(t, svc.Publish(ctx, creatorID, resp.ID))

	for _, userID := range []int64{1, 2} {
		require.NoError(t, svc.RecordJoinEvent(ctx, resp.ID, keywordEvent(userID, "join please")))
		got, err := svc.GetByID(ctx, resp.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LotteryStatusOpen, got.Status)
	}

	// The third eligible participant reaches the target.
	require.NoError(t, svc.RecordJoinEvent(ctx, resp.ID, keywordEvent(3, "join please")))

	got, err := svc.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LotteryStatusCompleted, got.Status)

	result, err := svc.GetDrawResult(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.JoinCount)
	assert.Equal(t, 1, result.WinnerCount())
}

func TestJoinEventIdempotentPerUser(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, creatorID, keywordCreate("join", 10))
	require.NoError(t, err)
	require.NoError(t, svc.Publish(ctx, creatorID, resp.ID))

	require.NoError(t, svc.RecordJoinEvent(ctx, resp.ID, keywordEvent(1, "join")))
	require.NoError(t, svc.RecordJoinEvent(ctx, resp.ID, keywordEvent(1, "join again")))

	count, err := repo.CountEligible(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestJoinEventDroppedWhenNotOpen(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, creatorID, keywordCreate("join", 10))
	require.NoError(t, err)

	// Still draft, event is dropped without error.
	require.NoError(t, svc.RecordJoinEvent(ctx, resp.ID, keywordEvent(1, "join")))
	assert.Equal(t, int64(1), svc.DroppedEvents())

	count, err := svc.GetParticipants(ctx, resp.ID, models.ParticipantFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, count.Total)
}

func TestTiersFrozenOnceDrawn(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.engine.seedFn = func() int64 { return 1 }
	ctx := context.Background()

	resp, err := svc.Create(ctx, creatorID, keywordCreate("join", 1))
	require.NoError(t, err)
	require.NoError(t, svc.Publish(ctx, creatorID, resp.ID))
	require.NoError(t, svc.RecordJoinEvent(ctx, resp.ID, keywordEvent(1, "join")))

	_, err = svc.AddTier(ctx, creatorID, resp.ID, &models.PrizeTierCreate{Name: "Silver", Count: 2})
	assert.ErrorIs(t, err, ErrTiersFrozen)

	err = svc.RemoveTier(ctx, creatorID, resp.ID, resp.Tiers[0].ID)
	assert.ErrorIs(t, err, ErrTiersFrozen)
}

func TestGetDrawResultBeforeDraw(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, creatorID, keywordCreate("join", 10))
	require.NoError(t, err)

	_, err = svc.GetDrawResult(ctx, resp.ID)
	assert.ErrorIs(t, err, ErrNotYetDrawn)

	_, err = svc.GetDrawResult(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
