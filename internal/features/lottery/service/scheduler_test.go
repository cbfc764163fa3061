package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottery-bot-backend/internal/features/lottery/models"
	"lottery-bot-backend/internal/features/lottery/repository/memory"
)

func newTestScheduler(t *testing.T, cfg SchedulerConfig) (*Scheduler, *lotteryService, *memory.Repository) {
	t.Helper()
	repo := memory.New()
	svc := NewLotteryService(repo, newFakePlatform(), zerolog.Nop())
	svc.engine.seedFn = func() int64 { return 1 }
	sched := NewScheduler(svc, repo, cfg, zerolog.Nop())
	svc.AttachScheduler(sched)
	t.Cleanup(sched.Stop)
	return sched, svc, repo
}

func deadlineCreate(at time.Time) *models.LotteryCreate {
	input := keywordCreate("join", 1)
	input.Draw = models.DrawConfig{
		Method:   models.DrawMethodDeadline,
		DrawTime: at,
	}
	return input
}

func TestDeadlineTimerFiresDraw(t *testing.T) {
	_, svc, repo := newTestScheduler(t, SchedulerConfig{SweepInterval: time.Hour})
	ctx := context.Background()

	resp, err := svc.Create(ctx, creatorID, deadlineCreate(time.Now().Add(50*time.Millisecond)))
	require.NoError(t, err)
	require.NoError(t, svc.Publish(ctx, creatorID, resp.ID))
	require.NoError(t, svc.RecordJoinEvent(ctx, resp.ID, keywordEvent(1, "join")))

	require.Eventually(t, func() bool {
		lottery, err := repo.GetByID(ctx, resp.ID)
		return err == nil && lottery.Status == models.LotteryStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSweepCatchesMissedDeadline(t *testing.T) {
	sched, svc, repo := newTestScheduler(t, SchedulerConfig{SweepInterval: time.Hour})
	ctx := context.Background()

	resp, err := svc.Create(ctx, creatorID, deadlineCreate(time.Now().Add(time.Hour)))
	require.NoError(t, err)
	require.NoError(t, svc.Publish(ctx, creatorID, resp.ID))

	// Simulate a missed timer: move the deadline into the past and stop the
	// armed timer, leaving only the sweep to notice.
	sched.cancelTimer(resp.ID)
	lottery, err := repo.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	lottery.Draw.DrawTime = time.Now().Add(-time.Minute)
	require.NoError(t, repo.Update(ctx, lottery))

	sched.sweep()

	require.Eventually(t, func() bool {
		stored, err := repo.GetByID(ctx, resp.ID)
		return err == nil && stored.Status == models.LotteryStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSweepExpiresStaleDrafts(t *testing.T) {
	sched, svc, repo := newTestScheduler(t, SchedulerConfig{
		SweepInterval: time.Hour,
		DraftTTL:      time.Minute,
	})
	ctx := context.Background()

	resp, err := svc.Create(ctx, creatorID, keywordCreate("join", 5))
	require.NoError(t, err)

	lottery, err := repo.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	lottery.CreatedAt = time.Now().Add(-2 * time.Minute)
	require.NoError(t, repo.Update(ctx, lottery))

	sched.sweep()

	stored, err := repo.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LotteryStatusCancelled, stored.Status)
}

func TestSweepKeepsFreshDrafts(t *testing.T) {
	sched, svc, repo := newTestScheduler(t, SchedulerConfig{
		SweepInterval: time.Hour,
		DraftTTL:      time.Hour,
	})
	ctx := context.Background()

	resp, err := svc.Create(ctx, creatorID, keywordCreate("join", 5))
	require.NoError(t, err)

	sched.sweep()

	stored, err := repo.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LotteryStatusDraft, stored.Status)
}

func TestSweepCleansUpOldFinishedLotteries(t *testing.T) {
	sched, svc, repo := newTestScheduler(t, SchedulerConfig{
		SweepInterval: time.Hour,
		Retention:     time.Minute,
	})
	ctx := context.Background()

	resp, err := svc.Create(ctx, creatorID, keywordCreate("join", 5))
	require.NoError(t, err)
	require.NoError(t, svc.Publish(ctx, creatorID, resp.ID))
	require.NoError(t, svc.Cancel(ctx, creatorID, resp.ID))

	lottery, err := repo.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	lottery.UpdatedAt = time.Now().Add(-2 * time.Minute)
	require.NoError(t, repo.Update(ctx, lottery))

	sched.sweep()

	_, err = svc.GetByID(ctx, resp.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDispatchAfterStopIsNoOp(t *testing.T) {
	sched, svc, repo := newTestScheduler(t, SchedulerConfig{SweepInterval: time.Hour})
	ctx := context.Background()

	id := func() string {
		resp, err := svc.Create(ctx, creatorID, keywordCreate("join", 10))
		require.NoError(t, err)
		require.NoError(t, svc.Publish(ctx, creatorID, resp.ID))
		return resp.ID
	}()
	require.NoError(t, svc.RecordJoinEvent(ctx, id, keywordEvent(1, "join")))

	sched.Stop()

	// A timer firing during shutdown must neither draw nor touch the
	// wait group after Stop has returned.
	sched.dispatchDraw(id, TriggerDeadline)

	time.Sleep(50 * time.Millisecond)
	lottery, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.LotteryStatusOpen, lottery.Status)
}

func TestCancelledDeadlineTimerDoesNotFire(t *testing.T) {
	_, svc, repo := newTestScheduler(t, SchedulerConfig{SweepInterval: time.Hour})
	ctx := context.Background()

	resp, err := svc.Create(ctx, creatorID, deadlineCreate(time.Now().Add(100*time.Millisecond)))
	require.NoError(t, err)
	require.NoError(t, svc.Publish(ctx, creatorID, resp.ID))
	require.NoError(t, svc.Cancel(ctx, creatorID, resp.ID))

	time.Sleep(200 * time.Millisecond)

	stored, err := repo.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LotteryStatusCancelled, stored.Status)
}
