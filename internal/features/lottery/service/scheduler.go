package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lottery-bot-backend/internal/features/lottery/models"
	"lottery-bot-backend/internal/features/lottery/repository"
)

// SchedulerConfig tunes the background loops.
type SchedulerConfig struct {
	SweepInterval time.Duration // cadence of the safety-net sweep
	DraftTTL      time.Duration // drafts older than this are cancelled
	Retention     time.Duration // completed/cancelled lotteries kept this long
}

// Scheduler runs the time-based side of the lottery lifecycle: per-lottery
// deadline timers, a periodic sweep that catches anything a timer missed,
// draft expiry and retention cleanup. Timers are best-effort; the sweep is
// the guarantee, so a restarted process converges without extra recovery.
type Scheduler struct {
	svc  *lotteryService
	repo repository.LotteryRepository
	cfg  SchedulerConfig
	log  zerolog.Logger

	timers     sync.Map // lotteryID -> *time.Timer
	processing sync.Map // lotteryID -> struct{}, dedupes sweep dispatches
	semaphore  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex // guards stopped and the wg.Add/Wait ordering
	stopped bool
	wg      sync.WaitGroup
}

func NewScheduler(svc *lotteryService, repo repository.LotteryRepository, cfg SchedulerConfig, log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		svc:       svc,
		repo:      repo,
		cfg:       cfg,
		log:       log,
		semaphore: make(chan struct{}, MaxConcurrentDraws),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start arms deadline timers for already-open lotteries and launches the
// sweep loop.
func (s *Scheduler) Start() {
	s.rearmTimers()

	if !s.track() {
		return
	}
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()

		s.log.Info().Dur("interval", s.cfg.SweepInterval).Msg("Lottery scheduler started")
		for {
			select {
			case <-s.ctx.Done():
				s.log.Info().Msg("Lottery scheduler stopped")
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// Stop halts the loops and waits for in-flight work.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.timers.Range(func(key, value any) bool {
		value.(*time.Timer).Stop()
		s.timers.Delete(key)
		return true
	})
	s.wg.Wait()
}

// scheduleDeadline arms a timer that fires the draw at the given time.
func (s *Scheduler) scheduleDeadline(lotteryID string, at time.Time) {
	s.cancelTimer(lotteryID)
	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	timer := time.AfterFunc(delay, func() {
		s.timers.Delete(lotteryID)
		s.dispatchDraw(lotteryID, TriggerDeadline)
	})
	s.timers.Store(lotteryID, timer)
}

func (s *Scheduler) cancelTimer(lotteryID string) {
	if t, ok := s.timers.LoadAndDelete(lotteryID); ok {
		t.(*time.Timer).Stop()
	}
}

func (s *Scheduler) rearmTimers() {
	ids, err := s.repo.GetByStatus(s.ctx, models.LotteryStatusOpen)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list open lotteries on startup")
		return
	}
	for _, id := range ids {
		lottery, err := s.repo.GetByID(s.ctx, id)
		if err != nil {
			continue
		}
		if lottery.Draw.Method == models.DrawMethodDeadline {
			s.scheduleDeadline(id, lottery.Draw.DrawTime)
		}
	}
}

// sweep is the safety net behind the timers and the synchronous threshold
// check: it re-derives every due draw from stored state, expires stale
// drafts and prunes finished lotteries past retention.
func (s *Scheduler) sweep() {
	s.sweepOpen()
	s.sweepDrafts()
	s.cleanup()
}

func (s *Scheduler) sweepOpen() {
	ids, err := s.repo.GetByStatus(s.ctx, models.LotteryStatusOpen)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list open lotteries")
		return
	}

	now := time.Now().UTC()
	for _, id := range ids {
		lottery, err := s.repo.GetByID(s.ctx, id)
		if err != nil {
			if !errors.Is(err, repository.ErrLotteryNotFound) {
				s.log.Error().Err(err).Str("lottery_id", id).Msg("Failed to load lottery during sweep")
			}
			continue
		}

		switch lottery.Draw.Method {
		case models.DrawMethodDeadline:
			if !now.Before(lottery.Draw.DrawTime) {
				s.dispatchDraw(id, TriggerDeadline)
			}
		case models.DrawMethodThreshold:
			count, err := s.repo.CountEligible(s.ctx, id)
			if err != nil {
				s.log.Error().Err(err).Str("lottery_id", id).Msg("Failed to count eligible participants during sweep")
				continue
			}
			if count >= int64(lottery.Draw.ParticipantTarget) {
				s.dispatchDraw(id, TriggerThreshold)
			}
		}
	}
}

// track registers one unit of background work unless the scheduler is
// already stopping. Timer callbacks can fire concurrently with Stop, so the
// Add has to be ordered against the final Wait.
func (s *Scheduler) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Scheduler) dispatchDraw(lotteryID string, trigger DrawTrigger) {
	if _, busy := s.processing.LoadOrStore(lotteryID, struct{}{}); busy {
		return
	}
	if !s.track() {
		s.processing.Delete(lotteryID)
		return
	}

	go func() {
		defer s.wg.Done()
		defer s.processing.Delete(lotteryID)

		select {
		case s.semaphore <- struct{}{}:
			defer func() { <-s.semaphore }()
		case <-s.ctx.Done():
			return
		}

		ctx, cancel := context.WithTimeout(s.ctx, ProcessingTimeout)
		defer cancel()

		if err := s.svc.RequestDraw(ctx, lotteryID, trigger); err != nil {
			s.log.Error().Err(err).Str("lottery_id", lotteryID).Str("trigger", string(trigger)).
				Msg("Scheduled draw failed")
		}
	}()
}

func (s *Scheduler) sweepDrafts() {
	if s.cfg.DraftTTL <= 0 {
		return
	}
	ids, err := s.repo.GetByStatus(s.ctx, models.LotteryStatusDraft)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list draft lotteries")
		return
	}

	cutoff := time.Now().UTC().Add(-s.cfg.DraftTTL)
	for _, id := range ids {
		lottery, err := s.repo.GetByID(s.ctx, id)
		if err != nil {
			continue
		}
		if lottery.CreatedAt.After(cutoff) {
			continue
		}
		err = s.repo.CompareAndSwapStatus(s.ctx, id, models.LotteryStatusDraft, models.LotteryStatusCancelled)
		if err != nil && !errors.Is(err, repository.ErrStatusConflict) {
			s.log.Error().Err(err).Str("lottery_id", id).Msg("Failed to expire draft lottery")
			continue
		}
		if err == nil {
			s.log.Info().Str("lottery_id", id).Msg("Expired stale draft lottery")
		}
	}
}

func (s *Scheduler) cleanup() {
	if s.cfg.Retention <= 0 {
		return
	}
	// One worker at a time across the deployment.
	if err := s.repo.AcquireLock(s.ctx, "cleanup", LockTimeout); err != nil {
		if !errors.Is(err, repository.ErrAlreadyLocked) {
			s.log.Error().Err(err).Msg("Failed to acquire cleanup lock")
		}
		return
	}
	defer func() {
		if err := s.repo.ReleaseLock(s.ctx, "cleanup"); err != nil {
			s.log.Error().Err(err).Msg("Failed to release cleanup lock")
		}
	}()

	removed, err := s.repo.CleanupExpired(s.ctx, time.Now().UTC().Add(-s.cfg.Retention))
	if err != nil {
		s.log.Error().Err(err).Msg("Cleanup of finished lotteries failed")
		return
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("Cleaned up finished lotteries")
	}
}
