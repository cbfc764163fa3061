package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"lottery-bot-backend/internal/features/lottery/models"
	"lottery-bot-backend/internal/features/lottery/repository"
)

// drawGate serializes draw attempts per lottery within this process. The
// repository's compare-and-swap on status is the cross-process guarantee;
// the mutex just keeps concurrent triggers from racing to the same CAS.
type drawGate struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newDrawGate() *drawGate {
	return &drawGate{locks: make(map[string]*sync.Mutex)}
}

func (g *drawGate) lock(lotteryID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.locks[lotteryID]
	if !ok {
		m = &sync.Mutex{}
		g.locks[lotteryID] = m
	}
	return m
}

func (g *drawGate) forget(lotteryID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.locks, lotteryID)
}

// RequestDraw moves an open lottery through drawing to completed. Multiple
// triggers (threshold hit, deadline fired, concurrent retries) may call it
// for the same lottery; exactly one performs the draw, the rest observe the
// status transition and return without error.
func (s *lotteryService) RequestDraw(ctx context.Context, lotteryID string, trigger DrawTrigger) error {
	m := s.gate.lock(lotteryID)
	m.Lock()
	defer m.Unlock()

	err := s.repo.CompareAndSwapStatus(ctx, lotteryID, models.LotteryStatusOpen, models.LotteryStatusDrawing)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// Lost the race or the lottery already left open; nothing to do.
			return nil
		}
		if errors.Is(err, repository.ErrLotteryNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to transition lottery to drawing: %w", err)
	}

	lottery, err := s.repo.GetByID(ctx, lotteryID)
	if err != nil {
		// Release the drawing status so a later trigger can retry; otherwise
		// a transient load failure would wedge the lottery for good.
		s.revertToOpen(ctx, lotteryID)
		return fmt.Errorf("failed to load lottery for draw: %w", err)
	}

	result, err := s.engine.Draw(ctx, lottery)
	if err != nil {
		s.log.Error().Err(err).Str("lottery_id", lotteryID).Str("trigger", string(trigger)).
			Msg("Draw failed, reverting lottery to open")
		s.revertToOpen(ctx, lotteryID)
		return fmt.Errorf("draw failed for lottery %s: %w", lotteryID, err)
	}

	s.log.Info().
		Str("lottery_id", lotteryID).
		Str("trigger", string(trigger)).
		Int64("seed", result.Seed).
		Int64("join_count", result.JoinCount).
		Int("winner_count", result.WinnerCount()).
		Msg("Lottery drawn")

	s.evaluator.Forget(lotteryID)
	s.gate.forget(lotteryID)
	if s.scheduler != nil {
		s.scheduler.cancelTimer(lotteryID)
	}

	if s.notifier != nil {
		s.notifier.NotifyResult(lottery, result)
	}
	return nil
}

func (s *lotteryService) revertToOpen(ctx context.Context, lotteryID string) {
	if err := s.repo.CompareAndSwapStatus(ctx, lotteryID, models.LotteryStatusDrawing, models.LotteryStatusOpen); err != nil {
		s.log.Error().Err(err).Str("lottery_id", lotteryID).Msg("Failed to revert lottery status")
	}
}
