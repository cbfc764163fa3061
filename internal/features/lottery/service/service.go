package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lottery-bot-backend/internal/features/lottery/models"
	"lottery-bot-backend/internal/features/lottery/repository"
	"lottery-bot-backend/internal/utils/random"
)

const snLength = 8

type lotteryService struct {
	repo      repository.LotteryRepository
	evaluator *Evaluator
	engine    *DrawEngine
	notifier  *Notifier
	gate      *drawGate
	scheduler *Scheduler
	log       zerolog.Logger

	// Events that arrived for lotteries no longer accepting joins.
	droppedEvents atomic.Int64
}

// NewLotteryService wires the lottery core together. The scheduler is
// attached separately because it needs the service to exist first.
func NewLotteryService(
	repo repository.LotteryRepository,
	platform PlatformClient,
	log zerolog.Logger,
) *lotteryService {
	return &lotteryService{
		repo:      repo,
		evaluator: NewEvaluator(platform),
		engine:    NewDrawEngine(repo),
		notifier:  NewNotifier(platform, repo, log),
		gate:      newDrawGate(),
		log:       log,
	}
}

// AttachScheduler registers the scheduler handling deadline timers and
// background sweeps for this service.
func (s *lotteryService) AttachScheduler(sched *Scheduler) {
	s.scheduler = sched
}

// DroppedEvents reports how many join events were discarded because their
// lottery was no longer open.
func (s *lotteryService) DroppedEvents() int64 {
	return s.droppedEvents.Load()
}

func (s *lotteryService) Create(ctx context.Context, creatorID int64, input *models.LotteryCreate) (*models.LotteryResponse, error) {
	now := time.Now().UTC()

	if err := input.Join.Validate(); err != nil {
		return nil, err
	}
	if err := input.Draw.Validate(now); err != nil {
		return nil, err
	}
	if err := validateTierInputs(input.Tiers); err != nil {
		return nil, err
	}

	sn, err := random.SerialNumber(snLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	templates := models.DefaultTemplates()
	if input.Templates != nil {
		templates = *input.Templates
		templates.FillDefaults()
	}

	lottery := &models.Lottery{
		ID:          uuid.New().String(),
		SN:          sn,
		CreatorID:   creatorID,
		Title:       input.Title,
		Description: input.Description,
		Join:        input.Join,
		Draw:        input.Draw,
		Templates:   templates,
		Status:      models.LotteryStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, lottery); err != nil {
		return nil, fmt.Errorf("failed to create lottery: %w", err)
	}

	tiers := make([]models.PrizeTier, 0, len(input.Tiers))
	for i, tc := range input.Tiers {
		tier := models.PrizeTier{
			ID:        uuid.New().String(),
			LotteryID: lottery.ID,
			Name:      tc.Name,
			Order:     i + 1,
			Total:     tc.Count,
			Remaining: tc.Count,
		}
		if err := s.repo.AddTier(ctx, &tier); err != nil {
			return nil, fmt.Errorf("failed to add prize tier: %w", err)
		}
		tiers = append(tiers, tier)
	}

	s.log.Info().
		Str("lottery_id", lottery.ID).
		Str("sn", lottery.SN).
		Int64("creator_id", creatorID).
		Str("join_method", string(lottery.Join.Method)).
		Str("draw_method", string(lottery.Draw.Method)).
		Msg("Lottery created")

	resp := toResponse(lottery, tiers, 0)
	return resp, nil
}

func (s *lotteryService) Publish(ctx context.Context, userID int64, lotteryID string) error {
	lottery, err := s.ownedLottery(ctx, userID, lotteryID)
	if err != nil {
		return err
	}

	switch lottery.Status {
	case models.LotteryStatusDraft:
	case models.LotteryStatusCancelled:
		return ErrLotteryCancelled
	case models.LotteryStatusCompleted, models.LotteryStatusDrawing:
		return ErrAlreadyDrawn
	default:
		// Already open, publishing twice is harmless.
		return nil
	}

	tiers, err := s.repo.GetTiers(ctx, lotteryID)
	if err != nil {
		return fmt.Errorf("failed to get prize tiers: %w", err)
	}
	if len(tiers) == 0 {
		return models.ErrNoPrizeTiers
	}
	if lottery.Draw.Method == models.DrawMethodDeadline && !lottery.Draw.DrawTime.After(time.Now().UTC()) {
		return models.ErrDeadlineNotInFuture
	}

	if err := s.repo.CompareAndSwapStatus(ctx, lotteryID, models.LotteryStatusDraft, models.LotteryStatusOpen); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil
		}
		return fmt.Errorf("failed to publish lottery: %w", err)
	}

	if s.scheduler != nil && lottery.Draw.Method == models.DrawMethodDeadline {
		s.scheduler.scheduleDeadline(lotteryID, lottery.Draw.DrawTime)
	}

	s.log.Info().Str("lottery_id", lotteryID).Msg("Lottery published")
	return nil
}

func (s *lotteryService) Cancel(ctx context.Context, userID int64, lotteryID string) error {
	lottery, err := s.ownedLottery(ctx, userID, lotteryID)
	if err != nil {
		return err
	}

	switch lottery.Status {
	case models.LotteryStatusDrawing:
		return ErrTooLateToCancel
	case models.LotteryStatusCompleted:
		return ErrAlreadyDrawn
	case models.LotteryStatusCancelled:
		return nil
	}

	if err := s.repo.CompareAndSwapStatus(ctx, lotteryID, lottery.Status, models.LotteryStatusCancelled); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// Status moved under us; the draw may have started in the gap.
			return ErrTooLateToCancel
		}
		return fmt.Errorf("failed to cancel lottery: %w", err)
	}

	s.evaluator.Forget(lotteryID)
	s.gate.forget(lotteryID)
	if s.scheduler != nil {
		s.scheduler.cancelTimer(lotteryID)
	}

	s.log.Info().Str("lottery_id", lotteryID).Msg("Lottery cancelled")
	return nil
}

func (s *lotteryService) AddTier(ctx context.Context, userID int64, lotteryID string, input *models.PrizeTierCreate) (*models.PrizeTier, error) {
	lottery, err := s.ownedLottery(ctx, userID, lotteryID)
	if err != nil {
		return nil, err
	}
	if !lottery.TiersMutable() {
		return nil, ErrTiersFrozen
	}
	if input.Count <= 0 {
		return nil, models.ErrInvalidTierCount
	}

	tiers, err := s.repo.GetTiers(ctx, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get prize tiers: %w", err)
	}
	for _, t := range tiers {
		if t.Name == input.Name {
			return nil, models.ErrDuplicateTierName
		}
	}

	tier := &models.PrizeTier{
		ID:        uuid.New().String(),
		LotteryID: lotteryID,
		Name:      input.Name,
		Order:     len(tiers) + 1,
		Total:     input.Count,
		Remaining: input.Count,
	}
	if err := s.repo.AddTier(ctx, tier); err != nil {
		return nil, fmt.Errorf("failed to add prize tier: %w", err)
	}
	return tier, nil
}

func (s *lotteryService) UpdateTier(ctx context.Context, userID int64, lotteryID, tierID string, input *models.PrizeTierCreate) (*models.PrizeTier, error) {
	lottery, err := s.ownedLottery(ctx, userID, lotteryID)
	if err != nil {
		return nil, err
	}
	if !lottery.TiersMutable() {
		return nil, ErrTiersFrozen
	}
	if input.Count <= 0 {
		return nil, models.ErrInvalidTierCount
	}

	tiers, err := s.repo.GetTiers(ctx, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get prize tiers: %w", err)
	}

	var tier *models.PrizeTier
	for i := range tiers {
		if tiers[i].ID == tierID {
			tier = &tiers[i]
			continue
		}
		if tiers[i].Name == input.Name {
			return nil, models.ErrDuplicateTierName
		}
	}
	if tier == nil {
		return nil, repository.ErrTierNotFound
	}

	// No prizes are awarded before the draw, so the inventory resets cleanly.
	tier.Name = input.Name
	tier.Total = input.Count
	tier.Remaining = input.Count

	if err := s.repo.UpdateTier(ctx, tier); err != nil {
		return nil, fmt.Errorf("failed to update prize tier: %w", err)
	}
	return tier, nil
}

func (s *lotteryService) RemoveTier(ctx context.Context, userID int64, lotteryID, tierID string) error {
	lottery, err := s.ownedLottery(ctx, userID, lotteryID)
	if err != nil {
		return err
	}
	if !lottery.TiersMutable() {
		return ErrTiersFrozen
	}
	if err := s.repo.RemoveTier(ctx, lotteryID, tierID); err != nil {
		if errors.Is(err, repository.ErrTierNotFound) {
			return err
		}
		return fmt.Errorf("failed to remove prize tier: %w", err)
	}
	return nil
}

func (s *lotteryService) RecordJoinEvent(ctx context.Context, lotteryID string, event *models.JoinEvent) error {
	lottery, err := s.repo.GetByID(ctx, lotteryID)
	if err != nil {
		if errors.Is(err, repository.ErrLotteryNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load lottery: %w", err)
	}

	if !lottery.IsOpen() {
		s.droppedEvents.Add(1)
		s.log.Debug().
			Str("lottery_id", lotteryID).
			Int64("user_id", event.UserID).
			Str("status", string(lottery.Status)).
			Msg("Dropped join event for closed lottery")
		return nil
	}

	existing, err := s.repo.GetParticipant(ctx, lotteryID, event.UserID)
	if err != nil {
		return fmt.Errorf("failed to load participant: %w", err)
	}
	if existing != nil && existing.Eligible {
		// Eligibility never reverts, further events are no-ops.
		return nil
	}

	outcome, evidence, err := s.evaluator.Evaluate(ctx, lottery, event)
	if err != nil {
		return fmt.Errorf("failed to evaluate join event: %w", err)
	}
	if outcome == models.OutcomeIneligible {
		return nil
	}

	rec := &models.ParticipationRecord{
		LotteryID:   lotteryID,
		UserID:      event.UserID,
		DisplayName: event.DisplayName,
		JoinedAt:    time.Now().UTC(),
		Eligible:    outcome == models.OutcomeEligible,
		Evidence:    evidence,
	}
	if existing != nil {
		rec.JoinedAt = existing.JoinedAt
		if rec.DisplayName == "" {
			rec.DisplayName = existing.DisplayName
		}
	}
	if err := s.repo.UpsertParticipant(ctx, rec); err != nil {
		return fmt.Errorf("failed to record participation: %w", err)
	}

	if rec.Eligible && lottery.Draw.Method == models.DrawMethodThreshold {
		count, err := s.repo.CountEligible(ctx, lotteryID)
		if err != nil {
			return fmt.Errorf("failed to count eligible participants: %w", err)
		}
		if count >= int64(lottery.Draw.ParticipantTarget) {
			return s.RequestDraw(ctx, lotteryID, TriggerThreshold)
		}
	}
	return nil
}

func (s *lotteryService) GetByID(ctx context.Context, lotteryID string) (*models.LotteryResponse, error) {
	lottery, err := s.repo.GetByID(ctx, lotteryID)
	if err != nil {
		if errors.Is(err, repository.ErrLotteryNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lottery: %w", err)
	}
	return s.assembleResponse(ctx, lottery)
}

func (s *lotteryService) GetByCreator(ctx context.Context, creatorID int64) ([]*models.LotteryResponse, error) {
	lotteries, err := s.repo.GetByCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lotteries: %w", err)
	}
	responses := make([]*models.LotteryResponse, 0, len(lotteries))
	for _, l := range lotteries {
		resp, err := s.assembleResponse(ctx, l)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (s *lotteryService) GetParticipants(ctx context.Context, lotteryID string, filter models.ParticipantFilter, page, pageSize int) (*models.ParticipantPage, error) {
	if _, err := s.repo.GetByID(ctx, lotteryID); err != nil {
		if errors.Is(err, repository.ErrLotteryNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lottery: %w", err)
	}
	result, err := s.repo.GetParticipants(ctx, lotteryID, filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return result, nil
}

func (s *lotteryService) GetDrawResult(ctx context.Context, lotteryID string) (*models.DrawResult, error) {
	lottery, err := s.repo.GetByID(ctx, lotteryID)
	if err != nil {
		if errors.Is(err, repository.ErrLotteryNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lottery: %w", err)
	}
	if lottery.Status != models.LotteryStatusCompleted {
		return nil, ErrNotYetDrawn
	}
	result, err := s.repo.GetDrawResult(ctx, lotteryID)
	if err != nil {
		if errors.Is(err, repository.ErrResultNotFound) {
			return nil, ErrNotYetDrawn
		}
		return nil, fmt.Errorf("failed to get draw result: %w", err)
	}
	return result, nil
}

func (s *lotteryService) ownedLottery(ctx context.Context, userID int64, lotteryID string) (*models.Lottery, error) {
	lottery, err := s.repo.GetByID(ctx, lotteryID)
	if err != nil {
		if errors.Is(err, repository.ErrLotteryNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lottery: %w", err)
	}
	if lottery.CreatorID != userID {
		return nil, ErrNotOwner
	}
	return lottery, nil
}

func (s *lotteryService) assembleResponse(ctx context.Context, lottery *models.Lottery) (*models.LotteryResponse, error) {
	tiers, err := s.repo.GetTiers(ctx, lottery.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get prize tiers: %w", err)
	}
	count, err := s.repo.CountEligible(ctx, lottery.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count eligible participants: %w", err)
	}
	return toResponse(lottery, tiers, count), nil
}

func toResponse(lottery *models.Lottery, tiers []models.PrizeTier, eligibleCount int64) *models.LotteryResponse {
	if tiers == nil {
		tiers = []models.PrizeTier{}
	}
	return &models.LotteryResponse{
		ID:            lottery.ID,
		SN:            lottery.SN,
		CreatorID:     lottery.CreatorID,
		Title:         lottery.Title,
		Description:   lottery.Description,
		Join:          lottery.Join,
		Draw:          lottery.Draw,
		Templates:     lottery.Templates,
		Status:        lottery.Status,
		EligibleCount: eligibleCount,
		Tiers:         tiers,
		CreatedAt:     lottery.CreatedAt,
		UpdatedAt:     lottery.UpdatedAt,
	}
}

func validateTierInputs(tiers []models.PrizeTierCreate) error {
	names := make(map[string]struct{}, len(tiers))
	for _, t := range tiers {
		if t.Count <= 0 {
			return models.ErrInvalidTierCount
		}
		if _, dup := names[t.Name]; dup {
			return models.ErrDuplicateTierName
		}
		names[t.Name] = struct{}{}
	}
	return nil
}
