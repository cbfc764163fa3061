package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"lottery-bot-backend/internal/features/lottery/models"
)

// Evaluator turns raw platform events into eligibility decisions. It is
// stateless for the private-chat and keyword methods; for message counting
// it keeps a sliding window of message timestamps per (lottery, user),
// pruned lazily on each evaluation.
type Evaluator struct {
	membership MembershipChecker

	mu      sync.Mutex
	windows map[string]map[int64][]time.Time
}

func NewEvaluator(membership MembershipChecker) *Evaluator {
	return &Evaluator{
		membership: membership,
		windows:    make(map[string]map[int64][]time.Time),
	}
}

// Evaluate applies the lottery's join method to one event. Eligibility is
// monotonic: callers must not feed events for users that are already
// eligible (the service short-circuits those).
func (e *Evaluator) Evaluate(ctx context.Context, lottery *models.Lottery, event *models.JoinEvent) (models.EligibilityOutcome, models.Evidence, error) {
	switch lottery.Join.Method {
	case models.JoinMethodPrivateChat:
		return e.evaluatePrivateChat(ctx, lottery, event)
	case models.JoinMethodKeyword:
		return e.evaluateKeyword(lottery, event)
	case models.JoinMethodMessageCount:
		return e.evaluateMessageCount(lottery, event)
	default:
		return models.OutcomeIneligible, models.Evidence{}, models.ErrInvalidJoinConfig
	}
}

func (e *Evaluator) evaluatePrivateChat(ctx context.Context, lottery *models.Lottery, event *models.JoinEvent) (models.EligibilityOutcome, models.Evidence, error) {
	if event.Kind != models.EventPrivateConfirm {
		return models.OutcomeIneligible, models.Evidence{}, nil
	}

	confirmed := make([]int64, 0, len(lottery.Join.RequiredGroups))
	for _, groupID := range lottery.Join.RequiredGroups {
		isMember, err := e.membership.CheckMembership(ctx, event.UserID, groupID)
		if err != nil {
			return models.OutcomePending, models.Evidence{ConfirmedGroups: confirmed}, err
		}
		if !isMember {
			return models.OutcomeIneligible, models.Evidence{ConfirmedGroups: confirmed}, nil
		}
		confirmed = append(confirmed, groupID)
	}
	return models.OutcomeEligible, models.Evidence{ConfirmedGroups: confirmed}, nil
}

func (e *Evaluator) evaluateKeyword(lottery *models.Lottery, event *models.JoinEvent) (models.EligibilityOutcome, models.Evidence, error) {
	if event.Kind != models.EventGroupMessage || event.GroupID != lottery.Join.KeywordGroupID {
		return models.OutcomeIneligible, models.Evidence{}, nil
	}
	// Exact, case-sensitive match.
	if !strings.Contains(event.Text, lottery.Join.Keyword) {
		return models.OutcomeIneligible, models.Evidence{}, nil
	}
	return models.OutcomeEligible, models.Evidence{
		MatchedKeyword: lottery.Join.Keyword,
		GroupID:        event.GroupID,
	}, nil
}

func (e *Evaluator) evaluateMessageCount(lottery *models.Lottery, event *models.JoinEvent) (models.EligibilityOutcome, models.Evidence, error) {
	if event.Kind != models.EventGroupMessage || event.GroupID != lottery.Join.MessageGroupID {
		return models.OutcomeIneligible, models.Evidence{}, nil
	}

	window := time.Duration(lottery.Join.MessageWindowHours) * time.Hour
	cutoff := event.SentAt.Add(-window)

	e.mu.Lock()
	defer e.mu.Unlock()

	byUser, ok := e.windows[lottery.ID]
	if !ok {
		byUser = make(map[int64][]time.Time)
		e.windows[lottery.ID] = byUser
	}

	times := append(byUser[event.UserID], event.SentAt)
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	byUser[event.UserID] = kept

	evidence := models.Evidence{
		MessageCount: len(kept),
		GroupID:      event.GroupID,
	}
	if len(kept) >= lottery.Join.MessageCount {
		delete(byUser, event.UserID)
		evidence.MessageCount = lottery.Join.MessageCount
		return models.OutcomeEligible, evidence, nil
	}
	return models.OutcomePending, evidence, nil
}

// Forget drops all sliding-window state for a lottery. Called once the
// lottery stops accepting join events.
func (e *Evaluator) Forget(lotteryID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.windows, lotteryID)
}
