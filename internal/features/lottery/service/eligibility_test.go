package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottery-bot-backend/internal/features/lottery/models"
)

func keywordLottery() *models.Lottery {
	return &models.Lottery{
		ID: "lot-1",
		Join: models.JoinConfig{
			Method:         models.JoinMethodKeyword,
			KeywordGroupID: 100,
			Keyword:        "Join",
		},
	}
}

func TestKeywordMatchIsCaseSensitive(t *testing.T) {
	evaluator := NewEvaluator(newFakePlatform())
	lottery := keywordLottery()
	ctx := context.Background()

	outcome, evidence, err := evaluator.Evaluate(ctx, lottery, &models.JoinEvent{
		Kind:    models.EventGroupMessage,
		UserID:  1,
		GroupID: 100,
		Text:    "I want to Join now",
		SentAt:  time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeEligible, outcome)
	assert.Equal(t, "Join", evidence.MatchedKeyword)

	outcome, _, err = evaluator.Evaluate(ctx, lottery, &models.JoinEvent{
		Kind:    models.EventGroupMessage,
		UserID:  1,
		GroupID: 100,
		Text:    "i want to join now",
		SentAt:  time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeIneligible, outcome)
}

func TestKeywordIgnoresOtherGroups(t *testing.T) {
	evaluator := NewEvaluator(newFakePlatform())
	ctx := context.Background()

	outcome, _, err := evaluator.Evaluate(ctx, keywordLottery(), &models.JoinEvent{
		Kind:    models.EventGroupMessage,
		UserID:  1,
		GroupID: 200,
		Text:    "Join",
		SentAt:  time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeIneligible, outcome)
}

func TestMessageCountSlidingWindow(t *testing.T) {
	evaluator := NewEvaluator(newFakePlatform())
	lottery := &models.Lottery{
		ID: "lot-2",
		Join: models.JoinConfig{
			Method:             models.JoinMethodMessageCount,
			MessageGroupID:     100,
			MessageCount:       3,
			MessageWindowHours: 1,
		},
	}
	ctx := context.Background()
	base := time.Now().UTC()

	event := func(at time.Time) *models.JoinEvent {
		return &models.JoinEvent{
			Kind:    models.EventGroupMessage,
			UserID:  7,
			GroupID: 100,
			Text:    "hello",
			SentAt:  at,
		}
	}

	outcome, evidence, err := evaluator.Evaluate(ctx, lottery, event(base))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePending, outcome)
	assert.Equal(t, 1, evidence.MessageCount)

	outcome, evidence, err = evaluator.Evaluate(ctx, lottery, event(base.Add(10*time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePending, outcome)
	assert.Equal(t, 2, evidence.MessageCount)

	outcome, evidence, err = evaluator.Evaluate(ctx, lottery, event(base.Add(20*time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeEligible, outcome)
	assert.Equal(t, 3, evidence.MessageCount)
}

func TestMessageCountExpiresOldMessages(t *testing.T) {
	evaluator := NewEvaluator(newFakePlatform())
	lottery := &models.Lottery{
		ID: "lot-3",
		Join: models.JoinConfig{
			Method:             models.JoinMethodMessageCount,
			MessageGroupID:     100,
			MessageCount:       2,
			MessageWindowHours: 1,
		},
	}
	ctx := context.Background()
	base := time.Now().UTC()

	outcome, _, err := evaluator.Evaluate(ctx, lottery, &models.JoinEvent{
		Kind: models.EventGroupMessage, UserID: 7, GroupID: 100, SentAt: base,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePending, outcome)

	// The first message falls outside the one hour window by the time the
	// second one arrives.
	outcome, evidence, err := evaluator.Evaluate(ctx, lottery, &models.JoinEvent{
		Kind: models.EventGroupMessage, UserID: 7, GroupID: 100, SentAt: base.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePending, outcome)
	assert.Equal(t, 1, evidence.MessageCount)
}

func TestPrivateChatRequiresAllGroups(t *testing.T) {
	platform := newFakePlatform()
	evaluator := NewEvaluator(platform)
	lottery := &models.Lottery{
		ID: "lot-4",
		Join: models.JoinConfig{
			Method:         models.JoinMethodPrivateChat,
			RequiredGroups: []int64{100, 200},
		},
	}
	ctx := context.Background()
	confirm := &models.JoinEvent{Kind: models.EventPrivateConfirm, UserID: 5, SentAt: time.Now()}

	platform.setMember(5, 100, true)
	outcome, _, err := evaluator.Evaluate(ctx, lottery, confirm)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeIneligible, outcome)

	platform.setMember(5, 200, true)
	outcome, evidence, err := evaluator.Evaluate(ctx, lottery, confirm)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeEligible, outcome)
	assert.Equal(t, []int64{100, 200}, evidence.ConfirmedGroups)
}

func TestPrivateChatMembershipErrorIsPending(t *testing.T) {
	platform := newFakePlatform()
	platform.membershipErr = errors.New("telegram unavailable")
	evaluator := NewEvaluator(platform)
	lottery := &models.Lottery{
		ID: "lot-5",
		Join: models.JoinConfig{
			Method:         models.JoinMethodPrivateChat,
			RequiredGroups: []int64{100},
		},
	}

	outcome, _, err := evaluator.Evaluate(context.Background(), lottery, &models.JoinEvent{
		Kind: models.EventPrivateConfirm, UserID: 5, SentAt: time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, models.OutcomePending, outcome)
}

func TestForgetDropsWindowState(t *testing.T) {
	evaluator := NewEvaluator(newFakePlatform())
	lottery := &models.Lottery{
		ID: "lot-6",
		Join: models.JoinConfig{
			Method:             models.JoinMethodMessageCount,
			MessageGroupID:     100,
			MessageCount:       2,
			MessageWindowHours: 1,
		},
	}
	ctx := context.Background()
	event := &models.JoinEvent{Kind: models.EventGroupMessage, UserID: 7, GroupID: 100, SentAt: time.Now().UTC()}

	_, _, err := evaluator.Evaluate(ctx, lottery, event)
	require.NoError(t, err)
	evaluator.Forget(lottery.ID)

	_, evidence, err := evaluator.Evaluate(ctx, lottery, event)
	require.NoError(t, err)
	assert.Equal(t, 1, evidence.MessageCount)
}
