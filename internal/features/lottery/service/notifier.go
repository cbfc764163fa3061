package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lottery-bot-backend/internal/features/lottery/models"
	"lottery-bot-backend/internal/features/lottery/repository"
)

// Notifier announces draw results: one message per winner, one to the
// creator, one to every group the lottery ran in. Delivery is asynchronous
// and best effort; a winner we cannot reach does not invalidate the draw.
type Notifier struct {
	sender MessageSender
	repo   repository.LotteryRepository
	log    zerolog.Logger
}

func NewNotifier(sender MessageSender, repo repository.LotteryRepository, log zerolog.Logger) *Notifier {
	return &Notifier{sender: sender, repo: repo, log: log}
}

// NotifyResult dispatches all result notifications in the background.
func (n *Notifier) NotifyResult(lottery *models.Lottery, result *models.DrawResult) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), ProcessingTimeout)
		defer cancel()
		n.deliver(ctx, lottery, result)
	}()
}

func (n *Notifier) deliver(ctx context.Context, lottery *models.Lottery, result *models.DrawResult) {
	names := n.winnerNames(ctx, lottery.ID, result)

	data := models.TemplateData{
		LotteryTitle:  lottery.Title,
		LotterySN:     lottery.SN,
		JoinNum:       strconv.FormatInt(result.JoinCount, 10),
		AwardUserList: formatAwardList(result, names),
	}

	for _, tier := range result.Tiers {
		for _, userID := range tier.Winners {
			d := data
			d.Member = names[userID]
			d.GoodsName = tier.TierName
			n.send(ctx, userID, d.Render(lottery.Templates.Winner))
		}
	}

	n.send(ctx, lottery.CreatorID, data.Render(lottery.Templates.Creator))

	for _, groupID := range lottery.GroupIDs() {
		n.send(ctx, groupID, data.Render(lottery.Templates.Group))
	}
}

func (n *Notifier) winnerNames(ctx context.Context, lotteryID string, result *models.DrawResult) map[int64]string {
	names := make(map[int64]string)
	for _, userID := range result.WinnerIDs() {
		name := strconv.FormatInt(userID, 10)
		rec, err := n.repo.GetParticipant(ctx, lotteryID, userID)
		if err == nil && rec != nil && rec.DisplayName != "" {
			name = rec.DisplayName
		}
		names[userID] = name
	}
	return names
}

func (n *Notifier) send(ctx context.Context, chatID int64, text string) {
	var err error
	for attempt := 1; attempt <= NotifyRetries; attempt++ {
		if err = n.sender.SendMessage(ctx, chatID, text); err == nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(NotifyRetryDelay):
		}
	}
	n.log.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to deliver notification")
}

func formatAwardList(result *models.DrawResult, names map[int64]string) string {
	var b strings.Builder
	for _, tier := range result.Tiers {
		if len(tier.Winners) == 0 {
			continue
		}
		winners := make([]string, 0, len(tier.Winners))
		for _, id := range tier.Winners {
			winners = append(winners, names[id])
		}
		fmt.Fprintf(&b, "%s: %s\n", tier.TierName, strings.Join(winners, ", "))
	}
	if b.Len() == 0 {
		return "No winners, nobody joined in time."
	}
	return strings.TrimRight(b.String(), "\n")
}
