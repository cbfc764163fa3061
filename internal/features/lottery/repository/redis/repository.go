package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"lottery-bot-backend/internal/features/lottery/models"
	"lottery-bot-backend/internal/features/lottery/repository"
)

const (
	keyPrefixLottery   = "lottery:"
	keyPrefixStatusSet = "lotteries:"
	keyPrefixLock      = "lock:"
	suffixTiers        = ":tiers"
	suffixParticipants = ":participants"
	suffixEligible     = ":eligible"
	suffixResult       = ":result"
)

// txRetries bounds how often an optimistic transaction is retried after a
// concurrent writer invalidates the watched key.
const txRetries = 5

type redisRepository struct {
	client *redis.Client
}

// NewLotteryRepository returns a go-redis backed LotteryRepository.
func NewLotteryRepository(client *redis.Client) repository.LotteryRepository {
	return &redisRepository{client: client}
}

func makeLotteryKey(id string) string {
	return keyPrefixLottery + id
}

func makeStatusKey(status models.LotteryStatus) string {
	return keyPrefixStatusSet + string(status)
}

func (r *redisRepository) Create(ctx context.Context, lottery *models.Lottery) error {
	data, err := json.Marshal(lottery)
	if err != nil {
		return fmt.Errorf("failed to marshal lottery: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, makeLotteryKey(lottery.ID), data, 0)
	pipe.SAdd(ctx, makeStatusKey(lottery.Status), lottery.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisRepository) GetByID(ctx context.Context, id string) (*models.Lottery, error) {
	data, err := r.client.Get(ctx, makeLotteryKey(id)).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrLotteryNotFound
	}
	if err != nil {
		return nil, err
	}

	var lottery models.Lottery
	if err := json.Unmarshal(data, &lottery); err != nil {
		return nil, err
	}
	return &lottery, nil
}

func (r *redisRepository) GetByCreator(ctx context.Context, creatorID int64) ([]*models.Lottery, error) {
	statuses := []models.LotteryStatus{
		models.LotteryStatusDraft,
		models.LotteryStatusOpen,
		models.LotteryStatusDrawing,
		models.LotteryStatusCompleted,
		models.LotteryStatusCancelled,
	}

	var lotteries []*models.Lottery
	for _, status := range statuses {
		ids, err := r.client.SMembers(ctx, makeStatusKey(status)).Result()
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			lottery, err := r.GetByID(ctx, id)
			if err == repository.ErrLotteryNotFound {
				continue
			}
			if err != nil {
				return nil, err
			}
			if lottery.CreatorID == creatorID {
				lotteries = append(lotteries, lottery)
			}
		}
	}

	sort.Slice(lotteries, func(i, j int) bool {
		return lotteries[i].CreatedAt.After(lotteries[j].CreatedAt)
	})
	return lotteries, nil
}

func (r *redisRepository) Update(ctx context.Context, lottery *models.Lottery) error {
	data, err := json.Marshal(lottery)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, makeLotteryKey(lottery.ID), data, 0).Err()
}

func (r *redisRepository) CompareAndSwapStatus(ctx context.Context, id string, from, to models.LotteryStatus) error {
	key := makeLotteryKey(id)

	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return repository.ErrLotteryNotFound
		}
		if err != nil {
			return err
		}

		var lottery models.Lottery
		if err := json.Unmarshal(data, &lottery); err != nil {
			return err
		}
		if lottery.Status != from {
			return repository.ErrStatusConflict
		}

		lottery.Status = to
		lottery.UpdatedAt = time.Now()
		updated, err := json.Marshal(&lottery)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			pipe.SRem(ctx, makeStatusKey(from), id)
			pipe.SAdd(ctx, makeStatusKey(to), id)
			return nil
		})
		if err == redis.TxFailedErr {
			return repository.ErrStatusConflict
		}
		return err
	}, key)
}

func (r *redisRepository) GetByStatus(ctx context.Context, status models.LotteryStatus) ([]string, error) {
	return r.client.SMembers(ctx, makeStatusKey(status)).Result()
}

func loadTiers(ctx context.Context, c redis.Cmdable, key string) ([]models.PrizeTier, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var tiers []models.PrizeTier
	if err := json.Unmarshal(data, &tiers); err != nil {
		return nil, err
	}
	return tiers, nil
}

// mutateTiers applies fn to the stored tier list under optimistic locking.
// The read goes through the watching transaction and the write through its
// MULTI/EXEC block, so a concurrent writer aborts the EXEC and the whole
// read-modify-write is retried against fresh state.
func (r *redisRepository) mutateTiers(ctx context.Context, lotteryID string, fn func([]models.PrizeTier) ([]models.PrizeTier, error)) error {
	key := makeLotteryKey(lotteryID) + suffixTiers

	for i := 0; i < txRetries; i++ {
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			tiers, err := loadTiers(ctx, tx, key)
			if err != nil {
				return err
			}
			updated, err := fn(tiers)
			if err != nil {
				return err
			}
			data, err := json.Marshal(updated)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				return nil
			})
			return err
		}, key)
		if err == redis.TxFailedErr {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}

func (r *redisRepository) AddTier(ctx context.Context, tier *models.PrizeTier) error {
	return r.mutateTiers(ctx, tier.LotteryID, func(tiers []models.PrizeTier) ([]models.PrizeTier, error) {
		for _, t := range tiers {
			if t.Name == tier.Name {
				return nil, models.ErrDuplicateTierName
			}
		}
		tier.Order = len(tiers) + 1
		return append(tiers, *tier), nil
	})
}

func (r *redisRepository) UpdateTier(ctx context.Context, tier *models.PrizeTier) error {
	return r.mutateTiers(ctx, tier.LotteryID, func(tiers []models.PrizeTier) ([]models.PrizeTier, error) {
		for i := range tiers {
			if tiers[i].ID == tier.ID {
				for j := range tiers {
					if j != i && tiers[j].Name == tier.Name {
						return nil, models.ErrDuplicateTierName
					}
				}
				tier.Order = tiers[i].Order
				tiers[i] = *tier
				return tiers, nil
			}
		}
		return nil, repository.ErrTierNotFound
	})
}

func (r *redisRepository) RemoveTier(ctx context.Context, lotteryID, tierID string) error {
	return r.mutateTiers(ctx, lotteryID, func(tiers []models.PrizeTier) ([]models.PrizeTier, error) {
		for i := range tiers {
			if tiers[i].ID == tierID {
				tiers = append(tiers[:i], tiers[i+1:]...)
				for j := range tiers {
					tiers[j].Order = j + 1
				}
				return tiers, nil
			}
		}
		return nil, repository.ErrTierNotFound
	})
}

func (r *redisRepository) GetTiers(ctx context.Context, lotteryID string) ([]models.PrizeTier, error) {
	tiers, err := loadTiers(ctx, r.client, makeLotteryKey(lotteryID)+suffixTiers)
	if err != nil {
		return nil, err
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Order < tiers[j].Order })
	return tiers, nil
}

func (r *redisRepository) DecrementRemaining(ctx context.Context, lotteryID, tierID string, n int) error {
	return r.mutateTiers(ctx, lotteryID, func(tiers []models.PrizeTier) ([]models.PrizeTier, error) {
		for i := range tiers {
			if tiers[i].ID == tierID {
				if tiers[i].Remaining < n {
					return nil, repository.ErrInsufficientInventory
				}
				tiers[i].Remaining -= n
				return tiers, nil
			}
		}
		return nil, repository.ErrTierNotFound
	})
}

func (r *redisRepository) UpsertParticipant(ctx context.Context, rec *models.ParticipationRecord) error {
	hashKey := makeLotteryKey(rec.LotteryID) + suffixParticipants
	field := strconv.FormatInt(rec.UserID, 10)

	for i := 0; i < txRetries; i++ {
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			cp := *rec
			stored, err := tx.HGet(ctx, hashKey, field).Bytes()
			if err != nil && err != redis.Nil {
				return err
			}
			if err == nil {
				var prev models.ParticipationRecord
				if err := json.Unmarshal(stored, &prev); err != nil {
					return err
				}
				// Eligibility is monotonic: a concurrent eligible write must
				// not be undone by a slower ineligible one.
				if prev.Eligible {
					cp.Eligible = true
				}
			}

			data, err := json.Marshal(&cp)
			if err != nil {
				return fmt.Errorf("failed to marshal participation record: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, hashKey, field, data)
				if cp.Eligible {
					pipe.SAdd(ctx, makeLotteryKey(rec.LotteryID)+suffixEligible, rec.UserID)
				}
				return nil
			})
			return err
		}, hashKey)
		if err == redis.TxFailedErr {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}

func (r *redisRepository) GetParticipant(ctx context.Context, lotteryID string, userID int64) (*models.ParticipationRecord, error) {
	field := strconv.FormatInt(userID, 10)
	data, err := r.client.HGet(ctx, makeLotteryKey(lotteryID)+suffixParticipants, field).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec models.ParticipationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *redisRepository) CountEligible(ctx context.Context, lotteryID string) (int64, error) {
	return r.client.SCard(ctx, makeLotteryKey(lotteryID)+suffixEligible).Result()
}

func (r *redisRepository) ListEligible(ctx context.Context, lotteryID string) ([]int64, int64, error) {
	key := makeLotteryKey(lotteryID) + suffixEligible

	var membersCmd *redis.StringSliceCmd
	var countCmd *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		countCmd = pipe.SCard(ctx, key)
		membersCmd = pipe.SMembers(ctx, key)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	members := membersCmd.Val()
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("corrupt eligible set entry %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	return ids, countCmd.Val(), nil
}

func (r *redisRepository) GetParticipants(ctx context.Context, lotteryID string, filter models.ParticipantFilter, page, pageSize int) (*models.ParticipantPage, error) {
	values, err := r.client.HVals(ctx, makeLotteryKey(lotteryID)+suffixParticipants).Result()
	if err != nil {
		return nil, err
	}

	var records []models.ParticipationRecord
	for _, v := range values {
		var rec models.ParticipationRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, err
		}
		if filter.Eligible != nil && rec.Eligible != *filter.Eligible {
			continue
		}
		if filter.Keyword != "" && !matchesKeyword(&rec, filter.Keyword) {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].JoinedAt.Before(records[j].JoinedAt)
	})

	total := int64(len(records))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start > len(records) {
		start = len(records)
	}
	end := start + pageSize
	if end > len(records) {
		end = len(records)
	}

	return &models.ParticipantPage{
		Records:  records[start:end],
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func matchesKeyword(rec *models.ParticipationRecord, keyword string) bool {
	return strings.Contains(rec.DisplayName, keyword) ||
		strings.Contains(rec.Evidence.MatchedKeyword, keyword)
}

func (r *redisRepository) CommitDraw(ctx context.Context, lottery *models.Lottery, result *models.DrawResult, tiers []models.PrizeTier) error {
	for _, t := range tiers {
		if t.Remaining < 0 {
			return repository.ErrInsufficientInventory
		}
	}

	lotteryData, err := json.Marshal(lottery)
	if err != nil {
		return err
	}
	resultData, err := json.Marshal(result)
	if err != nil {
		return err
	}
	tiersData, err := json.Marshal(tiers)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, makeLotteryKey(lottery.ID), lotteryData, 0)
	pipe.Set(ctx, makeLotteryKey(lottery.ID)+suffixResult, resultData, 0)
	pipe.Set(ctx, makeLotteryKey(lottery.ID)+suffixTiers, tiersData, 0)
	pipe.SRem(ctx, makeStatusKey(models.LotteryStatusDrawing), lottery.ID)
	pipe.SAdd(ctx, makeStatusKey(models.LotteryStatusCompleted), lottery.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisRepository) GetDrawResult(ctx context.Context, lotteryID string) (*models.DrawResult, error) {
	data, err := r.client.Get(ctx, makeLotteryKey(lotteryID)+suffixResult).Bytes()
	if err == redis.Nil {
		return nil, repository.ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}

	var result models.DrawResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *redisRepository) AcquireLock(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := r.client.SetNX(ctx, keyPrefixLock+key, "locked", ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return repository.ErrAlreadyLocked
	}
	return nil
}

func (r *redisRepository) ReleaseLock(ctx context.Context, key string) error {
	return r.client.Del(ctx, keyPrefixLock+key).Err()
}

func (r *redisRepository) CleanupExpired(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	for _, status := range []models.LotteryStatus{models.LotteryStatusCompleted, models.LotteryStatusCancelled} {
		ids, err := r.client.SMembers(ctx, makeStatusKey(status)).Result()
		if err != nil {
			return removed, err
		}
		for _, id := range ids {
			lottery, err := r.GetByID(ctx, id)
			if err == repository.ErrLotteryNotFound {
				r.client.SRem(ctx, makeStatusKey(status), id)
				continue
			}
			if err != nil {
				return removed, err
			}
			if lottery.UpdatedAt.After(cutoff) {
				continue
			}

			pipe := r.client.TxPipeline()
			pipe.Del(ctx, makeLotteryKey(id))
			pipe.Del(ctx, makeLotteryKey(id)+suffixTiers)
			pipe.Del(ctx, makeLotteryKey(id)+suffixParticipants)
			pipe.Del(ctx, makeLotteryKey(id)+suffixEligible)
			pipe.Del(ctx, makeLotteryKey(id)+suffixResult)
			pipe.SRem(ctx, makeStatusKey(status), id)
			if _, err := pipe.Exec(ctx); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
