package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"lottery-bot-backend/internal/features/lottery/models"
	"lottery-bot-backend/internal/features/lottery/repository"
)

// Repository is an in-memory LotteryRepository. It backs the test suite and
// small single-process deployments; the locking mirrors the atomicity the
// redis implementation gets from MULTI/EXEC.
type Repository struct {
	mu           sync.RWMutex
	lotteries    map[string]*models.Lottery
	tiers        map[string][]models.PrizeTier
	participants map[string]map[int64]*models.ParticipationRecord
	results      map[string]*models.DrawResult
	locks        map[string]time.Time
}

func New() *Repository {
	return &Repository{
		lotteries:    make(map[string]*models.Lottery),
		tiers:        make(map[string][]models.PrizeTier),
		participants: make(map[string]map[int64]*models.ParticipationRecord),
		results:      make(map[string]*models.DrawResult),
		locks:        make(map[string]time.Time),
	}
}

func (r *Repository) Create(ctx context.Context, lottery *models.Lottery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *lottery
	r.lotteries[lottery.ID] = &cp
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Lottery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lottery, ok := r.lotteries[id]
	if !ok {
		return nil, repository.ErrLotteryNotFound
	}
	cp := *lottery
	return &cp, nil
}

func (r *Repository) GetByCreator(ctx context.Context, creatorID int64) ([]*models.Lottery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Lottery
	for _, l := range r.lotteries {
		if l.CreatorID == creatorID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Repository) Update(ctx context.Context, lottery *models.Lottery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lotteries[lottery.ID]; !ok {
		return repository.ErrLotteryNotFound
	}
	cp := *lottery
	r.lotteries[lottery.ID] = &cp
	return nil
}

func (r *Repository) CompareAndSwapStatus(ctx context.Context, id string, from, to models.LotteryStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lottery, ok := r.lotteries[id]
	if !ok {
		return repository.ErrLotteryNotFound
	}
	if lottery.Status != from {
		return repository.ErrStatusConflict
	}
	lottery.Status = to
	lottery.UpdatedAt = time.Now()
	return nil
}

func (r *Repository) GetByStatus(ctx context.Context, status models.LotteryStatus) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, l := range r.lotteries {
		if l.Status == status {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *Repository) AddTier(ctx context.Context, tier *models.PrizeTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tiers := r.tiers[tier.LotteryID]
	for _, t := range tiers {
		if t.Name == tier.Name {
			return models.ErrDuplicateTierName
		}
	}
	tier.Order = len(tiers) + 1
	r.tiers[tier.LotteryID] = append(tiers, *tier)
	return nil
}

func (r *Repository) UpdateTier(ctx context.Context, tier *models.PrizeTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tiers := r.tiers[tier.LotteryID]
	for i := range tiers {
		if tiers[i].ID == tier.ID {
			for j := range tiers {
				if j != i && tiers[j].Name == tier.Name {
					return models.ErrDuplicateTierName
				}
			}
			tier.Order = tiers[i].Order
			tiers[i] = *tier
			return nil
		}
	}
	return repository.ErrTierNotFound
}

func (r *Repository) RemoveTier(ctx context.Context, lotteryID, tierID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tiers := r.tiers[lotteryID]
	for i := range tiers {
		if tiers[i].ID == tierID {
			tiers = append(tiers[:i], tiers[i+1:]...)
			for j := range tiers {
				tiers[j].Order = j + 1
			}
			r.tiers[lotteryID] = tiers
			return nil
		}
	}
	return repository.ErrTierNotFound
}

func (r *Repository) GetTiers(ctx context.Context, lotteryID string) ([]models.PrizeTier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tiers := make([]models.PrizeTier, len(r.tiers[lotteryID]))
	copy(tiers, r.tiers[lotteryID])
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Order < tiers[j].Order })
	return tiers, nil
}

func (r *Repository) DecrementRemaining(ctx context.Context, lotteryID, tierID string, n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tiers := r.tiers[lotteryID]
	for i := range tiers {
		if tiers[i].ID == tierID {
			if tiers[i].Remaining < n {
				return repository.ErrInsufficientInventory
			}
			tiers[i].Remaining -= n
			return nil
		}
	}
	return repository.ErrTierNotFound
}

func (r *Repository) UpsertParticipant(ctx context.Context, rec *models.ParticipationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byUser, ok := r.participants[rec.LotteryID]
	if !ok {
		byUser = make(map[int64]*models.ParticipationRecord)
		r.participants[rec.LotteryID] = byUser
	}
	cp := *rec
	if existing, ok := byUser[rec.UserID]; ok && existing.Eligible {
		// Eligibility never reverts.
		cp.Eligible = true
	}
	byUser[rec.UserID] = &cp
	return nil
}

func (r *Repository) GetParticipant(ctx context.Context, lotteryID string, userID int64) (*models.ParticipationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.participants[lotteryID][userID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *Repository) CountEligible(ctx context.Context, lotteryID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countEligibleLocked(lotteryID), nil
}

func (r *Repository) countEligibleLocked(lotteryID string) int64 {
	var n int64
	for _, rec := range r.participants[lotteryID] {
		if rec.Eligible {
			n++
		}
	}
	return n
}

func (r *Repository) ListEligible(ctx context.Context, lotteryID string) ([]int64, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []int64
	for id, rec := range r.participants[lotteryID] {
		if rec.Eligible {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, int64(len(ids)), nil
}

func (r *Repository) GetParticipants(ctx context.Context, lotteryID string, filter models.ParticipantFilter, page, pageSize int) (*models.ParticipantPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []models.ParticipationRecord
	for _, rec := range r.participants[lotteryID] {
		if filter.Eligible != nil && rec.Eligible != *filter.Eligible {
			continue
		}
		if filter.Keyword != "" &&
			!strings.Contains(rec.DisplayName, filter.Keyword) &&
			!strings.Contains(rec.Evidence.MatchedKeyword, filter.Keyword) {
			continue
		}
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].JoinedAt.Before(records[j].JoinedAt) })

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

func (r *Repository) CommitDraw(ctx context.Context, lottery *models.Lottery, result *models.DrawResult, tiers []models.PrizeTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tiers {
		if t.Remaining < 0 {
			return repository.ErrInsufficientInventory
		}
	}
	if _, ok := r.lotteries[lottery.ID]; !ok {
		return repository.ErrLotteryNotFound
	}

	lcp := *lottery
	r.lotteries[lottery.ID] = &lcp
	rcp := *result
	r.results[lottery.ID] = &rcp
	tcp := make([]models.PrizeTier, len(tiers))
	copy(tcp, tiers)
	r.tiers[lottery.ID] = tcp
	return nil
}

func (r *Repository) GetDrawResult(ctx context.Context, lotteryID string) (*models.DrawResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.results[lotteryID]
	if !ok {
		return nil, repository.ErrResultNotFound
	}
	cp := *result
	return &cp, nil
}

func (r *Repository) AcquireLock(ctx context.Context, key string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if deadline, ok := r.locks[key]; ok && time.Now().Before(deadline) {
		return repository.ErrAlreadyLocked
	}
	r.locks[key] = time.Now().Add(ttl)
	return nil
}

func (r *Repository) ReleaseLock(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, key)
	return nil
}

func (r *Repository) CleanupExpired(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, l := range r.lotteries {
		if l.Status != models.LotteryStatusCompleted && l.Status != models.LotteryStatusCancelled {
			continue
		}
		if l.UpdatedAt.After(cutoff) {
			continue
		}
		delete(r.lotteries, id)
		delete(r.tiers, id)
		delete(r.participants, id)
		delete(r.results, id)
		removed++
	}
	return removed, nil
}
