package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/FJNU-NISA/WelcomeSystem/domain"
	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
	"github.com/FJNU-NISA/WelcomeSystem/domain/events"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"
)

// memoryStore backs the in-memory repositories used by the flow tests.
// Reads hand out copies so services cannot mutate stored rows directly.
type memoryStore struct {
	mu sync.Mutex

	users     map[string]*entities.User
	completed map[string]map[int64]bool
	entries   []*entities.LedgerEntry
	seq       int64

	levels      map[int64]*entities.Level
	nextLevelID int64

	prizes      []*entities.Prize
	nextPrizeID int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:       make(map[string]*entities.User),
		completed:   make(map[string]map[int64]bool),
		levels:      make(map[int64]*entities.Level),
		nextPrizeID: 1,
	}
}

func (s *memoryStore) addUser(id string, points int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = &entities.User{ID: id, DisplayName: id, Points: points}
	s.completed[id] = make(map[int64]bool)
}

func (s *memoryStore) addLevel(level *entities.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if level.ID == 0 {
		s.nextLevelID++
		level.ID = s.nextLevelID
	} else if level.ID > s.nextLevelID {
		s.nextLevelID = level.ID
	}
	s.levels[level.ID] = level
}

// putPrize stores a prize as-is, bypassing every service rule
func (s *memoryStore) putPrize(p *entities.Prize) *entities.Prize {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextPrizeID
	s.nextPrizeID++
	stored := *p
	s.prizes = append(s.prizes, &stored)
	return p
}

func (s *memoryStore) entry(id string) *entities.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			cp := *e
			return &cp
		}
	}
	return nil
}

// dropEntry removes a ledger row outright, as a manual cleanup would
func (s *memoryStore) dropEntry(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}

func (s *memoryStore) prize(id int64) *entities.Prize {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.prizes {
		if p.ID == id {
			cp := *p
			return &cp
		}
	}
	return nil
}

type memoryUserRepository struct{ s *memoryStore }

func (r memoryUserRepository) GetByID(ctx context.Context, userID string) (*entities.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	cp.CompletedLevels = nil
	for id := range r.s.completed[userID] {
		cp.CompletedLevels = append(cp.CompletedLevels, id)
	}
	sort.Slice(cp.CompletedLevels, func(i, j int) bool { return cp.CompletedLevels[i] < cp.CompletedLevels[j] })
	return &cp, nil
}

func (r memoryUserRepository) GetByIDForUpdate(ctx context.Context, userID string) (*entities.User, error) {
	return r.GetByID(ctx, userID)
}

func (r memoryUserRepository) Create(ctx context.Context, userID, displayName string) (*entities.User, error) {
	r.s.addUser(userID, 0)
	return r.GetByID(ctx, userID)
}

func (r memoryUserRepository) ApplyPointsDelta(ctx context.Context, userID string, delta int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	u.Points += delta
	return u.Points, nil
}

func (r memoryUserRepository) AddCompletedLevel(ctx context.Context, userID string, levelID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	set := r.s.completed[userID]
	if set[levelID] {
		return false, nil
	}
	set[levelID] = true
	return true, nil
}

func (r memoryUserRepository) RemoveCompletedLevel(ctx context.Context, userID string, levelID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	set := r.s.completed[userID]
	if !set[levelID] {
		return false, nil
	}
	delete(set, levelID)
	return true, nil
}

func (r memoryUserRepository) FindBalanceDiscrepancies(ctx context.Context) ([]*entities.BalanceDiscrepancy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entities.BalanceDiscrepancy
	for id, u := range r.s.users {
		var sum, count int64
		for _, e := range r.s.entries {
			if e.UserID == id {
				sum += e.PointsChange
				count++
			}
		}
		if sum != u.Points {
			out = append(out, &entities.BalanceDiscrepancy{UserID: id, StoredPoints: u.Points, LedgerPoints: sum, EntryCount: count})
		}
	}
	return out, nil
}

type memoryLedgerRepository struct{ s *memoryStore }

func (r memoryLedgerRepository) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.seq++
	entry.Seq = r.s.seq
	entry.CreatedAt = time.Now().UTC()
	cp := *entry
	r.s.entries = append(r.s.entries, &cp)
	return nil
}

func (r memoryLedgerRepository) GetByID(ctx context.Context, userID, recordID string) (*entities.LedgerEntry, error) {
	e := r.s.entry(recordID)
	if e == nil || e.UserID != userID {
		return nil, nil
	}
	return e, nil
}

func (r memoryLedgerRepository) GetByIDForUpdate(ctx context.Context, userID, recordID string) (*entities.LedgerEntry, error) {
	return r.GetByID(ctx, userID, recordID)
}

func (r memoryLedgerRepository) MarkRevoked(ctx context.Context, userID, recordID, operator string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.entries {
		if e.ID == recordID && e.UserID == userID && !e.Revoked {
			e.Revoked = true
			e.RevokedBy = &operator
			e.RevokedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (r memoryLedgerRepository) RestoreRevoked(ctx context.Context, userID, recordID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.entries {
		if e.ID == recordID && e.UserID == userID && e.Revoked {
			e.Revoked = false
			e.RevokedBy = nil
			e.RevokedAt = nil
			return true, nil
		}
	}
	return false, nil
}

func (r memoryLedgerRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*entities.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entities.LedgerEntry
	for i := len(r.s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.entries[i].UserID == userID {
			cp := *r.s.entries[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memoryLedgerRepository) SumByUser(ctx context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var sum int64
	for _, e := range r.s.entries {
		if e.UserID == userID {
			sum += e.PointsChange
		}
	}
	return sum, nil
}

type memoryLevelRepository struct{ s *memoryStore }

func (r memoryLevelRepository) GetByID(ctx context.Context, id int64) (*entities.Level, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.levels[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r memoryLevelRepository) GetAll(ctx context.Context) ([]*entities.Level, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entities.Level
	for _, l := range r.s.levels {
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memoryLevelRepository) Create(ctx context.Context, level *entities.Level) error {
	level.CreatedAt = time.Now().UTC()
	cp := *level
	r.s.addLevel(&cp)
	level.ID = cp.ID
	return nil
}

func (r memoryLevelRepository) Update(ctx context.Context, level *entities.Level) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.levels[level.ID]; !ok {
		return fmt.Errorf("level %d not found", level.ID)
	}
	cp := *level
	r.s.levels[level.ID] = &cp
	return nil
}

func (r memoryLevelRepository) Delete(ctx context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.levels[id]; !ok {
		return false, nil
	}
	delete(r.s.levels, id)
	for _, done := range r.s.completed {
		delete(done, id)
	}
	return true, nil
}

type memoryPrizeRepository struct{ s *memoryStore }

func (r memoryPrizeRepository) list(activeOnly bool) []*entities.Prize {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entities.Prize
	for _, p := range r.s.prizes {
		if activeOnly && !p.IsActive {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out
}

func (r memoryPrizeRepository) FindActive(ctx context.Context) ([]*entities.Prize, error) {
	return r.list(true), nil
}

func (r memoryPrizeRepository) FindAll(ctx context.Context) ([]*entities.Prize, error) {
	return r.list(false), nil
}

func (r memoryPrizeRepository) GetByID(ctx context.Context, id int64) (*entities.Prize, error) {
	return r.s.prize(id), nil
}

func (r memoryPrizeRepository) GetFiller(ctx context.Context) (*entities.Prize, error) {
	for _, p := range r.list(false) {
		if p.IsFiller {
			return p, nil
		}
	}
	return nil, nil
}

func (r memoryPrizeRepository) Create(ctx context.Context, prize *entities.Prize) error {
	r.s.putPrize(prize)
	return nil
}

func (r memoryPrizeRepository) Update(ctx context.Context, prize *entities.Prize) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, p := range r.s.prizes {
		if p.ID == prize.ID {
			cp := *prize
			r.s.prizes[i] = &cp
			return nil
		}
	}
	return domain.ErrPrizeNotFound
}

func (r memoryPrizeRepository) Delete(ctx context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, p := range r.s.prizes {
		if p.ID == id {
			r.s.prizes = append(r.s.prizes[:i], r.s.prizes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r memoryPrizeRepository) Count(ctx context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.prizes), nil
}

func (r memoryPrizeRepository) DecrementStock(ctx context.Context, id int64, amount int64) (bool, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.prizes {
		if p.ID == id {
			if p.Stock < amount {
				return false, p.Stock, nil
			}
			p.Stock -= amount
			return true, p.Stock, nil
		}
	}
	return false, 0, nil
}

func (r memoryPrizeRepository) IncrementCounter(ctx context.Context, id int64, counter interfaces.PrizeCounter, amount int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.prizes {
		if p.ID != id {
			continue
		}
		switch counter {
		case interfaces.PrizeCounterDrawn:
			p.DrawnCount = max(0, p.DrawnCount+amount)
		case interfaces.PrizeCounterRedeemed:
			p.RedeemedCount = max(0, p.RedeemedCount+amount)
		}
	}
	return nil
}

func (r memoryPrizeRepository) SetFillerState(ctx context.Context, weight float64, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.prizes {
		if p.IsFiller {
			p.Weight = weight
			p.IsActive = active
		}
	}
	return nil
}

func (r memoryPrizeRepository) LockPool(ctx context.Context) error {
	return nil
}

// memoryOwnershipRepository is the ownership counterpart of memoryStore
type memoryOwnershipRepository struct {
	s      *memoryStore
	mu     sync.Mutex
	nextID int64
	rows   []*entities.PrizeOwnership
}

func (r *memoryOwnershipRepository) Create(ctx context.Context, ownership *entities.PrizeOwnership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ownership.ID = r.nextID
	cp := *ownership
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *memoryOwnershipRepository) GetByIDForUpdate(ctx context.Context, userID string, id int64) (*entities.PrizeOwnership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.rows {
		if o.ID == id && o.UserID == userID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memoryOwnershipRepository) SetRedeemed(ctx context.Context, userID string, id int64, redeemed bool, operator string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.rows {
		if o.ID == id && o.UserID == userID {
			o.Redeemed = redeemed
		}
	}
	return nil
}

func (r *memoryOwnershipRepository) GetByUser(ctx context.Context, userID string) ([]*entities.PrizeOwnership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.PrizeOwnership
	for _, o := range r.rows {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count(eventType events.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type() == eventType {
			n++
		}
	}
	return n
}
