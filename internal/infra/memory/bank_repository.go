package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizroom/internal/domain"
	"quizroom/internal/game"
)

// BankRepository caches question banks with TTL in front of a slower
// store, coalescing concurrent cache misses.
type BankRepository struct {
	store game.BankStore
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBank
}

type cachedBank struct {
	bank      domain.QuestionBank
	expiresAt time.Time
}

func NewBankRepository(store game.BankStore, ttl time.Duration) *BankRepository {
	return &BankRepository{
		store: store,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedBank),
	}
}

func (r *BankRepository) LoadBank(ctx context.Context, name string) (domain.QuestionBank, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[name]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.bank, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[name]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.bank, nil
		}
		r.mu.RUnlock()

		bank, err := r.store.LoadBank(ctx, name)
		if err != nil {
			return domain.QuestionBank{}, err
		}

		r.mu.Lock()
		r.cache[name] = cachedBank{bank: bank, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

// SaveBank writes through to the backing store and refreshes the cache.
func (r *BankRepository) SaveBank(ctx context.Context, name string, bank domain.QuestionBank) error {
	if err := r.store.SaveBank(ctx, name, bank); err != nil {
		return err
	}

	r.mu.Lock()
	r.cache[name] = cachedBank{bank: bank, expiresAt: r.clock().Add(r.ttlWithJitter())}
	r.mu.Unlock()
	return nil
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticStore is an in-memory bank store for tests and demos.
type StaticStore struct {
	mu    sync.RWMutex
	banks map[string]domain.QuestionBank
}

func NewStaticStore(banks map[string]domain.QuestionBank) *StaticStore {
	if banks == nil {
		banks = make(map[string]domain.QuestionBank)
	}
	return &StaticStore{banks: banks}
}

func (s *StaticStore) LoadBank(_ context.Context, name string) (domain.QuestionBank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if bank, ok := s.banks[name]; ok {
		return bank, nil
	}
	return domain.QuestionBank{}, domain.ErrBankNotFound
}

func (s *StaticStore) SaveBank(_ context.Context, name string, bank domain.QuestionBank) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banks[name] = bank
	return nil
}
