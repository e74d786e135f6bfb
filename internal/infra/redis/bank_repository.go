package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizroom/internal/domain"
	"quizroom/internal/game"
)

// BankRepository caches question banks in Redis as a JSON string per bank
// and falls back to the backing store on cache miss. Misses are coalesced
// with singleflight so a cold cache produces one store read.
type BankRepository struct {
	client *redis.Client
	store  game.BankStore
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewBankRepository(client *redis.Client, store game.BankStore, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		store:  store,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) LoadBank(ctx context.Context, name string) (domain.QuestionBank, error) {
	key := r.key(name)

	raw, err := r.client.Get(ctx, key).Result()
	if err == nil {
		return decodeBank(raw)
	}

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if raw, err := r.client.Get(ctx, key).Result(); err == nil {
			bank, err := decodeBank(raw)
			if err != nil {
				return domain.QuestionBank{}, err
			}
			return bank, nil
		}

		bank, err := r.store.LoadBank(ctx, name)
		if err != nil {
			return domain.QuestionBank{}, err
		}

		r.cacheBank(ctx, key, bank)
		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

// SaveBank writes through to the backing store and refreshes the cached
// copy so readers never see a stale bank after a replace.
func (r *BankRepository) SaveBank(ctx context.Context, name string, bank domain.QuestionBank) error {
	if err := r.store.SaveBank(ctx, name, bank); err != nil {
		return err
	}
	r.cacheBank(ctx, r.key(name), bank)
	return nil
}

// cacheBank is best-effort: a failed cache write is not an error, the
// store remains authoritative.
func (r *BankRepository) cacheBank(ctx context.Context, key string, bank domain.QuestionBank) {
	data, err := json.Marshal(bank)
	if err != nil {
		return
	}
	_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
}

func (r *BankRepository) key(name string) string {
	return "quizroom:bank:" + name
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func decodeBank(raw string) (domain.QuestionBank, error) {
	var bank domain.QuestionBank
	if err := json.Unmarshal([]byte(raw), &bank); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("decode cached bank: %w", err)
	}
	return bank, nil
}
