package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizroom/internal/domain"
	"quizroom/internal/game"
)

func TestBankRepositoryCaches(t *testing.T) {
	store := &countingStore{
		BankStore: NewStaticStore(map[string]domain.QuestionBank{
			"default": sampleBank(),
		}),
	}
	repo := NewBankRepository(store, time.Minute)

	if _, err := repo.LoadBank(context.Background(), "default"); err != nil {
		t.Fatalf("load bank: %v", err)
	}
	if store.loads != 1 {
		t.Fatalf("expected one store load, got %d", store.loads)
	}

	if _, err := repo.LoadBank(context.Background(), "default"); err != nil {
		t.Fatalf("load bank 2: %v", err)
	}
	if store.loads != 1 {
		t.Fatalf("expected cache hit, store loads %d", store.loads)
	}
}

func TestBankRepositoryExpires(t *testing.T) {
	store := &countingStore{
		BankStore: NewStaticStore(map[string]domain.QuestionBank{
			"default": sampleBank(),
		}),
	}
	repo := NewBankRepository(store, time.Minute)

	now := time.Now()
	repo.clock = func() time.Time { return now }

	if _, err := repo.LoadBank(context.Background(), "default"); err != nil {
		t.Fatalf("load bank: %v", err)
	}

	// Jitter adds at most 10%, so two minutes is safely past expiry.
	now = now.Add(2 * time.Minute)
	if _, err := repo.LoadBank(context.Background(), "default"); err != nil {
		t.Fatalf("load bank after expiry: %v", err)
	}
	if store.loads != 2 {
		t.Fatalf("expected reload after expiry, store loads %d", store.loads)
	}
}

func TestBankRepositorySaveRefreshesCache(t *testing.T) {
	store := &countingStore{
		BankStore: NewStaticStore(map[string]domain.QuestionBank{
			"default": sampleBank(),
		}),
	}
	repo := NewBankRepository(store, time.Minute)

	next := sampleBank()
	next.QuizName = "Replaced"
	if err := repo.SaveBank(context.Background(), "default", next); err != nil {
		t.Fatalf("save bank: %v", err)
	}
	if store.saves != 1 {
		t.Fatalf("expected write-through, store saves %d", store.saves)
	}

	bank, err := repo.LoadBank(context.Background(), "default")
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	if bank.QuizName != "Replaced" {
		t.Fatalf("cache not refreshed on save: %#v", bank)
	}
	if store.loads != 0 {
		t.Fatalf("load after save hit the store %d times", store.loads)
	}
}

func TestBankRepositoryPropagatesMiss(t *testing.T) {
	repo := NewBankRepository(NewStaticStore(nil), time.Minute)

	_, err := repo.LoadBank(context.Background(), "nope")
	if !errors.Is(err, domain.ErrBankNotFound) {
		t.Fatalf("expected bank not found, got %v", err)
	}
}

type countingStore struct {
	game.BankStore
	loads int
	saves int
}

func (s *countingStore) LoadBank(ctx context.Context, name string) (domain.QuestionBank, error) {
	s.loads++
	return s.BankStore.LoadBank(ctx, name)
}

func (s *countingStore) SaveBank(ctx context.Context, name string, bank domain.QuestionBank) error {
	s.saves++
	return s.BankStore.SaveBank(ctx, name, bank)
}

func sampleBank() domain.QuestionBank {
	return domain.QuestionBank{
		QuizName: "General Knowledge",
		Questions: []domain.Question{
			{Question: "What is 2 + 2?", Answers: []string{"3", "4"}, Correct: 1, Time: 10},
		},
	}
}
