package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"quizroom/internal/domain"
)

// Store persists a single question bank as a pretty-printed JSON document
// on disk, shape {quizName, questions}. The bank name is ignored: one
// file, one bank.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) LoadBank(_ context.Context, _ string) (domain.QuestionBank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.QuestionBank{}, domain.ErrBankNotFound
		}
		return domain.QuestionBank{}, fmt.Errorf("read %s: %w", s.path, err)
	}

	var bank domain.QuestionBank
	if err := json.Unmarshal(data, &bank); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return bank, nil
}

func (s *Store) SaveBank(_ context.Context, _ string, bank domain.QuestionBank) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(bank, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bank: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
