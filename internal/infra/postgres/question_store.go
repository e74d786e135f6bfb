package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizroom/internal/domain"
)

// Store keeps question banks as JSONB rows in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) LoadBank(ctx context.Context, name string) (domain.QuestionBank, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM question_banks WHERE id=$1`, name).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.QuestionBank{}, domain.ErrBankNotFound
		}
		return domain.QuestionBank{}, fmt.Errorf("load bank: %w", err)
	}

	var bank domain.QuestionBank
	if err := json.Unmarshal(raw, &bank); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("unmarshal bank: %w", err)
	}
	return bank, nil
}

func (s *Store) SaveBank(ctx context.Context, name string, bank domain.QuestionBank) error {
	data, err := json.Marshal(bank)
	if err != nil {
		return fmt.Errorf("marshal bank: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO question_banks (id, data) VALUES ($1, $2::jsonb)
		 ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`,
		name, string(data),
	)
	if err != nil {
		return fmt.Errorf("save bank: %w", err)
	}
	return nil
}
