package game

import (
	"context"

	"go.uber.org/zap"

	"quizroom/internal/domain"
)

// Question bank CRUD. All operations are manager-only and rejected while
// a round is live; only replace touches the backing store, matching the
// wholesale persistence model.

// AddQuestion appends a question. A nil question is a list request: the
// current bank is re-sent without mutation, which is how the manager UI
// pulls its initial editor state.
func (c *Coordinator) AddQuestion(connID string, q *domain.Question) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.bankMutableLocked(connID); err != nil {
		return err
	}
	if q != nil {
		c.sess.Questions = append(c.sess.Questions, *q)
	}
	c.sendQuestionsLocked()
	return nil
}

// EditQuestion replaces the question at index.
func (c *Coordinator) EditQuestion(connID string, index int, q domain.Question) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.bankMutableLocked(connID); err != nil {
		return err
	}
	if index < 0 || index >= len(c.sess.Questions) {
		return domain.ErrQuestionIndex
	}
	c.sess.Questions[index] = q
	c.sendQuestionsLocked()
	return nil
}

// DeleteQuestion removes the question at index.
func (c *Coordinator) DeleteQuestion(connID string, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.bankMutableLocked(connID); err != nil {
		return err
	}
	if index < 0 || index >= len(c.sess.Questions) {
		return domain.ErrQuestionIndex
	}
	c.sess.Questions = append(c.sess.Questions[:index], c.sess.Questions[index+1:]...)
	c.sendQuestionsLocked()
	return nil
}

// ReplaceQuestions overwrites the whole bank and writes it through to the
// question store. A failed save keeps the in-memory bank and logs; the
// manager still gets the updated list.
func (c *Coordinator) ReplaceQuestions(ctx context.Context, connID string, bank domain.QuestionBank) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.bankMutableLocked(connID); err != nil {
		return err
	}
	if bank.QuizName == "" {
		bank.QuizName = c.sess.QuizName
	}
	if bank.Questions == nil {
		bank.Questions = []domain.Question{}
	}

	c.sess.QuizName = bank.QuizName
	c.sess.Questions = bank.Questions

	if err := c.store.SaveBank(ctx, c.bankName, bank); err != nil {
		c.log.Error("persisting question bank failed", zap.Error(err))
	}

	c.sendQuestionsLocked()
	c.log.Info("question bank replaced",
		zap.String("quiz", bank.QuizName),
		zap.Int("questions", len(bank.Questions)),
	)
	return nil
}

func (c *Coordinator) bankMutableLocked(connID string) error {
	if connID != c.sess.Manager || c.sess.Manager == "" {
		return domain.ErrNotManager
	}
	switch c.sess.State {
	case StateStarting, StateAnswering:
		return domain.ErrMidRound
	}
	return nil
}

// sendQuestionsLocked pushes the full bank snapshot to the manager only.
func (c *Coordinator) sendQuestionsLocked() {
	questions := make([]domain.Question, len(c.sess.Questions))
	copy(questions, c.sess.Questions)

	c.emit.Emit(c.sess.Manager, EventQuestionsUpdated, domain.QuestionBank{
		QuizName:  c.sess.QuizName,
		Questions: questions,
	})
}
