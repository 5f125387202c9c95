// Package postgres implements the durable document store on top of
// Postgres JSONB rows with optimistic concurrency.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"musicquiz-service/internal/domain"
)

// DefaultTxAttempts bounds the CAS retry loop before a write surfaces as a
// transient conflict.
const DefaultTxAttempts = 5

// Store persists quizzes and answers as versioned JSONB documents.
// UpdateQuiz/UpdateAnswer implement the read-modify-write transaction
// primitive with a compare-and-swap on the row version: a concurrent commit
// bumps the version, the UPDATE matches zero rows, and the whole sequence
// is retried with fresh data up to the attempt budget.
type Store struct {
	pool     *pgxpool.Pool
	attempts int
}

func NewStore(pool *pgxpool.Pool, attempts int) *Store {
	if attempts <= 0 {
		attempts = DefaultTxAttempts
	}
	return &Store{pool: pool, attempts: attempts}
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	return decodeQuiz(raw)
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM quizzes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var list []domain.Quiz
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quiz, err := decodeQuiz(raw)
		if err != nil {
			return nil, err
		}
		list = append(list, quiz)
	}
	return list, rows.Err()
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO quizzes (id, data, version) VALUES ($1, $2, 1)`, quiz.ID, data)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quizID string, mutate func(*domain.Quiz) error) (domain.Quiz, error) {
	for attempt := 0; attempt < s.attempts; attempt++ {
		var raw []byte
		var version int64
		err := s.pool.QueryRow(ctx, `SELECT data, version FROM quizzes WHERE id=$1`, quizID).Scan(&raw, &version)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("read quiz for update: %w", err)
		}

		quiz, err := decodeQuiz(raw)
		if err != nil {
			return domain.Quiz{}, err
		}
		if err := mutate(&quiz); err != nil {
			return domain.Quiz{}, err
		}

		data, err := json.Marshal(quiz)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("marshal quiz: %w", err)
		}
		tag, err := s.pool.Exec(ctx,
			`UPDATE quizzes SET data=$1, version=version+1 WHERE id=$2 AND version=$3`,
			data, quizID, version)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("write quiz: %w", err)
		}
		if tag.RowsAffected() == 1 {
			return quiz, nil
		}
		// conflicting commit, reload and retry
	}
	return domain.Quiz{}, fmt.Errorf("%w: quiz %s", domain.ErrStoreConflict, quizID)
}

func (s *Store) GetAnswer(ctx context.Context, answerID string) (domain.Answer, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM answers WHERE id=$1`, answerID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Answer{}, domain.ErrAnswerNotFound
	}
	if err != nil {
		return domain.Answer{}, fmt.Errorf("get answer: %w", err)
	}
	return decodeAnswer(raw)
}

func (s *Store) FindByQuizAndCreator(ctx context.Context, quizID, creatorID string) (domain.Answer, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM answers WHERE quiz_id=$1 AND creator_id=$2`, quizID, creatorID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Answer{}, false, nil
	}
	if err != nil {
		return domain.Answer{}, false, fmt.Errorf("find answer: %w", err)
	}
	answer, err := decodeAnswer(raw)
	if err != nil {
		return domain.Answer{}, false, err
	}
	return answer, true, nil
}

func (s *Store) ListByQuiz(ctx context.Context, quizID string) ([]domain.Answer, error) {
	return s.listAnswers(ctx, `SELECT data FROM answers WHERE quiz_id=$1 ORDER BY id`, quizID)
}

func (s *Store) ListAnswers(ctx context.Context) ([]domain.Answer, error) {
	return s.listAnswers(ctx, `SELECT data FROM answers ORDER BY id`)
}

func (s *Store) listAnswers(ctx context.Context, query string, args ...interface{}) ([]domain.Answer, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var list []domain.Answer
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answer, err := decodeAnswer(raw)
		if err != nil {
			return nil, err
		}
		list = append(list, answer)
	}
	return list, rows.Err()
}

func (s *Store) CreateAnswer(ctx context.Context, answer domain.Answer) error {
	data, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO answers (id, quiz_id, creator_id, data, version) VALUES ($1, $2, $3, $4, 1)`,
		answer.ID, answer.QuizID, answer.AnswerCreatorID, data)
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

func (s *Store) UpdateAnswer(ctx context.Context, answerID string, mutate func(*domain.Answer) error) (domain.Answer, error) {
	for attempt := 0; attempt < s.attempts; attempt++ {
		var raw []byte
		var version int64
		err := s.pool.QueryRow(ctx, `SELECT data, version FROM answers WHERE id=$1`, answerID).Scan(&raw, &version)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Answer{}, domain.ErrAnswerNotFound
		}
		if err != nil {
			return domain.Answer{}, fmt.Errorf("read answer for update: %w", err)
		}

		answer, err := decodeAnswer(raw)
		if err != nil {
			return domain.Answer{}, err
		}
		if err := mutate(&answer); err != nil {
			return domain.Answer{}, err
		}

		data, err := json.Marshal(answer)
		if err != nil {
			return domain.Answer{}, fmt.Errorf("marshal answer: %w", err)
		}
		tag, err := s.pool.Exec(ctx,
			`UPDATE answers SET data=$1, version=version+1 WHERE id=$2 AND version=$3`,
			data, answerID, version)
		if err != nil {
			return domain.Answer{}, fmt.Errorf("write answer: %w", err)
		}
		if tag.RowsAffected() == 1 {
			return answer, nil
		}
	}
	return domain.Answer{}, fmt.Errorf("%w: answer %s", domain.ErrStoreConflict, answerID)
}

func decodeQuiz(raw []byte) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

func decodeAnswer(raw []byte) (domain.Answer, error) {
	var answer domain.Answer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return domain.Answer{}, fmt.Errorf("unmarshal answer: %w", err)
	}
	return answer, nil
}
