package app

import (
	"context"

	"musicquiz-service/internal/domain"
)

// QuizReader is the read-side view of quiz storage. Caching layers
// (in-process or Redis) implement it in front of a QuizStore.
type QuizReader interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizStore abstracts durable quiz documents. UpdateQuiz is the
// single-document transaction primitive: it atomically reads the quiz,
// applies mutate, and writes the result back, retrying a bounded number of
// times on conflicting commits before returning domain.ErrStoreConflict.
// A domain error returned by mutate aborts without writing.
type QuizStore interface {
	QuizReader
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	UpdateQuiz(ctx context.Context, quizID string, mutate func(*domain.Quiz) error) (domain.Quiz, error)
}

// AnswerStore abstracts durable answer documents with the same
// read-modify-write contract as QuizStore.
type AnswerStore interface {
	GetAnswer(ctx context.Context, answerID string) (domain.Answer, error)
	// FindByQuizAndCreator returns the participant's answer for a quiz, or
	// ok=false when none has been persisted yet.
	FindByQuizAndCreator(ctx context.Context, quizID, creatorID string) (domain.Answer, bool, error)
	ListByQuiz(ctx context.Context, quizID string) ([]domain.Answer, error)
	ListAnswers(ctx context.Context) ([]domain.Answer, error)
	CreateAnswer(ctx context.Context, answer domain.Answer) error
	UpdateAnswer(ctx context.Context, answerID string, mutate func(*domain.Answer) error) (domain.Answer, error)
}
