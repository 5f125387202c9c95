// Package memory holds the in-process storage backends used by unit tests
// and the no-Postgres demo mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"musicquiz-service/internal/domain"
)

// Store is an in-memory document store for quizzes and answers. The mutex
// serializes read-modify-write sequences, which makes UpdateQuiz and
// UpdateAnswer trivially atomic; documents are deep-copied on the way in
// and out so callers never share slice backing arrays with the store.
type Store struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
	answers map[string]domain.Answer
}

func NewStore() *Store {
	return &Store{
		quizzes: make(map[string]domain.Quiz),
		answers: make(map[string]domain.Answer),
	}
}

func (s *Store) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(quiz), nil
}

func (s *Store) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]domain.Quiz, 0, len(s.quizzes))
	for _, quiz := range s.quizzes {
		list = append(list, cloneQuiz(quiz))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = cloneQuiz(quiz)
	return nil
}

func (s *Store) UpdateQuiz(_ context.Context, quizID string, mutate func(*domain.Quiz) error) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	working := cloneQuiz(quiz)
	if err := mutate(&working); err != nil {
		return domain.Quiz{}, err
	}
	s.quizzes[quizID] = cloneQuiz(working)
	return working, nil
}

func (s *Store) GetAnswer(_ context.Context, answerID string) (domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	answer, ok := s.answers[answerID]
	if !ok {
		return domain.Answer{}, domain.ErrAnswerNotFound
	}
	return cloneAnswer(answer), nil
}

func (s *Store) FindByQuizAndCreator(_ context.Context, quizID, creatorID string) (domain.Answer, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, answer := range s.answers {
		if answer.QuizID == quizID && answer.AnswerCreatorID == creatorID {
			return cloneAnswer(answer), true, nil
		}
	}
	return domain.Answer{}, false, nil
}

func (s *Store) ListByQuiz(_ context.Context, quizID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]domain.Answer, 0)
	for _, answer := range s.answers {
		if answer.QuizID == quizID {
			list = append(list, cloneAnswer(answer))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *Store) ListAnswers(_ context.Context) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]domain.Answer, 0, len(s.answers))
	for _, answer := range s.answers {
		list = append(list, cloneAnswer(answer))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *Store) CreateAnswer(_ context.Context, answer domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[answer.ID] = cloneAnswer(answer)
	return nil
}

func (s *Store) UpdateAnswer(_ context.Context, answerID string, mutate func(*domain.Answer) error) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	answer, ok := s.answers[answerID]
	if !ok {
		return domain.Answer{}, domain.ErrAnswerNotFound
	}
	working := cloneAnswer(answer)
	if err := mutate(&working); err != nil {
		return domain.Answer{}, err
	}
	s.answers[answerID] = cloneAnswer(working)
	return working, nil
}

func cloneQuiz(quiz domain.Quiz) domain.Quiz {
	out := quiz
	out.Questions = append([]domain.Question(nil), quiz.Questions...)
	out.Ratings = append([]domain.Rating(nil), quiz.Ratings...)
	return out
}

func cloneAnswer(answer domain.Answer) domain.Answer {
	out := answer
	out.TeamMembers = append([]string(nil), answer.TeamMembers...)
	out.Answers = append([]domain.GuessedSong(nil), answer.Answers...)
	out.SelfAssessedSongScores = append([]float64(nil), answer.SelfAssessedSongScores...)
	return out
}
