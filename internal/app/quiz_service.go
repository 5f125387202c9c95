package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"musicquiz-service/internal/domain"
	"musicquiz-service/internal/scoring"
)

// QuizInput carries the author-editable fields of a quiz.
type QuizInput struct {
	Title           string            `json:"title"`
	Rules           string            `json:"rules"`
	Questions       []domain.Question `json:"questions"`
	MaxScorePerSong float64           `json:"maxScorePerSong"`
	IsReady         bool              `json:"isReady"`
}

// QuizInvalidator lets mutating quiz paths evict a stale cached copy.
// A nil invalidator is a no-op.
type QuizInvalidator interface {
	Invalidate(ctx context.Context, quizID string)
}

// QuizService covers quiz authoring and the results view. Every mutation
// recomputes calculatedMaxScore from the question list; the stored value is
// never trusted or hand-edited.
type QuizService struct {
	quizzes QuizStore
	answers AnswerStore
	cache   QuizInvalidator
	newID   func() string
}

func NewQuizService(quizzes QuizStore, answers AnswerStore, cache QuizInvalidator) *QuizService {
	return &QuizService{
		quizzes: quizzes,
		answers: answers,
		cache:   cache,
		newID:   uuid.NewString,
	}
}

// CreateQuiz validates and persists a new quiz owned by the caller.
func (s *QuizService) CreateQuiz(ctx context.Context, ident domain.Identity, input QuizInput) (domain.Quiz, error) {
	if ident.UID == "" {
		return domain.Quiz{}, domain.ErrUnauthorized
	}
	if err := validateQuizInput(input); err != nil {
		return domain.Quiz{}, err
	}

	quiz := domain.Quiz{
		ID:                 s.newID(),
		Title:              strings.TrimSpace(input.Title),
		Rules:              input.Rules,
		Questions:          input.Questions,
		Amount:             len(input.Questions),
		MaxScorePerSong:    input.MaxScorePerSong,
		CalculatedMaxScore: scoring.MaxScore(input.Questions),
		IsReady:            input.IsReady,
		CreatedBy:          ident.UID,
	}
	if err := s.quizzes.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// UpdateQuiz replaces the author-editable fields of an existing quiz.
// Ratings and their summary fields are untouched; they belong to the
// rating aggregator.
func (s *QuizService) UpdateQuiz(ctx context.Context, ident domain.Identity, quizID string, input QuizInput) (domain.Quiz, error) {
	if ident.UID == "" {
		return domain.Quiz{}, domain.ErrUnauthorized
	}
	if err := validateQuizInput(input); err != nil {
		return domain.Quiz{}, err
	}

	updated, err := s.quizzes.UpdateQuiz(ctx, quizID, func(quiz *domain.Quiz) error {
		if quiz.CreatedBy != ident.UID {
			return domain.ErrUnauthorized
		}
		quiz.Title = strings.TrimSpace(input.Title)
		quiz.Rules = input.Rules
		quiz.Questions = input.Questions
		quiz.Amount = len(input.Questions)
		quiz.MaxScorePerSong = input.MaxScorePerSong
		quiz.CalculatedMaxScore = scoring.MaxScore(input.Questions)
		quiz.IsReady = input.IsReady
		return nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, quizID)
	}
	return updated, nil
}

// GetQuiz returns one quiz by ID.
func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, quizID)
}

// ListReadyQuizzes returns quizzes whose authors have opened them to
// participants, ordered by title.
func (s *QuizService) ListReadyQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	all, err := s.quizzes.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	ready := make([]domain.Quiz, 0, len(all))
	for _, quiz := range all {
		if quiz.IsReady {
			ready = append(ready, quiz)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].Title < ready[j].Title })
	return ready, nil
}

// ResultRow is one participant's line in the results view.
type ResultRow struct {
	AnswerID          string   `json:"answerId"`
	AnswerCreatorName string   `json:"answerCreatorName"`
	TeamMembers       []string `json:"teamMembers"`
	Score             float64  `json:"score"`
	MaxScore          float64  `json:"maxScore"`
	OverallPercentage float64  `json:"overallPercentage"`
	IsCompleted       bool     `json:"isCompleted"`
}

// ListQuizResults builds the results table for a quiz. The percentage is
// normalized by the quiz's full calculatedMaxScore, extra questions
// included, so a perfect run is always 100 regardless of quiz shape.
// Sorted score descending, ties broken by earlier submission then name.
func (s *QuizService) ListQuizResults(ctx context.Context, quizID string) ([]ResultRow, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	answers, err := s.answers.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	maxScore := scoring.MaxScore(quiz.Questions)
	rows := make([]ResultRow, 0, len(answers))
	submittedAt := make(map[string]time.Time, len(answers))
	for _, answer := range answers {
		percentage := 0.0
		if maxScore > 0 {
			percentage = 100 * answer.Score / maxScore
		}
		rows = append(rows, ResultRow{
			AnswerID:          answer.ID,
			AnswerCreatorName: answer.AnswerCreatorName,
			TeamMembers:       answer.TeamMembers,
			Score:             answer.Score,
			MaxScore:          maxScore,
			OverallPercentage: percentage,
			IsCompleted:       answer.IsCompleted,
		})
		submittedAt[answer.ID] = answer.SubmittedAt
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		ti, tj := submittedAt[rows[i].AnswerID], submittedAt[rows[j].AnswerID]
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return rows[i].AnswerCreatorName < rows[j].AnswerCreatorName
	})
	return rows, nil
}

func validateQuizInput(input QuizInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if len(input.Questions) == 0 {
		return fmt.Errorf("%w: at least one question is required", domain.ErrValidation)
	}
	for i, q := range input.Questions {
		if strings.TrimSpace(q.Artist) == "" || strings.TrimSpace(q.Song) == "" {
			return fmt.Errorf("%w: question %d needs both artist and song", domain.ErrValidation, i+1)
		}
	}
	return nil
}
