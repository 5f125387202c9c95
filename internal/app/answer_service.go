package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"musicquiz-service/internal/domain"
	"musicquiz-service/internal/match"
	"musicquiz-service/internal/scoring"
)

// DraftData carries the participant-editable fields of an answer.
type DraftData struct {
	TeamSize    int                  `json:"teamSize"`
	TeamMembers []string             `json:"teamMembers"`
	Answers     []domain.GuessedSong `json:"answers"`
}

// AnswerService drives an answer through its lifecycle:
// draft (autosave/edit/submit) -> ready for review (assessment) -> completed.
// Every mutating call verifies the caller owns the answer and that the
// transition is legal for the current state.
type AnswerService struct {
	quizzes   QuizReader
	answers   AnswerStore
	threshold float64
	clock     func() time.Time
	newID     func() string
}

func NewAnswerService(quizzes QuizReader, answers AnswerStore, threshold float64) *AnswerService {
	return NewAnswerServiceWithClock(quizzes, answers, threshold, time.Now)
}

// NewAnswerServiceWithClock is test-only for deterministic timestamps.
func NewAnswerServiceWithClock(quizzes QuizReader, answers AnswerStore, threshold float64, now func() time.Time) *AnswerService {
	if threshold <= 0 {
		threshold = match.DefaultThreshold
	}
	return &AnswerService{
		quizzes:   quizzes,
		answers:   answers,
		threshold: threshold,
		clock:     now,
		newID:     uuid.NewString,
	}
}

// Autosave upserts the participant's draft. It is idempotent and safe to
// retry: the submission timestamp is stamped exactly once, on the very first
// persisted write, and the checked/completed flags are never touched. Once
// the answer has left Draft the save is rejected so a stale timer can never
// overwrite an authoritative transition; callers are expected to log and
// swallow that error rather than surface it.
func (s *AnswerService) Autosave(ctx context.Context, ident domain.Identity, quizID string, data DraftData) (domain.Answer, error) {
	if ident.UID == "" {
		return domain.Answer{}, domain.ErrUnauthorized
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Answer{}, err
	}

	teamSize, teamMembers := normalizeTeam(data)
	now := s.clock()

	existing, ok, err := s.answers.FindByQuizAndCreator(ctx, quizID, ident.UID)
	if err != nil {
		return domain.Answer{}, err
	}
	if !ok {
		answer := s.newAnswer(ident, quiz, data.Answers, teamSize, teamMembers, now)
		answer.AutoSavedAt = now
		if err := s.answers.CreateAnswer(ctx, answer); err != nil {
			return domain.Answer{}, err
		}
		return answer, nil
	}

	return s.answers.UpdateAnswer(ctx, existing.ID, func(answer *domain.Answer) error {
		if answer.State() != domain.StateDraft {
			return fmt.Errorf("%w: autosave after %s", domain.ErrInvalidState, answer.State())
		}
		answer.Answers = data.Answers
		answer.TeamSize = teamSize
		answer.TeamMembers = teamMembers
		answer.CalculatedMaxScore = scoring.MaxScore(quiz.Questions)
		answer.AutoSavedAt = now
		return nil
	})
}

// Submit persists the participant's final guesses. With asReview the answer
// moves straight to ReadyForReview; otherwise it stays an editable draft.
func (s *AnswerService) Submit(ctx context.Context, ident domain.Identity, quizID string, data DraftData, asReview bool) (domain.Answer, error) {
	if ident.UID == "" {
		return domain.Answer{}, domain.ErrUnauthorized
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Answer{}, err
	}
	teamSize, teamMembers := normalizeTeam(data)
	if err := validateDraft(data, teamSize, teamMembers, quiz); err != nil {
		return domain.Answer{}, err
	}
	now := s.clock()

	existing, ok, err := s.answers.FindByQuizAndCreator(ctx, quizID, ident.UID)
	if err != nil {
		return domain.Answer{}, err
	}
	if !ok {
		answer := s.newAnswer(ident, quiz, data.Answers, teamSize, teamMembers, now)
		answer.EditedAt = now
		answer.IsChecked = asReview
		if err := s.answers.CreateAnswer(ctx, answer); err != nil {
			return domain.Answer{}, err
		}
		return answer, nil
	}

	return s.answers.UpdateAnswer(ctx, existing.ID, func(answer *domain.Answer) error {
		if answer.State() != domain.StateDraft {
			return fmt.Errorf("%w: submit after %s", domain.ErrInvalidState, answer.State())
		}
		answer.Answers = data.Answers
		answer.TeamSize = teamSize
		answer.TeamMembers = teamMembers
		answer.CalculatedMaxScore = scoring.MaxScore(quiz.Questions)
		answer.EditedAt = now
		answer.IsChecked = asReview
		return nil
	})
}

// EditDraft rewrites the structured guesses of an existing draft. Once the
// answer is checked the guesses are frozen and the edit fails.
func (s *AnswerService) EditDraft(ctx context.Context, ident domain.Identity, answerID string, data DraftData) (domain.Answer, error) {
	if ident.UID == "" {
		return domain.Answer{}, domain.ErrUnauthorized
	}
	existing, err := s.answers.GetAnswer(ctx, answerID)
	if err != nil {
		return domain.Answer{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, existing.QuizID)
	if err != nil {
		return domain.Answer{}, err
	}
	teamSize, teamMembers := normalizeTeam(data)
	if err := validateDraft(data, teamSize, teamMembers, quiz); err != nil {
		return domain.Answer{}, err
	}
	now := s.clock()

	return s.answers.UpdateAnswer(ctx, answerID, func(answer *domain.Answer) error {
		if answer.AnswerCreatorID != ident.UID {
			return domain.ErrUnauthorized
		}
		if answer.State() != domain.StateDraft {
			return fmt.Errorf("%w: guesses are frozen after %s", domain.ErrInvalidState, answer.State())
		}
		answer.Answers = data.Answers
		answer.TeamSize = teamSize
		answer.TeamMembers = teamMembers
		answer.CalculatedMaxScore = scoring.MaxScore(quiz.Questions)
		answer.EditedAt = now
		return nil
	})
}

// MarkReadyForReview freezes the guesses and hands the answer over for
// grading.
func (s *AnswerService) MarkReadyForReview(ctx context.Context, ident domain.Identity, answerID string) (domain.Answer, error) {
	if ident.UID == "" {
		return domain.Answer{}, domain.ErrUnauthorized
	}
	return s.answers.UpdateAnswer(ctx, answerID, func(answer *domain.Answer) error {
		if answer.AnswerCreatorID != ident.UID {
			return domain.ErrUnauthorized
		}
		if answer.State() != domain.StateDraft {
			return fmt.Errorf("%w: already %s", domain.ErrInvalidState, answer.State())
		}
		answer.IsChecked = true
		return nil
	})
}

// SelfAssess persists a manual per-song score vector while the answer stays
// in review. Scores live on the half-point ladder up to each question's
// ceiling, not just the auto-scorer's output.
func (s *AnswerService) SelfAssess(ctx context.Context, ident domain.Identity, answerID string, scores []float64) (domain.Answer, error) {
	return s.assess(ctx, ident, answerID, scores, false)
}

// CompleteAssessment persists the final scores and seals the answer. All
// further mutation attempts fail.
func (s *AnswerService) CompleteAssessment(ctx context.Context, ident domain.Identity, answerID string, scores []float64) (domain.Answer, error) {
	return s.assess(ctx, ident, answerID, scores, true)
}

// AutoCalculate grades the guesses against the quiz's answer key and
// overwrites the entire self-assessed vector with the result. It never
// merges with manual scores.
func (s *AnswerService) AutoCalculate(ctx context.Context, ident domain.Identity, answerID string) (domain.Answer, error) {
	if ident.UID == "" {
		return domain.Answer{}, domain.ErrUnauthorized
	}
	existing, err := s.answers.GetAnswer(ctx, answerID)
	if err != nil {
		return domain.Answer{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, existing.QuizID)
	if err != nil {
		return domain.Answer{}, err
	}

	return s.answers.UpdateAnswer(ctx, answerID, func(answer *domain.Answer) error {
		if answer.AnswerCreatorID != ident.UID {
			return domain.ErrUnauthorized
		}
		if answer.State() != domain.StateReadyForReview {
			return fmt.Errorf("%w: auto-calculate requires review state, answer is %s", domain.ErrInvalidState, answer.State())
		}
		result := scoring.Score(answer.Answers, quiz.Questions, s.threshold)
		answer.SelfAssessedSongScores = result.PerSong
		answer.Score = result.Total
		answer.CalculatedMaxScore = scoring.MaxScore(quiz.Questions)
		return nil
	})
}

// GetAnswer returns one answer by ID.
func (s *AnswerService) GetAnswer(ctx context.Context, answerID string) (domain.Answer, error) {
	return s.answers.GetAnswer(ctx, answerID)
}

// FindMine returns the caller's answer for a quiz, if any.
func (s *AnswerService) FindMine(ctx context.Context, ident domain.Identity, quizID string) (domain.Answer, bool, error) {
	if ident.UID == "" {
		return domain.Answer{}, false, domain.ErrUnauthorized
	}
	return s.answers.FindByQuizAndCreator(ctx, quizID, ident.UID)
}

func (s *AnswerService) assess(ctx context.Context, ident domain.Identity, answerID string, scores []float64, complete bool) (domain.Answer, error) {
	if ident.UID == "" {
		return domain.Answer{}, domain.ErrUnauthorized
	}
	existing, err := s.answers.GetAnswer(ctx, answerID)
	if err != nil {
		return domain.Answer{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, existing.QuizID)
	if err != nil {
		return domain.Answer{}, err
	}
	if err := scoring.ValidateSelfAssessed(scores, quiz.Questions); err != nil {
		return domain.Answer{}, err
	}

	return s.answers.UpdateAnswer(ctx, answerID, func(answer *domain.Answer) error {
		if answer.AnswerCreatorID != ident.UID {
			return domain.ErrUnauthorized
		}
		if answer.State() != domain.StateReadyForReview {
			return fmt.Errorf("%w: assessment requires review state, answer is %s", domain.ErrInvalidState, answer.State())
		}
		answer.SelfAssessedSongScores = scores
		answer.Score = scoring.Sum(scores)
		answer.CalculatedMaxScore = scoring.MaxScore(quiz.Questions)
		if complete {
			answer.IsCompleted = true
		}
		return nil
	})
}

// newAnswer builds the very first persisted version of an answer. The
// submission timestamp is stamped here and never again.
func (s *AnswerService) newAnswer(ident domain.Identity, quiz domain.Quiz, guesses []domain.GuessedSong, teamSize int, teamMembers []string, now time.Time) domain.Answer {
	return domain.Answer{
		ID:                     s.newID(),
		QuizID:                 quiz.ID,
		AnswerCreatorID:        ident.UID,
		AnswerCreatorName:      ident.DisplayName,
		TeamSize:               teamSize,
		TeamMembers:            teamMembers,
		Answers:                guesses,
		SelfAssessedSongScores: make([]float64, len(quiz.Questions)),
		CalculatedMaxScore:     scoring.MaxScore(quiz.Questions),
		SubmittedAt:            now,
	}
}

// normalizeTeam filters blank team member entries and clamps the team size
// to at least the participant themselves.
func normalizeTeam(data DraftData) (int, []string) {
	members := make([]string, 0, len(data.TeamMembers))
	for _, m := range data.TeamMembers {
		if trimmed := strings.TrimSpace(m); trimmed != "" {
			members = append(members, trimmed)
		}
	}
	size := data.TeamSize
	if size < 1 {
		size = 1
	}
	return size, members
}

func validateDraft(data DraftData, teamSize int, teamMembers []string, quiz domain.Quiz) error {
	if data.TeamSize < 1 {
		return fmt.Errorf("%w: team size must be at least 1", domain.ErrValidation)
	}
	if len(teamMembers) > teamSize-1 {
		return fmt.Errorf("%w: %d team members listed for a team of %d", domain.ErrValidation, len(teamMembers), teamSize)
	}
	if len(data.Answers) != len(quiz.Questions) {
		return fmt.Errorf("%w: expected %d guesses, got %d", domain.ErrValidation, len(quiz.Questions), len(data.Answers))
	}
	return nil
}
