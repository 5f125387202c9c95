package app

import (
	"context"
	"log"

	"musicquiz-service/internal/domain"
	"musicquiz-service/internal/scoring"
)

// BackfillReport summarizes one reconciliation run.
type BackfillReport struct {
	QuizzesProcessed int
	QuizzesUpdated   int
	AnswersProcessed int
	AnswersUpdated   int
	AnswersSkipped   int
	Errors           int
}

// MaxScoreBackfill reconciles every persisted quiz's calculatedMaxScore
// with the question list and copies the value onto answers that are missing
// their snapshot. One bad record never aborts the batch; failures are
// logged and counted.
type MaxScoreBackfill struct {
	quizzes QuizStore
	answers AnswerStore
}

func NewMaxScoreBackfill(quizzes QuizStore, answers AnswerStore) *MaxScoreBackfill {
	return &MaxScoreBackfill{quizzes: quizzes, answers: answers}
}

func (b *MaxScoreBackfill) Run(ctx context.Context) (BackfillReport, error) {
	report := BackfillReport{}

	quizzes, err := b.quizzes.ListQuizzes(ctx)
	if err != nil {
		return report, err
	}
	maxScores := make(map[string]float64, len(quizzes))
	for _, quiz := range quizzes {
		report.QuizzesProcessed++
		want := scoring.MaxScore(quiz.Questions)
		maxScores[quiz.ID] = want
		if quiz.CalculatedMaxScore == want {
			continue
		}
		if _, err := b.quizzes.UpdateQuiz(ctx, quiz.ID, func(q *domain.Quiz) error {
			q.CalculatedMaxScore = scoring.MaxScore(q.Questions)
			return nil
		}); err != nil {
			log.Printf("backfill: quiz %s update failed: %v", quiz.ID, err)
			report.Errors++
			continue
		}
		report.QuizzesUpdated++
	}

	answers, err := b.answers.ListAnswers(ctx)
	if err != nil {
		return report, err
	}
	for _, answer := range answers {
		report.AnswersProcessed++
		if answer.CalculatedMaxScore != 0 {
			continue
		}
		want, ok := maxScores[answer.QuizID]
		if !ok || want == 0 {
			log.Printf("backfill: answer %s skipped, quiz %s missing or without max score", answer.ID, answer.QuizID)
			report.AnswersSkipped++
			continue
		}
		if _, err := b.answers.UpdateAnswer(ctx, answer.ID, func(a *domain.Answer) error {
			a.CalculatedMaxScore = want
			return nil
		}); err != nil {
			log.Printf("backfill: answer %s update failed: %v", answer.ID, err)
			report.Errors++
			continue
		}
		report.AnswersUpdated++
	}

	return report, nil
}
