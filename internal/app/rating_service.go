package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"musicquiz-service/internal/domain"
)

// RatingSummary is the recomputed aggregate after a rating write.
type RatingSummary struct {
	AverageRating float64 `json:"averageRating"`
	RatingCount   int     `json:"ratingCount"`
}

// RatingService folds one user's rating into a quiz. The whole
// read -> merge -> recompute -> write sequence runs inside the store's
// single-document transaction, so two users rating concurrently can never
// lose each other's entry.
type RatingService struct {
	quizzes QuizStore
	cache   QuizInvalidator
	clock   func() time.Time
}

func NewRatingService(quizzes QuizStore, cache QuizInvalidator) *RatingService {
	return NewRatingServiceWithClock(quizzes, cache, time.Now)
}

// NewRatingServiceWithClock is test-only for deterministic timestamps.
func NewRatingServiceWithClock(quizzes QuizStore, cache QuizInvalidator, now func() time.Time) *RatingService {
	return &RatingService{quizzes: quizzes, cache: cache, clock: now}
}

// Rate upserts the caller's rating: an existing entry is replaced in place
// (its position in the list preserved), otherwise a new one is appended.
// A nil value aborts before writing and returns the current summary.
func (s *RatingService) Rate(ctx context.Context, quizID, userID string, value *float64) (RatingSummary, error) {
	if userID == "" {
		return RatingSummary{}, domain.ErrUnauthorized
	}
	if value == nil {
		quiz, err := s.quizzes.GetQuiz(ctx, quizID)
		if err != nil {
			return RatingSummary{}, err
		}
		return RatingSummary{AverageRating: quiz.AverageRating, RatingCount: quiz.RatingCount}, nil
	}
	if err := validateRating(*value); err != nil {
		return RatingSummary{}, err
	}

	updated, err := s.quizzes.UpdateQuiz(ctx, quizID, func(quiz *domain.Quiz) error {
		now := s.clock()
		replaced := false
		for i := range quiz.Ratings {
			if quiz.Ratings[i].UserID == userID {
				quiz.Ratings[i].Value = *value
				quiz.Ratings[i].RatedAt = now
				replaced = true
				break
			}
		}
		if !replaced {
			quiz.Ratings = append(quiz.Ratings, domain.Rating{UserID: userID, Value: *value, RatedAt: now})
		}

		sum := 0.0
		for _, r := range quiz.Ratings {
			sum += r.Value
		}
		quiz.RatingCount = len(quiz.Ratings)
		quiz.AverageRating = round1(sum / float64(quiz.RatingCount))
		return nil
	})
	if err != nil {
		return RatingSummary{}, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, quizID)
	}
	return RatingSummary{AverageRating: updated.AverageRating, RatingCount: updated.RatingCount}, nil
}

// round1 rounds to one decimal, half away from zero.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func validateRating(value float64) error {
	if value < 0 || value > 5 {
		return fmt.Errorf("%w: rating %v outside [0, 5]", domain.ErrValidation, value)
	}
	if value*2 != math.Trunc(value*2) {
		return fmt.Errorf("%w: rating %v is not a half-point step", domain.ErrValidation, value)
	}
	return nil
}
