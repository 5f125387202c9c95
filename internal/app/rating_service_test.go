package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"musicquiz-service/internal/app"
	"musicquiz-service/internal/domain"
	"musicquiz-service/internal/infra/memory"
)

func newRatingEnv(t *testing.T) (*memory.Store, *app.RatingService) {
	t.Helper()
	store := memory.NewStore()
	if err := store.CreateQuiz(context.Background(), domain.Quiz{
		ID:        "quiz-1",
		Title:     "Rated quiz",
		Questions: []domain.Question{{Artist: "a", Song: "b"}},
		CreatedBy: "host",
	}); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service := app.NewRatingServiceWithClock(store, nil, func() time.Time { return now })
	return store, service
}

func ptr(v float64) *float64 { return &v }

func TestRateReplacesNotAppends(t *testing.T) {
	ctx := context.Background()
	store, service := newRatingEnv(t)

	if _, err := service.Rate(ctx, "quiz-1", "u1", ptr(4)); err != nil {
		t.Fatalf("first rate: %v", err)
	}
	summary, err := service.Rate(ctx, "quiz-1", "u1", ptr(2))
	if err != nil {
		t.Fatalf("second rate: %v", err)
	}
	if summary.RatingCount != 1 || summary.AverageRating != 2.0 {
		t.Fatalf("expected count 1 average 2.0, got %+v", summary)
	}

	quiz, err := store.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(quiz.Ratings) != 1 || quiz.Ratings[0].Value != 2 {
		t.Fatalf("expected one replaced rating, got %+v", quiz.Ratings)
	}
}

func TestRatePreservesPositionOnReplace(t *testing.T) {
	ctx := context.Background()
	store, service := newRatingEnv(t)

	for _, r := range []struct {
		user  string
		value float64
	}{{"u1", 3}, {"u2", 4}, {"u3", 5}} {
		if _, err := service.Rate(ctx, "quiz-1", r.user, ptr(r.value)); err != nil {
			t.Fatalf("rate %s: %v", r.user, err)
		}
	}
	if _, err := service.Rate(ctx, "quiz-1", "u2", ptr(1)); err != nil {
		t.Fatalf("re-rate u2: %v", err)
	}

	quiz, _ := store.GetQuiz(ctx, "quiz-1")
	if len(quiz.Ratings) != 3 || quiz.Ratings[1].UserID != "u2" || quiz.Ratings[1].Value != 1 {
		t.Fatalf("expected u2 replaced in place, got %+v", quiz.Ratings)
	}
}

func TestConcurrentRatingsLoseNothing(t *testing.T) {
	ctx := context.Background()
	_, service := newRatingEnv(t)

	var wg sync.WaitGroup
	for _, r := range []struct {
		user  string
		value float64
	}{{"u1", 4}, {"u2", 5}} {
		wg.Add(1)
		go func(user string, value float64) {
			defer wg.Done()
			if _, err := service.Rate(ctx, "quiz-1", user, ptr(value)); err != nil {
				t.Errorf("rate %s: %v", user, err)
			}
		}(r.user, r.value)
	}
	wg.Wait()

	summary, err := service.Rate(ctx, "quiz-1", "u1", nil)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if summary.RatingCount != 2 || summary.AverageRating != 4.5 {
		t.Fatalf("expected count 2 average 4.5, got %+v", summary)
	}
}

func TestRateRoundsHalfAwayFromZero(t *testing.T) {
	ctx := context.Background()
	_, service := newRatingEnv(t)

	if _, err := service.Rate(ctx, "quiz-1", "u1", ptr(4.5)); err != nil {
		t.Fatalf("rate: %v", err)
	}
	summary, err := service.Rate(ctx, "quiz-1", "u2", ptr(4))
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	// (4.5 + 4) / 2 = 4.25 rounds up to 4.3.
	if summary.AverageRating != 4.3 {
		t.Fatalf("expected 4.3, got %v", summary.AverageRating)
	}
}

func TestRateValidation(t *testing.T) {
	ctx := context.Background()
	_, service := newRatingEnv(t)

	for _, v := range []float64{-0.5, 5.5, 4.3} {
		if _, err := service.Rate(ctx, "quiz-1", "u1", ptr(v)); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("value %v: expected validation error, got %v", v, err)
		}
	}
	if _, err := service.Rate(ctx, "quiz-1", "", ptr(4)); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for empty user, got %v", err)
	}
	if _, err := service.Rate(ctx, "quiz-404", "u1", ptr(4)); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestRateNilValueIsNoOp(t *testing.T) {
	ctx := context.Background()
	store, service := newRatingEnv(t)

	summary, err := service.Rate(ctx, "quiz-1", "u1", nil)
	if err != nil {
		t.Fatalf("nil rate: %v", err)
	}
	if summary.RatingCount != 0 {
		t.Fatalf("expected untouched summary, got %+v", summary)
	}
	quiz, _ := store.GetQuiz(ctx, "quiz-1")
	if len(quiz.Ratings) != 0 {
		t.Fatalf("nil value must not write, got %+v", quiz.Ratings)
	}
}
