package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"musicquiz-service/internal/app"
	"musicquiz-service/internal/domain"
	"musicquiz-service/internal/infra/memory"
	"musicquiz-service/internal/match"
	"musicquiz-service/internal/scoring"
)

var (
	alice = domain.Identity{UID: "u1", DisplayName: "Alice"}
	bob   = domain.Identity{UID: "u2", DisplayName: "Bob"}
)

type testEnv struct {
	store   *memory.Store
	service *app.AnswerService
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store: memory.NewStore(),
		now:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	env.service = app.NewAnswerServiceWithClock(env.store, env.store, match.DefaultThreshold, func() time.Time { return env.now })

	questions := []domain.Question{
		{Artist: "Queen", Song: "Bohemian Rhapsody"},
		{Artist: "Blink-182", Song: "All the Small Things", Extra: "Release year?", CorrectExtraAnswer: "1999"},
	}
	if err := env.store.CreateQuiz(context.Background(), domain.Quiz{
		ID:                 "quiz-1",
		Title:              "Test quiz",
		Questions:          questions,
		Amount:             len(questions),
		CalculatedMaxScore: scoring.MaxScore(questions),
		IsReady:            true,
		CreatedBy:          "host",
	}); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	return env
}

func goodGuesses() []domain.GuessedSong {
	return []domain.GuessedSong{
		{Artist: "queen", SongName: "Bohemian Rhapsody"},
		{Artist: "blink 182", SongName: "All The Small Things"},
	}
}

func draft() app.DraftData {
	return app.DraftData{TeamSize: 1, Answers: goodGuesses()}
}

func TestAutosaveCreatesOnceAndStaysIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	first, err := env.service.Autosave(ctx, alice, "quiz-1", draft())
	if err != nil {
		t.Fatalf("autosave: %v", err)
	}
	if first.SubmittedAt != env.now {
		t.Fatalf("expected submission timestamp on first write")
	}
	if first.CalculatedMaxScore != 2.5 {
		t.Fatalf("expected snapshot 2.5, got %v", first.CalculatedMaxScore)
	}

	env.now = env.now.Add(3 * time.Minute)
	second, err := env.service.Autosave(ctx, alice, "quiz-1", draft())
	if err != nil {
		t.Fatalf("second autosave: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("autosave must upsert, got new answer %s", second.ID)
	}
	if !second.SubmittedAt.Equal(first.SubmittedAt) {
		t.Fatalf("submission timestamp must be stamped exactly once")
	}
	if !second.AutoSavedAt.Equal(env.now) {
		t.Fatalf("expected autosave timestamp refreshed")
	}
	if second.IsChecked || second.IsCompleted || second.Score != 0 {
		t.Fatalf("autosave must never change state or score: %+v", second)
	}
}

func TestAutosaveRejectedOutsideDraft(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	if _, err := env.service.Submit(ctx, alice, "quiz-1", draft(), true); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err := env.service.Autosave(ctx, alice, "quiz-1", draft())
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected stale autosave rejected, got %v", err)
	}
}

func TestAutosaveRequiresIdentity(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.service.Autosave(context.Background(), domain.Identity{}, "quiz-1", draft())
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSubmitValidatesInput(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	short := app.DraftData{TeamSize: 1, Answers: goodGuesses()[:1]}
	if _, err := env.service.Submit(ctx, alice, "quiz-1", short, false); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for guess count, got %v", err)
	}

	noTeam := app.DraftData{TeamSize: 0, Answers: goodGuesses()}
	if _, err := env.service.Submit(ctx, alice, "quiz-1", noTeam, false); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for team size, got %v", err)
	}

	crowded := app.DraftData{TeamSize: 2, TeamMembers: []string{"Ann", "Ben"}, Answers: goodGuesses()}
	if _, err := env.service.Submit(ctx, alice, "quiz-1", crowded, false); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for member overflow, got %v", err)
	}
}

func TestSubmitFiltersBlankTeamMembers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	data := app.DraftData{TeamSize: 3, TeamMembers: []string{" Ann ", "", "Ben"}, Answers: goodGuesses()}
	answer, err := env.service.Submit(ctx, alice, "quiz-1", data, false)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(answer.TeamMembers) != 2 || answer.TeamMembers[0] != "Ann" || answer.TeamMembers[1] != "Ben" {
		t.Fatalf("expected trimmed non-blank members, got %v", answer.TeamMembers)
	}
}

func TestEditDraftFrozenOnceChecked(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	answer, err := env.service.Submit(ctx, alice, "quiz-1", draft(), true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err = env.service.EditDraft(ctx, alice, answer.ID, draft())
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected frozen guesses, got %v", err)
	}
}

func TestMutationsGuardCreator(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	answer, err := env.service.Submit(ctx, alice, "quiz-1", draft(), true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := env.service.MarkReadyForReview(ctx, bob, answer.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("markReady by stranger: got %v", err)
	}
	if _, err := env.service.AutoCalculate(ctx, bob, answer.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("autoCalculate by stranger: got %v", err)
	}
	if _, err := env.service.SelfAssess(ctx, bob, answer.ID, []float64{1, 1}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("selfAssess by stranger: got %v", err)
	}
}

func TestLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// Draft via autosave, then manual submit without review.
	if _, err := env.service.Autosave(ctx, alice, "quiz-1", draft()); err != nil {
		t.Fatalf("autosave: %v", err)
	}
	answer, err := env.service.Submit(ctx, alice, "quiz-1", draft(), false)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if answer.State() != domain.StateDraft {
		t.Fatalf("expected draft after plain submit, got %s", answer.State())
	}

	// Assessment is not allowed while drafting.
	if _, err := env.service.AutoCalculate(ctx, alice, answer.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("autoCalculate in draft: got %v", err)
	}

	answer, err = env.service.MarkReadyForReview(ctx, alice, answer.ID)
	if err != nil {
		t.Fatalf("markReady: %v", err)
	}
	if answer.State() != domain.StateReadyForReview {
		t.Fatalf("expected readyForReview, got %s", answer.State())
	}

	// Both artists and songs match, the extra was left blank: 2.0 of 2.5.
	answer, err = env.service.AutoCalculate(ctx, alice, answer.ID)
	if err != nil {
		t.Fatalf("autoCalculate: %v", err)
	}
	if answer.Score != 2.0 {
		t.Fatalf("expected auto score 2.0, got %v", answer.Score)
	}
	if len(answer.SelfAssessedSongScores) != 2 || answer.SelfAssessedSongScores[0] != 1.0 || answer.SelfAssessedSongScores[1] != 1.0 {
		t.Fatalf("expected perSong [1 1], got %v", answer.SelfAssessedSongScores)
	}

	// Manual override stays within the ladder and the review state.
	answer, err = env.service.SelfAssess(ctx, alice, answer.ID, []float64{0.5, 1.5})
	if err != nil {
		t.Fatalf("selfAssess: %v", err)
	}
	if answer.Score != 2.0 || answer.State() != domain.StateReadyForReview {
		t.Fatalf("expected overridden total 2.0 in review, got %v in %s", answer.Score, answer.State())
	}
	if _, err := env.service.SelfAssess(ctx, alice, answer.ID, []float64{2.0, 1.5}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ladder violation, got %v", err)
	}

	answer, err = env.service.CompleteAssessment(ctx, alice, answer.ID, []float64{1.0, 1.0})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if answer.State() != domain.StateCompleted || answer.Score != 2.0 {
		t.Fatalf("expected completed with 2.0, got %s %v", answer.State(), answer.Score)
	}

	// Terminal: everything fails from here.
	if _, err := env.service.SelfAssess(ctx, alice, answer.ID, []float64{1.0, 1.0}); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("selfAssess after completion: got %v", err)
	}
	if _, err := env.service.EditDraft(ctx, alice, answer.ID, draft()); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("editDraft after completion: got %v", err)
	}
	if _, err := env.service.MarkReadyForReview(ctx, alice, answer.ID); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("markReady after completion: got %v", err)
	}
}

func TestSubmitUnknownQuiz(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.service.Submit(context.Background(), alice, "quiz-404", draft(), false)
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}
