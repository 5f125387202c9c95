package scoring

import (
	"fmt"
	"math"

	"musicquiz-service/internal/domain"
	"musicquiz-service/internal/match"
)

// Result is the outcome of auto-grading one answer against the key.
type Result struct {
	PerSong []float64
	Total   float64
}

// Score grades guesses against the quiz's answer key using approximate
// string matching at the given threshold. PerSong is index-aligned with the
// key. When the guess list and the key differ in length (a quiz edited after
// submission), only the overlapping prefix is graded; the remainder scores
// zero rather than failing the operation.
func Score(guesses []domain.GuessedSong, key []domain.Question, threshold float64) Result {
	perSong := make([]float64, len(key))
	n := len(guesses)
	if len(key) < n {
		n = len(key)
	}

	total := 0.0
	for i := 0; i < n; i++ {
		points := 0.0
		if match.Similar(guesses[i].Artist, key[i].Artist, threshold) {
			points += pointsPerField
		}
		if match.Similar(guesses[i].SongName, key[i].Song, threshold) {
			points += pointsPerField
		}
		if key[i].HasScoredExtra() && match.Similar(guesses[i].ExtraAnswer, key[i].CorrectExtraAnswer, threshold) {
			points += pointsPerField
		}
		perSong[i] = points
		total += points
	}

	return Result{PerSong: perSong, Total: total}
}

// Sum adds up a self-assessed score vector.
func Sum(scores []float64) float64 {
	total := 0.0
	for _, s := range scores {
		total += s
	}
	return total
}

// ValidateSelfAssessed checks a manual score vector against the key: one
// slot per question, each value on the half-point ladder between zero and
// that question's ceiling.
func ValidateSelfAssessed(scores []float64, key []domain.Question) error {
	if len(scores) != len(key) {
		return fmt.Errorf("%w: expected %d song scores, got %d", domain.ErrValidation, len(key), len(scores))
	}
	for i, s := range scores {
		max := MaxScoreForSong(key[i])
		if s < 0 || s > max {
			return fmt.Errorf("%w: song %d score %v outside [0, %v]", domain.ErrValidation, i+1, s, max)
		}
		if s*2 != math.Trunc(s*2) {
			return fmt.Errorf("%w: song %d score %v is not a half-point step", domain.ErrValidation, i+1, s)
		}
	}
	return nil
}
