// Package scoring derives quiz score ceilings and grades submitted guesses
// against a quiz's answer key. All functions are pure; every write path and
// the backfill job call back into them instead of trusting stored values.
package scoring

import "musicquiz-service/internal/domain"

// pointsPerField is the weight of one gradeable field (artist, song, extra).
const pointsPerField = 0.5

// MaxScore returns the maximum achievable score for a question list:
// half a point each for artist and song, plus half a point when the bonus
// sub-question is fully authored. This is the single source of truth for
// a quiz's calculatedMaxScore.
func MaxScore(questions []domain.Question) float64 {
	total := 0.0
	for _, q := range questions {
		total += MaxScoreForSong(q)
	}
	return total
}

// MaxScoreForSong returns the ceiling for a single question.
func MaxScoreForSong(q domain.Question) float64 {
	max := 2 * pointsPerField
	if q.HasScoredExtra() {
		max += pointsPerField
	}
	return max
}
